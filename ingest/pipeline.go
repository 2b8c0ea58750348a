package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mbolis/survey-intake/database"
	"github.com/mbolis/survey-intake/fieldpath"
	"github.com/mbolis/survey-intake/log"
	"github.com/mbolis/survey-intake/mapping"
	"github.com/mbolis/survey-intake/model"
)

var (
	ErrUnknownWebhook = errors.New("unknown webhook id")
	ErrInvalidPayload = errors.New("invalid JSON payload")
)

// PersistError reports that the event could not be stored. The sender
// should retry the delivery.
type PersistError struct {
	Stage string
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

const (
	StageAccountLookup  = "account_lookup"
	StageSaveTestEvent  = "save_test_event"
	StageInsertResponse = "insert_response"
)

type Store interface {
	AccountByWebhookID(ctx context.Context, webhookID string) (model.Account, error)
	SaveTestEvent(ctx context.Context, accountID int, event json.RawMessage, at time.Time) error
	InsertSurveyResponse(ctx context.Context, r *model.SurveyResponse) error
	UpdateGeneratedEmail(ctx context.Context, responseID int64, subject, body string) error
	TouchLastReceived(ctx context.Context, accountID int, at time.Time) error
}

type Enricher interface {
	Generate(ctx context.Context, req model.EmailRequest) (model.GeneratedEmail, error)
}

type Outcome int

const (
	// TestEventStored means the account had no mapping and the payload
	// was kept as its example.
	TestEventStored Outcome = iota + 1
	// Processed means a survey response was stored.
	Processed
)

type Result struct {
	Outcome  Outcome
	Response *model.SurveyResponse
	// Enriched is false when email generation was skipped or failed.
	Enriched bool
}

type Pipeline struct {
	Store         Store
	Enricher      Enricher // optional
	EnrichTimeout time.Duration
	Now           func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Handle runs one webhook delivery through the pipeline. Failures before
// the response is stored are returned; failures after it are only logged.
func (p *Pipeline) Handle(ctx context.Context, webhookID string, body []byte) (res Result, err error) {
	entry := log.WithFields(log.Fields{"webhook_id": webhookID})

	acc, err := p.Store.AccountByWebhookID(ctx, webhookID)
	if errors.Is(err, database.ErrNotFound) {
		entry.WithField("state", "account_lookup").Debug("ingest: unknown webhook")
		return res, fmt.Errorf("%w: %s", ErrUnknownWebhook, webhookID)
	}
	if err != nil {
		return res, &PersistError{Stage: StageAccountLookup, Err: err}
	}
	entry = entry.WithField("account_id", acc.ID)

	payload, err := fieldpath.Decode(body)
	if err != nil {
		entry.WithField("state", "decode").Debugf("ingest: bad payload: %s", err)
		return res, ErrInvalidPayload
	}

	receivedAt := p.now()
	record, err := mapping.Evaluate(acc.WebhookConfig, payload)
	switch {
	case errors.Is(err, mapping.ErrNoMapping):
		entry.WithField("state", "no_mapping").Info("ingest: storing test event")
		if err = p.Store.SaveTestEvent(ctx, acc.ID, json.RawMessage(body), receivedAt); err != nil {
			return res, &PersistError{Stage: StageSaveTestEvent, Err: err}
		}
		res.Outcome = TestEventStored
		return res, nil

	case err != nil:
		entry.WithField("state", "mapped").Infof("ingest: %s", err)
		return res, err
	}

	resp := &model.SurveyResponse{
		AccountID:  acc.ID,
		Email:      record.Email,
		SurveyData: record.SurveyData,
		Time:       receivedAt,
	}
	if err = p.Store.InsertSurveyResponse(ctx, resp); err != nil {
		entry.WithField("state", "mapped").Errorf("ingest: insert response: %s", err)
		return res, &PersistError{Stage: StageInsertResponse, Err: err}
	}
	entry = entry.WithField("response_id", resp.ID)
	entry.WithField("state", "persisted").Info("ingest: survey response stored")

	res.Outcome = Processed
	res.Response = resp
	res.Enriched = p.enrich(ctx, entry, acc, resp)

	if err := p.Store.TouchLastReceived(ctx, acc.ID, receivedAt); err != nil {
		entry.WithField("state", "done").Warnf("ingest: update last received: %s", err)
	}
	entry.WithField("state", "done").Debug("ingest: done")
	return res, nil
}

func (p *Pipeline) enrich(ctx context.Context, entry *log.Entry, acc model.Account, resp *model.SurveyResponse) bool {
	entry = entry.WithField("state", "email_requested")
	if p.Enricher == nil {
		entry.Debug("ingest: email generation disabled")
		return false
	}

	generated, err := GenerateEmail(ctx, p.Enricher, p.EnrichTimeout, acc, resp)
	if err != nil {
		entry.Warnf("ingest: generate email: %s", err)
		return false
	}

	if err = p.Store.UpdateGeneratedEmail(ctx, resp.ID, generated.Subject, generated.Email); err != nil {
		entry.Warnf("ingest: store generated email: %s", err)
		return false
	}
	resp.AISubject = generated.Subject
	resp.AIEmail = generated.Email
	return true
}

// GenerateEmail asks enricher for the email of resp using the account's
// email context, giving up after timeout when it is positive.
func GenerateEmail(ctx context.Context, enricher Enricher, timeout time.Duration, acc model.Account, resp *model.SurveyResponse) (model.GeneratedEmail, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	emailContext := model.DefaultEmailContext()
	if acc.EmailContext != nil {
		emailContext = *acc.EmailContext
	}
	return enricher.Generate(ctx, model.EmailRequest{
		CustomerEmail: resp.Email,
		SurveyData:    resp.SurveyData,
		Context:       emailContext,
	})
}
