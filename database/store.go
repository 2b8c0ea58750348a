package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/mbolis/survey-intake/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store keeps accounts, their webhook configuration and the survey
// responses received through their webhooks.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db}
}

func newWebhookID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "generate webhook id")
	}
	return id.String(), nil
}

// CreateAccount registers a new account with a fresh webhook id and an
// empty webhook configuration.
func (s *Store) CreateAccount(ctx context.Context, username string, passwordHash []byte) (acc model.Account, err error) {
	webhookID, err := newWebhookID()
	if err != nil {
		return
	}
	cfg, err := json.Marshal(model.WebhookConfig{
		Provider:      model.ProviderOther,
		FieldMappings: model.FieldMapping{},
	})
	if err != nil {
		return
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO account (username, password_hash, webhook_id, webhook_config)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		username,
		passwordHash,
		webhookID,
		string(cfg),
	).Scan(&acc.ID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return acc, ErrConflict
		}
		return acc, errors.Wrap(err, "insert account")
	}

	acc.Username = username
	acc.WebhookID = webhookID
	acc.WebhookConfig = model.WebhookConfig{Provider: model.ProviderOther, FieldMappings: model.FieldMapping{}}
	return acc, nil
}

const selectAccount = `
	SELECT id, username, webhook_id, webhook_config, webhook_last_received, email_context
	FROM account`

func (s *Store) AccountByWebhookID(ctx context.Context, webhookID string) (model.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, selectAccount+` WHERE webhook_id = ?`, webhookID))
}

func (s *Store) AccountByID(ctx context.Context, id int) (model.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, selectAccount+` WHERE id = ?`, id))
}

func (s *Store) scanAccount(row *sql.Row) (acc model.Account, err error) {
	var cfg string
	var lastReceived sql.NullTime
	var emailContext sql.NullString
	err = row.Scan(&acc.ID, &acc.Username, &acc.WebhookID, &cfg, &lastReceived, &emailContext)
	if errors.Is(err, sql.ErrNoRows) {
		return acc, ErrNotFound
	}
	if err != nil {
		return acc, errors.Wrap(err, "scan account")
	}

	if err = json.Unmarshal([]byte(cfg), &acc.WebhookConfig); err != nil {
		return acc, errors.Wrap(err, "parse webhook config")
	}
	if acc.WebhookConfig.FieldMappings == nil {
		acc.WebhookConfig.FieldMappings = model.FieldMapping{}
	}
	if lastReceived.Valid {
		t := lastReceived.Time
		acc.WebhookLastReceived = &t
	}
	if emailContext.Valid && emailContext.String != "" {
		acc.EmailContext = &model.EmailContext{}
		if err = json.Unmarshal([]byte(emailContext.String), acc.EmailContext); err != nil {
			return acc, errors.Wrap(err, "parse email context")
		}
	}
	return acc, nil
}

// UpdateWebhookConfig replaces the whole webhook configuration of an account.
func (s *Store) UpdateWebhookConfig(ctx context.Context, accountID int, cfg model.WebhookConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode webhook config")
	}
	return s.exec(ctx, "update webhook config", `
		UPDATE account SET webhook_config = ? WHERE id = ?`,
		string(data), accountID,
	)
}

// SaveTestEvent keeps event as the example payload of the account and
// marks it as received.
func (s *Store) SaveTestEvent(ctx context.Context, accountID int, event json.RawMessage, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT webhook_config FROM account WHERE id = ?`, accountID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "select webhook config")
	}

	var cfg model.WebhookConfig
	if err = json.Unmarshal([]byte(data), &cfg); err != nil {
		return errors.Wrap(err, "parse webhook config")
	}
	cfg.Provider = cfg.Provider.Normalize()
	cfg.TestEvent = event

	updated, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode webhook config")
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE account
		SET webhook_config = ?, webhook_last_received = ?
		WHERE id = ?`,
		string(updated), at, accountID,
	)
	if err != nil {
		return errors.Wrap(err, "update webhook config")
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (s *Store) TouchLastReceived(ctx context.Context, accountID int, at time.Time) error {
	return s.exec(ctx, "update last received", `
		UPDATE account SET webhook_last_received = ? WHERE id = ?`,
		at, accountID,
	)
}

// RegenerateWebhookID gives the account a new webhook URL; the old one
// stops working immediately.
func (s *Store) RegenerateWebhookID(ctx context.Context, accountID int) (string, error) {
	webhookID, err := newWebhookID()
	if err != nil {
		return "", err
	}
	err = s.exec(ctx, "update webhook id", `
		UPDATE account SET webhook_id = ? WHERE id = ?`,
		webhookID, accountID,
	)
	return webhookID, err
}

func (s *Store) UpdateEmailContext(ctx context.Context, accountID int, ec model.EmailContext) error {
	data, err := json.Marshal(ec)
	if err != nil {
		return errors.Wrap(err, "encode email context")
	}
	return s.exec(ctx, "update email context", `
		UPDATE account SET email_context = ? WHERE id = ?`,
		string(data), accountID,
	)
}

func (s *Store) InsertSurveyResponse(ctx context.Context, r *model.SurveyResponse) error {
	data, err := json.Marshal(r.SurveyData)
	if err != nil {
		return errors.Wrap(err, "encode survey data")
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO survey_response (account_id, email, survey_data, time)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		r.AccountID, r.Email, string(data), r.Time,
	).Scan(&r.ID)
	return errors.Wrap(err, "insert survey response")
}

func (s *Store) UpdateGeneratedEmail(ctx context.Context, responseID int64, subject, body string) error {
	return s.exec(ctx, "update generated email", `
		UPDATE survey_response SET ai_subject = ?, ai_email = ? WHERE id = ?`,
		subject, body, responseID,
	)
}

const selectResponse = `
	SELECT id, account_id, email, survey_data, ai_subject, ai_email, time
	FROM survey_response`

func (s *Store) SurveyResponse(ctx context.Context, accountID int, id int64) (model.SurveyResponse, error) {
	row := s.db.QueryRowContext(ctx, selectResponse+` WHERE account_id = ? AND id = ?`, accountID, id)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// ListSurveyResponses returns the responses of an account, newest first.
func (s *Store) ListSurveyResponses(ctx context.Context, accountID int) ([]model.SurveyResponse, error) {
	rows, err := s.db.QueryContext(ctx, selectResponse+`
		WHERE account_id = ?
		ORDER BY time DESC, id DESC`,
		accountID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select survey responses")
	}
	defer rows.Close()

	responses := []model.SurveyResponse{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, errors.Wrap(rows.Err(), "iterate survey responses")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(row scanner) (r model.SurveyResponse, err error) {
	var data string
	var subject, body sql.NullString
	err = row.Scan(&r.ID, &r.AccountID, &r.Email, &data, &subject, &body, &r.Time)
	if err != nil {
		return r, err
	}
	r.AISubject = subject.String
	r.AIEmail = body.String
	err = json.Unmarshal([]byte(data), &r.SurveyData)
	return r, errors.Wrap(err, "parse survey data")
}

func (s *Store) exec(ctx context.Context, what string, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}
