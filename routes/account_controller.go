package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-intake/app"
	"github.com/mbolis/survey-intake/database"
	"github.com/mbolis/survey-intake/httpx"
	"github.com/mbolis/survey-intake/ingest"
	"github.com/mbolis/survey-intake/log"
	"github.com/mbolis/survey-intake/mapping"
	"github.com/mbolis/survey-intake/model"
	"github.com/mbolis/survey-intake/routes/middlewares"
)

// loadAccount writes the error response itself when it returns false.
func loadAccount(app app.App, w http.ResponseWriter, r *http.Request) (model.Account, bool) {
	accountID := middlewares.AccountID(r)
	acc, err := app.AccountByID(r.Context(), accountID)
	if errors.Is(err, database.ErrNotFound) {
		httpx.LogNotFound(w, "get_account", accountID)
		return acc, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.get_account", err)
		return acc, false
	}
	return acc, true
}

type webhookInfo struct {
	WebhookID    string              `json:"webhook_id"`
	Config       model.WebhookConfig `json:"webhook_config"`
	LastReceived *time.Time          `json:"webhook_last_received"`
}

func GetWebhook(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, ok := loadAccount(app, w, r)
		if !ok {
			return
		}

		render.JSON(w, r, webhookInfo{
			WebhookID:    acc.WebhookID,
			Config:       acc.WebhookConfig,
			LastReceived: acc.WebhookLastReceived,
		})
	}
}

func UpdateProvider(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Provider model.Provider `json:"provider"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		acc, ok := loadAccount(app, w, r)
		if !ok {
			return
		}

		cfg := acc.WebhookConfig
		cfg.Provider = body.Provider.Normalize()
		err = app.UpdateWebhookConfig(r.Context(), acc.ID, cfg)
		if err != nil {
			httpx.LogInternalError(w, "db.update_webhook_config.provider", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"provider": cfg.Provider,
		})
	}
}

func DiscoverFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Provider model.Provider `json:"provider"`
			Example  string         `json:"example"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		acc, ok := loadAccount(app, w, r)
		if !ok {
			return
		}

		provider := body.Provider
		if provider == "" {
			provider = acc.WebhookConfig.Provider
		}
		example := body.Example
		if example == "" {
			if len(acc.WebhookConfig.TestEvent) == 0 {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "discover.example", mapping.ErrNoTestEvent.Error())
				return
			}
			example = string(acc.WebhookConfig.TestEvent)
		}

		render.JSON(w, r, mapping.Discover(provider, example))
	}
}

type mappingBody struct {
	FieldMappings model.FieldMapping `json:"field_mappings"`
	TestEvent     json.RawMessage    `json:"test_event"`
}

func PreviewMapping(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body mappingBody
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		acc, ok := loadAccount(app, w, r)
		if !ok {
			return
		}

		cfg := acc.WebhookConfig
		if len(body.TestEvent) > 0 {
			cfg.TestEvent = body.TestEvent
		}
		record, err := mapping.Preview(cfg, body.FieldMappings)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "preview.evaluate", err.Error())
			return
		}

		render.JSON(w, r, record)
	}
}

func UpdateMappings(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body mappingBody
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = mapping.ValidateMapping(body.FieldMappings)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "mappings.validate", err.Error())
			return
		}

		acc, ok := loadAccount(app, w, r)
		if !ok {
			return
		}

		cfg := acc.WebhookConfig
		cfg.FieldMappings = body.FieldMappings
		if len(body.TestEvent) > 0 {
			cfg.TestEvent = body.TestEvent
		}
		err = app.UpdateWebhookConfig(r.Context(), acc.ID, cfg)
		if err != nil {
			httpx.LogInternalError(w, "db.update_webhook_config.mappings", err)
			return
		}

		render.JSON(w, r, cfg)
	}
}

func RegenerateWebhook(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := middlewares.AccountID(r)
		webhookID, err := app.RegenerateWebhookID(r.Context(), accountID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, "regenerate_webhook", accountID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_webhook_id", err)
			return
		}

		log.WithFields(log.Fields{"account_id": accountID, "webhook_id": webhookID}).Info("account: webhook id regenerated")
		render.JSON(w, r, map[string]any{
			"webhook_id": webhookID,
		})
	}
}

func UpdateEmailContext(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emailContext := model.EmailContext{}
		err := render.DecodeJSON(r.Body, &emailContext)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		accountID := middlewares.AccountID(r)
		err = app.UpdateEmailContext(r.Context(), accountID, emailContext)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, "update_email_context", accountID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_email_context", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses, err := app.ListSurveyResponses(r.Context(), middlewares.AccountID(r))
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

func GenerateResponseEmail(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		if app.Enricher == nil {
			httpx.LogStatusMsg(w, http.StatusServiceUnavailable, log.DebugLevel, "generate_email", "email generation is not configured")
			return
		}

		acc, ok := loadAccount(app, w, r)
		if !ok {
			return
		}

		resp, err := app.SurveyResponse(r.Context(), acc.ID, responseID)
		if errors.Is(err, database.ErrNotFound) {
			httpx.LogNotFound(w, "get_response", responseID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_response", err)
			return
		}

		generated, err := ingest.GenerateEmail(r.Context(), app.Enricher, app.EnrichmentTimeout, acc, &resp)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadGateway, log.WarnLevel, "enrich.generate", "email generation failed: %s", err)
			return
		}

		err = app.UpdateGeneratedEmail(r.Context(), resp.ID, generated.Subject, generated.Email)
		if err != nil {
			httpx.LogInternalError(w, "db.update_generated_email", err)
			return
		}

		resp.AISubject = generated.Subject
		resp.AIEmail = generated.Email
		render.JSON(w, r, resp)
	}
}
