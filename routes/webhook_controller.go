package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-intake/app"
	"github.com/mbolis/survey-intake/httpx"
	"github.com/mbolis/survey-intake/ingest"
	"github.com/mbolis/survey-intake/log"
	"github.com/mbolis/survey-intake/mapping"
)

const (
	msgTestEvent = "Test event received. Please configure field mappings in your webhook settings."
	msgProcessed = "Survey data received and processed successfully"
)

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ReceiveWebhook(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		webhookID := chi.URLParam(r, "webhookId")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, app.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpx.LogJSONError(w, r, http.StatusRequestEntityTooLarge, log.DebugLevel, "webhook.read_body", "Payload too large", nil)
				return
			}
			httpx.LogJSONError(w, r, http.StatusBadRequest, log.DebugLevel, "webhook.read_body", "Invalid JSON payload", err)
			return
		}

		res, err := app.Pipeline.Handle(r.Context(), webhookID, body)
		if err != nil {
			webhookError(w, r, err)
			return
		}

		msg := msgProcessed
		if res.Outcome == ingest.TestEventStored {
			msg = msgTestEvent
		}
		render.JSON(w, r, webhookResponse{Success: true, Message: msg})
	}
}

func webhookError(w http.ResponseWriter, r *http.Request, err error) {
	var persistErr *ingest.PersistError
	switch {
	case errors.Is(err, ingest.ErrUnknownWebhook):
		httpx.LogJSONError(w, r, http.StatusNotFound, log.DebugLevel, "webhook.lookup", "Invalid webhook ID", nil)
	case errors.Is(err, ingest.ErrInvalidPayload):
		httpx.LogJSONError(w, r, http.StatusBadRequest, log.DebugLevel, "webhook.parse_body", "Invalid JSON payload", nil)
	case errors.Is(err, mapping.ErrMissingEmail):
		httpx.LogJSONError(w, r, http.StatusBadRequest, log.InfoLevel, "webhook.evaluate", "Email field mapping is required", nil)
	case errors.As(err, &persistErr):
		msg := "Error processing webhook"
		switch persistErr.Stage {
		case ingest.StageSaveTestEvent:
			msg = "Failed to store test event"
		case ingest.StageInsertResponse:
			msg = "Failed to insert customer data"
		}
		httpx.LogJSONError(w, r, http.StatusInternalServerError, log.ErrorLevel, "db."+persistErr.Stage, msg, persistErr.Err)
	default:
		httpx.LogJSONError(w, r, http.StatusInternalServerError, log.ErrorLevel, "webhook.handle", "Error processing webhook", err)
	}
}
