package app

import (
	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-intake/config"
	"github.com/mbolis/survey-intake/database"
	"github.com/mbolis/survey-intake/ingest"
)

type App struct {
	*database.Store
	*oauth.BearerServer
	config.Config

	Pipeline *ingest.Pipeline
	// Enricher is nil when no enrichment service is configured.
	Enricher ingest.Enricher
}
