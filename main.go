package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/mbolis/survey-intake/app"
	"github.com/mbolis/survey-intake/config"
	"github.com/mbolis/survey-intake/database"
	"github.com/mbolis/survey-intake/enrich"
	"github.com/mbolis/survey-intake/httpx"
	"github.com/mbolis/survey-intake/ingest"
	"github.com/mbolis/survey-intake/log"
	"github.com/mbolis/survey-intake/routes"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	store := database.NewStore(db)

	var enricher ingest.Enricher
	if cfg.EnrichmentURL != "" {
		enricher = enrich.NewClient(cfg.EnrichmentURL)
	} else {
		log.Info("main.enrich: no -enrichment-url, email generation disabled")
	}

	app := app.App{
		Store:        store,
		BearerServer: httpx.NewBearerServer(store, cfg.TokenSecret, cfg.TokenTTL),
		Config:       cfg,
		Pipeline: &ingest.Pipeline{
			Store:         store,
			Enricher:      enricher,
			EnrichTimeout: cfg.EnrichmentTimeout,
		},
		Enricher: enricher,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     handler,
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
		// webhook handling waits for email generation
		WriteTimeout: cfg.EnrichmentTimeout + 30*time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
