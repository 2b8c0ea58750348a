package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/survey-intake/app"
	"github.com/mbolis/survey-intake/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/webhooks/survey/{webhookId}", ReceiveWebhook(app))

	api.Post("/signup", Signup(app))
	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.
		With(middlewares.Account(app.TokenSecret)).
		Mount("/account", accountRouter(app))

	return api
}

func accountRouter(app app.App) http.Handler {
	r := chi.NewRouter()

	r.Get("/webhook", GetWebhook(app))
	r.Put("/webhook/provider", UpdateProvider(app))
	r.Post("/webhook/discover", DiscoverFields(app))
	r.Post("/webhook/preview", PreviewMapping(app))
	r.Put("/webhook/mappings", UpdateMappings(app))
	r.Post("/webhook/regenerate", RegenerateWebhook(app))

	r.Put("/email-context", UpdateEmailContext(app))

	r.Get("/responses", ListResponses(app))
	r.Post(`/responses/{id:^\d+$}/email`, GenerateResponseEmail(app))

	return r
}
