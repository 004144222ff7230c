package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Handle("/metrics", promhttp.Handler())

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
		r.Post("/clerk", apiHandler.IdentityWebhookHandler)

		// Identity-scoped routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.IdentityMiddleware)

			r.Post("/chat/create", apiHandler.CreateChatHandler)
			r.Get("/chat/get", apiHandler.ListChatsHandler)
			r.Post("/chat/rename", apiHandler.RenameChatHandler)
			r.Post("/chat/delete", apiHandler.DeleteChatHandler)
			r.Post("/chat/ai", apiHandler.PromptHandler)
		})
	})

	return r
}
