package server

import (
	"net/http"

	"cinegen-web/internal/builder"
	"cinegen-web/internal/controllers/auth"
	"cinegen-web/internal/server/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter は、ミドルウェアとルーティングを統合した http.Handler を構築します。
func NewRouter(h *builder.AppHandlers) http.Handler {
	r := chi.NewRouter()

	setupCommonMiddleware(r)
	setupRoutes(r, h.Auth, h.API)

	return r
}

func setupCommonMiddleware(r *chi.Mux) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
}

func setupRoutes(r chi.Router, authHandler *auth.Handler, api *handlers.Handler) {
	r.Get("/healthz", api.Healthz)

	r.Group(func(r chi.Router) {
		// 匿名でも生成はできるため、ここではユーザーの解決だけを行います。
		r.Use(authHandler.Middleware)

		setupAuthRoutes(r, authHandler)

		r.Route("/api", func(r chi.Router) {
			r.Post("/artifacts/{kind}", api.GenerateArtifact)
			r.Post("/storyboard", api.GenerateStoryboard)
			r.Post("/storyboard/next", api.GenerateNextScene)
			r.Post("/scenes", api.GenerateScenes)
			r.Post("/preview", api.GeneratePreview)
			r.Post("/images", api.GenerateImage)

			// --- サインインが必要なルート ---
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser)

				r.Get("/history", api.ListHistory)
				r.Delete("/history", api.ClearHistory)
				r.Delete("/history/{id}", api.DeleteHistory)
				r.Get("/outputs/{title}", api.ServeOutput)
			})
		})
	})
}

func setupAuthRoutes(r chi.Router, authHandler *auth.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", authHandler.Me)
		r.Post("/logout", authHandler.Logout)

		if authHandler.OAuthEnabled() {
			r.Get("/google/login", authHandler.GoogleLogin)
			r.Get("/google/callback", authHandler.GoogleCallback)
			return
		}
		r.Post("/login", authHandler.EmailLogin)
	})
}
