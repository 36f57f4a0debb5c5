package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tasknest/tasknest/internal/api"
	apimiddleware "github.com/tasknest/tasknest/internal/api/middleware"
)

// setupRouter builds the route tree. Public auth endpoints sit behind the
// coarse IP throttle plus a strict per-IP limiter; everything else requires a
// verified token and is limited per identity.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)
	r.Use(apimiddleware.SecurityHeaders)

	runTx := api.NewDBTxRunner(app.db)
	authHandler := api.NewAuthHandler(
		app.userStore, app.tokenService, app.hasher, app.hasher,
		app.dispatcher, app.logger)
	taskHandler := api.NewTaskHandler(app.taskStore, app.dispatcher, runTx, app.logger)
	tagHandler := api.NewTagHandler(app.tagStore, runTx, app.logger)
	authMiddleware := apimiddleware.NewAuthMiddleware(
		app.tokenService, app.userStore, app.logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(app.publicThrottle.Middleware)
			r.Use(apimiddleware.IPLimit(app.loginLimiter))

			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/forgot-password", authHandler.ForgotPassword)
			r.Post("/auth/reset-password", authHandler.ResetPassword)
		})

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(apimiddleware.IdentityLimit(app.generalLimiter))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/profile", authHandler.UpdateProfile)
			r.Put("/auth/password", authHandler.ChangePassword)

			r.Get("/tasks", taskHandler.List)
			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks/stats", taskHandler.Stats)
			r.Patch("/tasks/bulk", taskHandler.BulkUpdate)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Put("/tasks/{id}", taskHandler.Update)
			r.Delete("/tasks/{id}", taskHandler.Delete)

			r.Get("/tags", tagHandler.List)
			r.Post("/tags", tagHandler.Create)
			r.Get("/tags/stats", tagHandler.Stats)
			r.Get("/tags/{id}", tagHandler.Get)
			r.Put("/tags/{id}", tagHandler.Update)
			r.Delete("/tags/{id}", tagHandler.Delete)
		})
	})

	return r
}
