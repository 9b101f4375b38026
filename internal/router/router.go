// Package router wires the dashboard's routes onto chi.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/petermazzocco/go-dashboard/internal/handlers"
	"github.com/petermazzocco/go-dashboard/internal/logger"
)

type Options struct {
	// RateLimitPerMinute applies per client IP to every route.
	RateLimitPerMinute int
	// AuthRateLimitPerMinute applies per client IP and endpoint to sign-in
	// and chat streaming.
	AuthRateLimitPerMinute int
}

func New(h *handlers.Handler, opts Options, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}

	strict := func(next http.Handler) http.Handler { return next }
	if opts.AuthRateLimitPerMinute > 0 {
		strict = httprate.Limit(
			opts.AuthRateLimitPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		)
	}

	r.Get("/healthz", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.AuthPage)
		r.Get("/signup", h.AuthPage)
		r.Post("/logout", h.Logout)
		r.Group(func(r chi.Router) {
			r.Use(strict)
			r.Post("/login", h.Login)
			r.Post("/signup", h.Signup)
			r.Get("/{provider}", h.BeginOAuth)
			r.Get("/{provider}/callback", h.OAuthCallback)
		})
	})

	r.Get("/images/user/{userID}", h.UserImage)

	r.Group(func(r chi.Router) {
		r.Use(strict)
		r.Use(h.Sessions.RequireUserAPI)
		r.Post("/chat-stream", h.ChatStream)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.Sessions.RequireUser)
		r.Get("/dashboard", h.Dashboard)
		r.Post("/dashboard", h.DashboardAction)
		r.Get("/projects", h.ProjectsPage)
		r.Post("/projects", h.ProjectsAction)
		r.Get("/projects/tree", h.ProjectFileTree)
		r.Get("/projects/{projectID}", h.Project)
		r.Get("/notes", h.NotesPage)
		r.Post("/notes", h.NotesAction)
		r.Get("/education", h.EducationPage)
		r.Post("/education", h.EducationAction)
		r.Get("/profile", h.ProfilePage)
		r.Post("/profile", h.ProfileAction)
	})

	return r
}
