package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/feedback-app/internal/handler"
	"github.com/Dan9191/feedback-app/internal/middleware"
	"github.com/Dan9191/feedback-app/internal/session"
)

// NewRouter wires every route behind logging and session middleware
func NewRouter(h *handler.Handler, sessions *session.Manager, limiter *middleware.RateLimiter, log *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(log))

	// Health check
	r.HandleFunc("/health", handler.Healthz).Methods(http.MethodGet)

	app := r.PathPrefix("/").Subrouter()
	app.Use(middleware.Sessions(sessions))

	app.HandleFunc("/", h.Root).Methods(http.MethodGet)

	// Public routes
	app.Handle("/register", limiter.Limit(http.HandlerFunc(h.Register))).Methods(http.MethodGet, http.MethodPost)
	app.Handle("/login", limiter.Limit(http.HandlerFunc(h.Login))).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/logout", h.Logout).Methods(http.MethodGet)

	// Owner-only routes
	app.HandleFunc("/users/{username}", h.ShowUser).Methods(http.MethodGet)
	app.HandleFunc("/users/{username}/delete", h.DeleteUser).Methods(http.MethodGet)
	app.HandleFunc("/users/{username}/feedback/add", h.AddFeedback).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/users/{username}/feedback.xml", h.ExportFeedback).Methods(http.MethodGet)
	app.HandleFunc("/feedback/{id:[0-9]+}/update", h.UpdateFeedback).Methods(http.MethodGet, http.MethodPost)
	app.HandleFunc("/feedback/{id:[0-9]+}/delete", h.DeleteFeedback).Methods(http.MethodGet)

	return r
}
