package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/frontend"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/usecase"
	"github.com/upawatch/upawatch/pkg/utils/apperr"
)

// Config holds the server settings
type Config struct {
	Addr        string
	FrontendURL string
	Travel      model.TravelMultipliers
}

// UseCases groups the use cases served over HTTP
type UseCases struct {
	Auth    usecase.AuthUseCase
	Board   usecase.LiveBoard
	Reports usecase.ReportUseCase
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

// NewServer creates a new HTTP server. hub serves the browser WebSocket and may be nil.
func NewServer(ctx context.Context, cfg Config, uc UseCases, hub http.Handler) (*Server, error) {
	if uc.Auth == nil || uc.Board == nil || uc.Reports == nil {
		return nil, goerr.New("auth, board and reports use cases are required")
	}
	if cfg.Travel == (model.TravelMultipliers{}) {
		cfg.Travel = model.DefaultTravelMultipliers()
	}
	if err := cfg.Travel.Validate(); err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	authMiddleware := NewMiddleware(uc.Auth)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	authHandler := NewAuthHandler(uc.Auth)
	facilityHandler := NewFacilityHandler(uc.Board, uc.Reports, cfg.Travel)
	reportHandler := NewReportHandler(uc.Reports)

	router.Get("/health", handleHealth)

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", authHandler.HandleUserMe)
		})

		r.Get("/facilities", facilityHandler.HandleList)
		r.Route("/facilities/{id}", func(r chi.Router) {
			r.Get("/snapshot", facilityHandler.HandleSnapshot)
			r.Post("/subscribe", facilityHandler.HandleSubscribe)
			r.Delete("/subscribe", facilityHandler.HandleUnsubscribe)
			r.Post("/refresh", facilityHandler.HandleRefresh)
		})
		r.Get("/travel", facilityHandler.HandleTravel)

		r.Route("/reports/{id}", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/", reportHandler.HandleReport)
			r.Get("/export.xlsx", reportHandler.HandleExport)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "no such API route"})
		})
	})

	if hub != nil {
		router.Handle("/ws", hub)
	}

	fs, err := frontend.GetHTTPFS()
	if err != nil {
		ctxlog.From(ctx).Warn("Failed to get embedded frontend, using fallback", "error", err)
		router.Get("/*", handleFallbackHome)
	} else {
		spa, err := NewSPAHandler(fs)
		if err != nil {
			return nil, err
		}
		ctxlog.From(ctx).Info("Serving frontend from embedded files")
		router.Handle("/*", spa)
	}

	return &Server{
		Server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}, nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "upawatch",
	})
}

// handleFallbackHome handles the root path when frontend is not available
func handleFallbackHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>upawatch</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #0b5394;
            color: white;
        }
        .container { text-align: center; padding: 2rem; }
        a { color: white; }
    </style>
</head>
<body>
    <div class="container">
        <h1>upawatch</h1>
        <p>Filas das UPAs em tempo real</p>
        <p><a href="/api/facilities">/api/facilities</a></p>
    </div>
</body>
</html>`)); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write fallback home page", "error", err)
	}
}

// statusOf maps the error taxonomy to an HTTP status
func statusOf(err error) int {
	switch {
	case goerr.HasTag(err, model.ErrTagInvalidQuery), goerr.HasTag(err, model.ErrTagMalformedPayload):
		return http.StatusBadRequest
	case goerr.HasTag(err, model.ErrTagUnauthorized), errors.Is(err, model.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrFacilityNotFound), errors.Is(err, model.ErrSnapshotNotFound),
		errors.Is(err, model.ErrSubscriptionNotFound), goerr.HasTag(err, model.ErrTagEmptyResult):
		return http.StatusNotFound
	case goerr.HasTag(err, model.ErrTagTransportFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as a JSON error response
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apperr.Handle(r.Context(), err)

	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	writeJSON(w, r, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}
