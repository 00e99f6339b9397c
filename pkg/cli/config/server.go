package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr        string
	FrontendURL string
}

// Flags returns CLI flags for Server configuration
func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Sources:     cli.EnvVars("UPAWATCH_ADDR"),
			Destination: &s.Addr,
		},
		&cli.StringFlag{
			Name:        "frontend-url",
			Usage:       "Public dashboard URL, also the accepted WebSocket origin (if not set, detected from request headers)",
			Value:       "",
			Sources:     cli.EnvVars("UPAWATCH_FRONTEND_URL"),
			Destination: &s.FrontendURL,
		},
	}
}

// LogValue returns structured log value
func (s Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr),
		slog.String("frontend_url", s.FrontendURL),
	)
}
