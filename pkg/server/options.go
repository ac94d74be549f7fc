package server

import (
	"github.com/lifeplan/service/internal/config"
	"github.com/lifeplan/service/internal/infrastructure/logger"
)

// Option is a functional option for configuring the server.
type Option func(*Server) error

// WithConfig sets the server configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) error {
		s.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) error {
		s.logger = l
		return nil
	}
}
