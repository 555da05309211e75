// Package httpapi exposes the authentication workflow over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/userval/internal/logging"
	"github.com/dmitrijs2005/userval/internal/server/services"
)

type Server struct {
	address    string
	users      *services.Service
	logger     logging.Logger
	corsOrigin string
}

func NewServer(address string, l logging.Logger, us *services.Service, corsOrigin string) *Server {
	return &Server{
		address:    address,
		logger:     l.With("module", "http_server"),
		users:      us,
		corsOrigin: corsOrigin,
	}
}

// Handler builds the route table. Split out from Run so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/add-user", s.handleAddUser)
	mux.HandleFunc("PATCH /api/verify-user", s.handleVerifyUser)
	mux.HandleFunc("POST /api/re-generate-otp/{id}", s.handleRegenerateOTP)
	mux.HandleFunc("GET /{$}", s.handleHealth)

	// everything else
	mux.HandleFunc("/", s.handleNotFound)

	return s.cors(s.logRequests(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
