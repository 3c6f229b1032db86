package router

import (
	"net/http"
	"time"

	"github.com/sukoon-health/risk-pipeline/internal/handlers"
)

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, h *handlers.Handlers) *http.Server {
	r := NewRouter(h)
	return &http.Server{
		Addr:         ":" + port,
		Handler:      r.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
