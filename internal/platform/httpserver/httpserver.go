// Package httpserver builds the http.Server that carries EPP over HTTP.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ptkach/nomulus/internal/platform/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	// maxHeaderBytes is generous for the proxy's client certificate headers.
	maxHeaderBytes = 64 << 10
)

// New serves handler on cfg.Addr. Connection level errors (TLS handshakes,
// malformed requests) are logged through logger at warn level.
func New(cfg config.Server, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
