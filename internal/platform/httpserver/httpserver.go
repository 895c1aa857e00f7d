// Package httpserver centralizes http.Server construction so every listener
// carries the same protective timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server with sane timeouts for an API fronting clients
// that submit small JSON bodies.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
