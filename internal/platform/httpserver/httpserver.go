package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The write timeout leaves headroom above the
// 30s per-request timeout the router applies, so handlers time out with a
// JSON body instead of a dropped connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
