package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server with this service's timeout policy. The
// write timeout leaves room for full results reports; idle keeps
// voting-day status pollers from pinning connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
