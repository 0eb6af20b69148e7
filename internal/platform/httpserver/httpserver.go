// Package httpserver constructs the API's http.Server with timeouts
// suited to request bodies that are small JSON documents.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
)

// New builds the server. Per-request deadlines are enforced by the
// router's timeout middleware, so only connection-level timeouts live here.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
