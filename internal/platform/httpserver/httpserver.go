// Package httpserver builds the board's HTTP server. The header timeout is
// short; write and idle timeouts stay generous because a batch certificate
// publish waits on the ledger before responding.
package httpserver

import (
	"net/http"
	"time"
)

func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}
}
