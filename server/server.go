// Package server provides an *http.Server constructor with hardened
// defaults, used by the demo command to serve the introspection
// endpoints in package inspect.
package server

import (
	"net/http"
	"time"
)

// New constructs an *http.Server with conservative timeouts:
// ReadTimeout guards against slow-loris header attacks, WriteTimeout
// caps total response time, and IdleTimeout closes keep-alive
// connections that go quiet.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
