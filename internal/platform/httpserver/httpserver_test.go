package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	handler := http.NewServeMux()
	srv := New(":8080", handler)

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, handler, srv.Handler)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)

	// The write timeout must outlast a full publish batch: the ledger client
	// gets 8s per call and a sweep can carry several certificates.
	assert.Equal(t, 2*time.Minute, srv.WriteTimeout)
	assert.Equal(t, time.Minute, srv.IdleTimeout)
}
