package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqboard/pkg/platform/sentinel"
)

func newClientFor(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 2*time.Second, slog.New(slog.DiscardHandler))
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	tx := Transaction{
		EquationID:    "eq-growth-law",
		ContentHash:   "abc123",
		Signature:     "sig",
		SubmitterHash: "subhash",
		Nonce:         "nonce-1",
	}

	t.Run("successful publish returns the ledger reference", func(t *testing.T) {
		var received Transaction
		mux := http.NewServeMux()
		mux.HandleFunc("/add_transaction", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
		})
		mux.HandleFunc("/mine_block", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(mineResponse{Index: 7, BlockHash: "0000ab"})
		})

		client := newClientFor(t, mux)
		ref, err := client.Publish(ctx, tx)
		require.NoError(t, err)

		assert.Equal(t, "block-7:0000ab", ref)
		assert.Equal(t, tx, received)
	})

	t.Run("non-2xx responses are retryable", func(t *testing.T) {
		client := newClientFor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))

		_, err := client.Publish(ctx, tx)
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("unreachable ledger is retryable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", time.Second, slog.New(slog.DiscardHandler))

		_, err := client.Publish(ctx, tx)
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("mining failure after accepted transaction is retryable", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/add_transaction", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
		mux.HandleFunc("/mine_block", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no quorum", http.StatusBadGateway)
		})

		client := newClientFor(t, mux)
		_, err := client.Publish(ctx, tx)
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})
}
