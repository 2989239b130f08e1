package middleware

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/requestcontext"
	"eqboard/pkg/testutil"
)

type fakeValidator struct {
	operator string
	err      error
}

func (v fakeValidator) ValidateOperator(string) (string, error) {
	return v.operator, v.err
}

func capture(operator *string, requestID *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if operator != nil {
			*operator = requestcontext.Operator(r.Context())
		}
		if requestID != nil {
			*requestID = requestcontext.RequestID(r.Context())
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none supplied", func(t *testing.T) {
		var seen string
		rr := testutil.DoRequest(RequestID(capture(nil, &seen)),
			testutil.NewRequest(t, http.MethodGet, "/equations"))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
	})

	t.Run("honors a caller-supplied id", func(t *testing.T) {
		var seen string
		req := testutil.NewRequest(t, http.MethodGet, "/equations")
		req.Header.Set("X-Request-ID", "req-123")
		testutil.DoRequest(RequestID(capture(nil, &seen)), req)

		assert.Equal(t, "req-123", seen)
	})
}

func TestRequireOperator(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("valid token names the operator in context", func(t *testing.T) {
		var seen string
		handler := RequireOperator(fakeValidator{operator: "ada"}, logger)(capture(&seen, nil))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/publish", nil)
		req.Header.Set("Authorization", "Bearer token")
		rr := testutil.DoRequest(handler, req)

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "ada", seen)
	})

	t.Run("missing header", func(t *testing.T) {
		handler := RequireOperator(fakeValidator{operator: "ada"}, logger)(capture(nil, nil))
		rr := testutil.DoRequest(handler, testutil.NewJSONRequest(t, http.MethodPost, "/certificates/publish", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		body := testutil.UnmarshalErrorResponse(t, rr)
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("rejected token", func(t *testing.T) {
		invalid := fakeValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		handler := RequireOperator(invalid, logger)(capture(nil, nil))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/certificates/publish", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rr := testutil.DoRequest(handler, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestOperatorContext(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("anonymous requests pass through", func(t *testing.T) {
		var seen string
		handler := OperatorContext(fakeValidator{operator: "ada"}, logger)(capture(&seen, nil))
		rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodPost, "/submissions/x/promote"))

		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, seen)
	})

	t.Run("present but invalid token still fails", func(t *testing.T) {
		invalid := fakeValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		handler := OperatorContext(invalid, logger)(capture(nil, nil))

		req := testutil.NewRequest(t, http.MethodPost, "/submissions/x/promote")
		req.Header.Set("Authorization", "Bearer junk")
		rr := testutil.DoRequest(handler, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
