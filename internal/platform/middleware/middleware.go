// Package middleware holds the HTTP middleware chain: request identity,
// request-scoped time, and the operator auth gate.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/httputil"
	"eqboard/pkg/requestcontext"
)

// RequestID tags every request with an id, honoring one supplied by the
// caller so ids correlate across services.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestTime pins a single "now" for the whole request so domain timestamps
// and audit lines agree.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenValidator validates an operator bearer token and names its holder.
type TokenValidator interface {
	ValidateOperator(token string) (operator string, err error)
}

// OperatorContext validates a bearer token when one is present but lets
// anonymous requests through. Routes where only some payloads need an
// operator (override promotions) use this and check the context themselves.
func OperatorContext(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			operator, err := validator.ValidateOperator(token)
			if err != nil {
				logger.WarnContext(ctx, "operator token rejected",
					"request_id", requestcontext.RequestID(ctx), "error", err)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithOperator(ctx, operator)))
		})
	}
}

// RequireOperator guards operator-only routes. The operator name lands in the
// request context for audit attribution.
func RequireOperator(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "operator route without bearer token",
					"request_id", requestcontext.RequestID(ctx), "path", r.URL.Path)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized,
					"missing or malformed Authorization header"))
				return
			}

			operator, err := validator.ValidateOperator(token)
			if err != nil {
				logger.WarnContext(ctx, "operator token rejected",
					"request_id", requestcontext.RequestID(ctx), "error", err)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithOperator(ctx, operator)))
		})
	}
}
