// Package httptransport is the thin HTTP layer over the pipeline services.
// Handlers decode, delegate, and encode; every rule lives in the services.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eqboard/internal/platform/middleware"
	"eqboard/pkg/platform/httputil"
)

// NewRouter wires every external endpoint. Operator-only routes sit behind
// the bearer-token gate; the promote route accepts an optional token because
// only override promotions need one.
func NewRouter(h *Handler, tokens middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/operator/token", h.handleOperatorToken)

	r.Post("/submissions", h.handleSubmit)
	r.Get("/submissions/{id}", h.handleGetSubmission)
	r.Post("/submissions/{id}/score", h.handleScore)
	r.Get("/submissions/{id}/receipt", h.handleReceipt)

	r.Group(func(r chi.Router) {
		r.Use(middleware.OperatorContext(tokens, logger))
		r.Post("/submissions/{id}/promote", h.handlePromote)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator(tokens, logger))
		r.Post("/submissions/{id}/reject", h.handleReject)
		r.Post("/certificates/publish", h.handlePublish)
	})

	r.Get("/equations", h.handleListEquations)
	r.Get("/certificates/export", h.handleExport)
	r.Get("/reconciliation/report", h.handleReconciliationReport)

	return r
}
