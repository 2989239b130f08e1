package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eqboard/internal/certificate"
	"eqboard/internal/operator"
	"eqboard/internal/reconcile"
	"eqboard/internal/registry"
	"eqboard/internal/scoring"
	"eqboard/internal/submission"
	dErrors "eqboard/pkg/domain-errors"
	"eqboard/pkg/platform/httputil"
	"eqboard/pkg/requestcontext"
)

// Handler bundles the pipeline services behind the router.
type Handler struct {
	submissions *submission.Service
	scoring     *scoring.Service
	registry    *registry.Service
	certs       *certificate.Service
	reconciler  *reconcile.Service
	operators   *operator.Service
	logger      *slog.Logger
}

func NewHandler(
	submissions *submission.Service,
	scoringSvc *scoring.Service,
	registrySvc *registry.Service,
	certs *certificate.Service,
	reconciler *reconcile.Service,
	operators *operator.Service,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		submissions: submissions,
		scoring:     scoringSvc,
		registry:    registrySvc,
		certs:       certs,
		reconciler:  reconciler,
		operators:   operators,
		logger:      logger,
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[submission.IntakeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sub, err := h.submissions.Submit(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	result, err := h.scoring.Score(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[rejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	sub, err := h.submissions.Reject(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

type promoteRequest struct {
	Override bool `json:"override"`
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req promoteRequest
	if r.ContentLength != 0 {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[promoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
	}
	if req.Override && requestcontext.Operator(ctx) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized,
			"override promotion requires an operator token"))
		return
	}

	result, err := h.registry.Promote(ctx, chi.URLParam(r, "id"), req.Override)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListEquations(w http.ResponseWriter, r *http.Request) {
	board, err := h.registry.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"equations": board})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	entries, err := h.certs.Export(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	published, err := h.certs.PublishBatch(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certificates": published})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.certs.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleReconciliationReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reconciler.Latest()
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no reconciliation sweep has run yet"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

type operatorTokenRequest struct {
	Operator string `json:"operator"`
	Secret   string `json:"secret"`
}

func (h *Handler) handleOperatorToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[operatorTokenRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	resp, err := h.operators.Login(ctx, req.Operator, req.Secret)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
