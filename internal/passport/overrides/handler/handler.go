package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"securitypassport/internal/passport/overrides"
	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	"securitypassport/pkg/platform/httputil"
	"securitypassport/pkg/requestcontext"
)

// Service defines the override operations exposed over HTTP.
type Service interface {
	Get(ctx context.Context, tenantID id.TenantID) (overrides.Settings, error)
	Replace(ctx context.Context, tenantID id.TenantID, actor id.UserID, input map[string]any) (*overrides.UpdateResult, error)
	Merge(ctx context.Context, tenantID id.TenantID, actor id.UserID, input map[string]any) (*overrides.UpdateResult, error)
}

// Handler serves the calling tenant's overrides.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts override endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants/me/overrides", h.HandleGet)
	r.Put("/tenants/me/overrides", h.HandleReplace)
	r.Patch("/tenants/me/overrides", h.HandleMerge)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	settings, err := h.service.Get(ctx, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load overrides",
			"request_id", requestcontext.RequestID(ctx),
			"tenant_id", tenantID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OverridesResponse{
		TenantID:  tenantID.String(),
		Overrides: settings,
	})
}

func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, h.service.Replace)
}

func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, h.service.Merge)
}

type updateFunc func(ctx context.Context, tenantID id.TenantID, actor id.UserID, input map[string]any) (*overrides.UpdateResult, error)

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, update updateFunc) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	tenantID := requestcontext.TenantID(ctx)
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateOverridesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := update(ctx, tenantID, requestcontext.UserID(ctx), req.Overrides)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update overrides",
			"request_id", requestID,
			"tenant_id", tenantID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OverridesResponse{
		OK:        true,
		TenantID:  tenantID.String(),
		Overrides: res.Settings,
		Changed:   &res.Changed,
	})
}
