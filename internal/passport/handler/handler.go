// Package handler serves passport exports over HTTP.
package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"securitypassport/internal/passport/export"
	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	"securitypassport/pkg/platform/audit"
	"securitypassport/pkg/platform/httputil"
	"securitypassport/pkg/platform/middleware/metadata"
	"securitypassport/pkg/requestcontext"
)

// Service produces export files for the calling tenant.
type Service interface {
	ExportZip(ctx context.Context, tenantID id.TenantID, templateCode string, actor id.UserID) (*export.Archive, error)
	ExportDocx(ctx context.Context, tenantID id.TenantID, templateCode string, actor id.UserID) (*export.Document, error)
}

// AuditPublisher records completed exports.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Handler struct {
	service Service
	auditor AuditPublisher
	logger  *slog.Logger
}

func New(service Service, auditor AuditPublisher, logger *slog.Logger) *Handler {
	return &Handler{service: service, auditor: auditor, logger: logger}
}

// Register mounts export endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/passport/{template_code}.zip", h.HandleExportZip)
	r.Get("/passport/{template_code}.docx", h.HandleExportDocx)
}

func (h *Handler) HandleExportZip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "template_code")

	archive, err := h.service.ExportZip(ctx, tenantID, code, actor)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}

	w.Header().Set("X-Evidence-Downloaded", strconv.Itoa(archive.Downloaded))
	w.Header().Set("X-Evidence-Failed", strconv.Itoa(len(archive.Failures)))
	h.writeFile(w, r, export.ZipContentType, archive.Filename, archive.Body)
	h.emit(ctx, audit.ActionPassportExportZip, tenantID, actor, code, map[string]any{
		"filename":   archive.Filename,
		"bytes":      len(archive.Body),
		"downloaded": archive.Downloaded,
		"failed":     len(archive.Failures),
	})
}

func (h *Handler) HandleExportDocx(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "template_code")

	doc, err := h.service.ExportDocx(ctx, tenantID, code, actor)
	if err != nil {
		h.fail(w, r, code, err)
		return
	}

	h.writeFile(w, r, export.DocxContentType, doc.Filename, doc.Body)
	h.emit(ctx, audit.ActionPassportExportDocx, tenantID, actor, code, map[string]any{
		"filename": doc.Filename,
		"bytes":    len(doc.Body),
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (id.TenantID, id.UserID, bool) {
	tenantID := requestcontext.TenantID(r.Context())
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.TenantID{}, id.UserID{}, false
	}
	return tenantID, requestcontext.UserID(r.Context()), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string, err error) {
	ctx := r.Context()
	if ctx.Err() != nil {
		h.logger.InfoContext(ctx, "passport export abandoned by client",
			"request_id", requestcontext.RequestID(ctx),
			"template_code", code,
		)
		return
	}
	h.logger.ErrorContext(ctx, "passport export failed",
		"request_id", requestcontext.RequestID(ctx),
		"template_code", code,
		"error", err,
	)
	httputil.WriteError(w, err)
}

func (h *Handler) writeFile(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

// emit records the export. Audit failures are logged and never change the
// response already sent.
func (h *Handler) emit(ctx context.Context, action audit.Action, tenantID id.TenantID, actor id.UserID, code string, meta map[string]any) {
	if h.auditor == nil {
		return
	}
	meta["template_code"] = code
	if ip := metadata.GetClientIP(ctx); ip != "" {
		meta["client_ip"] = ip
	}
	if ua := metadata.GetUserAgent(ctx); ua != "" {
		meta["user_agent"] = ua
	}
	event := audit.Event{
		Timestamp:   requestcontext.Now(ctx),
		TenantID:    tenantID,
		ActorUserID: actor,
		Action:      string(action),
		ObjectType:  audit.ObjectTemplate,
		ObjectID:    code,
		Metadata:    meta,
		RequestID:   requestcontext.RequestID(ctx),
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}
