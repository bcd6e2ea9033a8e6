// Package export packages a tenant's Pack as a Word document or as a zip
// archive bundling the document, the Pack JSON and the evidence files.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"securitypassport/internal/passport/metrics"
	"securitypassport/internal/passport/models"
	"securitypassport/internal/passport/overrides"
	"securitypassport/internal/passport/render"
	"securitypassport/internal/platform/objectstore"
	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	"securitypassport/pkg/platform/ziputil"
	"securitypassport/pkg/requestcontext"
)

const tracerName = "securitypassport/internal/passport/export"

const (
	ZipContentType  = "application/zip"
	DocxContentType = render.ContentType

	defaultDownloadTimeout = 30 * time.Second
)

// Archive entry names.
const (
	entryPack           = "pack.json"
	entryDocument       = "security_passport.docx"
	entryEvidenceReadme = "evidence/README.txt"
	entryEvidenceMeta   = "evidence/_meta.txt"
	entryFailures       = "evidence/_FAILED_DOWNLOADS.txt"
	evidenceFilesDir    = "evidence/files/"

	evidenceReadme = "Evidence files attached to answers.\n" +
		"Files listed in _FAILED_DOWNLOADS.txt with reason " + ReasonStreamFailed +
		" are present under files/ but incomplete.\n"
)

type PackAssembler interface {
	Assemble(ctx context.Context, tenantID id.TenantID, templateCode string) (*models.Pack, error)
}

type EvidencePolicy interface {
	ShouldIncludeEvidence(ctx context.Context, tenantID id.TenantID, kind overrides.ExportKind) bool
}

type RetrievalURLProvider interface {
	RetrievalURL(ctx context.Context, storageKey string) (objectstore.RetrievalURL, error)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// DownloadConcurrency bounds how many evidence responses are open at
	// once. Values below 1 mean 1.
	DownloadConcurrency int
	// DownloadTimeout bounds opening one evidence response and, separately,
	// streaming its body. Time a prefetched response spends waiting for the
	// writer counts against neither.
	DownloadTimeout time.Duration
}

// Archive is a finished zip export.
type Archive struct {
	Filename   string
	Body       []byte
	Downloaded int
	Failures   []Failure
}

// Document is a finished docx export.
type Document struct {
	Filename string
	Body     []byte
}

type Service struct {
	assembler PackAssembler
	policy    EvidencePolicy
	urls      RetrievalURLProvider
	client    HTTPDoer
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithHTTPClient replaces the client used for evidence downloads.
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *Service) {
		s.client = client
	}
}

func New(assembler PackAssembler, policy EvidencePolicy, urls RetrievalURLProvider, cfg Config, opts ...Option) *Service {
	if cfg.DownloadConcurrency < 1 {
		cfg.DownloadConcurrency = 1
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultDownloadTimeout
	}
	s := &Service{
		assembler: assembler,
		policy:    policy,
		urls:      urls,
		client:    http.DefaultClient,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportDocx renders the tenant's Pack as a Word document.
func (s *Service) ExportDocx(ctx context.Context, tenantID id.TenantID, templateCode string, actor id.UserID) (doc *Document, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "passport.export.docx")
	defer func() {
		if outcome := s.observe(overrides.ExportKindDocx, start, err); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("template_code", templateCode),
	)

	pack, err := s.pack(ctx, tenantID, templateCode, overrides.ExportKindDocx)
	if err != nil {
		return nil, err
	}
	body, err := render.Render(pack)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render document")
	}

	s.logger.InfoContext(ctx, "passport document exported",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"actor_user_id", actor.String(),
		"template_code", templateCode,
		"bytes", len(body),
	)
	return &Document{
		Filename: Filename(templateCode, requestcontext.Now(ctx), overrides.ExportKindDocx),
		Body:     body,
	}, nil
}

// ExportZip builds the full archive. Evidence download failures are
// recorded in the archive and in Archive.Failures; they never fail the
// export. A cancelled context does, and the partial archive is discarded.
func (s *Service) ExportZip(ctx context.Context, tenantID id.TenantID, templateCode string, actor id.UserID) (archive *Archive, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "passport.export.zip")
	defer func() {
		if outcome := s.observe(overrides.ExportKindZip, start, err); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("template_code", templateCode),
	)

	pack, err := s.pack(ctx, tenantID, templateCode, overrides.ExportKindZip)
	if err != nil {
		return nil, err
	}
	packJSON, err := marshalPack(pack)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode pack")
	}
	docx, err := render.Render(pack)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render document")
	}

	var buf bytes.Buffer
	zw := ziputil.NewWriter(&buf)
	if err := ziputil.WriteFile(zw, entryPack, packJSON); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write archive")
	}
	if err := ziputil.WriteFile(zw, entryDocument, docx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write archive")
	}

	var result downloadResult
	if len(pack.Evidence) > 0 {
		if err := ziputil.WriteFile(zw, entryEvidenceReadme, []byte(evidenceReadme)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write archive")
		}
		meta := fmt.Sprintf("count=%d\n", len(pack.Evidence))
		if err := ziputil.WriteFile(zw, entryEvidenceMeta, []byte(meta)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write archive")
		}

		result, err = s.downloadEvidence(ctx, zw, pack.Evidence)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write archive")
		}
		if len(result.failures) > 0 {
			if err := ziputil.WriteFile(zw, entryFailures, failureReport(result.failures)); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write archive")
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finish archive")
	}

	span.SetAttributes(
		attribute.Int("evidence.downloaded", result.downloaded),
		attribute.Int("evidence.failed", len(result.failures)),
	)
	s.logger.InfoContext(ctx, "passport archive exported",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"actor_user_id", actor.String(),
		"template_code", templateCode,
		"evidence", len(pack.Evidence),
		"downloaded", result.downloaded,
		"failed", len(result.failures),
		"bytes", buf.Len(),
	)
	return &Archive{
		Filename:   Filename(templateCode, requestcontext.Now(ctx), overrides.ExportKindZip),
		Body:       buf.Bytes(),
		Downloaded: result.downloaded,
		Failures:   result.failures,
	}, nil
}

func (s *Service) pack(ctx context.Context, tenantID id.TenantID, code string, kind overrides.ExportKind) (*models.Pack, error) {
	pack, err := s.assembler.Assemble(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	include := s.policy.ShouldIncludeEvidence(ctx, tenantID, kind)
	return overrides.ApplyExclusion(pack, include), nil
}

func (s *Service) observe(kind overrides.ExportKind, start time.Time, err error) string {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.metrics.ObserveExport(string(kind), outcome, start)
	return outcome
}

// Filename returns "<code>_passport_<YYYYMMDD_HHMMSS>.<kind>" in UTC.
func Filename(templateCode string, at time.Time, kind overrides.ExportKind) string {
	return fmt.Sprintf("%s_passport_%s.%s", templateCode, at.UTC().Format("20060102_150405"), kind)
}

func marshalPack(pack *models.Pack) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pack); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
