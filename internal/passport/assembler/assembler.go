// Package assembler builds the canonical Pack for one tenant and template
// from whatever physical schema the store currently has.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"securitypassport/internal/passport/models"
	"securitypassport/internal/passport/schema"
	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	"securitypassport/pkg/platform/sentinel"
	platformstrings "securitypassport/pkg/platform/strings"
	"securitypassport/pkg/requestcontext"
)

const tracerName = "securitypassport/internal/passport/assembler"

// Reader loads the rows a Pack is built from. Every method receives the
// tables resolved for the current request.
type Reader interface {
	WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindTemplateByCode(ctx context.Context, t *schema.Tables, code string) (*models.Template, error)
	ListQuestions(ctx context.Context, t *schema.Tables, templateID id.TemplateID) ([]models.Question, error)
	ListAnswers(ctx context.Context, t *schema.Tables, tenantID id.TenantID, questions []models.Question) ([]models.Answer, error)
	ListLinks(ctx context.Context, table string, tenantID id.TenantID) ([]models.Link, error)
	ListEvidence(ctx context.Context, t *schema.Tables, tenantID id.TenantID, ids []id.EvidenceID) ([]models.EvidenceItem, error)
}

type Assembler struct {
	reader   Reader
	resolver *schema.Resolver
	logger   *slog.Logger
}

type Option func(*Assembler)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// New constructs an Assembler. The inspector is consulted on every call.
func New(reader Reader, inspector schema.Inspector, catalog schema.Catalog, opts ...Option) *Assembler {
	a := &Assembler{
		reader:   reader,
		resolver: schema.NewResolver(inspector, catalog),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble returns the tenant's Pack for the template with the given code.
// It fails with CodeNotFound for an unknown code, CodeSchemaMismatch when a
// required table is missing, and CodeInternal when the loaded rows break a
// Pack invariant.
func (a *Assembler) Assemble(ctx context.Context, tenantID id.TenantID, templateCode string) (*models.Pack, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "passport.assemble")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("template_code", templateCode),
	)

	var pack *models.Pack
	err := a.reader.WithinReadTx(ctx, func(ctx context.Context) error {
		p, err := a.assemble(ctx, tenantID, templateCode)
		if err != nil {
			return err
		}
		pack = p
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assemble failed")
		return nil, coded(err, "failed to assemble pack")
	}

	span.SetAttributes(
		attribute.Int("answers", len(pack.Answers)),
		attribute.Int("evidence", len(pack.Evidence)),
	)
	a.logger.DebugContext(ctx, "pack assembled",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"template_code", templateCode,
		"answers", len(pack.Answers),
		"evidence", len(pack.Evidence),
	)
	return pack, nil
}

func (a *Assembler) assemble(ctx context.Context, tenantID id.TenantID, code string) (*models.Pack, error) {
	tables, err := a.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	tpl, err := a.reader.FindTemplateByCode(ctx, tables, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown template: %s", code))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template")
	}

	questions, err := a.reader.ListQuestions(ctx, tables, tpl.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load questions")
	}
	slices.SortStableFunc(questions, func(x, y models.Question) int {
		return strings.Compare(x.Key, y.Key)
	})

	answers, err := a.reader.ListAnswers(ctx, tables, tenantID, questions)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load answers")
	}
	idx := newAnswerIndex(answers)

	linked := map[id.AnswerID][]id.EvidenceID{}
	if table, ok := tables.AnswerEvidence.Get(); ok {
		links, err := a.reader.ListLinks(ctx, table, tenantID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence links")
		}
		for _, l := range links {
			if !slices.Contains(linked[l.AnswerID], l.EvidenceID) {
				linked[l.AnswerID] = append(linked[l.AnswerID], l.EvidenceID)
			}
		}
	}

	pack := &models.Pack{
		Template: models.PackTemplate{
			Code:     tpl.Code,
			Name:     tpl.Name,
			Version:  tpl.Version,
			Language: tpl.Language,
		},
		TenantID: tenantID.String(),
		Answers:  []models.AnswerView{},
		Evidence: []models.EvidenceView{},
	}

	var referenced []id.EvidenceID
	for _, q := range questions {
		ans, ok := idx.lookup(q)
		if !ok {
			continue
		}
		view := models.AnswerView{
			QuestionKey:    q.Key,
			QuestionPrompt: q.Prompt,
			AnswerText:     ans.Text,
			UpdatedAt:      models.FormatTimestamp(ans.Timestamp()),
		}
		for _, evID := range linked[ans.ID] {
			view.EvidenceIDs = append(view.EvidenceIDs, evID.String())
		}
		referenced = append(referenced, linked[ans.ID]...)
		pack.Answers = append(pack.Answers, view)
	}
	// First reference wins, so evidence follows answer order.
	referenced = platformstrings.Dedupe(referenced)

	if len(referenced) > 0 {
		items, err := a.reader.ListEvidence(ctx, tables, tenantID, referenced)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence")
		}
		byID := make(map[id.EvidenceID]models.EvidenceItem, len(items))
		for _, item := range items {
			if _, dup := byID[item.ID]; dup {
				return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("evidence %s loaded twice", item.ID))
			}
			byID[item.ID] = item
		}
		for _, evID := range referenced {
			item, ok := byID[evID]
			if !ok {
				return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("evidence %s is linked but was not loaded", evID))
			}
			pack.Evidence = append(pack.Evidence, toEvidenceView(item))
		}
	}

	pack.GeneratedAt = models.FormatTimestamp(ptr(requestcontext.Now(ctx)))
	return pack, nil
}

func toEvidenceView(item models.EvidenceItem) models.EvidenceView {
	return models.EvidenceView{
		ID:               item.ID.String(),
		Title:            item.Title,
		Description:      item.Description,
		OriginalFilename: item.OriginalFilename,
		UploadedAt:       models.FormatTimestamp(item.UploadedAt),
		StorageKey:       item.StorageKey,
		ContentHash:      item.ContentHash,
	}
}

// coded leaves domain errors untouched and wraps anything else as internal.
func coded(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func ptr[T any](v T) *T { return &v }
