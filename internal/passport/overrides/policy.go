package overrides

import (
	"context"
	"errors"
	"log/slog"

	"securitypassport/internal/passport/models"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/sentinel"
	"securitypassport/pkg/requestcontext"
)

// SettingsReader loads a tenant's stored overrides.
type SettingsReader interface {
	Get(ctx context.Context, tenantID id.TenantID) (Settings, error)
}

// Policy decides what a tenant's exports include. It never fails: stored
// values that are missing, malformed or unreadable fall back to defaults.
type Policy struct {
	reader SettingsReader
	logger *slog.Logger
}

func NewPolicy(reader SettingsReader, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{reader: reader, logger: logger}
}

// ShouldIncludeEvidence defaults to true.
func (p *Policy) ShouldIncludeEvidence(ctx context.Context, tenantID id.TenantID, kind ExportKind) bool {
	key, err := kind.IncludeEvidenceKey()
	if err != nil {
		return true
	}
	settings, err := p.reader.Get(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			p.logger.WarnContext(ctx, "failed to read tenant overrides, using defaults",
				"request_id", requestcontext.RequestID(ctx),
				"tenant_id", tenantID.String(),
				"error", err,
			)
		}
		return true
	}
	include, ok := settings[key].(bool)
	if !ok {
		return true
	}
	return include
}

// ApplyExclusion returns a copy of pack. When include is false the copy has
// no evidence and no answer carries evidence ids. The input is never
// modified.
func ApplyExclusion(pack *models.Pack, include bool) *models.Pack {
	out := pack.Clone()
	if out == nil || include {
		return out
	}
	out.Evidence = []models.EvidenceView{}
	for i := range out.Answers {
		out.Answers[i].EvidenceIDs = nil
	}
	return out
}
