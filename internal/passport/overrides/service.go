package overrides

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	"securitypassport/pkg/platform/audit"
	"securitypassport/pkg/platform/sentinel"
	"securitypassport/pkg/requestcontext"
)

// Store persists one settings row per tenant. Update applies fn to the
// current settings (empty when no row exists) and stores the result
// atomically.
type Store interface {
	Get(ctx context.Context, tenantID id.TenantID) (Settings, error)
	Update(ctx context.Context, tenantID id.TenantID, fn func(current Settings) Settings) (Settings, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// UpdateResult reports the stored settings and whether the write changed
// them.
type UpdateResult struct {
	Settings Settings
	Changed  bool
}

type Service struct {
	store          Store
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the tenant's stored overrides, empty when none are stored.
func (s *Service) Get(ctx context.Context, tenantID id.TenantID) (Settings, error) {
	settings, err := s.store.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Settings{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load overrides")
	}
	return settings, nil
}

// Replace stores the validated input as the tenant's complete override set.
// A nil input clears every override.
func (s *Service) Replace(ctx context.Context, tenantID id.TenantID, actor id.UserID, input map[string]any) (*UpdateResult, error) {
	return s.update(ctx, tenantID, actor, input, false)
}

// Merge overlays the validated input onto the stored overrides.
func (s *Service) Merge(ctx context.Context, tenantID id.TenantID, actor id.UserID, input map[string]any) (*UpdateResult, error) {
	return s.update(ctx, tenantID, actor, input, true)
}

func (s *Service) update(ctx context.Context, tenantID id.TenantID, actor id.UserID, input map[string]any, merge bool) (*UpdateResult, error) {
	safe := Validate(input)

	var changed bool
	stored, err := s.store.Update(ctx, tenantID, func(current Settings) Settings {
		next := safe.Clone()
		if merge {
			next = current.Clone()
			for k, v := range safe {
				next[k] = v
			}
		}
		changed = !next.Equal(current)
		return next
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store overrides")
	}

	action := audit.ActionOverridesReplace
	if merge {
		action = audit.ActionOverridesMerge
	}
	s.emitAudit(ctx, audit.Event{
		Timestamp:   requestcontext.Now(ctx),
		TenantID:    tenantID,
		ActorUserID: actor,
		Action:      string(action),
		ObjectType:  audit.ObjectTenant,
		ObjectID:    tenantID.String(),
		Metadata: map[string]any{
			"keys":    sortedKeys(safe),
			"changed": changed,
		},
		RequestID: requestcontext.RequestID(ctx),
	})

	s.logger.InfoContext(ctx, "tenant overrides updated",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"merge", merge,
		"changed", changed,
	)
	return &UpdateResult{Settings: stored, Changed: changed}, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}

func sortedKeys(s Settings) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
