package audit

import (
	"context"
	"errors"
	"time"

	id "securitypassport/pkg/domain"
)

// Event is one tenant-scoped audit record. It is transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Timestamp   time.Time
	TenantID    id.TenantID
	ActorUserID id.UserID
	Action      string
	ObjectType  string
	ObjectID    string
	Metadata    map[string]any
	// RequestID is the correlation id of the HTTP request that caused the event.
	RequestID string
}

type Action string

const (
	ActionPassportExportZip  Action = "passport.export.zip"
	ActionPassportExportDocx Action = "passport.export.docx"
	ActionOverridesReplace   Action = "tenant.overrides.replace"
	ActionOverridesMerge     Action = "tenant.overrides.merge"
)

// Object types recorded on events.
const (
	ObjectTemplate = "questionnaire_template"
	ObjectTenant   = "tenant"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Fanout appends to every store and joins their errors. A failing sink does
// not stop the others.
type Fanout []Store

func (f Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
