package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "securitypassport/pkg/domain"
	audit "securitypassport/pkg/platform/audit"
	txcontext "securitypassport/pkg/platform/tx"
)

// Store writes events to the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one audit row. A nil actor is stored as NULL.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	meta := make(map[string]any, len(event.Metadata)+1)
	for k, v := range event.Metadata {
		meta[k] = v
	}
	if event.RequestID != "" {
		meta["request_id"] = event.RequestID
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	var actor *uuid.UUID
	if !event.ActorUserID.IsNil() {
		a := uuid.UUID(event.ActorUserID)
		actor = &a
	}

	query := `
		INSERT INTO audit_events (
			id, tenant_id, actor_user_id, action, object_type, object_id, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = txcontext.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.TenantID),
		actor,
		event.Action,
		event.ObjectType,
		event.ObjectID,
		metaBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByTenant returns the most recent events of a tenant, newest first.
func (s *Store) ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]audit.Event, error) {
	query := `
		SELECT created_at, tenant_id, actor_user_id, action, object_type, object_id, metadata
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			tenant   uuid.UUID
			actor    *uuid.UUID
			metaJSON []byte
		)
		if err := rows.Scan(&event.Timestamp, &tenant, &actor, &event.Action,
			&event.ObjectType, &event.ObjectID, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.TenantID = id.TenantID(tenant)
		if actor != nil {
			event.ActorUserID = id.UserID(*actor)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
