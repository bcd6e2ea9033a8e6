package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"securitypassport/internal/passport/overrides"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/sentinel"
	"securitypassport/pkg/requestcontext"
)

// PostgresStore keeps one tenant_overrides row per tenant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, tenantID id.TenantID) (overrides.Settings, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM tenant_overrides WHERE tenant_id = $1`,
		uuid.UUID(tenantID),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant overrides: %w", err)
	}
	return decodeSettings(raw)
}

// Update locks the tenant's row for the read-modify-write. Concurrent first
// writes for a tenant resolve through the ON CONFLICT clause.
func (s *PostgresStore) Update(ctx context.Context, tenantID id.TenantID, fn func(overrides.Settings) overrides.Settings) (overrides.Settings, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin overrides update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := overrides.Settings{}
	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT settings FROM tenant_overrides WHERE tenant_id = $1 FOR UPDATE`,
		uuid.UUID(tenantID),
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("lock tenant overrides: %w", err)
	default:
		if current, err = decodeSettings(raw); err != nil {
			return nil, err
		}
	}

	next, err := json.Marshal(fn(current))
	if err != nil {
		return nil, fmt.Errorf("marshal tenant overrides: %w", err)
	}

	now := requestcontext.Now(ctx)
	query := `
		INSERT INTO tenant_overrides (tenant_id, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (tenant_id) DO UPDATE
		SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
		RETURNING settings
	`
	var stored []byte
	if err := tx.QueryRowContext(ctx, query, uuid.UUID(tenantID), next, now).Scan(&stored); err != nil {
		return nil, fmt.Errorf("upsert tenant overrides: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tenant overrides: %w", err)
	}
	return decodeSettings(stored)
}

func decodeSettings(raw []byte) (overrides.Settings, error) {
	settings := overrides.Settings{}
	if len(raw) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal tenant overrides: %w", err)
	}
	if settings == nil {
		settings = overrides.Settings{}
	}
	return settings, nil
}
