package store

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "securitypassport/pkg/platform/tx"
)

// PostgresInspector lists tables and columns of the connection's current
// schema through information_schema.
type PostgresInspector struct {
	db *sql.DB
}

func NewPostgresInspector(db *sql.DB) *PostgresInspector {
	return &PostgresInspector{db: db}
}

func (i *PostgresInspector) TableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		ORDER BY table_name
	`
	return i.names(ctx, query)
}

func (i *PostgresInspector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`
	return i.names(ctx, query, table)
}

func (i *PostgresInspector) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := txcontext.QuerierFrom(ctx, i.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inspect schema: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema names: %w", err)
	}
	return out, nil
}
