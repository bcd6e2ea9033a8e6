// Package store reads questionnaire and evidence rows from whichever tables
// the schema resolver selected. Table names come from a fixed catalog and
// are quoted; no caller-supplied identifier reaches a query.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"securitypassport/internal/passport/models"
	"securitypassport/internal/passport/schema"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/sentinel"
	txcontext "securitypassport/pkg/platform/tx"
)

// PostgresStore is the read side of the export pipeline.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinReadTx runs fn against a single read-only snapshot.
func (s *PostgresStore) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.RunReadOnly(ctx, s.db, fn)
}

func (s *PostgresStore) FindTemplateByCode(ctx context.Context, t *schema.Tables, code string) (*models.Template, error) {
	query := fmt.Sprintf(`
		SELECT id, code, name, version::text, language
		FROM %s
		WHERE code = $1
		LIMIT 1
	`, pq.QuoteIdentifier(t.Templates))

	var (
		tplID    uuid.UUID
		tpl      models.Template
		name     sql.NullString
		version  sql.NullString
		language sql.NullString
	)
	err := txcontext.QuerierFrom(ctx, s.db).QueryRowContext(ctx, query, code).
		Scan(&tplID, &tpl.Code, &name, &version, &language)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find template by code: %w", err)
	}
	tpl.ID = id.TemplateID(tplID)
	tpl.Name = name.String
	tpl.Version = version.String
	tpl.Language = language.String
	return &tpl, nil
}

// ListQuestions returns the template's questions ordered by key.
func (s *PostgresStore) ListQuestions(ctx context.Context, t *schema.Tables, templateID id.TemplateID) ([]models.Question, error) {
	query := fmt.Sprintf(`
		SELECT id, template_id, "key", prompt
		FROM %s
		WHERE template_id = $1
		ORDER BY "key" ASC
	`, pq.QuoteIdentifier(t.Questions))

	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(templateID))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var (
			qID, tplID uuid.UUID
			q          models.Question
			prompt     sql.NullString
		)
		if err := rows.Scan(&qID, &tplID, &q.Key, &prompt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.ID = id.QuestionID(qID)
		q.TemplateID = id.TemplateID(tplID)
		q.Prompt = prompt.String
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// ListAnswers returns the tenant's answers to the given questions, matched
// by question id or key depending on which columns the answers table has.
func (s *PostgresStore) ListAnswers(ctx context.Context, t *schema.Tables, tenantID id.TenantID, questions []models.Question) ([]models.Answer, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	cols := t.AnswerColumns

	selectList := []string{"id", "tenant_id", "answer_text"}
	if cols.HasQuestionID {
		selectList = append(selectList, "question_id")
	}
	if cols.HasQuestionKey {
		selectList = append(selectList, "question_key")
	}
	if cols.HasUpdatedAt {
		selectList = append(selectList, "updated_at")
	}
	if cols.HasCreatedAt {
		selectList = append(selectList, "created_at")
	}

	args := []any{uuid.UUID(tenantID)}
	var match []string
	if cols.HasQuestionID {
		ids := make([]string, len(questions))
		for i, q := range questions {
			ids[i] = q.ID.String()
		}
		args = append(args, pq.Array(ids))
		match = append(match, fmt.Sprintf("question_id = ANY($%d)", len(args)))
	}
	if cols.HasQuestionKey {
		keys := make([]string, len(questions))
		for i, q := range questions {
			keys[i] = q.Key
		}
		args = append(args, pq.Array(keys))
		// A key only identifies the question when no question id was stored.
		keyMatch := fmt.Sprintf("question_key = ANY($%d)", len(args))
		if cols.HasQuestionID {
			keyMatch = "(" + keyMatch + " AND question_id IS NULL)"
		}
		match = append(match, keyMatch)
	}
	if len(match) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE tenant_id = $1 AND (%s)
		ORDER BY id
	`, strings.Join(selectList, ", "), pq.QuoteIdentifier(t.Answers), strings.Join(match, " OR "))

	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []models.Answer
	for rows.Next() {
		var (
			aID, tID    uuid.UUID
			text        sql.NullString
			questionID  uuid.NullUUID
			questionKey sql.NullString
			updatedAt   sql.NullTime
			createdAt   sql.NullTime
		)
		dest := []any{&aID, &tID, &text}
		if cols.HasQuestionID {
			dest = append(dest, &questionID)
		}
		if cols.HasQuestionKey {
			dest = append(dest, &questionKey)
		}
		if cols.HasUpdatedAt {
			dest = append(dest, &updatedAt)
		}
		if cols.HasCreatedAt {
			dest = append(dest, &createdAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a := models.Answer{
			ID:          id.AnswerID(aID),
			TenantID:    id.TenantID(tID),
			Text:        text.String,
			QuestionKey: questionKey.String,
			UpdatedAt:   nullTime(updatedAt),
			CreatedAt:   nullTime(createdAt),
		}
		if questionID.Valid {
			a.QuestionID = id.QuestionID(questionID.UUID)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

// ListLinks returns every answer-evidence link of the tenant.
func (s *PostgresStore) ListLinks(ctx context.Context, table string, tenantID id.TenantID) ([]models.Link, error) {
	query := fmt.Sprintf(`
		SELECT answer_id, evidence_id
		FROM %s
		WHERE tenant_id = $1
		ORDER BY answer_id, evidence_id
	`, pq.QuoteIdentifier(table))

	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list answer evidence links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var answerID, evidenceID uuid.UUID
		if err := rows.Scan(&answerID, &evidenceID); err != nil {
			return nil, fmt.Errorf("scan answer evidence link: %w", err)
		}
		out = append(out, models.Link{
			TenantID:   tenantID,
			AnswerID:   id.AnswerID(answerID),
			EvidenceID: id.EvidenceID(evidenceID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer evidence links: %w", err)
	}
	return out, nil
}

// ListEvidence loads exactly the requested evidence items of the tenant.
// Ids outside the tenant are silently absent from the result.
func (s *PostgresStore) ListEvidence(ctx context.Context, t *schema.Tables, tenantID id.TenantID, ids []id.EvidenceID) ([]models.EvidenceItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, e := range ids {
		raw[i] = e.String()
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, title, description, storage_key, original_filename,
			content_type, content_hash, size_bytes, uploaded_at
		FROM %s
		WHERE tenant_id = $1 AND id = ANY($2)
	`, pq.QuoteIdentifier(t.EvidenceItems))

	rows, err := txcontext.QuerierFrom(ctx, s.db).QueryContext(ctx, query, uuid.UUID(tenantID), pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var out []models.EvidenceItem
	for rows.Next() {
		var (
			eID, tID                                 uuid.UUID
			title, description, storageKey, filename sql.NullString
			contentType, contentHash                 sql.NullString
			size                                     sql.NullInt64
			uploadedAt                               sql.NullTime
		)
		if err := rows.Scan(&eID, &tID, &title, &description, &storageKey, &filename,
			&contentType, &contentHash, &size, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, models.EvidenceItem{
			ID:               id.EvidenceID(eID),
			TenantID:         id.TenantID(tID),
			Title:            title.String,
			Description:      description.String,
			StorageKey:       storageKey.String,
			OriginalFilename: filename.String,
			ContentType:      contentType.String,
			ContentHash:      contentHash.String,
			SizeBytes:        size.Int64,
			UploadedAt:       nullTime(uploadedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
