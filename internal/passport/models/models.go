// Package models defines the questionnaire entities read by the export
// pipeline and the Pack projection it produces.
package models

import (
	"time"

	id "securitypassport/pkg/domain"
)

// Template is immutable after creation; Code is unique.
type Template struct {
	ID       id.TemplateID
	Code     string
	Name     string
	Version  string
	Language string
}

// Question belongs to exactly one template; Key is unique within it.
type Question struct {
	ID         id.QuestionID
	TemplateID id.TemplateID
	Key        string
	Prompt     string
}

// Answer is the current answer of a tenant to a question. Older schemas
// reference the question by key instead of id, so either may be empty.
type Answer struct {
	ID          id.AnswerID
	TenantID    id.TenantID
	QuestionID  id.QuestionID
	QuestionKey string
	Text        string
	UpdatedAt   *time.Time
	CreatedAt   *time.Time
}

// Timestamp returns UpdatedAt, falling back to CreatedAt.
func (a Answer) Timestamp() *time.Time {
	if a.UpdatedAt != nil {
		return a.UpdatedAt
	}
	return a.CreatedAt
}

// EvidenceItem is a tenant-owned artifact. StorageKey is empty until a file
// is uploaded.
type EvidenceItem struct {
	ID               id.EvidenceID
	TenantID         id.TenantID
	Title            string
	Description      string
	StorageKey       string
	OriginalFilename string
	ContentType      string
	ContentHash      string
	SizeBytes        int64
	UploadedAt       *time.Time
}

// HasFile reports whether a file has been attached.
func (e EvidenceItem) HasFile() bool {
	return e.StorageKey != ""
}

// Link associates an answer with an evidence item.
type Link struct {
	TenantID   id.TenantID
	AnswerID   id.AnswerID
	EvidenceID id.EvidenceID
}
