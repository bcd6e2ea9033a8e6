package models

import "time"

// Pack is the canonical export projection of one tenant's answers to one
// template. It is rebuilt on every export and treated as an immutable value
// once assembled.
type Pack struct {
	Template    PackTemplate   `json:"template"`
	TenantID    string         `json:"tenant_id"`
	GeneratedAt string         `json:"generated_at"`
	Answers     []AnswerView   `json:"answers"`
	Evidence    []EvidenceView `json:"evidence"`
}

type PackTemplate struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Language string `json:"language"`
}

type AnswerView struct {
	QuestionKey    string   `json:"question_key"`
	QuestionPrompt string   `json:"question_prompt"`
	AnswerText     string   `json:"answer_text"`
	UpdatedAt      string   `json:"updated_at"`
	EvidenceIDs    []string `json:"evidence_ids,omitempty"`
}

type EvidenceView struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	OriginalFilename string `json:"original_filename"`
	UploadedAt       string `json:"uploaded_at"`
	StorageKey       string `json:"storage_key"`
	ContentHash      string `json:"content_hash"`
}

// Clone returns a deep copy. Answers and Evidence are never nil in the copy
// so they serialize as JSON arrays.
func (p *Pack) Clone() *Pack {
	if p == nil {
		return nil
	}
	out := *p
	out.Answers = make([]AnswerView, len(p.Answers))
	for i, a := range p.Answers {
		if a.EvidenceIDs != nil {
			a.EvidenceIDs = append([]string(nil), a.EvidenceIDs...)
		}
		out.Answers[i] = a
	}
	out.Evidence = append(make([]EvidenceView, 0, len(p.Evidence)), p.Evidence...)
	return &out
}

// FormatTimestamp renders t as an RFC 3339 UTC string, or "" for nil.
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
