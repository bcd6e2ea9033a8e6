package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"securitypassport/internal/passport/models"
	"securitypassport/internal/passport/schema"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/sentinel"
)

// InMemory is a thread-safe in-memory store. It also acts as a schema
// inspector whose table list can be changed to simulate drift.
type InMemory struct {
	mu        sync.RWMutex
	tables    []string
	columns   map[string][]string
	templates map[string]models.Template
	questions []models.Question
	answers   []models.Answer
	links     []models.Link
	evidence  map[id.EvidenceID]models.EvidenceItem
}

// NewInMemory starts with the current schema: every preferred table name
// present and an answers table keyed by question id.
func NewInMemory() *InMemory {
	return &InMemory{
		tables: []string{
			"questionnaire_templates",
			"questionnaire_questions",
			"tenant_answers",
			"tenant_answer_evidence",
			"evidence_items",
		},
		columns: map[string][]string{
			"tenant_answers": {"id", "tenant_id", "question_id", "answer_text", "created_at", "updated_at"},
		},
		templates: make(map[string]models.Template),
		evidence:  make(map[id.EvidenceID]models.EvidenceItem),
	}
}

func (s *InMemory) SetTables(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append([]string(nil), names...)
}

func (s *InMemory) SetColumns(table string, cols ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns[table] = append([]string(nil), cols...)
}

func (s *InMemory) AddTemplate(t models.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.Code] = t
}

func (s *InMemory) AddQuestion(q models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, q)
}

func (s *InMemory) AddAnswer(a models.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, a)
}

func (s *InMemory) AddLink(l models.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, l)
}

func (s *InMemory) AddEvidence(e models.EvidenceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence[e.ID] = e
}

func (s *InMemory) TableNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.tables...), nil
}

func (s *InMemory) ColumnNames(_ context.Context, table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.columns[table]...), nil
}

func (s *InMemory) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *InMemory) FindTemplateByCode(_ context.Context, _ *schema.Tables, code string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *InMemory) ListQuestions(_ context.Context, _ *schema.Tables, templateID id.TemplateID) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Question
	for _, q := range s.questions {
		if q.TemplateID == templateID {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *InMemory) ListAnswers(_ context.Context, t *schema.Tables, tenantID id.TenantID, questions []models.Question) ([]models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qids := make(map[id.QuestionID]struct{}, len(questions))
	keys := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		qids[q.ID] = struct{}{}
		keys[q.Key] = struct{}{}
	}
	var out []models.Answer
	for _, a := range s.answers {
		if a.TenantID != tenantID {
			continue
		}
		if !t.AnswerColumns.HasQuestionID {
			a.QuestionID = id.QuestionID{}
		}
		if !t.AnswerColumns.HasQuestionKey {
			a.QuestionKey = ""
		}
		_, byID := qids[a.QuestionID]
		_, byKey := keys[a.QuestionKey]
		if (byID && !a.QuestionID.IsNil()) || (byKey && a.QuestionKey != "" && a.QuestionID.IsNil()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemory) ListLinks(_ context.Context, _ string, tenantID id.TenantID) ([]models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Link
	for _, l := range s.links {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *InMemory) ListEvidence(_ context.Context, _ *schema.Tables, tenantID id.TenantID, ids []id.EvidenceID) ([]models.EvidenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.EvidenceItem
	for evID, e := range s.evidence {
		if e.TenantID == tenantID && slices.Contains(ids, evID) {
			out = append(out, e)
		}
	}
	return out, nil
}
