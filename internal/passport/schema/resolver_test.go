package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "securitypassport/pkg/domain-errors"
)

type fakeInspector struct {
	tables  []string
	columns map[string][]string
	err     error
	calls   int
}

func (f *fakeInspector) TableNames(context.Context) ([]string, error) {
	f.calls++
	return f.tables, f.err
}

func (f *fakeInspector) ColumnNames(_ context.Context, table string) ([]string, error) {
	return f.columns[table], nil
}

type ResolverSuite struct {
	suite.Suite
	ctx context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
}

func currentSchema() *fakeInspector {
	return &fakeInspector{
		tables: []string{
			"tenants", "questionnaire_templates", "questionnaire_questions",
			"tenant_answers", "tenant_answer_evidence", "evidence_items",
		},
		columns: map[string][]string{
			"tenant_answers": {"id", "tenant_id", "question_id", "answer_text", "updated_at"},
		},
	}
}

func (s *ResolverSuite) TestResolvesPreferredNames() {
	tables, err := NewResolver(currentSchema(), DefaultCatalog).Resolve(s.ctx)
	s.Require().NoError(err)

	s.Equal("questionnaire_templates", tables.Templates)
	s.Equal("questionnaire_questions", tables.Questions)
	s.Equal("tenant_answers", tables.Answers)
	s.Equal("evidence_items", tables.EvidenceItems)

	link, ok := tables.AnswerEvidence.Get()
	s.True(ok)
	s.Equal("tenant_answer_evidence", link)
	s.Equal(AnswerColumns{HasQuestionID: true, HasUpdatedAt: true}, tables.AnswerColumns)
}

func (s *ResolverSuite) TestFallsBackToLegacyNames() {
	insp := &fakeInspector{
		tables: []string{"questionnaire_template", "questionnaires_questions", "questionnaire_responses",
			"questionnaire_answer_evidence_links", "evidence_items"},
		columns: map[string][]string{
			"questionnaire_responses": {"id", "tenant_id", "question_key", "answer_text", "created_at"},
		},
	}
	tables, err := NewResolver(insp, DefaultCatalog).Resolve(s.ctx)
	s.Require().NoError(err)

	s.Equal("questionnaire_template", tables.Templates)
	s.Equal("questionnaires_questions", tables.Questions)
	s.Equal("questionnaire_responses", tables.Answers)
	link, ok := tables.AnswerEvidence.Get()
	s.True(ok)
	s.Equal("questionnaire_answer_evidence_links", link)
	s.Equal(AnswerColumns{HasQuestionKey: true, HasCreatedAt: true}, tables.AnswerColumns)
}

func (s *ResolverSuite) TestMissingLinkTableIsAbsentNotError() {
	insp := currentSchema()
	insp.tables = []string{"questionnaire_templates", "questionnaire_questions", "tenant_answers", "evidence_items"}

	tables, err := NewResolver(insp, DefaultCatalog).Resolve(s.ctx)
	s.Require().NoError(err)

	_, ok := tables.AnswerEvidence.Get()
	s.False(ok)
}

func (s *ResolverSuite) TestMissingRequiredTableNamesCandidatesAndPresent() {
	insp := currentSchema()
	insp.tables = []string{"questionnaire_templates", "questionnaire_questions", "evidence_items"}

	_, err := NewResolver(insp, DefaultCatalog).Resolve(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSchemaMismatch))

	var mm *SchemaMismatchError
	s.Require().True(errors.As(err, &mm))
	s.Equal(ConceptAnswers, mm.Concept)
	s.Equal(DefaultCatalog.Candidates[ConceptAnswers], mm.Candidates)
	s.Equal([]string{"evidence_items", "questionnaire_questions", "questionnaire_templates"}, mm.Present)
	s.Contains(err.Error(), "tenant_answers")
}

func (s *ResolverSuite) TestAnswersWithoutQuestionReferenceIsMismatch() {
	insp := currentSchema()
	insp.columns["tenant_answers"] = []string{"id", "tenant_id", "answer_text"}

	_, err := NewResolver(insp, DefaultCatalog).Resolve(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSchemaMismatch))
}

func (s *ResolverSuite) TestInspectorFailureIsInternal() {
	insp := &fakeInspector{err: errors.New("connection refused")}

	_, err := NewResolver(insp, DefaultCatalog).Resolve(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestResolveIsNotCached(t *testing.T) {
	insp := currentSchema()
	r := NewResolver(insp, DefaultCatalog)

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	insp.tables = insp.tables[:len(insp.tables)-2] // drop link + evidence tables
	_, err = r.Resolve(context.Background())

	require.Error(t, err)
	assert.Equal(t, 2, insp.calls)
}
