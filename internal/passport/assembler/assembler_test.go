package assembler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"securitypassport/internal/passport/models"
	"securitypassport/internal/passport/schema"
	"securitypassport/internal/passport/store"
	id "securitypassport/pkg/domain"
	dErrors "securitypassport/pkg/domain-errors"
	"securitypassport/pkg/requestcontext"
)

type AssemblerSuite struct {
	suite.Suite
	store  *store.InMemory
	asm    *Assembler
	ctx    context.Context
	tenant id.TenantID
	tpl    models.Template
	now    time.Time
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerSuite))
}

func (s *AssemblerSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.asm = New(s.store, s.store, schema.DefaultCatalog)
	s.now = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.tenant = id.TenantID(uuid.New())
	s.tpl = models.Template{ID: id.TemplateID(uuid.New()), Code: "iso27001", Name: "ISO 27001", Version: "2022", Language: "en"}
	s.store.AddTemplate(s.tpl)
}

func (s *AssemblerSuite) addQuestion(tpl models.Template, key string) models.Question {
	q := models.Question{ID: id.QuestionID(uuid.New()), TemplateID: tpl.ID, Key: key, Prompt: "Prompt " + key}
	s.store.AddQuestion(q)
	return q
}

func (s *AssemblerSuite) addAnswer(tenant id.TenantID, q models.Question, text string) models.Answer {
	updated := s.now.Add(-time.Hour)
	a := models.Answer{ID: id.AnswerID(uuid.New()), TenantID: tenant, QuestionID: q.ID, Text: text, UpdatedAt: &updated}
	s.store.AddAnswer(a)
	return a
}

func (s *AssemblerSuite) addEvidence(tenant id.TenantID, a models.Answer, title string) models.EvidenceItem {
	e := models.EvidenceItem{ID: id.EvidenceID(uuid.New()), TenantID: tenant, Title: title, StorageKey: "t/" + title}
	s.store.AddEvidence(e)
	s.store.AddLink(models.Link{TenantID: tenant, AnswerID: a.ID, EvidenceID: e.ID})
	return e
}

func (s *AssemblerSuite) TestScenarioSingleAnswerWithEvidence() {
	q := s.addQuestion(s.tpl, "q1")
	a := s.addAnswer(s.tenant, q, "We encrypt at rest.")
	ev := s.addEvidence(s.tenant, a, "ev1")

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)

	s.Equal(models.PackTemplate{Code: "iso27001", Name: "ISO 27001", Version: "2022", Language: "en"}, pack.Template)
	s.Equal(s.tenant.String(), pack.TenantID)
	s.Equal("2024-05-01T09:30:00Z", pack.GeneratedAt)
	s.Require().Len(pack.Answers, 1)
	s.Equal("We encrypt at rest.", pack.Answers[0].AnswerText)
	s.Equal("2024-05-01T08:30:00Z", pack.Answers[0].UpdatedAt)
	s.Equal([]string{ev.ID.String()}, pack.Answers[0].EvidenceIDs)
	s.Require().Len(pack.Evidence, 1)
	s.Equal(ev.ID.String(), pack.Evidence[0].ID)
	s.Equal("t/ev1", pack.Evidence[0].StorageKey)
}

func (s *AssemblerSuite) TestAnswersOnlyForTemplateInKeyOrder() {
	other := models.Template{ID: id.TemplateID(uuid.New()), Code: "soc2"}
	s.store.AddTemplate(other)
	for _, key := range []string{"q3", "q1", "q2"} {
		s.addAnswer(s.tenant, s.addQuestion(s.tpl, key), "answer "+key)
	}
	s.addAnswer(s.tenant, s.addQuestion(other, "q0"), "other template")

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)

	keys := make([]string, len(pack.Answers))
	for i, a := range pack.Answers {
		keys[i] = a.QuestionKey
	}
	s.Equal([]string{"q1", "q2", "q3"}, keys)
}

func (s *AssemblerSuite) TestUnansweredQuestionsAreSkipped() {
	s.addQuestion(s.tpl, "q1")
	s.addAnswer(s.tenant, s.addQuestion(s.tpl, "q2"), "only this one")

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Require().Len(pack.Answers, 1)
	s.Equal("q2", pack.Answers[0].QuestionKey)
}

func (s *AssemblerSuite) TestEvidenceReferencedOnceAndSubset() {
	q1 := s.addQuestion(s.tpl, "q1")
	q2 := s.addQuestion(s.tpl, "q2")
	a1 := s.addAnswer(s.tenant, q1, "one")
	a2 := s.addAnswer(s.tenant, q2, "two")
	shared := s.addEvidence(s.tenant, a1, "shared")
	s.store.AddLink(models.Link{TenantID: s.tenant, AnswerID: a2.ID, EvidenceID: shared.ID})
	s.addEvidence(s.tenant, a2, "own")
	// Unlinked evidence never appears.
	s.store.AddEvidence(models.EvidenceItem{ID: id.EvidenceID(uuid.New()), TenantID: s.tenant, Title: "stray"})

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)

	inPack := map[string]int{}
	for _, e := range pack.Evidence {
		inPack[e.ID]++
	}
	for evID, n := range inPack {
		s.Equal(1, n, "evidence %s duplicated", evID)
	}
	for _, a := range pack.Answers {
		for _, evID := range a.EvidenceIDs {
			s.Contains(inPack, evID)
		}
	}
	s.Len(pack.Evidence, 2)
	s.Equal(shared.ID.String(), pack.Evidence[0].ID)
}

func (s *AssemblerSuite) TestIdempotentExceptGeneratedAt() {
	q := s.addQuestion(s.tpl, "q1")
	a := s.addAnswer(s.tenant, q, "text")
	s.addEvidence(s.tenant, a, "ev1")
	s.addEvidence(s.tenant, a, "ev2")

	first, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	second, err := s.asm.Assemble(requestcontext.WithTime(s.ctx, s.now.Add(time.Minute)), s.tenant, "iso27001")
	s.Require().NoError(err)

	s.NotEqual(first.GeneratedAt, second.GeneratedAt)
	second.GeneratedAt = first.GeneratedAt
	s.Equal(first, second)
}

func (s *AssemblerSuite) TestMissingLinkTableMeansNoEvidence() {
	s.store.SetTables("questionnaire_templates", "questionnaire_questions", "tenant_answers", "evidence_items")
	q := s.addQuestion(s.tpl, "q1")
	a := s.addAnswer(s.tenant, q, "text")
	s.addEvidence(s.tenant, a, "ev1")

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Require().Len(pack.Answers, 1)
	s.Nil(pack.Answers[0].EvidenceIDs)
	s.Empty(pack.Evidence)
	s.NotNil(pack.Evidence)
}

func (s *AssemblerSuite) TestUnknownTemplateIsNotFound() {
	_, err := s.asm.Assemble(s.ctx, s.tenant, "does-not-exist")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AssemblerSuite) TestSchemaMismatchPassesThrough() {
	s.store.SetTables("questionnaire_templates", "evidence_items")

	_, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSchemaMismatch))
	var mm *schema.SchemaMismatchError
	s.True(errors.As(err, &mm))
}

func (s *AssemblerSuite) TestLinkedEvidenceMissingFromStoreIsInternal() {
	q := s.addQuestion(s.tpl, "q1")
	a := s.addAnswer(s.tenant, q, "text")
	s.store.AddLink(models.Link{TenantID: s.tenant, AnswerID: a.ID, EvidenceID: id.EvidenceID(uuid.New())})

	_, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *AssemblerSuite) TestOtherTenantsDataIsInvisible() {
	stranger := id.TenantID(uuid.New())
	q := s.addQuestion(s.tpl, "q1")
	a := s.addAnswer(stranger, q, "not yours")
	s.addEvidence(stranger, a, "secret")

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Empty(pack.Answers)
	s.Empty(pack.Evidence)
}

func (s *AssemblerSuite) TestKeyOnlyAnswersTableMatchesByKey() {
	s.store.SetColumns("tenant_answers", "id", "tenant_id", "question_key", "answer_text", "created_at")
	q := s.addQuestion(s.tpl, "q1")
	created := s.now.Add(-2 * time.Hour)
	s.store.AddAnswer(models.Answer{ID: id.AnswerID(uuid.New()), TenantID: s.tenant, QuestionKey: q.Key, Text: "legacy", CreatedAt: &created})

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Require().Len(pack.Answers, 1)
	s.Equal("legacy", pack.Answers[0].AnswerText)
	s.Equal("2024-05-01T07:30:00Z", pack.Answers[0].UpdatedAt)
}

func (s *AssemblerSuite) TestIdentityMatchWinsOverKey() {
	s.store.SetColumns("tenant_answers", "id", "tenant_id", "question_id", "question_key", "answer_text")
	q := s.addQuestion(s.tpl, "q1")
	s.store.AddAnswer(models.Answer{ID: id.AnswerID(uuid.New()), TenantID: s.tenant, QuestionKey: "q1", Text: "by key"})
	s.store.AddAnswer(models.Answer{ID: id.AnswerID(uuid.New()), TenantID: s.tenant, QuestionID: q.ID, Text: "by id"})

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Require().Len(pack.Answers, 1)
	s.Equal("by id", pack.Answers[0].AnswerText)
	s.Equal("", pack.Answers[0].UpdatedAt)
}

func (s *AssemblerSuite) TestKeyFallbackIgnoresOtherTemplatesAnswers() {
	s.store.SetColumns("tenant_answers", "id", "tenant_id", "question_id", "question_key", "answer_text")
	s.addQuestion(s.tpl, "q1")
	soc2 := models.Template{ID: id.TemplateID(uuid.New()), Code: "soc2", Name: "SOC 2"}
	s.store.AddTemplate(soc2)
	other := s.addQuestion(soc2, "q1")
	s.store.AddAnswer(models.Answer{ID: id.AnswerID(uuid.New()), TenantID: s.tenant, QuestionID: other.ID, QuestionKey: "q1", Text: "SOC2 answer with key"})

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Empty(pack.Answers)

	pack, err = s.asm.Assemble(s.ctx, s.tenant, "soc2")
	s.Require().NoError(err)
	s.Require().Len(pack.Answers, 1)
	s.Equal("SOC2 answer with key", pack.Answers[0].AnswerText)
}

func (s *AssemblerSuite) TestKeyFallbackForAnswersWithoutQuestionID() {
	s.store.SetColumns("tenant_answers", "id", "tenant_id", "question_id", "question_key", "answer_text")
	s.addQuestion(s.tpl, "q1")
	s.store.AddAnswer(models.Answer{ID: id.AnswerID(uuid.New()), TenantID: s.tenant, QuestionKey: "q1", Text: "migrated row"})

	pack, err := s.asm.Assemble(s.ctx, s.tenant, "iso27001")
	s.Require().NoError(err)
	s.Require().Len(pack.Answers, 1)
	s.Equal("migrated row", pack.Answers[0].AnswerText)
}

func TestAnswerIndexKeysOnlyAnswersWithoutQuestionID(t *testing.T) {
	own := models.Question{ID: id.QuestionID(uuid.New()), Key: "q1"}
	foreign := id.QuestionID(uuid.New())
	idx := newAnswerIndex([]models.Answer{
		{ID: id.AnswerID(uuid.New()), QuestionID: foreign, QuestionKey: "q1", Text: "foreign"},
	})

	_, ok := idx.lookup(own)
	assert.False(t, ok)
}
