package schema

// Concept is a logical entity the export reads, independent of the physical
// table that currently stores it.
type Concept string

const (
	ConceptTemplates      Concept = "templates"
	ConceptQuestions      Concept = "questions"
	ConceptAnswers        Concept = "answers"
	ConceptAnswerEvidence Concept = "answer_evidence"
	ConceptEvidenceItems  Concept = "evidence_items"
)

// Catalog lists, per concept, the table names deployments have used, in
// order of preference. Bump Version whenever a name is added.
type Catalog struct {
	Version    int
	Candidates map[Concept][]string
	// Optional concepts resolve to absent instead of failing.
	Optional map[Concept]bool
}

// DefaultCatalog covers every schema revision shipped so far.
var DefaultCatalog = Catalog{
	Version: 3,
	Candidates: map[Concept][]string{
		ConceptTemplates: {
			"questionnaire_templates",
			"questionnaires_templates",
			"questionnaire_template",
		},
		ConceptQuestions: {
			"questionnaire_questions",
			"questionnaires_questions",
			"questionnaire_question",
		},
		ConceptAnswers: {
			"tenant_answers",
			"questionnaire_answers",
			"questionnaire_answer",
			"questionnaire_question_answers",
			"questionnaire_responses",
		},
		ConceptAnswerEvidence: {
			"tenant_answer_evidence",
			"questionnaire_answer_evidence",
			"questionnaire_answer_evidences",
			"questionnaire_answers_evidence",
			"questionnaire_answers_evidences",
			"questionnaire_answer_evidence_links",
		},
		ConceptEvidenceItems: {
			"evidence_items",
		},
	},
	Optional: map[Concept]bool{
		ConceptAnswerEvidence: true,
	},
}

// Answer table columns whose presence varies between revisions.
const (
	ColumnQuestionID  = "question_id"
	ColumnQuestionKey = "question_key"
	ColumnUpdatedAt   = "updated_at"
	ColumnCreatedAt   = "created_at"
)
