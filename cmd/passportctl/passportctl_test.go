package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securitypassport/internal/passport/schema"
)

func sampleTables() *schema.Tables {
	return &schema.Tables{
		Templates:      "questionnaire_templates",
		Questions:      "questionnaire_questions",
		Answers:        "questionnaire_answers",
		EvidenceItems:  "evidence_items",
		AnswerEvidence: schema.Present("questionnaire_answer_evidence"),
		AnswerColumns:  schema.AnswerColumns{HasQuestionKey: true, HasCreatedAt: true},
	}
}

func TestPrintSchemaYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSchema(&buf, 3, sampleTables(), "yaml"))

	out := buf.String()
	assert.Contains(t, out, "catalog_version: 3\n")
	assert.Contains(t, out, "answers: questionnaire_answers\n")
	assert.Contains(t, out, "answer_evidence: questionnaire_answer_evidence\n")
	assert.Contains(t, out, "  question_key: true\n")
}

func TestPrintSchemaJSONOmitsAbsentLinkTable(t *testing.T) {
	tables := sampleTables()
	tables.AnswerEvidence = schema.Absent()

	var buf bytes.Buffer
	require.NoError(t, printSchema(&buf, 3, tables, "json"))
	assert.NotContains(t, buf.String(), "answer_evidence")
	assert.Contains(t, buf.String(), `"templates": "questionnaire_templates"`)
}

func TestPrintSchemaRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, printSchema(&bytes.Buffer{}, 3, sampleTables(), "toml"))
}

func TestWriteExportRefusesOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := writeExport(dir, "iso_passport_20240501_093005.zip", []byte("PK"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data))

	_, err = writeExport(dir, "iso_passport_20240501_093005.zip", []byte("again"))
	assert.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, "out/a.zip", 2_500_000, ", 3 evidence files, 0 failed")
	assert.Equal(t, "wrote out/a.zip (2.5 MB, 3 evidence files, 0 failed)\n", buf.String())
}
