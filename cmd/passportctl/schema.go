package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"securitypassport/internal/passport/schema"
	"securitypassport/internal/passport/store"
)

// resolvedSchema is the printable form of schema.Tables.
type resolvedSchema struct {
	CatalogVersion int           `json:"catalog_version" yaml:"catalog_version"`
	Templates      string        `json:"templates" yaml:"templates"`
	Questions      string        `json:"questions" yaml:"questions"`
	Answers        string        `json:"answers" yaml:"answers"`
	AnswerEvidence string        `json:"answer_evidence,omitempty" yaml:"answer_evidence,omitempty"`
	EvidenceItems  string        `json:"evidence_items" yaml:"evidence_items"`
	AnswerColumns  answerColumns `json:"answer_columns" yaml:"answer_columns"`
}

type answerColumns struct {
	QuestionID  bool `json:"question_id" yaml:"question_id"`
	QuestionKey bool `json:"question_key" yaml:"question_key"`
	UpdatedAt   bool `json:"updated_at" yaml:"updated_at"`
	CreatedAt   bool `json:"created_at" yaml:"created_at"`
}

func newSchemaCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show which physical tables the export would read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver := schema.NewResolver(store.NewPostgresInspector(getDB(cmd)), schema.DefaultCatalog)
			tables, err := resolver.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			return printSchema(cmd.OutOrStdout(), schema.DefaultCatalog.Version, tables, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}

func printSchema(w io.Writer, version int, t *schema.Tables, format string) error {
	out := resolvedSchema{
		CatalogVersion: version,
		Templates:      t.Templates,
		Questions:      t.Questions,
		Answers:        t.Answers,
		EvidenceItems:  t.EvidenceItems,
		AnswerColumns: answerColumns{
			QuestionID:  t.AnswerColumns.HasQuestionID,
			QuestionKey: t.AnswerColumns.HasQuestionKey,
			UpdatedAt:   t.AnswerColumns.HasUpdatedAt,
			CreatedAt:   t.AnswerColumns.HasCreatedAt,
		},
	}
	if link, ok := t.AnswerEvidence.Get(); ok {
		out.AnswerEvidence = link
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
