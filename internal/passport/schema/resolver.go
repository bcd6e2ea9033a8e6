// Package schema maps the export's logical concepts onto whichever physical
// tables exist in the connected database. Resolution runs once per export
// and is never cached, since deployments can change the schema without a
// code change.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	dErrors "securitypassport/pkg/domain-errors"
)

// Inspector enumerates the physical schema.
type Inspector interface {
	TableNames(ctx context.Context) ([]string, error)
	ColumnNames(ctx context.Context, table string) ([]string, error)
}

// OptionalTable is a table that may not exist. Use Get; there is no way to
// read the name without checking presence.
type OptionalTable struct {
	name    string
	present bool
}

func Present(name string) OptionalTable { return OptionalTable{name: name, present: true} }

func Absent() OptionalTable { return OptionalTable{} }

func (o OptionalTable) Get() (string, bool) { return o.name, o.present }

// AnswerColumns describes which drift-prone columns the answers table has.
type AnswerColumns struct {
	HasQuestionID  bool
	HasQuestionKey bool
	HasUpdatedAt   bool
	HasCreatedAt   bool
}

// Tables is the resolved physical schema for one export.
type Tables struct {
	Templates      string
	Questions      string
	Answers        string
	EvidenceItems  string
	AnswerEvidence OptionalTable
	AnswerColumns  AnswerColumns
}

// SchemaMismatchError names what was wanted and what exists.
type SchemaMismatchError struct {
	Concept    Concept
	Candidates []string
	Present    []string
	Detail     string
}

func (e *SchemaMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("schema mismatch for %s: %s", e.Concept, e.Detail)
	}
	return fmt.Sprintf("schema mismatch for %s: none of [%s] exist; present: [%s]",
		e.Concept, strings.Join(e.Candidates, ", "), strings.Join(e.Present, ", "))
}

type Resolver struct {
	inspector Inspector
	catalog   Catalog
}

func NewResolver(inspector Inspector, catalog Catalog) *Resolver {
	return &Resolver{inspector: inspector, catalog: catalog}
}

// Resolve inspects the store and returns the tables to read. Required
// concepts without a match fail with CodeSchemaMismatch.
func (r *Resolver) Resolve(ctx context.Context) (*Tables, error) {
	names, err := r.inspector.TableNames(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tables")
	}
	existing := make(map[string]struct{}, len(names))
	for _, n := range names {
		existing[n] = struct{}{}
	}
	present := append([]string(nil), names...)
	sort.Strings(present)

	pick := func(c Concept) (string, bool, error) {
		for _, cand := range r.catalog.Candidates[c] {
			if _, ok := existing[cand]; ok {
				return cand, true, nil
			}
		}
		if r.catalog.Optional[c] {
			return "", false, nil
		}
		return "", false, mismatch(&SchemaMismatchError{
			Concept:    c,
			Candidates: r.catalog.Candidates[c],
			Present:    present,
		})
	}

	var t Tables
	for _, target := range []struct {
		concept Concept
		dst     *string
	}{
		{ConceptTemplates, &t.Templates},
		{ConceptQuestions, &t.Questions},
		{ConceptAnswers, &t.Answers},
		{ConceptEvidenceItems, &t.EvidenceItems},
	} {
		name, _, err := pick(target.concept)
		if err != nil {
			return nil, err
		}
		*target.dst = name
	}

	linkName, ok, err := pick(ConceptAnswerEvidence)
	if err != nil {
		return nil, err
	}
	if ok {
		t.AnswerEvidence = Present(linkName)
	} else {
		t.AnswerEvidence = Absent()
	}

	cols, err := r.inspector.ColumnNames(ctx, t.Answers)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list answer columns")
	}
	t.AnswerColumns = answerColumns(cols)
	if !t.AnswerColumns.HasQuestionID && !t.AnswerColumns.HasQuestionKey {
		return nil, mismatch(&SchemaMismatchError{
			Concept: ConceptAnswers,
			Detail:  fmt.Sprintf("table %s has neither %s nor %s", t.Answers, ColumnQuestionID, ColumnQuestionKey),
		})
	}
	return &t, nil
}

func answerColumns(cols []string) AnswerColumns {
	var ac AnswerColumns
	for _, c := range cols {
		switch c {
		case ColumnQuestionID:
			ac.HasQuestionID = true
		case ColumnQuestionKey:
			ac.HasQuestionKey = true
		case ColumnUpdatedAt:
			ac.HasUpdatedAt = true
		case ColumnCreatedAt:
			ac.HasCreatedAt = true
		}
	}
	return ac
}

func mismatch(e *SchemaMismatchError) error {
	return dErrors.Wrap(e, dErrors.CodeSchemaMismatch, "required table missing")
}
