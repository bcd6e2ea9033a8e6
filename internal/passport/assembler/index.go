package assembler

import (
	"securitypassport/internal/passport/models"
	id "securitypassport/pkg/domain"
)

// answerIndex finds a question's answer by question id first and by
// question key second. Only answers without a question id are indexed by
// key, so an answer to another template's question never matches by key.
// When several answers share an index key the most recently updated one
// wins.
type answerIndex struct {
	byID  map[id.QuestionID]models.Answer
	byKey map[string]models.Answer
}

func newAnswerIndex(answers []models.Answer) answerIndex {
	idx := answerIndex{
		byID:  make(map[id.QuestionID]models.Answer, len(answers)),
		byKey: make(map[string]models.Answer, len(answers)),
	}
	for _, a := range answers {
		if !a.QuestionID.IsNil() {
			if cur, ok := idx.byID[a.QuestionID]; !ok || newer(a, cur) {
				idx.byID[a.QuestionID] = a
			}
		}
		if a.QuestionID.IsNil() && a.QuestionKey != "" {
			if cur, ok := idx.byKey[a.QuestionKey]; !ok || newer(a, cur) {
				idx.byKey[a.QuestionKey] = a
			}
		}
	}
	return idx
}

func (idx answerIndex) lookup(q models.Question) (models.Answer, bool) {
	if !q.ID.IsNil() {
		if a, ok := idx.byID[q.ID]; ok {
			return a, true
		}
	}
	a, ok := idx.byKey[q.Key]
	return a, ok
}

func newer(a, b models.Answer) bool {
	ta, tb := a.Timestamp(), b.Timestamp()
	switch {
	case ta == nil:
		return false
	case tb == nil:
		return true
	default:
		return ta.After(*tb)
	}
}
