package app

import "assessment-session-service/internal/domain"

// Assessment bundles a definition with the questions that could be resolved for it.
// Questions keeps definition order; unresolved IDs are simply absent.
type Assessment struct {
	Definition domain.AssessmentDefinition
	Questions  []domain.Question
	index      map[string]int
}

// NewAssessment resolves the definition's question IDs against resolved and
// returns the IDs that could not be found.
func NewAssessment(def domain.AssessmentDefinition, resolved map[string]domain.Question) (*Assessment, []string) {
	a := &Assessment{
		Definition: def,
		Questions:  make([]domain.Question, 0, len(def.QuestionIDs)),
		index:      make(map[string]int, len(def.QuestionIDs)),
	}
	var missing []string
	for _, id := range def.QuestionIDs {
		if _, dup := a.index[id]; dup {
			continue
		}
		q, ok := resolved[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		a.index[id] = len(a.Questions)
		a.Questions = append(a.Questions, q)
	}
	return a, missing
}

// ID returns the assessment identifier.
func (a *Assessment) ID() string {
	return a.Definition.ID
}

// Total is the number of navigable (resolved) questions.
func (a *Assessment) Total() int {
	return len(a.Questions)
}

// Question looks up a resolved question by ID.
func (a *Assessment) Question(id string) (domain.Question, bool) {
	i, ok := a.index[id]
	if !ok {
		return domain.Question{}, false
	}
	return a.Questions[i], true
}
