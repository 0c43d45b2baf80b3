package app

import "assessment-session-service/internal/domain"

func fourQuestionAssessment() *Assessment {
	def := domain.AssessmentDefinition{
		ID:               "a1",
		Title:            "Worked example",
		QuestionIDs:      []string{"q1", "q2", "q3", "q4"},
		TimeLimitMinutes: 10,
	}
	topics := map[string]string{"q1": "A", "q2": "A", "q3": "B", "q4": "B"}
	resolved := make(map[string]domain.Question, len(topics))
	for id, topic := range topics {
		resolved[id] = domain.Question{
			ID:         id,
			Topic:      topic,
			Prompt:     "Prompt " + id,
			Options:    []domain.Option{{Key: "a", Text: "first"}, {Key: "b", Text: "second"}},
			CorrectKey: "a",
		}
	}
	a, _ := NewAssessment(def, resolved)
	return a
}
