package app

import (
	"math"
	"sort"
	"time"

	"assessment-session-service/internal/domain"
	"github.com/rs/zerolog"
)

// Score grades every question of the assessment against the recorded answers.
// Unanswered questions count as incorrect. Question IDs that could not be
// resolved are left out of the totals and logged.
func Score(a *Assessment, state domain.SessionState, elapsed time.Duration, log zerolog.Logger) domain.ScoredResult {
	result := domain.ScoredResult{
		AssessmentID:        a.ID(),
		TotalElapsedSeconds: int64(elapsed / time.Second),
		Outcomes:            make([]domain.QuestionOutcome, 0, a.Total()),
	}

	topics := make(map[string]*domain.TopicBreakdown)
	seen := make(map[string]struct{}, len(a.Definition.QuestionIDs))
	for _, qid := range a.Definition.QuestionIDs {
		if _, dup := seen[qid]; dup {
			continue
		}
		seen[qid] = struct{}{}

		q, ok := a.Question(qid)
		if !ok {
			log.Warn().
				Str("assessment_id", a.ID()).
				Str("question_id", qid).
				Msg("Question unresolved at scoring time, excluded from totals")
			continue
		}

		selected, answered := state.Answers[qid]
		correct := answered && selected == q.CorrectKey

		result.Outcomes = append(result.Outcomes, domain.QuestionOutcome{
			QuestionID:  qid,
			Topic:       q.Topic,
			SelectedKey: selected,
			Answered:    answered,
			IsCorrect:   correct,
			Flagged:     state.IsFlagged(qid),
		})

		result.TotalCount++
		tb, ok := topics[q.Topic]
		if !ok {
			tb = &domain.TopicBreakdown{Topic: q.Topic}
			topics[q.Topic] = tb
		}
		tb.Total++
		if correct {
			result.CorrectCount++
			tb.Correct++
		}
	}

	result.Percentage = percentage(result.CorrectCount, result.TotalCount)
	result.Topics = make([]domain.TopicBreakdown, 0, len(topics))
	for _, tb := range topics {
		tb.Percentage = percentage(tb.Correct, tb.Total)
		result.Topics = append(result.Topics, *tb)
	}
	sort.Slice(result.Topics, func(i, j int) bool {
		return result.Topics[i].Topic < result.Topics[j].Topic
	})
	return result
}

// percentage rounds correct/total*100 to two decimals; zero when total is zero.
func percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100*100) / 100
}
