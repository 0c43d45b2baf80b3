package app

import (
	"sort"

	"assessment-session-service/internal/domain"
)

// QuestionView is a question as shown to the test taker, without its answer.
type QuestionView struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Prompt  string          `json:"prompt"`
	Options []domain.Option `json:"options"`
}

// ClockView is the client-facing clock state.
type ClockView struct {
	ElapsedSeconds   int64  `json:"elapsedSeconds"`
	RemainingSeconds *int64 `json:"remainingSeconds,omitempty"`
}

// SessionView is a read-only projection of a session for clients.
type SessionView struct {
	AssessmentID  string            `json:"assessmentId"`
	Title         string            `json:"title"`
	Status        domain.Status     `json:"status"`
	CurrentIndex  int               `json:"currentIndex"`
	TotalCount    int               `json:"totalCount"`
	AnsweredCount int               `json:"answeredCount"`
	Question      *QuestionView     `json:"question,omitempty"`
	SelectedKey   string            `json:"selectedKey,omitempty"`
	Answers       map[string]string `json:"answers"`
	Flagged       []string          `json:"flagged"`
	Clock         ClockView         `json:"clock"`
}

func clockView(r ClockReading) ClockView {
	cv := ClockView{ElapsedSeconds: r.ElapsedSeconds()}
	if r.Timed {
		remaining := r.RemainingSeconds()
		cv.RemainingSeconds = &remaining
	}
	return cv
}

func buildView(a *Assessment, state domain.SessionState, reading ClockReading) SessionView {
	v := SessionView{
		AssessmentID:  a.ID(),
		Title:         a.Definition.Title,
		Status:        state.Status,
		CurrentIndex:  state.CurrentIndex,
		TotalCount:    a.Total(),
		AnsweredCount: len(state.Answers),
		Answers:       make(map[string]string, len(state.Answers)),
		Flagged:       make([]string, 0, len(state.Flagged)),
		Clock:         clockView(reading),
	}
	for qid, key := range state.Answers {
		v.Answers[qid] = key
	}
	for qid := range state.Flagged {
		v.Flagged = append(v.Flagged, qid)
	}
	sort.Strings(v.Flagged)

	if state.CurrentIndex < a.Total() {
		q := a.Questions[state.CurrentIndex]
		v.Question = &QuestionView{
			ID:      q.ID,
			Topic:   q.Topic,
			Prompt:  q.Prompt,
			Options: q.Options,
		}
		v.SelectedKey = state.Answers[q.ID]
	}
	return v
}
