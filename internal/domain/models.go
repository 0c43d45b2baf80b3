package domain

import "time"

// Option is one selectable answer of a question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID          string   `json:"id"`
	Topic       string   `json:"topic"`
	Prompt      string   `json:"prompt"`
	Options     []Option `json:"options"`
	CorrectKey  string   `json:"correctKey"`
	Explanation string   `json:"explanation,omitempty"`
}

// HasOption reports whether key is one of the question's options.
func (q Question) HasOption(key string) bool {
	for _, opt := range q.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// AssessmentDefinition is the ordered set of questions making up an assessment.
type AssessmentDefinition struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	QuestionIDs      []string `json:"questionIds"`
	TimeLimitMinutes int      `json:"timeLimitMinutes,omitempty"` // zero means untimed
}

// TimeLimit returns the configured limit, or zero when the assessment is untimed.
func (d AssessmentDefinition) TimeLimit() time.Duration {
	if d.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(d.TimeLimitMinutes) * time.Minute
}

// Status is the lifecycle stage of an assessment session.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinalizing Status = "FINALIZING"
	StatusFinished   Status = "FINISHED"
)

// SessionState is one user's progress through an assessment.
type SessionState struct {
	AssessmentID    string
	Status          Status
	CurrentIndex    int
	Answers         map[string]string   // questionID -> option key
	Flagged         map[string]struct{} // questionIDs marked for review
	StartedAt       time.Time
	LastPersistedAt time.Time
}

// Clone returns a deep copy so transitions never share maps.
func (s SessionState) Clone() SessionState {
	out := s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.Flagged = make(map[string]struct{}, len(s.Flagged))
	for k := range s.Flagged {
		out.Flagged[k] = struct{}{}
	}
	return out
}

// IsFlagged reports whether questionID is marked for review.
func (s SessionState) IsFlagged(questionID string) bool {
	_, ok := s.Flagged[questionID]
	return ok
}

// FinalizeTrigger records who caused the session to finish.
type FinalizeTrigger string

const (
	TriggerUser  FinalizeTrigger = "user"
	TriggerTimer FinalizeTrigger = "timer"
)

// QuestionOutcome is the scored outcome of a single question.
type QuestionOutcome struct {
	QuestionID  string `json:"questionId"`
	Topic       string `json:"topic"`
	SelectedKey string `json:"selectedKey,omitempty"`
	Answered    bool   `json:"answered"`
	IsCorrect   bool   `json:"isCorrect"`
	Flagged     bool   `json:"flagged"`
}

// TopicBreakdown aggregates outcomes for one topic label.
type TopicBreakdown struct {
	Topic      string  `json:"topic"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ScoredResult is the frozen outcome of a finished session.
type ScoredResult struct {
	AttemptID           string            `json:"attemptId"`
	AssessmentID        string            `json:"assessmentId"`
	CorrectCount        int               `json:"correctCount"`
	TotalCount          int               `json:"totalCount"`
	Percentage          float64           `json:"percentage"`
	TotalElapsedSeconds int64             `json:"totalElapsedSeconds"`
	Trigger             FinalizeTrigger   `json:"trigger"`
	FinishedAt          time.Time         `json:"finishedAt"`
	Outcomes            []QuestionOutcome `json:"perQuestionOutcome"`
	Topics              []TopicBreakdown  `json:"perTopicBreakdown"`
}
