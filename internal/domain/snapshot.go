package domain

import (
	"fmt"
	"sort"
	"time"
)

// SnapshotKeyPrefix namespaces persisted snapshots by assessment.
const SnapshotKeyPrefix = "session:"

// SnapshotKey returns the storage key for an assessment's snapshot.
func SnapshotKey(assessmentID string) string {
	return SnapshotKeyPrefix + assessmentID
}

// AnswerEntry is the serialized form of one recorded answer.
type AnswerEntry struct {
	QuestionID string `json:"questionId"`
	OptionKey  string `json:"optionKey"`
}

// Snapshot is the durable, serializable form of an in-progress session.
type Snapshot struct {
	AssessmentID    string        `json:"assessmentId"`
	CurrentIndex    int           `json:"currentIndex"`
	Answers         []AnswerEntry `json:"answers"`
	Flagged         []string      `json:"flagged"`
	StartTimestamp  time.Time     `json:"startTimestamp"`
	LastPersistedAt time.Time     `json:"lastPersistedAt"`
}

// Validate checks the fields a resumable snapshot must carry.
func (s Snapshot) Validate(now time.Time) error {
	if s.AssessmentID == "" {
		return fmt.Errorf("%w: missing assessment id", ErrCorruptSnapshot)
	}
	if s.StartTimestamp.IsZero() {
		return fmt.Errorf("%w: missing start timestamp", ErrCorruptSnapshot)
	}
	if s.StartTimestamp.After(now) {
		return fmt.Errorf("%w: start timestamp in the future", ErrCorruptSnapshot)
	}
	if s.CurrentIndex < 0 {
		return fmt.Errorf("%w: negative index", ErrCorruptSnapshot)
	}
	return nil
}

// SnapshotOf serializes a session state. Entries are sorted for stable output.
func SnapshotOf(state SessionState) Snapshot {
	answers := make([]AnswerEntry, 0, len(state.Answers))
	for qid, key := range state.Answers {
		answers = append(answers, AnswerEntry{QuestionID: qid, OptionKey: key})
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	flagged := make([]string, 0, len(state.Flagged))
	for qid := range state.Flagged {
		flagged = append(flagged, qid)
	}
	sort.Strings(flagged)

	return Snapshot{
		AssessmentID:    state.AssessmentID,
		CurrentIndex:    state.CurrentIndex,
		Answers:         answers,
		Flagged:         flagged,
		StartTimestamp:  state.StartedAt,
		LastPersistedAt: state.LastPersistedAt,
	}
}

// StateFromSnapshot rebuilds an in-progress state from a snapshot.
func StateFromSnapshot(s Snapshot) SessionState {
	state := SessionState{
		AssessmentID:    s.AssessmentID,
		Status:          StatusInProgress,
		CurrentIndex:    s.CurrentIndex,
		Answers:         make(map[string]string, len(s.Answers)),
		Flagged:         make(map[string]struct{}, len(s.Flagged)),
		StartedAt:       s.StartTimestamp,
		LastPersistedAt: s.LastPersistedAt,
	}
	for _, a := range s.Answers {
		state.Answers[a.QuestionID] = a.OptionKey
	}
	for _, qid := range s.Flagged {
		state.Flagged[qid] = struct{}{}
	}
	return state
}
