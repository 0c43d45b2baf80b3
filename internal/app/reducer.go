package app

import (
	"fmt"
	"time"

	"assessment-session-service/internal/domain"
)

// ActionKind names a user-initiated session mutation.
type ActionKind string

const (
	ActionSelectAnswer    ActionKind = "select"
	ActionToggleFlag      ActionKind = "flag"
	ActionNavigate        ActionKind = "navigate"
	ActionRequestFinalize ActionKind = "requestFinalize"
	ActionCancelFinalize  ActionKind = "cancelFinalize"
)

// Action is a single mutation request applied by Reduce.
type Action struct {
	Kind       ActionKind
	QuestionID string
	OptionKey  string
	Index      int
}

// NewState returns a fresh in-progress state started at now.
func NewState(a *Assessment, now time.Time) domain.SessionState {
	return domain.SessionState{
		AssessmentID: a.ID(),
		Status:       domain.StatusInProgress,
		Answers:      make(map[string]string),
		Flagged:      make(map[string]struct{}),
		StartedAt:    now,
	}
}

// RestoreState rebuilds an in-progress state from a snapshot, dropping answers
// and flags that no longer refer to a resolvable question. The start timestamp
// is kept as persisted.
func RestoreState(a *Assessment, snap domain.Snapshot) (domain.SessionState, []string) {
	state := domain.StateFromSnapshot(snap)
	var dropped []string
	for qid, key := range state.Answers {
		q, ok := a.Question(qid)
		if !ok || !q.HasOption(key) {
			delete(state.Answers, qid)
			dropped = append(dropped, qid)
		}
	}
	for qid := range state.Flagged {
		if _, ok := a.Question(qid); !ok {
			delete(state.Flagged, qid)
			dropped = append(dropped, qid)
		}
	}
	if state.CurrentIndex >= a.Total() {
		state.CurrentIndex = 0
	}
	return state, dropped
}

// Reduce applies act to state and returns the next state. On error the
// original state is returned unchanged.
func Reduce(a *Assessment, state domain.SessionState, act Action) (domain.SessionState, error) {
	switch act.Kind {
	case ActionRequestFinalize:
		if state.Status != domain.StatusInProgress {
			return state, fmt.Errorf("%w: request finalize while %s", domain.ErrInvalidTransition, state.Status)
		}
		next := state.Clone()
		next.Status = domain.StatusFinalizing
		return next, nil
	case ActionCancelFinalize:
		if state.Status != domain.StatusFinalizing {
			return state, fmt.Errorf("%w: cancel finalize while %s", domain.ErrInvalidTransition, state.Status)
		}
		next := state.Clone()
		next.Status = domain.StatusInProgress
		return next, nil
	}

	if state.Status != domain.StatusInProgress {
		return state, fmt.Errorf("%w: %s while %s", domain.ErrInvalidTransition, act.Kind, state.Status)
	}

	switch act.Kind {
	case ActionSelectAnswer:
		q, ok := a.Question(act.QuestionID)
		if !ok {
			return state, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, act.QuestionID)
		}
		if !q.HasOption(act.OptionKey) {
			return state, fmt.Errorf("%w: %s on %s", domain.ErrOptionNotFound, act.OptionKey, act.QuestionID)
		}
		next := state.Clone()
		next.Answers[act.QuestionID] = act.OptionKey
		return next, nil

	case ActionToggleFlag:
		if _, ok := a.Question(act.QuestionID); !ok {
			return state, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, act.QuestionID)
		}
		next := state.Clone()
		if next.IsFlagged(act.QuestionID) {
			delete(next.Flagged, act.QuestionID)
		} else {
			next.Flagged[act.QuestionID] = struct{}{}
		}
		return next, nil

	case ActionNavigate:
		if act.Index < 0 || act.Index >= a.Total() {
			return state, fmt.Errorf("%w: %d not in [0, %d)", domain.ErrIndexOutOfRange, act.Index, a.Total())
		}
		next := state.Clone()
		next.CurrentIndex = act.Index
		return next, nil
	}

	return state, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidTransition, act.Kind)
}

// finish is the terminal transition; callers guard it with the finalize latch.
func finish(state domain.SessionState) domain.SessionState {
	next := state.Clone()
	next.Status = domain.StatusFinished
	return next
}
