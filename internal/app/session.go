package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType classifies session events delivered to subscribers.
type EventType string

const (
	EventState    EventType = "state"
	EventTick     EventType = "tick"
	EventWarning  EventType = "warning"
	EventFinished EventType = "finished"
)

// Event is a session update fanned out to subscribers.
type Event struct {
	Type   EventType
	View   SessionView
	Clock  ClockView
	Result *domain.ScoredResult
}

// SessionConfig tunes a session's clock and side effects.
type SessionConfig struct {
	// TickInterval drives the background ticker. Zero disables it; callers
	// then advance the clock with Tick.
	TickInterval     time.Duration
	WarningThreshold time.Duration
	Now              func() time.Time
	Logger           zerolog.Logger
	// OnFinish runs once, outside the session lock, after the result is frozen.
	OnFinish func(domain.ScoredResult)
}

// Session is one live attempt at an assessment. All mutations, ticks and the
// finalize latch are serialized by mu.
type Session struct {
	assessment *Assessment
	snapshots  SnapshotStore
	clock      *Clock
	now        func() time.Time
	interval   time.Duration
	onFinish   func(domain.ScoredResult)
	log        zerolog.Logger

	mu          sync.Mutex
	state       domain.SessionState
	result      *domain.ScoredResult
	stopTicker  context.CancelFunc
	subscribers map[chan Event]struct{}
}

// NewSession wires a session around an initial state. Call Begin to persist it
// and start the clock.
func NewSession(a *Assessment, state domain.SessionState, snapshots SnapshotStore, cfg SessionConfig) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		assessment:  a,
		snapshots:   snapshots,
		clock:       NewClock(a.Definition.TimeLimit(), cfg.WarningThreshold),
		now:         now,
		interval:    cfg.TickInterval,
		onFinish:    cfg.OnFinish,
		log:         cfg.Logger.With().Str("component", "session").Str("assessment_id", a.ID()).Logger(),
		state:       state,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Begin persists the initial snapshot and starts ticking.
func (s *Session) Begin(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != domain.StatusInProgress {
		return
	}
	s.persistLocked(ctx)
	s.startTickerLocked()
}

// Assessment returns the assessment being taken.
func (s *Session) Assessment() *Assessment {
	return s.assessment
}

// State returns a copy of the current state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Status returns the lifecycle status.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status
}

// View returns the client projection of the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Result returns the frozen result once the session has finished.
func (s *Session) Result() (domain.ScoredResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.ScoredResult{}, false
	}
	return *s.result, true
}

// Ticking reports whether the background ticker is running.
func (s *Session) Ticking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopTicker != nil
}

// Dispatch applies a user action. Rejected actions leave the session untouched
// and return an error for which domain.IsRejection is true.
func (s *Session) Dispatch(ctx context.Context, act Action) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.assessment, s.state, act)
	if err != nil {
		s.log.Debug().Err(err).Str("action", string(act.Kind)).Msg("Action rejected")
		return s.viewLocked(), err
	}

	prev := s.state.Status
	s.state = next
	switch {
	case prev == domain.StatusInProgress && next.Status == domain.StatusFinalizing:
		s.stopTickerLocked()
	case prev == domain.StatusFinalizing && next.Status == domain.StatusInProgress:
		s.startTickerLocked()
	}

	s.persistLocked(ctx)
	view := s.viewLocked()
	s.broadcastLocked(Event{Type: EventState, View: view, Clock: view.Clock})
	return view, nil
}

// SelectAnswer records optionKey for questionID; the last selection wins.
func (s *Session) SelectAnswer(ctx context.Context, questionID, optionKey string) error {
	_, err := s.Dispatch(ctx, Action{Kind: ActionSelectAnswer, QuestionID: questionID, OptionKey: optionKey})
	return err
}

// ToggleFlag marks or unmarks questionID for review.
func (s *Session) ToggleFlag(ctx context.Context, questionID string) error {
	_, err := s.Dispatch(ctx, Action{Kind: ActionToggleFlag, QuestionID: questionID})
	return err
}

// Navigate moves to the question at index.
func (s *Session) Navigate(ctx context.Context, index int) error {
	_, err := s.Dispatch(ctx, Action{Kind: ActionNavigate, Index: index})
	return err
}

// RequestFinalize pauses the clock pending confirmation.
func (s *Session) RequestFinalize(ctx context.Context) error {
	_, err := s.Dispatch(ctx, Action{Kind: ActionRequestFinalize})
	return err
}

// CancelFinalize returns to the assessment and resumes the clock.
func (s *Session) CancelFinalize(ctx context.Context) error {
	_, err := s.Dispatch(ctx, Action{Kind: ActionCancelFinalize})
	return err
}

// Finalize scores the session. Only the first call does any work; repeated
// calls return the already frozen result.
func (s *Session) Finalize(ctx context.Context) (domain.ScoredResult, error) {
	s.mu.Lock()
	result, first, err := s.finalizeLocked(ctx, domain.TriggerUser)
	s.mu.Unlock()

	if first && s.onFinish != nil {
		s.onFinish(result)
	}
	return result, err
}

// Tick advances the clock to now. It is a no-op unless the session is in progress.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	if s.state.Status != domain.StatusInProgress {
		s.mu.Unlock()
		return
	}

	reading := s.clock.Observe(s.state.StartedAt, now)
	cv := clockView(reading)
	s.broadcastLocked(Event{Type: EventTick, Clock: cv})

	if reading.Warn {
		s.log.Info().Int64("remaining_seconds", reading.RemainingSeconds()).Msg("Low time warning")
		metrics.LowTimeWarnings.Inc()
		s.broadcastLocked(Event{Type: EventWarning, Clock: cv})
	}

	var (
		result domain.ScoredResult
		first  bool
	)
	if reading.Expired {
		s.log.Info().Msg("Time limit reached, finalizing")
		result, first, _ = s.finalizeLocked(context.Background(), domain.TriggerTimer)
	}
	s.mu.Unlock()

	if first && s.onFinish != nil {
		s.onFinish(result)
	}
}

// finalizeLocked is the one-way latch into Finished. first is true only for
// the call that computed the result.
func (s *Session) finalizeLocked(ctx context.Context, trigger domain.FinalizeTrigger) (domain.ScoredResult, bool, error) {
	if s.result != nil {
		return *s.result, false, nil
	}
	if s.state.Status != domain.StatusInProgress && s.state.Status != domain.StatusFinalizing {
		return domain.ScoredResult{}, false, fmt.Errorf("%w: finalize while %s", domain.ErrInvalidTransition, s.state.Status)
	}

	now := s.now()
	reading := s.clock.Read(s.state.StartedAt, now)
	result := Score(s.assessment, s.state, reading.Elapsed, s.log)
	result.AttemptID = uuid.NewString()
	result.Trigger = trigger
	result.FinishedAt = now

	s.result = &result
	s.state = finish(s.state)
	s.stopTickerLocked()

	if err := s.snapshots.Clear(ctx, s.assessment.ID()); err != nil {
		metrics.SnapshotFailures.WithLabelValues("clear").Inc()
		s.log.Error().Err(err).Msg("Failed to clear snapshot after finalize")
	}

	metrics.SessionsFinalized.WithLabelValues(string(trigger)).Inc()
	s.log.Info().
		Str("attempt_id", result.AttemptID).
		Str("trigger", string(trigger)).
		Int("correct", result.CorrectCount).
		Int("total", result.TotalCount).
		Float64("percentage", result.Percentage).
		Int64("elapsed_seconds", result.TotalElapsedSeconds).
		Msg("Session finalized")

	view := s.viewLocked()
	s.broadcastLocked(Event{Type: EventFinished, View: view, Clock: view.Clock, Result: s.result})
	return result, true, nil
}

// persistLocked saves a snapshot. Failures are logged, never surfaced.
func (s *Session) persistLocked(ctx context.Context) {
	now := s.now()
	snap := domain.SnapshotOf(s.state)
	snap.LastPersistedAt = now
	if err := s.snapshots.Save(ctx, snap); err != nil {
		metrics.SnapshotFailures.WithLabelValues("save").Inc()
		s.log.Warn().Err(err).Msg("Failed to persist snapshot")
		return
	}
	s.state.LastPersistedAt = now
}

func (s *Session) startTickerLocked() {
	if s.interval <= 0 || s.stopTicker != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopTicker = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(s.now())
			}
		}
	}()
}

func (s *Session) stopTickerLocked() {
	if s.stopTicker == nil {
		return
	}
	s.stopTicker()
	s.stopTicker = nil
}

func (s *Session) viewLocked() SessionView {
	return buildView(s.assessment, s.state, s.clock.Read(s.state.StartedAt, s.now()))
}

// Subscribe returns a channel of session events starting with the current
// state. The caller must invoke the returned cancel function to release it.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	view := s.viewLocked()
	initial := Event{Type: EventState, View: view, Clock: view.Clock}
	if s.result != nil {
		initial.Type = EventFinished
		initial.Result = s.result
	}
	ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop the oldest pending event.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
