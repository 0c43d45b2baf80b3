package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/infra/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type sessionHarness struct {
	session  *app.Session
	store    *memory.SnapshotStore
	clock    *fakeClock
	finished []domain.ScoredResult
	mu       sync.Mutex
}

func newHarness(t *testing.T, limitMinutes int) *sessionHarness {
	t.Helper()
	def := domain.AssessmentDefinition{
		ID:               "a1",
		Title:            "Worked example",
		QuestionIDs:      []string{"q1", "q2", "q3", "q4"},
		TimeLimitMinutes: limitMinutes,
	}
	a, missing := app.NewAssessment(def, sampleQuestions())
	require.Empty(t, missing)

	h := &sessionHarness{store: memory.NewSnapshotStore(), clock: newFakeClock()}
	h.session = app.NewSession(a, app.NewState(a, h.clock.Now()), h.store, app.SessionConfig{
		Now:    h.clock.Now,
		Logger: zerolog.Nop(),
		OnFinish: func(r domain.ScoredResult) {
			h.mu.Lock()
			h.finished = append(h.finished, r)
			h.mu.Unlock()
		},
	})
	h.session.Begin(context.Background())
	return h
}

func (h *sessionHarness) finishCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.finished)
}

func sampleQuestions() map[string]domain.Question {
	topics := map[string]string{"q1": "A", "q2": "A", "q3": "B", "q4": "B"}
	out := make(map[string]domain.Question, len(topics))
	for id, topic := range topics {
		out[id] = domain.Question{
			ID:         id,
			Topic:      topic,
			Prompt:     "Prompt " + id,
			Options:    []domain.Option{{Key: "a", Text: "first"}, {Key: "b", Text: "second"}},
			CorrectKey: "a",
		}
	}
	return out
}

func TestSession_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)

	snap, ok, err := h.store.Load(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok, "initial snapshot expected after Begin")
	assert.True(t, snap.StartTimestamp.Equal(h.clock.Now()))

	require.NoError(t, h.session.SelectAnswer(ctx, "q2", "b"))
	require.NoError(t, h.session.ToggleFlag(ctx, "q3"))
	require.NoError(t, h.session.Navigate(ctx, 2))

	snap, ok, err = h.store.Load(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snap.CurrentIndex)
	assert.Equal(t, []domain.AnswerEntry{{QuestionID: "q2", OptionKey: "b"}}, snap.Answers)
	assert.Equal(t, []string{"q3"}, snap.Flagged)
	assert.False(t, h.session.State().LastPersistedAt.IsZero())
}

func TestSession_RejectedNavigateLeavesState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	require.NoError(t, h.session.Navigate(ctx, 3))

	err := h.session.Navigate(ctx, 4)
	require.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	assert.Equal(t, 3, h.session.State().CurrentIndex)
}

func TestSession_FinalizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	require.NoError(t, h.session.SelectAnswer(ctx, "q1", "a"))
	require.NoError(t, h.session.SelectAnswer(ctx, "q3", "a"))
	h.clock.Advance(90 * time.Second)

	first, err := h.session.Finalize(ctx)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	second, err := h.session.Finalize(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.CorrectCount)
	assert.Equal(t, 50.00, first.Percentage)
	assert.Equal(t, int64(90), first.TotalElapsedSeconds)
	assert.Equal(t, domain.TriggerUser, first.Trigger)
	assert.NotEmpty(t, first.AttemptID)
	assert.Equal(t, domain.StatusFinished, h.session.Status())
	assert.Equal(t, 1, h.finishCount())

	_, ok, _ := h.store.Load(ctx, "a1")
	assert.False(t, ok, "snapshot must be cleared after finalize")
}

func TestSession_ConcurrentFinalizeOnlyScoresOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	h.clock.Advance(time.Minute)

	var wg sync.WaitGroup
	results := make([]domain.ScoredResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				h.session.Tick(h.clock.Now())
			}
			results[i], _ = h.session.Finalize(ctx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, h.finishCount())
	for _, r := range results[1:] {
		assert.Equal(t, results[0].AttemptID, r.AttemptID)
	}
}

func TestSession_NoMutationAfterFinish(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	_, err := h.session.Finalize(ctx)
	require.NoError(t, err)

	for _, err := range []error{
		h.session.SelectAnswer(ctx, "q1", "a"),
		h.session.ToggleFlag(ctx, "q1"),
		h.session.Navigate(ctx, 1),
		h.session.RequestFinalize(ctx),
		h.session.CancelFinalize(ctx),
	} {
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got %v", err)
	}
	result, ok := h.session.Result()
	require.True(t, ok)
	assert.Equal(t, 0, result.CorrectCount)
}

func TestSession_TimerAutoFinalizes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	require.NoError(t, h.session.SelectAnswer(ctx, "q1", "a"))

	events, cancel := h.session.Subscribe()
	defer cancel()
	<-events // initial state

	h.session.Tick(h.clock.Advance(299 * time.Second))
	assert.Equal(t, app.EventTick, (<-events).Type)

	h.session.Tick(h.clock.Advance(time.Second))
	assert.Equal(t, app.EventTick, (<-events).Type)
	assert.Equal(t, app.EventWarning, (<-events).Type)

	h.session.Tick(h.clock.Advance(300 * time.Second))
	assert.Equal(t, app.EventTick, (<-events).Type)
	finished := <-events
	require.Equal(t, app.EventFinished, finished.Type)
	require.NotNil(t, finished.Result)
	assert.Equal(t, domain.TriggerTimer, finished.Result.Trigger)
	assert.Equal(t, int64(600), finished.Result.TotalElapsedSeconds)
	assert.Equal(t, 1, finished.Result.CorrectCount)

	assert.Equal(t, domain.StatusFinished, h.session.Status())
	assert.Equal(t, 1, h.finishCount())
	_, ok, _ := h.store.Load(ctx, "a1")
	assert.False(t, ok)

	// Further ticks are ignored.
	h.session.Tick(h.clock.Advance(time.Second))
	assert.Equal(t, 1, h.finishCount())
}

func TestSession_FinalizingPausesTicks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)

	require.NoError(t, h.session.RequestFinalize(ctx))
	h.session.Tick(h.clock.Advance(2 * time.Minute))
	assert.Equal(t, domain.StatusFinalizing, h.session.Status(), "ticks only act while in progress")

	require.NoError(t, h.session.CancelFinalize(ctx))
	h.session.Tick(h.clock.Now())
	assert.Equal(t, domain.StatusFinished, h.session.Status())
	result, _ := h.session.Result()
	assert.Equal(t, domain.TriggerTimer, result.Trigger)
}

func TestSession_BackgroundTickerStopsOnFinish(t *testing.T) {
	def := domain.AssessmentDefinition{ID: "a1", QuestionIDs: []string{"q1"}}
	a, _ := app.NewAssessment(def, sampleQuestions())
	session := app.NewSession(a, app.NewState(a, time.Now()), memory.NewSnapshotStore(), app.SessionConfig{
		TickInterval: 10 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	session.Begin(context.Background())
	require.True(t, session.Ticking())

	require.NoError(t, session.RequestFinalize(context.Background()))
	assert.False(t, session.Ticking())
	require.NoError(t, session.CancelFinalize(context.Background()))
	assert.True(t, session.Ticking())

	_, err := session.Finalize(context.Background())
	require.NoError(t, err)
	assert.False(t, session.Ticking())
}

func TestSession_UntimedNeverAutoFinalizes(t *testing.T) {
	h := newHarness(t, 0)
	h.session.Tick(h.clock.Advance(72 * time.Hour))
	assert.Equal(t, domain.StatusInProgress, h.session.Status())
	assert.Nil(t, h.session.View().Clock.RemainingSeconds)
}

func TestSession_ViewHidesCorrectKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	require.NoError(t, h.session.SelectAnswer(ctx, "q1", "b"))

	view := h.session.View()
	require.NotNil(t, view.Question)
	assert.Equal(t, "q1", view.Question.ID)
	assert.Equal(t, "b", view.SelectedKey)
	assert.Equal(t, 4, view.TotalCount)
	assert.Equal(t, 1, view.AnsweredCount)
	require.NotNil(t, view.Clock.RemainingSeconds)
	assert.Equal(t, int64(600), *view.Clock.RemainingSeconds)
}
