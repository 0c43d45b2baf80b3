package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/metrics"
	"github.com/rs/zerolog"
)

// AssessmentRepository loads assessment definitions.
type AssessmentRepository interface {
	GetAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
}

// QuestionRepository resolves question IDs. IDs that cannot be resolved are
// omitted from the returned map rather than reported as errors.
type QuestionRepository interface {
	GetQuestions(ctx context.Context, questionIDs []string) (map[string]domain.Question, error)
}

// SnapshotStore persists in-progress sessions keyed by assessment ID.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot domain.Snapshot) error
	Load(ctx context.Context, assessmentID string) (domain.Snapshot, bool, error)
	Clear(ctx context.Context, assessmentID string) error
}

// ResultSink receives every finished attempt.
type ResultSink interface {
	Record(ctx context.Context, result domain.ScoredResult) error
}

// SessionRegistry tracks live sessions so reconnecting clients re-attach.
type SessionRegistry interface {
	Get(assessmentID string) (*Session, bool)
	Put(assessmentID string, session *Session)
	// Release removes the entry only if it still points at session.
	Release(assessmentID string, session *Session)
}

// Options tunes session timing and logging.
type Options struct {
	TickInterval     time.Duration
	WarningThreshold time.Duration
	Now              func() time.Time
	Logger           zerolog.Logger
}

// AssessmentService contains the session use cases.
type AssessmentService struct {
	assessments AssessmentRepository
	questions   QuestionRepository
	snapshots   SnapshotStore
	results     ResultSink
	sessions    SessionRegistry
	opts        Options
	log         zerolog.Logger

	startMu sync.Mutex
}

func NewAssessmentService(
	assessments AssessmentRepository,
	questions QuestionRepository,
	snapshots SnapshotStore,
	results ResultSink,
	sessions SessionRegistry,
	opts Options,
) *AssessmentService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AssessmentService{
		assessments: assessments,
		questions:   questions,
		snapshots:   snapshots,
		results:     results,
		sessions:    sessions,
		opts:        opts,
		log:         opts.Logger.With().Str("component", "assessment_service").Logger(),
	}
}

// Start returns the live session for assessmentID, resuming from a persisted
// snapshot when one exists and starting fresh otherwise.
func (s *AssessmentService) Start(ctx context.Context, assessmentID string) (*Session, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if session, ok := s.sessions.Get(assessmentID); ok && session.Status() != domain.StatusFinished {
		return session, nil
	}

	def, err := s.assessments.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment %s: %w", assessmentID, err)
	}
	resolved, err := s.questions.GetQuestions(ctx, def.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions for %s: %w", assessmentID, err)
	}

	assessment, missing := NewAssessment(def, resolved)
	if len(missing) > 0 {
		metrics.UnresolvedQuestions.Add(float64(len(missing)))
		s.log.Warn().
			Str("assessment_id", assessmentID).
			Strs("question_ids", missing).
			Msg("Assessment references unresolved questions")
	}

	state, mode := s.recover(ctx, assessment)
	var session *Session
	session = NewSession(assessment, state, s.snapshots, SessionConfig{
		TickInterval:     s.opts.TickInterval,
		WarningThreshold: s.opts.WarningThreshold,
		Now:              s.opts.Now,
		Logger:           s.opts.Logger,
		OnFinish: func(result domain.ScoredResult) {
			s.finished(session, result)
		},
	})
	session.Begin(ctx)
	s.sessions.Put(assessmentID, session)

	metrics.SessionsStarted.WithLabelValues(mode).Inc()
	s.log.Info().
		Str("assessment_id", assessmentID).
		Str("mode", mode).
		Int("questions", assessment.Total()).
		Time("started_at", state.StartedAt).
		Msg("Session started")
	return session, nil
}

// Session returns the live session for assessmentID.
func (s *AssessmentService) Session(assessmentID string) (*Session, error) {
	session, ok := s.sessions.Get(assessmentID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// recover loads a usable snapshot. Unreadable or inconsistent snapshots are
// logged and ignored so the session starts fresh.
func (s *AssessmentService) recover(ctx context.Context, a *Assessment) (domain.SessionState, string) {
	now := s.opts.Now()
	snap, found, err := s.snapshots.Load(ctx, a.ID())
	if err != nil {
		s.log.Warn().Err(err).Str("assessment_id", a.ID()).Msg("Snapshot unreadable, starting fresh")
		return NewState(a, now), "fresh"
	}
	if !found {
		return NewState(a, now), "fresh"
	}
	if snap.AssessmentID != a.ID() {
		s.log.Warn().
			Str("assessment_id", a.ID()).
			Str("snapshot_assessment_id", snap.AssessmentID).
			Msg("Snapshot belongs to another assessment, starting fresh")
		return NewState(a, now), "fresh"
	}
	if err := snap.Validate(now); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", a.ID()).Msg("Snapshot invalid, starting fresh")
		return NewState(a, now), "fresh"
	}

	state, dropped := RestoreState(a, snap)
	if len(dropped) > 0 {
		s.log.Warn().
			Str("assessment_id", a.ID()).
			Strs("question_ids", dropped).
			Msg("Dropped snapshot entries for unknown questions")
	}
	return state, "resumed"
}

// finished records the result and releases the registry slot.
func (s *AssessmentService) finished(session *Session, result domain.ScoredResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.results != nil {
		if err := s.results.Record(ctx, result); err != nil {
			s.log.Error().Err(err).
				Str("assessment_id", result.AssessmentID).
				Str("attempt_id", result.AttemptID).
				Msg("Failed to record result")
		}
	}
	s.sessions.Release(result.AssessmentID, session)
}
