package memory

import (
	"context"
	"sync"

	"assessment-session-service/internal/domain"
)

// SnapshotStore is an in-memory implementation of app.SnapshotStore. It does
// not survive a process restart and is meant for development and tests.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (s *SnapshotStore) Save(_ context.Context, snapshot domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[domain.SnapshotKey(snapshot.AssessmentID)] = copySnapshot(snapshot)
	return nil
}

func (s *SnapshotStore) Load(_ context.Context, assessmentID string) (domain.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[domain.SnapshotKey(assessmentID)]
	if !ok {
		return domain.Snapshot{}, false, nil
	}
	return copySnapshot(snapshot), true, nil
}

func (s *SnapshotStore) Clear(_ context.Context, assessmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, domain.SnapshotKey(assessmentID))
	return nil
}

func copySnapshot(in domain.Snapshot) domain.Snapshot {
	out := in
	out.Answers = append([]domain.AnswerEntry(nil), in.Answers...)
	out.Flagged = append([]string(nil), in.Flagged...)
	return out
}
