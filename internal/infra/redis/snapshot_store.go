package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assessment-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists session snapshots as JSON strings:
//
//	SET session:{assessmentID} {json} EX ttl
//
// A zero TTL keeps snapshots until they are cleared.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, domain.SnapshotKey(snapshot.AssessmentID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, assessmentID string) (domain.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, domain.SnapshotKey(assessmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	return snapshot, true, nil
}

func (s *SnapshotStore) Clear(ctx context.Context, assessmentID string) error {
	if err := s.client.Del(ctx, domain.SnapshotKey(assessmentID)).Err(); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
