package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"assessment-session-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SnapshotStore keeps session snapshots in the session_snapshots table, one
// row per "session:{assessmentID}" key.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot domain.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO session_snapshots (key, data, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE
		 SET data = EXCLUDED.data, updated_at = NOW()`,
		domain.SnapshotKey(snapshot.AssessmentID), string(raw),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, assessmentID string) (domain.Snapshot, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM session_snapshots WHERE key=$1`,
		domain.SnapshotKey(assessmentID),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err := s.pool.Exec(ctx, `DELETE FROM session_snapshots WHERE key=$1`, domain.SnapshotKey(assessmentID))
	if err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
