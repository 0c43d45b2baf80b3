package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"assessment-session-service/internal/domain"
	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:assessment_results"`

	AttemptID      string          `bun:"attempt_id,pk"`
	AssessmentID   string          `bun:"assessment_id,notnull"`
	CorrectCount   int             `bun:"correct_count,notnull"`
	TotalCount     int             `bun:"total_count,notnull"`
	Percentage     float64         `bun:"percentage,notnull"`
	ElapsedSeconds int64           `bun:"elapsed_seconds,notnull"`
	Trigger        string          `bun:"trigger,notnull"`
	FinishedAt     time.Time       `bun:"finished_at,notnull"`
	Detail         json.RawMessage `bun:"detail,type:jsonb"`
}

// ResultStore records finished attempts in assessment_results.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Record(ctx context.Context, result domain.ScoredResult) error {
	detail, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	row := &resultRow{
		AttemptID:      result.AttemptID,
		AssessmentID:   result.AssessmentID,
		CorrectCount:   result.CorrectCount,
		TotalCount:     result.TotalCount,
		Percentage:     result.Percentage,
		ElapsedSeconds: result.TotalElapsedSeconds,
		Trigger:        string(result.Trigger),
		FinishedAt:     result.FinishedAt,
		Detail:         detail,
	}
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (attempt_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// Latest returns the most recent result for assessmentID.
func (s *ResultStore) Latest(ctx context.Context, assessmentID string) (domain.ScoredResult, error) {
	var row resultRow
	err := s.db.NewSelect().
		Model(&row).
		Where("assessment_id = ?", assessmentID).
		Order("finished_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.ScoredResult{}, fmt.Errorf("latest result: %w", err)
	}
	var result domain.ScoredResult
	if err := json.Unmarshal(row.Detail, &result); err != nil {
		return domain.ScoredResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
