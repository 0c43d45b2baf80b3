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

// CatalogLoader loads assessment and question JSONB documents from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM assessments WHERE id=$1`, assessmentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AssessmentDefinition{}, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return domain.AssessmentDefinition{}, fmt.Errorf("load assessment: %w", err)
	}
	var def domain.AssessmentDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.AssessmentDefinition{}, fmt.Errorf("unmarshal assessment: %w", err)
	}
	def.ID = assessmentID
	return def, nil
}

// LoadQuestions returns the questions that exist; missing IDs are skipped.
func (l *CatalogLoader) LoadQuestions(ctx context.Context, questionIDs []string) ([]domain.Question, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := l.pool.Query(ctx, `SELECT id, data FROM questions WHERE id = ANY($1)`, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0, len(questionIDs))
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question %s: %w", id, err)
		}
		q.ID = id
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
