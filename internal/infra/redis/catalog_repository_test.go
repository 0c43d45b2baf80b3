package redis

import (
	"context"
	"testing"
	"time"

	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestCatalogRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CatalogLoader: sampleCatalog()}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	def, err := repo.GetAssessment(ctx, "a1")
	if err != nil {
		t.Fatalf("get assessment: %v", err)
	}
	if def.TimeLimitMinutes != 10 || len(def.QuestionIDs) != 2 {
		t.Fatalf("unexpected definition %+v", def)
	}
	if loader.assessmentCalls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.assessmentCalls)
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.GetAssessment(ctx, "a1")
	if loader.assessmentCalls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.assessmentCalls)
	}
	if !mr.Exists("assessment:a1:definition") {
		t.Fatalf("expected definition cached in redis")
	}
}

func TestCatalogRepositoryCachesQuestions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CatalogLoader: sampleCatalog()}
	repo := NewCatalogRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	got, err := repo.GetQuestions(ctx, []string{"q1", "q2", "gone"})
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(got) != 2 || got["q1"].CorrectKey != "b" {
		t.Fatalf("unexpected questions %+v", got)
	}
	if !mr.Exists("question:q1") || !mr.Exists("question:q2") {
		t.Fatalf("expected questions cached in redis")
	}

	got, err = repo.GetQuestions(ctx, []string{"q1", "q2"})
	if err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cached questions, got %d", len(got))
	}
	if loader.questionCalls != 1 {
		t.Fatalf("expected loader skipped on full cache hit, calls=%d", loader.questionCalls)
	}
}

type countingLoader struct {
	CatalogLoader
	assessmentCalls int
	questionCalls   int
}

func (l *countingLoader) LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	l.assessmentCalls++
	return l.CatalogLoader.LoadAssessment(ctx, assessmentID)
}

func (l *countingLoader) LoadQuestions(ctx context.Context, questionIDs []string) ([]domain.Question, error) {
	l.questionCalls++
	return l.CatalogLoader.LoadQuestions(ctx, questionIDs)
}

func sampleCatalog() *memory.StaticCatalog {
	return memory.NewStaticCatalog(
		[]domain.AssessmentDefinition{{
			ID:               "a1",
			Title:            "Arithmetic",
			QuestionIDs:      []string{"q1", "q2"},
			TimeLimitMinutes: 10,
		}},
		[]domain.Question{
			{
				ID:         "q1",
				Topic:      "addition",
				Prompt:     "What is 2 + 2?",
				Options:    []domain.Option{{Key: "a", Text: "3"}, {Key: "b", Text: "4"}},
				CorrectKey: "b",
			},
			{
				ID:         "q2",
				Topic:      "subtraction",
				Prompt:     "What is 5 - 3?",
				Options:    []domain.Option{{Key: "a", Text: "2"}, {Key: "b", Text: "3"}},
				CorrectKey: "a",
			},
		},
	)
}
