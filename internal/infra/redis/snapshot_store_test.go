package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-session-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSnapshotStoreSavesLoadsAndClears(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewSnapshotStore(newClient(mr), time.Hour)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err = store.Save(ctx, domain.Snapshot{
		AssessmentID:   "a1",
		CurrentIndex:   3,
		Answers:        []domain.AnswerEntry{{QuestionID: "q1", OptionKey: "b"}},
		Flagged:        []string{"q2"},
		StartTimestamp: start,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("session:a1") {
		t.Fatalf("expected redis key session:a1")
	}
	if ttl := mr.TTL("session:a1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	got, ok, err := store.Load(ctx, "a1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.CurrentIndex != 3 || len(got.Answers) != 1 || got.Answers[0].OptionKey != "b" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if !got.StartTimestamp.Equal(start) {
		t.Fatalf("start timestamp changed: %v", got.StartTimestamp)
	}

	if err := store.Clear(ctx, "a1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists("session:a1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok, err := store.Load(ctx, "a1"); ok || err != nil {
		t.Fatalf("expected miss after clear, ok=%v err=%v", ok, err)
	}
}

func TestSnapshotStoreReportsCorruptSnapshot(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("session:a1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := NewSnapshotStore(newClient(mr), 0)

	_, ok, err := store.Load(context.Background(), "a1")
	if ok || !errors.Is(err, domain.ErrCorruptSnapshot) {
		t.Fatalf("expected corrupt snapshot error, ok=%v err=%v", ok, err)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
