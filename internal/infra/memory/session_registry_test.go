package memory

import (
	"testing"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/domain"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()
	a, _ := app.NewAssessment(domain.AssessmentDefinition{ID: "a1"}, nil)
	first := app.NewSession(a, domain.SessionState{AssessmentID: "a1"}, NewSnapshotStore(), app.SessionConfig{})
	second := app.NewSession(a, domain.SessionState{AssessmentID: "a1"}, NewSnapshotStore(), app.SessionConfig{})

	registry.Put("a1", first)
	if got, ok := registry.Get("a1"); !ok || got != first {
		t.Fatalf("expected first session present")
	}

	registry.Put("a1", second)
	registry.Release("a1", first)
	if got, ok := registry.Get("a1"); !ok || got != second {
		t.Fatalf("release of a stale session must keep the current one")
	}

	registry.Release("a1", second)
	if _, ok := registry.Get("a1"); ok {
		t.Fatalf("expected session removed")
	}
}
