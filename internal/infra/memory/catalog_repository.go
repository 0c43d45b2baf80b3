package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches assessments and questions from a backing store.
type CatalogLoader interface {
	LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
	LoadQuestions(ctx context.Context, questionIDs []string) ([]domain.Question, error)
}

// CatalogRepository caches assessment definitions with TTL to avoid repeated
// loader hits. Questions are read through on every call so deletions show up
// at the next session start.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedAssessment
}

type cachedAssessment struct {
	def       domain.AssessmentDefinition
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedAssessment),
	}
}

func (r *CatalogRepository) GetAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[assessmentID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.def, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(assessmentID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[assessmentID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.def, nil
		}
		r.mu.RUnlock()

		def, err := r.loader.LoadAssessment(ctx, assessmentID)
		if err != nil {
			return domain.AssessmentDefinition{}, err
		}

		r.mu.Lock()
		r.cache[assessmentID] = cachedAssessment{
			def:       def,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.AssessmentDefinition{}, err
	}
	return result.(domain.AssessmentDefinition), nil
}

func (r *CatalogRepository) GetQuestions(ctx context.Context, questionIDs []string) (map[string]domain.Question, error) {
	questions, err := r.loader.LoadQuestions(ctx, questionIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		out[q.ID] = q
	}
	return out, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalog is a loader backed by in-memory maps (useful for tests/demos).
type StaticCatalog struct {
	assessments map[string]domain.AssessmentDefinition
	questions   map[string]domain.Question
}

func NewStaticCatalog(assessments []domain.AssessmentDefinition, questions []domain.Question) *StaticCatalog {
	c := &StaticCatalog{
		assessments: make(map[string]domain.AssessmentDefinition, len(assessments)),
		questions:   make(map[string]domain.Question, len(questions)),
	}
	for _, a := range assessments {
		c.assessments[a.ID] = a
	}
	for _, q := range questions {
		c.questions[q.ID] = q
	}
	return c
}

func (c *StaticCatalog) LoadAssessment(_ context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	if def, ok := c.assessments[assessmentID]; ok {
		return def, nil
	}
	return domain.AssessmentDefinition{}, domain.ErrAssessmentNotFound
}

func (c *StaticCatalog) LoadQuestions(_ context.Context, questionIDs []string) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		if q, ok := c.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}
