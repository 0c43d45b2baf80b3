package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"assessment-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches assessments and questions from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error)
	LoadQuestions(ctx context.Context, questionIDs []string) ([]domain.Question, error)
}

// CatalogRepository caches catalog content in Redis and falls back to a loader on cache miss.
// Definitions are stored as: SET assessment:{assessmentID}:definition {json}
// Questions are stored as:   SET question:{questionID} {json}
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetAssessment(ctx context.Context, assessmentID string) (domain.AssessmentDefinition, error) {
	key := r.definitionKey(assessmentID)
	if def, ok := r.cachedDefinition(ctx, key); ok {
		return def, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if def, ok := r.cachedDefinition(ctx, key); ok {
			return def, nil
		}

		def, err := r.loader.LoadAssessment(ctx, assessmentID)
		if err != nil {
			return domain.AssessmentDefinition{}, err
		}
		if raw, err := json.Marshal(def); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return def, nil
	})
	if err != nil {
		return domain.AssessmentDefinition{}, err
	}
	return result.(domain.AssessmentDefinition), nil
}

func (r *CatalogRepository) GetQuestions(ctx context.Context, questionIDs []string) (map[string]domain.Question, error) {
	out := make(map[string]domain.Question, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(questionIDs))
	for i, id := range questionIDs {
		keys[i] = r.questionKey(id)
	}

	var misses []string
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		misses = questionIDs
	} else {
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				misses = append(misses, questionIDs[i])
				continue
			}
			var q domain.Question
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				misses = append(misses, questionIDs[i])
				continue
			}
			out[q.ID] = q
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := r.loader.LoadQuestions(ctx, misses)
	if err != nil {
		return nil, err
	}

	ttl := r.ttlWithJitter()
	pipe := r.client.Pipeline()
	for _, q := range loaded {
		out[q.ID] = q
		raw, err := json.Marshal(q)
		if err != nil {
			continue
		}
		pipe.Set(ctx, r.questionKey(q.ID), raw, ttl)
	}
	_, _ = pipe.Exec(ctx)

	return out, nil
}

func (r *CatalogRepository) cachedDefinition(ctx context.Context, key string) (domain.AssessmentDefinition, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil and transport errors both fall through to the loader.
		return domain.AssessmentDefinition{}, false
	}
	var def domain.AssessmentDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.AssessmentDefinition{}, false
	}
	return def, true
}

func (r *CatalogRepository) definitionKey(assessmentID string) string {
	return "assessment:" + assessmentID + ":definition"
}

func (r *CatalogRepository) questionKey(questionID string) string {
	return "question:" + questionID
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
