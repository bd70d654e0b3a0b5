// internal/rules/cache.go
package rules

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/models"
)

const cacheKey = "hrms:routing-rules"

// CachedStore is a read-through Redis cache in front of another Store.
// Routing rules change rarely and every sweep reads them, so a short TTL
// keeps the repository out of the hot path. Cache failures degrade to the
// underlying source, never to an error.
type CachedStore struct {
	source Store
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(source Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		source: source,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "rule-cache"}),
	}
}

func (s *CachedStore) GetRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	raw, err := s.client.Get(ctx, cacheKey).Result()
	if err == nil {
		var rules []models.RoutingRule
		if err := json.Unmarshal([]byte(raw), &rules); err == nil {
			return rules, nil
		}
		s.logger.Warn("discarding unreadable rule cache entry", map[string]interface{}{
			"key": cacheKey,
		})
	} else if err != redis.Nil {
		s.logger.Warn("rule cache read failed, falling back to source", map[string]interface{}{
			"error": err,
		})
	}

	rules, err := s.source.GetRoutingRules(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(rules); err == nil {
		if err := s.client.Set(ctx, cacheKey, encoded, s.ttl).Err(); err != nil {
			s.logger.Warn("rule cache write failed", map[string]interface{}{
				"error": err,
			})
		}
	}
	return rules, nil
}

func (s *CachedStore) GetRoutingRule(ctx context.Context, id string) (*models.RoutingRule, error) {
	rules, err := s.GetRoutingRules(ctx)
	if err != nil {
		return nil, err
	}
	return findRule(rules, id)
}

// Invalidate drops the cached rule set; the next read repopulates it.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	return s.client.Del(ctx, cacheKey).Err()
}
