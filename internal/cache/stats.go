// Package cache provides a redis-backed cache for college stats.
// Entries are short-lived and invalidated on every mutation under the
// college, so a cold redis only costs an extra aggregate query.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hoas/apiserver/types"
	"github.com/redis/go-redis/v9"
)

const (
	statsKeyPrefix  = "hoas:college:stats:"
	defaultStatsTTL = 5 * time.Minute
)

// Stats caches CollegeStats keyed by management record id.
type Stats struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStats(client *redis.Client, ttl time.Duration) *Stats {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &Stats{client: client, ttl: ttl}
}

// Get returns the cached stats for a college, if present. Redis
// errors degrade to a miss.
func (s *Stats) Get(ctx context.Context, collegeID string) (types.CollegeStats, bool) {
	data, err := s.client.Get(ctx, statsKeyPrefix+collegeID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: get stats for %s failed: %v", collegeID, err)
		}
		return types.CollegeStats{}, false
	}

	var stats types.CollegeStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return types.CollegeStats{}, false
	}
	return stats, true
}

// Set stores the stats for a college with the configured TTL.
func (s *Stats) Set(ctx context.Context, collegeID string, stats types.CollegeStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, statsKeyPrefix+collegeID, data, s.ttl).Err(); err != nil {
		log.Printf("cache: set stats for %s failed: %v", collegeID, err)
	}
}

// Invalidate drops the cached stats for a college.
func (s *Stats) Invalidate(ctx context.Context, collegeID string) {
	if err := s.client.Del(ctx, statsKeyPrefix+collegeID).Err(); err != nil {
		log.Printf("cache: invalidate stats for %s failed: %v", collegeID, err)
	}
}
