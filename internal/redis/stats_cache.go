package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/habitguard/study-server/internal/model"
)

var statsPeriods = []model.StatsPeriod{model.StatsPeriodWeek, model.StatsPeriodMonth, model.StatsPeriodAll}

// StatsCache stores rendered statistics reports per user and period.
type StatsCache struct {
	client *Client
	ttl    time.Duration
}

func NewStatsCache(client *Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns nil without error on a cache miss.
func (c *StatsCache) Get(ctx context.Context, userID string, period model.StatsPeriod) (*model.StatisticsReport, error) {
	data, err := c.client.Get(ctx, StatsCacheKey(userID, string(period))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stats cache: %w", err)
	}

	var report model.StatisticsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode stats cache: %w", err)
	}
	return &report, nil
}

func (c *StatsCache) Set(ctx context.Context, userID string, period model.StatsPeriod, report *model.StatisticsReport) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, StatsCacheKey(userID, string(period)), data, c.ttl).Err()
}

// Invalidate drops every cached period for the user.
func (c *StatsCache) Invalidate(ctx context.Context, userID string) error {
	keys := make([]string, 0, len(statsPeriods))
	for _, p := range statsPeriods {
		keys = append(keys, StatsCacheKey(userID, string(p)))
	}
	return c.client.Del(ctx, keys...).Err()
}
