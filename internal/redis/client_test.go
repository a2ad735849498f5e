package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "study:events:user-1", SessionEventChannel("user-1"))
	assert.Equal(t, "study:stats:user-1:week", StatsCacheKey("user-1", "week"))
	assert.Equal(t, "study:ratelimit:ip:api:10.0.0.1", RateLimitKey("ip:api:10.0.0.1"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
