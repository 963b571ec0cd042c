//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"casefile/internal/platform/ratelimit"
	"casefile/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisLimiterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLimiterSuite) TestAllowCountsWithinWindow() {
	ctx := context.Background()
	limiter := ratelimit.NewRedis(s.redis.Client, 3, time.Minute)

	for i := range 3 {
		result, err := limiter.Allow(ctx, "user:counts")
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(3-i-1, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "user:counts")
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.GreaterOrEqual(result.RetryAfter, 1)
}

func (s *RedisLimiterSuite) TestKeysAreIndependent() {
	ctx := context.Background()
	limiter := ratelimit.NewRedis(s.redis.Client, 1, time.Minute)

	result, err := limiter.Allow(ctx, "user:one")
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = limiter.Allow(ctx, "user:one")
	s.Require().NoError(err)
	s.False(result.Allowed)

	result, err = limiter.Allow(ctx, "user:two")
	s.Require().NoError(err)
	s.True(result.Allowed)
}
