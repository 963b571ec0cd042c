//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"casefile/internal/record/cache"
	"casefile/internal/record/models"
	id "casefile/pkg/domain"
	"casefile/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cache = cache.NewRedis(s.redis.Client, logger, cache.WithTTL(time.Minute))
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func testView(key models.SectionKey) *models.SectionView {
	return &models.SectionView{
		Section: models.SectionMeta{Key: key, Status: models.SectionDraft},
		Data:    map[string]any{"summary": "cached summary"},
	}
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	recordID := id.NewRecordID()

	_, ok := s.cache.Get(ctx, recordID, models.SectionDescription)
	s.False(ok)

	s.cache.Set(ctx, recordID, models.SectionDescription, testView(models.SectionDescription))

	view, ok := s.cache.Get(ctx, recordID, models.SectionDescription)
	s.Require().True(ok)
	s.Equal(models.SectionDraft, view.Section.Status)
	s.Equal("cached summary", view.Data["summary"])
}

func (s *RedisCacheSuite) TestInvalidateRecordDropsEverySection() {
	ctx := context.Background()
	recordID := id.NewRecordID()
	other := id.NewRecordID()

	s.cache.Set(ctx, recordID, models.SectionDescription, testView(models.SectionDescription))
	s.cache.Set(ctx, recordID, models.SectionNeeds, testView(models.SectionNeeds))
	s.cache.Set(ctx, other, models.SectionDescription, testView(models.SectionDescription))

	s.cache.InvalidateRecord(ctx, recordID)

	_, ok := s.cache.Get(ctx, recordID, models.SectionDescription)
	s.False(ok)
	_, ok = s.cache.Get(ctx, recordID, models.SectionNeeds)
	s.False(ok)

	// Other records keep their entries.
	_, ok = s.cache.Get(ctx, other, models.SectionDescription)
	s.True(ok)
}

func (s *RedisCacheSuite) TestCorruptEntryIsTreatedAsMiss() {
	ctx := context.Background()
	recordID := id.NewRecordID()

	key := "proj:" + recordID.String() + ":" + string(models.SectionDescription)
	s.Require().NoError(s.redis.Client.Set(ctx, key, "not-json", time.Minute).Err())

	_, ok := s.cache.Get(ctx, recordID, models.SectionDescription)
	s.False(ok)
}
