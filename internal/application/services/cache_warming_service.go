package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
)

// CacheWarmingService primes the cached table so the first visitor after a
// deploy does not pay for a spreadsheet round trip.
type CacheWarmingService struct {
	repo repositories.FeedbackRepository
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(repo repositories.FeedbackRepository) *CacheWarmingService {
	return &CacheWarmingService{repo: repo}
}

// WarmCache reads the table once through the caching store
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	start := time.Now()
	table, err := s.repo.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to warm feedback cache: %w", err)
	}

	log.Info().Int("rows", len(table)).Dur("duration", time.Since(start)).Msg("Cache warming completed")
	return nil
}
