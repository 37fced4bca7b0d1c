package service

import (
	"context"
	"fmt"

	"bortsbooks/internal/repository"

	"go.uber.org/zap"
)

// BackfillResult summarizes one backfill pass
type BackfillResult struct {
	Scanned     int `json:"scanned"`
	Updated     int `json:"updated"`
	ImagesAdded int `json:"images_added"`
}

// BackfillService retries the image stage for imported products that ended up without images
type BackfillService interface {
	Run(ctx context.Context) (*BackfillResult, error)
}

type backfillService struct {
	productRepo repository.ProductRepository
	imports     ImportService
	batchSize   int
	logger      *zap.Logger
}

// NewBackfillService creates a new instance of BackfillService
func NewBackfillService(productRepo repository.ProductRepository, imports ImportService, batchSize int, logger *zap.Logger) BackfillService {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &backfillService{
		productRepo: productRepo,
		imports:     imports,
		batchSize:   batchSize,
		logger:      logger.Named("backfill"),
	}
}

// Run processes one bounded batch, one product at a time
func (s *backfillService) Run(ctx context.Context) (*BackfillResult, error) {
	products, err := s.productRepo.ListMissingImages(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list products without images: %w", err)
	}

	result := &BackfillResult{}
	for _, product := range products {
		if ctx.Err() != nil {
			break
		}

		result.Scanned++
		entry := s.imports.FetchImages(ctx, product)
		if entry.ImagesSaved > 0 {
			result.Updated++
			result.ImagesAdded += entry.ImagesSaved
		}
	}

	s.logger.Info("Image backfill finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("images_added", result.ImagesAdded),
	)

	return result, nil
}
