package service

import (
	"context"
	"fmt"
	"strings"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/repository"
	"bortsbooks/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService serves the catalog and main-image management
type ProductService interface {
	ListProducts(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductWithImages, error)
	SetMainImage(ctx context.Context, productID, imageID uuid.UUID) error
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
	imageRepo   repository.ProductImageRepository
	store       storage.ImageStore
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	imageRepo repository.ProductImageRepository,
	store storage.ImageStore,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		imageRepo:   imageRepo,
		store:       store,
		logger:      logger,
	}
}

func (s *productService) ListProducts(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	products, total, err := s.productRepo.List(ctx, page, pageSize, sortBy, sortOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetProduct returns a product with its images, main image first
func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductWithImages, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := s.imageRepo.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product images: %w", err)
	}

	for _, image := range images {
		image.URL = s.imageURL(image.Path)
	}

	return &domain.ProductWithImages{Product: *product, Images: images}, nil
}

func (s *productService) SetMainImage(ctx context.Context, productID, imageID uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return err
	}
	return s.imageRepo.SetMain(ctx, productID, imageID)
}

// DeleteImage removes the record first, then the stored file. A file that cannot be
// removed is only logged since the catalog no longer references it.
func (s *productService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return err
	}

	deleted, err := s.imageRepo.Delete(ctx, productID, imageID)
	if err != nil {
		return err
	}

	if isAbsoluteURL(deleted.Path) {
		return nil
	}

	if err := s.store.Delete(ctx, deleted.Path); err != nil {
		s.logger.Warn("Failed to delete stored image",
			zap.String("path", deleted.Path),
			zap.Error(err),
		)
	}
	return nil
}

func (s *productService) imageURL(path string) string {
	if isAbsoluteURL(path) {
		return path
	}
	return s.store.URL(path)
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
