package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bortsbooks/internal/domain"
	"bortsbooks/internal/imagefetch"
	"bortsbooks/internal/importer"
	"bortsbooks/internal/repository"
	"bortsbooks/internal/scraper"
	"bortsbooks/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrListingAlreadyImported = errors.New("listing already imported")
)

// ImportOptions are the per-run switches chosen by the operator
type ImportOptions struct {
	FetchImages bool
	Debug       bool
}

// ImageAttempt records the download of one candidate image
type ImageAttempt struct {
	URL      string `json:"url"`
	Attempts int    `json:"attempts"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DebugEntry is the per-row diagnostic shown to the operator
type DebugEntry struct {
	Row         int               `json:"row"`
	Raw         map[string]string `json:"raw"`
	ProductID   *uuid.UUID        `json:"product_id,omitempty"`
	ImageURLs   []string          `json:"image_urls"`
	ImagesSaved int               `json:"images_saved"`
	Error       string            `json:"error,omitempty"`
	Scrape      *scraper.Debug    `json:"scrape,omitempty"`
	Downloads   []ImageAttempt    `json:"downloads,omitempty"`
}

// ImportResult summarizes one run
type ImportResult struct {
	Imported   int           `json:"imported"`
	ErrorCount int           `json:"error_count"`
	Errors     []string      `json:"errors"`
	Debug      []*DebugEntry `json:"debug,omitempty"`
}

func (r *ImportResult) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
	r.ErrorCount = len(r.Errors)
}

// ListingInput is a single marketplace listing entered by hand
type ListingInput struct {
	ItemID      string
	Title       string
	Description string
	Price       string
	Condition   string
}

// ImportService drives the sequential row-by-row import
type ImportService interface {
	// ImportFile returns an error only when the upload as a whole cannot be processed
	ImportFile(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (*ImportResult, error)
	ImportListing(ctx context.Context, in ListingInput) (*domain.Product, *DebugEntry, error)
	FetchImages(ctx context.Context, product *domain.Product) *DebugEntry
}

type ImportConfig struct {
	MaxImages int
}

type importService struct {
	productRepo repository.ProductRepository
	imageRepo   repository.ProductImageRepository
	scraper     scraper.Scraper
	fetcher     imagefetch.Fetcher
	store       storage.ImageStore
	cfg         ImportConfig
	logger      *zap.Logger
}

// NewImportService creates a new instance of ImportService
func NewImportService(
	productRepo repository.ProductRepository,
	imageRepo repository.ProductImageRepository,
	listingScraper scraper.Scraper,
	fetcher imagefetch.Fetcher,
	store storage.ImageStore,
	cfg ImportConfig,
	logger *zap.Logger,
) ImportService {
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = 12
	}
	return &importService{
		productRepo: productRepo,
		imageRepo:   imageRepo,
		scraper:     listingScraper,
		fetcher:     fetcher,
		store:       store,
		cfg:         cfg,
		logger:      logger.Named("importer"),
	}
}

func (s *importService) ImportFile(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	sheet, err := importer.Read(filename, r)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Import started",
		zap.String("file", filename),
		zap.Int("rows", len(sheet.Records)),
		zap.Bool("fetch_images", opts.FetchImages),
	)

	result := &ImportResult{Errors: []string{}}
	started := time.Now()

	for _, rec := range sheet.Records {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Import interrupted, remaining rows not attempted",
				zap.Int("row", rec.Number),
				zap.Error(err),
			)
			break
		}

		entry := &DebugEntry{Row: rec.Number, Raw: sheet.RawValues(rec), ImageURLs: []string{}}
		if opts.Debug {
			result.Debug = append(result.Debug, entry)
		}

		row, err := sheet.ParseRecord(rec)
		if err != nil {
			entry.Error = err.Error()
			result.addError(err)
			s.logger.Debug("Row skipped", zap.Int("row", rec.Number), zap.Error(err))
			continue
		}

		if _, err := s.importRow(ctx, row, opts.FetchImages, entry); err != nil {
			entry.Error = err.Error()
			result.addError(err)
			continue
		}

		result.Imported++
	}

	s.logger.Info("Import finished",
		zap.String("file", filename),
		zap.Int("imported", result.Imported),
		zap.Int("errors", result.ErrorCount),
		zap.Duration("elapsed", time.Since(started)),
	)

	return result, nil
}

// ImportListing imports one listing unless a product already carries its id
func (s *importService) ImportListing(ctx context.Context, in ListingInput) (*domain.Product, *DebugEntry, error) {
	itemID := strings.TrimSpace(in.ItemID)

	existing, err := s.productRepo.FindByExternalID(ctx, itemID)
	if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing listing: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrListingAlreadyImported
	}

	row := &importer.Row{
		Number:      1,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		RawPrice:    in.Price,
		Condition:   in.Condition,
		ExternalID:  itemID,
	}
	entry := &DebugEntry{
		Row: row.Number,
		Raw: map[string]string{
			"item number": itemID,
			"title":       row.Title,
			"description": row.Description,
			"start price": row.RawPrice,
			"condition":   row.Condition,
		},
		ImageURLs: []string{},
	}

	product, err := s.importRow(ctx, row, true, entry)
	if err != nil {
		return nil, entry, err
	}
	return product, entry, nil
}

// importRow inserts the product, then optionally attaches images. Image failures
// never fail the row.
func (s *importService) importRow(ctx context.Context, row *importer.Row, fetchImages bool, entry *DebugEntry) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Title:       row.Title,
		Description: row.Description,
		Price:       importer.NormalizePrice(row.RawPrice),
		Condition:   domain.ParseCondition(row.Condition),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if row.ExternalID != "" {
		externalID := row.ExternalID
		product.ExternalID = &externalID
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to insert product", zap.Int("row", row.Number), zap.Error(err))
		return nil, &importer.RowError{Row: row.Number, Reason: "failed to save product"}
	}
	entry.ProductID = &product.ID

	s.logger.Debug("Product inserted",
		zap.Int("row", row.Number),
		zap.String("product_id", product.ID.String()),
		zap.String("price", importer.FormatPrice(product.Price)),
	)

	if fetchImages && domain.IsListingID(row.ExternalID) {
		s.attachImages(ctx, product, entry)
	}

	return product, nil
}

// FetchImages runs only the image stage for an existing product
func (s *importService) FetchImages(ctx context.Context, product *domain.Product) *DebugEntry {
	entry := &DebugEntry{ProductID: &product.ID, ImageURLs: []string{}}

	if product.ExternalID == nil || !domain.IsListingID(*product.ExternalID) {
		entry.Error = "product has no usable listing id"
		return entry
	}

	entry.Raw = map[string]string{"item number": *product.ExternalID}
	s.attachImages(ctx, product, entry)
	return entry
}

func (s *importService) attachImages(ctx context.Context, product *domain.Product, entry *DebugEntry) {
	urls, scrapeDebug := s.scraper.Scrape(ctx, *product.ExternalID)
	entry.Scrape = scrapeDebug
	if urls != nil {
		entry.ImageURLs = urls
	}

	if err := s.productRepo.MarkImagesChecked(ctx, product.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to record image check",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
	}

	// failed downloads count against the budget as well
	maxDownloads := 2 * s.cfg.MaxImages

	var first *domain.ProductImage
	for _, imageURL := range urls {
		if entry.ImagesSaved >= s.cfg.MaxImages || len(entry.Downloads) >= maxDownloads || ctx.Err() != nil {
			break
		}

		image, attempt := s.persistImage(ctx, product.ID, imageURL, entry.ImagesSaved)
		entry.Downloads = append(entry.Downloads, attempt)
		if image == nil {
			continue
		}

		entry.ImagesSaved++
		if first == nil {
			first = image
		}
	}

	if first != nil {
		if err := s.imageRepo.SetMain(ctx, product.ID, first.ID); err != nil {
			s.logger.Warn("Failed to mark main image",
				zap.String("product_id", product.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Images attached",
		zap.String("product_id", product.ID.String()),
		zap.Int("found", len(urls)),
		zap.Int("saved", entry.ImagesSaved),
	)
}

// persistImage downloads, stores and records one image. A nil image means it was skipped.
func (s *importService) persistImage(ctx context.Context, productID uuid.UUID, imageURL string, position int) (*domain.ProductImage, ImageAttempt) {
	attempt := ImageAttempt{URL: imageURL}

	download, err := s.fetcher.Fetch(ctx, imageURL)
	if download != nil {
		attempt.Attempts = download.Attempts
	}
	if err != nil {
		attempt.Error = err.Error()
		return nil, attempt
	}

	key := storage.ImageKey(productID, position, download.Ext)
	if err := s.store.Save(ctx, key, bytes.NewReader(download.Data)); err != nil {
		attempt.Error = err.Error()
		return nil, attempt
	}

	image := &domain.ProductImage{
		ID:        uuid.New(),
		ProductID: productID,
		Path:      key,
		Position:  position,
		CreatedAt: time.Now(),
	}

	if err := s.imageRepo.Create(ctx, image); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned image", zap.String("path", key), zap.Error(delErr))
		}
		attempt.Error = err.Error()
		return nil, attempt
	}

	attempt.Path = key
	return image, attempt
}
