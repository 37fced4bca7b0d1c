package server

import (
	"database/sql"
	"time"

	"bortsbooks/internal/config"
	"bortsbooks/internal/imagefetch"
	"bortsbooks/internal/repository"
	"bortsbooks/internal/scraper"
	"bortsbooks/internal/service"
	"bortsbooks/internal/storage"

	"go.uber.org/zap"
)

// Services holds the application services shared by the API server and the CLI
type Services struct {
	Admin    service.AdminService
	Import   service.ImportService
	Backfill service.BackfillService
	Product  service.ProductService
}

// NewServices wires repositories, the scraper and the downloader into services
func NewServices(cfg *config.Config, db *sql.DB, store storage.ImageStore, logger *zap.Logger) *Services {
	adminRepo := repository.NewAdminRepository(db)
	productRepo := repository.NewProductRepository(db)
	imageRepo := repository.NewProductImageRepository(db)

	listingScraper := scraper.New(scraper.Config{
		URLTemplate:   cfg.Import.ListingURLTemplate,
		Timeout:       cfg.Import.ScrapeTimeout,
		RatePerSecond: cfg.Import.ScrapeRate,
		SnippetLength: cfg.Import.SnippetLength,
	}, logger)

	fetcher := imagefetch.New(imagefetch.Config{
		Timeout:  cfg.Import.DownloadTimeout,
		MaxBytes: cfg.Import.MaxImageBytes,
		Retry: imagefetch.RetryPolicy{
			MaxAttempts: cfg.Import.DownloadAttempts,
			Initial:     cfg.Import.BackoffInitial,
			Multiplier:  cfg.Import.BackoffMultiplier,
		},
	}, logger)

	imports := service.NewImportService(
		productRepo,
		imageRepo,
		listingScraper,
		fetcher,
		store,
		service.ImportConfig{MaxImages: cfg.Import.MaxImages},
		logger,
	)

	return &Services{
		Admin:    service.NewAdminService(adminRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.AccessExpiry)*time.Minute),
		Import:   imports,
		Backfill: service.NewBackfillService(productRepo, imports, cfg.Backfill.BatchSize, logger),
		Product:  service.NewProductService(productRepo, imageRepo, store, logger.Named("catalog")),
	}
}
