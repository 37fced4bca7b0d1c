package config

import (
	"testing"
	"time"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("DB_USER", "bort")
	t.Setenv("DB_DATABASE", "catalog")

	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Import.ListingURLTemplate != "https://www.ebay.com/itm/%s" {
		t.Errorf("unexpected listing template %q", cfg.Import.ListingURLTemplate)
	}
	if cfg.Import.DownloadAttempts != 3 {
		t.Errorf("expected 3 download attempts, got %d", cfg.Import.DownloadAttempts)
	}
	if cfg.Import.ScrapeTimeout != 8*time.Second {
		t.Errorf("expected 8s scrape timeout, got %v", cfg.Import.ScrapeTimeout)
	}
	if cfg.Storage.Driver != "local" {
		t.Errorf("expected local storage driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Backfill.Schedule != "" {
		t.Errorf("backfill should be disabled by default, got %q", cfg.Backfill.Schedule)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("IMPORT_MAX_IMAGES", "4")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://bortsbooks.com, https://admin.bortsbooks.com")

	cfg := Load()

	if cfg.Import.MaxImages != 4 {
		t.Errorf("expected max images 4, got %d", cfg.Import.MaxImages)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://admin.bortsbooks.com" {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p",
		Database: "books", Schema: "public", SSLMode: "disable",
	}

	want := "postgres://u:p@db:5432/books?sslmode=disable&search_path=public"
	if got := d.DSN(); got != want {
		t.Errorf("DSN mismatch: want %s, got %s", want, got)
	}
}
