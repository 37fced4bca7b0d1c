package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Import   ImportConfig
	Storage  StorageConfig
	Backfill BackfillConfig
}

type ServerConfig struct {
	Port                 string
	Env                  string
	LogLevel             string
	AllowedOrigins       []string
	ImportRequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry int // in minutes
}

// ImportConfig tunes the listing scraper and image downloader
type ImportConfig struct {
	ListingURLTemplate string
	ScrapeTimeout      time.Duration
	ScrapeRate         float64 // listing requests per second
	SnippetLength      int
	MaxImages          int
	DownloadAttempts   int
	DownloadTimeout    time.Duration
	BackoffInitial     time.Duration
	BackoffMultiplier  float64
	MaxImageBytes      int64
}

type StorageConfig struct {
	Driver        string // local or s3
	LocalRoot     string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	S3Endpoint    string
}

type BackfillConfig struct {
	Schedule  string // cron spec, empty disables the job
	BatchSize int
}

// DSN returns the postgres connection string for the pgx driver
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Database +
		"?sslmode=" + d.SSLMode + "&search_path=" + d.Schema
}

func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

func Load() *Config {
	// .env values only fill variables the environment does not already set
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.SetConfigName("bortsbooks")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Could not read config file: %v", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:                 viper.GetString("SERVER_PORT"),
			Env:                  viper.GetString("SERVER_ENV"),
			LogLevel:             viper.GetString("LOG_LEVEL"),
			AllowedOrigins:       splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
			ImportRequestTimeout: viper.GetDuration("SERVER_IMPORT_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: viper.GetInt("JWT_ACCESS_EXPIRY"),
		},
		Import: ImportConfig{
			ListingURLTemplate: viper.GetString("IMPORT_LISTING_URL_TEMPLATE"),
			ScrapeTimeout:      viper.GetDuration("IMPORT_SCRAPE_TIMEOUT"),
			ScrapeRate:         viper.GetFloat64("IMPORT_SCRAPE_RATE"),
			SnippetLength:      viper.GetInt("IMPORT_SNIPPET_LENGTH"),
			MaxImages:          viper.GetInt("IMPORT_MAX_IMAGES"),
			DownloadAttempts:   viper.GetInt("IMPORT_DOWNLOAD_ATTEMPTS"),
			DownloadTimeout:    viper.GetDuration("IMPORT_DOWNLOAD_TIMEOUT"),
			BackoffInitial:     viper.GetDuration("IMPORT_BACKOFF_INITIAL"),
			BackoffMultiplier:  viper.GetFloat64("IMPORT_BACKOFF_MULTIPLIER"),
			MaxImageBytes:      viper.GetInt64("IMPORT_MAX_IMAGE_BYTES"),
		},
		Storage: StorageConfig{
			Driver:        viper.GetString("STORAGE_DRIVER"),
			LocalRoot:     viper.GetString("STORAGE_LOCAL_ROOT"),
			PublicBaseURL: viper.GetString("STORAGE_PUBLIC_BASE_URL"),
			S3Bucket:      viper.GetString("STORAGE_S3_BUCKET"),
			S3Region:      viper.GetString("STORAGE_S3_REGION"),
			S3Prefix:      viper.GetString("STORAGE_S3_PREFIX"),
			S3Endpoint:    viper.GetString("STORAGE_S3_ENDPOINT"),
		},
		Backfill: BackfillConfig{
			Schedule:  viper.GetString("IMPORT_BACKFILL_SCHEDULE"),
			BatchSize: viper.GetInt("IMPORT_BACKFILL_BATCH"),
		},
	}
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("SERVER_IMPORT_TIMEOUT", 15*time.Minute)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("IMPORT_LISTING_URL_TEMPLATE", "https://www.ebay.com/itm/%s")
	viper.SetDefault("IMPORT_SCRAPE_TIMEOUT", 8*time.Second)
	viper.SetDefault("IMPORT_SCRAPE_RATE", 1.0)
	viper.SetDefault("IMPORT_SNIPPET_LENGTH", 500)
	viper.SetDefault("IMPORT_MAX_IMAGES", 12)
	viper.SetDefault("IMPORT_DOWNLOAD_ATTEMPTS", 3)
	viper.SetDefault("IMPORT_DOWNLOAD_TIMEOUT", 15*time.Second)
	viper.SetDefault("IMPORT_BACKOFF_INITIAL", 500*time.Millisecond)
	viper.SetDefault("IMPORT_BACKOFF_MULTIPLIER", 2.0)
	viper.SetDefault("IMPORT_MAX_IMAGE_BYTES", 15<<20)
	viper.SetDefault("STORAGE_DRIVER", "local")
	viper.SetDefault("STORAGE_LOCAL_ROOT", "uploads")
	viper.SetDefault("STORAGE_PUBLIC_BASE_URL", "/uploads")
	viper.SetDefault("STORAGE_S3_REGION", "us-east-1")
	viper.SetDefault("STORAGE_S3_PREFIX", "")
	viper.SetDefault("IMPORT_BACKFILL_SCHEDULE", "")
	viper.SetDefault("IMPORT_BACKFILL_BATCH", 25)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
