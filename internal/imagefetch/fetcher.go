package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmptyBody     = errors.New("empty response body")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

const defaultExtension = ".jpg"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Result is the outcome of downloading one image
type Result struct {
	URL      string
	Ext      string
	Data     []byte
	Attempts int
}

// Fetcher downloads a single image with retries
type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) (*Result, error)
}

type Config struct {
	Timeout  time.Duration
	MaxBytes int64
	Retry    RetryPolicy
}

type fetcher struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) Fetcher {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger.Named("imagefetch"),
	}
}

// Fetch downloads imageURL. The returned Result is never nil and carries the attempt count even on failure.
func (f *fetcher) Fetch(ctx context.Context, imageURL string) (*Result, error) {
	result := &Result{URL: imageURL, Ext: ExtensionFromURL(imageURL)}

	attempts, err := f.cfg.Retry.Do(ctx, func(attempt int) error {
		data, err := f.download(ctx, imageURL)
		if err != nil {
			f.logger.Debug("Image download attempt failed",
				zap.String("url", imageURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		result.Data = data
		return nil
	})
	result.Attempts = attempts

	if err != nil {
		return result, fmt.Errorf("failed to download image after %d attempts: %w", attempts, err)
	}
	return result, nil
}

func (f *fetcher) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if f.cfg.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}
	if f.cfg.MaxBytes > 0 && int64(len(data)) > f.cfg.MaxBytes {
		return nil, Permanent(ErrImageTooLarge)
	}

	return data, nil
}

// ExtensionFromURL infers an image extension from the URL path, defaulting to .jpg
func ExtensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExtension
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if allowedExtensions[ext] {
		return ext
	}
	return defaultExtension
}
