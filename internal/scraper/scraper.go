package scraper

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bortsbooks/internal/logger"
)

const maxPageBytes = 8 << 20

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

var sizeTokenPattern = regexp.MustCompile(`s-l\d+`)

// Debug records what happened while scraping one listing
type Debug struct {
	ListingURL    string `json:"listing_url"`
	HTTPCode      int    `json:"http_code"`
	ImageCount    int    `json:"image_count"`
	Strategy      string `json:"strategy,omitempty"`
	NoImagesFound bool   `json:"no_images_found,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Scraper finds the photo URLs of a marketplace listing
type Scraper interface {
	Scrape(ctx context.Context, listingID string) ([]string, *Debug)
}

type Config struct {
	URLTemplate   string
	Timeout       time.Duration
	RatePerSecond float64
	SnippetLength int
	Strategies    []Strategy
}

type scraper struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a listing scraper. A non-positive rate disables request spacing.
func New(cfg Config, log *zap.Logger) Scraper {
	if cfg.Strategies == nil {
		cfg.Strategies = DefaultStrategies
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = 500
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// listing pages are public and only ever parsed as text
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return &scraper{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  log.Named("scraper"),
	}
}

// Scrape fetches the listing page and runs the extraction strategies in order.
// Failures are never returned as errors; they are recorded in the debug record.
func (s *scraper) Scrape(ctx context.Context, listingID string) ([]string, *Debug) {
	debug := &Debug{
		ListingURL: fmt.Sprintf(s.cfg.URLTemplate, url.PathEscape(listingID)),
	}

	if err := s.limiter.Wait(ctx); err != nil {
		debug.Error = fmt.Sprintf("rate limiter: %v", err)
		return nil, debug
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, debug.ListingURL, nil)
	if err != nil {
		debug.Error = err.Error()
		return nil, debug
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("Listing fetch failed", zap.String("listing_id", listingID), zap.Error(err))
		debug.Error = err.Error()
		return nil, debug
	}
	defer resp.Body.Close()

	debug.HTTPCode = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		debug.Error = fmt.Sprintf("failed to read body: %v", err)
		return nil, debug
	}
	body := string(raw)

	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		debug.Error = fmt.Sprintf("unexpected response: status %d, %d bytes", resp.StatusCode, len(body))
		debug.Snippet = s.snippet(body)
		s.logger.Warn("Listing fetch returned no page",
			zap.String("listing_id", listingID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, debug
	}

	for _, strategy := range s.cfg.Strategies {
		found := strategy.Extract(body)
		if len(found) == 0 {
			continue
		}

		urls := NormalizeURLs(found)
		if len(urls) == 0 {
			continue
		}

		debug.Strategy = strategy.Name
		debug.ImageCount = len(urls)
		s.logger.Debug("Listing images found",
			zap.String("listing_id", listingID),
			zap.String("strategy", strategy.Name),
			zap.Int("count", len(urls)),
		)
		return urls, debug
	}

	debug.NoImagesFound = true
	debug.Snippet = s.snippet(body)
	s.logger.Info("No images found on listing", zap.String("listing_id", listingID))
	return nil, debug
}

func (s *scraper) snippet(body string) string {
	out := logger.Truncate(body, s.cfg.SnippetLength)
	if !utf8.ValidString(out) {
		out = strings.ToValidUTF8(out, "")
	}
	return out
}

// NormalizeURLs unescapes embedded URLs, requests the large rendition and drops
// duplicates while keeping first-seen order.
func NormalizeURLs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, u := range raw {
		u = unescape(u)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		u = sizeTokenPattern.ReplaceAllString(u, "s-l1600")

		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	return out
}

var escapeReplacer = strings.NewReplacer(
	`\/`, "/",
	`\u002F`, "/",
	`\u002f`, "/",
	`&amp;`, "&",
)

func unescape(u string) string {
	return strings.TrimSpace(escapeReplacer.Replace(u))
}
