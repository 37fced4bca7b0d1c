package scraper

import (
	"regexp"
	"strings"
)

// Strategy extracts candidate image URLs from a raw listing page.
// Strategies are pure and tried in order until one returns a URL.
type Strategy struct {
	Name    string
	Extract func(body string) []string
}

// DefaultStrategies is the extraction order used for marketplace listing pages
var DefaultStrategies = []Strategy{
	{Name: "json-embedded", Extract: extractEmbeddedJSON},
	{Name: "carousel", Extract: extractCarousel},
	{Name: "gallery", Extract: extractGallery},
	{Name: "magnifier", Extract: extractMagnifier},
	{Name: "gallery-container", Extract: extractGalleryContainer},
}

var (
	embeddedImagePattern = regexp.MustCompile(`"(?:maxImageUrl|displayImgUrl|originalImg|imageUrl|ZOOM_GUID_URL)"\s*:\s*"(https?:[^"]+)"`)
	carouselItemPattern  = regexp.MustCompile(`(?s)<div[^>]+class="[^"]*ux-image-carousel-item[^"]*"[^>]*>.*?(<img\b[^>]*>)`)
	imgTagPattern        = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	classAttrPattern     = regexp.MustCompile(`(?i)\bclass="([^"]*)"`)
	idAttrPattern        = regexp.MustCompile(`(?i)\sid="([^"]*)"`)
	galleryBlockPattern  = regexp.MustCompile(`(?s)<div[^>]+(?:id|class)="[^"]*(?:PicturePanel|vi_main_img_fs|ux-image-grid-container)[^"]*"[^>]*>.*?</div>`)
	hostedImagePattern   = regexp.MustCompile(`https?:(?:\\?/){2}i\.ebayimg\.com[^"'\s<>)]+`)

	// highest fidelity first
	imageSourcePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\sdata-zoom-src="([^"]+)"`),
		regexp.MustCompile(`(?i)\sdata-src="([^"]+)"`),
		regexp.MustCompile(`(?i)\ssrc="([^"]+)"`),
	}
)

var (
	galleryClasses   = []string{"ux-image-filmstrip-carousel-item", "vi-image-gallery__image", "thumbnail"}
	magnifierClasses = []string{"ux-image-magnify__image--original", "img-magnifier"}
	magnifierIDs     = []string{"icImg", "mainImgHldr"}
)

func extractEmbeddedJSON(body string) []string {
	var urls []string
	for _, m := range embeddedImagePattern.FindAllStringSubmatch(body, -1) {
		urls = append(urls, m[1])
	}
	return urls
}

func extractCarousel(body string) []string {
	var urls []string
	for _, m := range carouselItemPattern.FindAllStringSubmatch(body, -1) {
		if src := imageSource(m[1]); src != "" {
			urls = append(urls, src)
		}
	}
	return urls
}

func extractGallery(body string) []string {
	return imagesMatching(body, func(tag string) bool {
		return hasClass(tag, galleryClasses)
	})
}

func extractMagnifier(body string) []string {
	return imagesMatching(body, func(tag string) bool {
		if hasClass(tag, magnifierClasses) {
			return true
		}
		m := idAttrPattern.FindStringSubmatch(tag)
		if m == nil {
			return false
		}
		for _, id := range magnifierIDs {
			if m[1] == id {
				return true
			}
		}
		return false
	})
}

func extractGalleryContainer(body string) []string {
	var urls []string
	for _, block := range galleryBlockPattern.FindAllString(body, -1) {
		urls = append(urls, hostedImagePattern.FindAllString(block, -1)...)
	}
	return urls
}

func imagesMatching(body string, match func(tag string) bool) []string {
	var urls []string
	for _, tag := range imgTagPattern.FindAllString(body, -1) {
		if !match(tag) {
			continue
		}
		if src := imageSource(tag); src != "" {
			urls = append(urls, src)
		}
	}
	return urls
}

func hasClass(tag string, classes []string) bool {
	m := classAttrPattern.FindStringSubmatch(tag)
	if m == nil {
		return false
	}
	for _, c := range classes {
		if strings.Contains(m[1], c) {
			return true
		}
	}
	return false
}

// imageSource picks the highest fidelity source attribute of an img tag
func imageSource(tag string) string {
	for _, pattern := range imageSourcePatterns {
		if m := pattern.FindStringSubmatch(tag); m != nil && strings.HasPrefix(m[1], "http") {
			return m[1]
		}
	}
	return ""
}
