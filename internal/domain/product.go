package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition is the graded physical condition of a book
type Condition string

const (
	ConditionNew        Condition = "New"
	ConditionLikeNew    Condition = "Like New"
	ConditionVeryGood   Condition = "Very Good"
	ConditionGood       Condition = "Good"
	ConditionAcceptable Condition = "Acceptable"
	ConditionUsed       Condition = "Used"
)

// marketplace labels seen in seller exports, keyed by lowercase label
var conditionAliases = map[string]Condition{
	"new":                  ConditionNew,
	"brand new":            ConditionNew,
	"new other":            ConditionNew,
	"new (other)":          ConditionNew,
	"like new":             ConditionLikeNew,
	"like-new":             ConditionLikeNew,
	"very good":            ConditionVeryGood,
	"good":                 ConditionGood,
	"acceptable":           ConditionAcceptable,
	"used":                 ConditionUsed,
	"pre-owned":            ConditionUsed,
	"pre-owned - good":     ConditionGood,
	"pre-owned - like new": ConditionLikeNew,
}

// ParseCondition maps a free-form condition label onto the catalog's enumeration.
// Empty input defaults to Good, unrecognized labels to Used.
func ParseCondition(raw string) Condition {
	label := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if label == "" {
		return ConditionGood
	}
	if c, ok := conditionAliases[label]; ok {
		return c
	}
	return ConditionUsed
}

// Valid reports whether c is one of the enumerated conditions
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionVeryGood, ConditionGood, ConditionAcceptable, ConditionUsed:
		return true
	}
	return false
}

// maxListingIDLength bounds marketplace item numbers; external_id is VARCHAR(64)
const maxListingIDLength = 20

// IsListingID reports whether id is a numeric marketplace item number
func IsListingID(id string) bool {
	if id == "" || len(id) > maxListingIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// Product represents a book in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Condition   Condition       `json:"condition" db:"condition"`
	ExternalID  *string         `json:"external_id,omitempty" db:"external_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// ImagesCheckedAt is the last time the listing was scraped for images
	ImagesCheckedAt *time.Time `json:"images_checked_at,omitempty" db:"images_checked_at"`
}

// ProductImage is a stored photo of a product. Path is a store key or an absolute URL.
type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Path      string    `json:"path" db:"path"`
	IsMain    bool      `json:"is_main" db:"is_main"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// URL is resolved from Path by the image store when serving
	URL string `json:"url,omitempty" db:"-"`
}

// ProductWithImages bundles a product with its images, main image first
type ProductWithImages struct {
	Product
	Images []*ProductImage `json:"images"`
}
