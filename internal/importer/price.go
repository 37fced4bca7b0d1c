package importer

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// MarkdownRatio is applied to every marketplace price to get the resale price
var MarkdownRatio = decimal.RequireFromString("0.9")

var (
	nonPriceChars  = regexp.MustCompile(`[^0-9.]`)
	leadingDecimal = regexp.MustCompile(`^\d*\.?\d+`)
)

// NormalizePrice strips currency symbols and separators, reads the leading number
// and applies the markdown. A trailing stray dot ("US $12.50.") does not zero the
// price. Prices without digits, or equal to zero, normalize to 0.00.
func NormalizePrice(raw string) decimal.Decimal {
	cleaned := leadingDecimal.FindString(nonPriceChars.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return decimal.Zero
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil || value.IsZero() {
		return decimal.Zero
	}

	return value.Mul(MarkdownRatio).Round(2)
}

// FormatPrice renders a price with exactly two decimals
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(2)
}
