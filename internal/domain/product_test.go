package domain

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Feature: catalog-import, Only numeric item numbers are scraped
func TestProperty_NumericItemNumbersAreListingIDs(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("digit strings up to 20 long are listing ids", prop.ForAll(
		func(digits string) bool {
			return IsListingID(digits) == (len(digits) > 0 && len(digits) <= 20)
		},
		gen.NumString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestIsListingID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"123456", true},
		{"", false},
		{"SKU-42", false},
		{" 123", false},
		{strings.Repeat("9", 20), true},
		{strings.Repeat("9", 21), false},
	}

	for _, tt := range tests {
		if got := IsListingID(tt.id); got != tt.want {
			t.Errorf("IsListingID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestParseCondition(t *testing.T) {
	tests := map[string]Condition{
		"":                 ConditionGood,
		"Brand New":        ConditionNew,
		"  like   new ":    ConditionLikeNew,
		"Pre-owned - Good": ConditionGood,
		"Acceptable":       ConditionAcceptable,
		"for parts":        ConditionUsed,
	}

	for raw, want := range tests {
		if got := ParseCondition(raw); got != want {
			t.Errorf("ParseCondition(%q) = %q, want %q", raw, got, want)
		}
		if !ParseCondition(raw).Valid() {
			t.Errorf("ParseCondition(%q) returned an invalid condition", raw)
		}
	}
}
