package models

import (
	"fmt"
	"strconv"
	"strings"
)

type GameVariant string

const (
	VariantClassic GameVariant = "classic"
	VariantRange   GameVariant = "range"
)

// Variants lists every playable variant in the order a scheduler pass visits them.
var Variants = []GameVariant{VariantClassic, VariantRange}

// BucketSize is the number of four-digit results inside one Range bucket.
const BucketSize = 1000

var classicOutcomes = []string{"A0", "B1", "C2", "D3", "E4", "F5", "G6", "H7", "I8", "J9"}

var rangeOutcomes = []string{"0000", "1000", "2000", "3000", "4000", "5000", "6000", "7000", "8000", "9000"}

func ParseVariant(s string) (GameVariant, error) {
	switch GameVariant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantClassic:
		return VariantClassic, nil
	case VariantRange:
		return VariantRange, nil
	}
	return "", fmt.Errorf("unknown game variant %q", s)
}

// Outcomes returns the selectable outcome keys in canonical order.
// A fresh slice is returned on every call.
func (v GameVariant) Outcomes() []string {
	var src []string
	switch v {
	case VariantClassic:
		src = classicOutcomes
	case VariantRange:
		src = rangeOutcomes
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func (v GameVariant) IsOutcome(key string) bool {
	for _, o := range v.Outcomes() {
		if o == key {
			return true
		}
	}
	return false
}

// BucketStart parses a Range bucket key ("4000") into its first number.
func BucketStart(key string) (int, error) {
	n, err := strconv.Atoi(key)
	if err != nil || len(key) != 4 || n < 0 || n%BucketSize != 0 {
		return 0, fmt.Errorf("invalid range bucket %q", key)
	}
	return n, nil
}

// BucketOf maps a published four-digit Range result ("4523") to the bucket it
// was drawn from ("4000").
func BucketOf(result string) (string, error) {
	n, err := ParseRangeResult(result)
	if err != nil {
		return "", err
	}
	return FormatRangeResult((n / BucketSize) * BucketSize), nil
}

func ParseRangeResult(result string) (int, error) {
	if len(result) != 4 {
		return 0, fmt.Errorf("range result %q must have four digits", result)
	}
	for _, c := range result {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("range result %q is not a number", result)
		}
	}
	return strconv.Atoi(result)
}

func FormatRangeResult(n int) string {
	return fmt.Sprintf("%04d", n)
}
