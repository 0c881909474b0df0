package settlement

import (
	"fmt"

	"winzone/models"
)

// ValidateResult checks that result is publishable for variant: a Classic
// outcome code, or any four-digit number for Range.
func ValidateResult(variant models.GameVariant, result string) error {
	switch variant {
	case models.VariantClassic:
		if !variant.IsOutcome(result) {
			return fmt.Errorf("%w: %q is not a classic outcome", ErrInvalidResult, result)
		}
		return nil
	case models.VariantRange:
		if _, err := models.ParseRangeResult(result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResult, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

// OutcomeOf maps a published result back to the betting key it pays. The
// key is empty when the result pays nothing.
func OutcomeOf(variant models.GameVariant, result string) (string, bool) {
	switch variant {
	case models.VariantClassic:
		if !variant.IsOutcome(result) {
			return "", false
		}
		return result, true
	case models.VariantRange:
		bucket, err := models.BucketOf(result)
		if err != nil {
			return "", false
		}
		return bucket, true
	}
	return "", false
}

// ResolveOverride publishes a forced result as-is. A value that maps to no
// outcome is still published and pays nothing.
func ResolveOverride(t *Tally, forced string) Selection {
	outcome, _ := OutcomeOf(t.Variant, forced)
	return Selection{Outcome: outcome, Result: forced, Tier: TierOverride}
}
