package settlement

import (
	"fmt"

	"winzone/models"
	"winzone/rng"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
	TierOverride Tier = "override"
)

// Tiers partitions a draw's outcomes against its payout ceiling.
//
// Gold and Silver hold outcomes whose potential payout fits under the ceiling,
// with and without bets respectively. Bronze holds the outcome(s) with the
// lowest potential payout overall, regardless of the ceiling.
type Tiers struct {
	Gold   []string
	Silver []string
	Bronze []string
}

func Classify(t *Tally, ceiling decimal.Decimal) Tiers {
	var tiers Tiers
	var minPayout decimal.Decimal

	for i, o := range t.Outcomes {
		payout := t.PotentialPayout(o)

		switch {
		case i == 0 || payout.LessThan(minPayout):
			minPayout = payout
			tiers.Bronze = []string{o}
		case payout.Equal(minPayout):
			tiers.Bronze = append(tiers.Bronze, o)
		}

		if payout.LessThanOrEqual(ceiling) {
			if t.Quantity(o) > 0 {
				tiers.Gold = append(tiers.Gold, o)
			} else {
				tiers.Silver = append(tiers.Silver, o)
			}
		}
	}
	return tiers
}

// Selection is the decided result of a draw.
type Selection struct {
	// Outcome is the betting key that wins: a Classic code or a Range bucket.
	// Empty when a forced result maps to no outcome.
	Outcome string
	// Result is the published value: the Classic code or a four-digit number.
	Result string
	Tier   Tier
}

// Select picks uniformly from Gold, else Silver, else Bronze, then draws the
// published result for the chosen outcome.
func Select(t *Tally, ceiling decimal.Decimal, src rng.Source) (Selection, error) {
	tiers := Classify(t, ceiling)

	pool, tier := tiers.Gold, TierGold
	if len(pool) == 0 {
		pool, tier = tiers.Silver, TierSilver
	}
	if len(pool) == 0 {
		pool, tier = tiers.Bronze, TierBronze
	}

	outcome, err := rng.Pick(src, pool)
	if err != nil {
		return Selection{}, fmt.Errorf("pick %s outcome: %w", tier, err)
	}
	result, err := Publish(t.Variant, outcome, src)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Outcome: outcome, Result: result, Tier: tier}, nil
}

// Publish turns a chosen outcome into the displayed result. Range buckets
// yield a uniformly drawn number inside the bucket.
func Publish(variant models.GameVariant, outcome string, src rng.Source) (string, error) {
	switch variant {
	case models.VariantClassic:
		return outcome, nil
	case models.VariantRange:
		start, err := models.BucketStart(outcome)
		if err != nil {
			return "", err
		}
		offset, err := src.Intn(models.BucketSize)
		if err != nil {
			return "", err
		}
		return models.FormatRangeResult(start + offset), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}
