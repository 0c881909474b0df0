package settlement

import (
	"math"
	"sort"

	"winzone/models"
	"winzone/rng"

	"github.com/shopspring/decimal"
)

// BoostTrials remembers the engagement-boost outcome of each retailer for a
// single draw. Build a new one per draw and discard it afterwards.
type BoostTrials struct {
	src     rng.Source
	results map[uint]bool
}

func NewBoostTrials(src rng.Source) *BoostTrials {
	return &BoostTrials{src: src, results: map[uint]bool{}}
}

// Boosted runs the retailer's Bernoulli trial on first use and returns the
// remembered outcome afterwards.
func (b *BoostTrials) Boosted(retailerID uint, chance float64) (bool, error) {
	if v, ok := b.results[retailerID]; ok {
		return v, nil
	}
	v, err := rng.Chance(b.src, chance)
	if err != nil {
		return false, err
	}
	b.results[retailerID] = v
	return v, nil
}

func (b *BoostTrials) Results() map[uint]bool {
	out := make(map[uint]bool, len(b.results))
	for k, v := range b.results {
		out[k] = v
	}
	return out
}

// EffectiveMultiplier is the share of a retailer's stake the house is willing
// to pay back. Negative settings count as zero.
func EffectiveMultiplier(p models.RiskProfile, boosted bool) decimal.Decimal {
	m := decimal.NewFromFloat(math.Max(p.TargetRTP, 0)).Div(decimal.NewFromInt(100))
	if boosted {
		m = m.Mul(decimal.NewFromFloat(math.Max(p.BoostMultiplier, 0)))
	}
	return m
}

// Ceiling computes the maximum payout allowed for a draw. Retailers are
// visited in ascending id order and each gets exactly one boost trial.
// Tickets whose retailer is missing from retailers use the house defaults.
func Ceiling(tickets []models.Ticket, retailers map[uint]models.Retailer, trials *BoostTrials) (decimal.Decimal, error) {
	stakes := map[uint]decimal.Decimal{}
	for _, t := range tickets {
		if t.Status != models.TicketActive {
			continue
		}
		stakes[t.RetailerID] = stakes[t.RetailerID].Add(t.TotalAmount)
	}

	ids := make([]uint, 0, len(stakes))
	for id := range stakes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ceiling := decimal.Zero
	for _, id := range ids {
		profile := models.DefaultRiskProfile()
		if r, ok := retailers[id]; ok {
			profile = r.RiskProfile()
		}
		boosted, err := trials.Boosted(id, profile.EngagementChance)
		if err != nil {
			return decimal.Zero, err
		}
		ceiling = ceiling.Add(stakes[id].Mul(EffectiveMultiplier(profile, boosted)))
	}

	if ceiling.IsNegative() {
		return decimal.Zero, nil
	}
	return ceiling, nil
}
