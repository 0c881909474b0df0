package settlement

import (
	"fmt"

	"winzone/models"

	"github.com/shopspring/decimal"
)

const (
	// UnitValue converts one stake unit into currency.
	UnitValue = 10
	// EstimateOdds is applied to an outcome's currency value when budgeting and
	// when reporting a draw's total payout.
	EstimateOdds = 9
	// PayoutPerUnit is credited to the retailer for each unit on the winning outcome.
	PayoutPerUnit = 90
)

// Tally is the per-outcome reduction of one draw's active tickets.
type Tally struct {
	Variant    models.GameVariant
	Outcomes   []string
	Quantities map[string]int64
	Collection decimal.Decimal

	// Bets holds each ticket's decoded mapping, keyed by ticket id, in ticket order.
	Bets    []TicketBets
	Dropped map[uint][]string
}

type TicketBets struct {
	TicketID   uint
	RetailerID uint
	Bets       models.BetMap
}

// Aggregate reduces the active tickets of a draw into per-outcome quantities.
// Every outcome of the variant is present in the result, including those with
// no bets.
func Aggregate(variant models.GameVariant, tickets []models.Ticket) (*Tally, error) {
	outcomes := variant.Outcomes()
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	t := &Tally{
		Variant:    variant,
		Outcomes:   outcomes,
		Quantities: make(map[string]int64, len(outcomes)),
		Collection: decimal.Zero,
		Dropped:    map[uint][]string{},
	}
	for _, o := range outcomes {
		t.Quantities[o] = 0
	}

	for _, ticket := range tickets {
		if ticket.Status != models.TicketActive {
			continue
		}
		bets, dropped, err := ticket.Bets(variant)
		if err != nil {
			return nil, fmt.Errorf("ticket %d: %w", ticket.ID, err)
		}
		if len(dropped) > 0 {
			t.Dropped[ticket.ID] = dropped
		}

		t.Collection = t.Collection.Add(ticket.TotalAmount)
		for key, qty := range bets {
			t.Quantities[key] += qty
		}
		t.Bets = append(t.Bets, TicketBets{TicketID: ticket.ID, RetailerID: ticket.RetailerID, Bets: bets})
	}
	return t, nil
}

func (t *Tally) Quantity(outcome string) int64 {
	return t.Quantities[outcome]
}

// Value is the currency amount wagered on an outcome.
func (t *Tally) Value(outcome string) decimal.Decimal {
	return decimal.NewFromInt(t.Quantity(outcome) * UnitValue)
}

// PotentialPayout is the estimated liability if outcome wins.
func (t *Tally) PotentialPayout(outcome string) decimal.Decimal {
	return PotentialPayout(t.Quantity(outcome))
}

func PotentialPayout(quantity int64) decimal.Decimal {
	return decimal.NewFromInt(quantity * UnitValue * EstimateOdds)
}

// TotalValue sums Value over every outcome.
func (t *Tally) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, o := range t.Outcomes {
		total = total.Add(t.Value(o))
	}
	return total
}
