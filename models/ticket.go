package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "ACTIVE"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketClaimed   TicketStatus = "CLAIMED"
)

type Ticket struct {
	gorm.Model

	DrawID     uint `gorm:"index;not null" json:"draw_id"`
	RetailerID uint `gorm:"index;not null" json:"retailer_id"`

	// BetDetails maps an outcome key to a quantity in stake units, e.g. {"B1": 10}.
	BetDetails  datatypes.JSON  `gorm:"type:jsonb" json:"bet_details"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_amount"`
	Status      TicketStatus    `gorm:"size:16;not null;default:ACTIVE;index" json:"status"`
}

// BetMap is a decoded bet: outcome key to wagered quantity.
type BetMap map[string]int64

var ErrMalformedBets = errors.New("malformed bet details")

// Bets decodes the ticket's bet mapping for the given variant. Keys outside the
// variant's outcome universe are dropped and returned so the caller can report
// them. Quantities must be non-negative whole numbers.
func (t Ticket) Bets(variant GameVariant) (BetMap, []string, error) {
	return DecodeBets(t.BetDetails, variant)
}

func DecodeBets(raw []byte, variant GameVariant) (BetMap, []string, error) {
	bets := BetMap{}
	if len(raw) == 0 {
		return bets, nil, nil
	}

	var parsed map[string]json.Number
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedBets, err)
	}

	var dropped []string
	for key, num := range parsed {
		f, err := num.Float64()
		if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
			return nil, nil, fmt.Errorf("%w: quantity %q for %q", ErrMalformedBets, num.String(), key)
		}
		if !variant.IsOutcome(key) {
			dropped = append(dropped, key)
			continue
		}
		bets[key] += int64(f)
	}
	sort.Strings(dropped)
	return bets, dropped, nil
}

func EncodeBets(bets BetMap) (datatypes.JSON, error) {
	raw, err := json.Marshal(bets)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
