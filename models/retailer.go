package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultTargetRTP        = 90.0
	DefaultEngagementChance = 15.0
	DefaultBoostMultiplier  = 1.3
)

const TrxDrawWin = "DRAW_WIN"

type Retailer struct {
	gorm.Model

	Username string          `gorm:"uniqueIndex;size:32" json:"username"`
	Balance  decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"balance"`
	IsActive bool            `gorm:"default:true" json:"is_active"`

	// Risk parameters; nil means "use the house default".
	TargetRTP        *float64 `json:"target_rtp"`
	EngagementChance *float64 `json:"engagement_chance"`
	BoostMultiplier  *float64 `json:"boost_multiplier"`

	Tickets      []Ticket              `gorm:"foreignKey:RetailerID" json:"-"`
	Transactions []RetailerTransaction `gorm:"foreignKey:RetailerID" json:"-"`
}

// RiskProfile is a retailer's effective risk configuration.
type RiskProfile struct {
	TargetRTP        float64 `json:"target_rtp"`
	EngagementChance float64 `json:"engagement_chance"`
	BoostMultiplier  float64 `json:"boost_multiplier"`
}

func DefaultRiskProfile() RiskProfile {
	return RiskProfile{
		TargetRTP:        DefaultTargetRTP,
		EngagementChance: DefaultEngagementChance,
		BoostMultiplier:  DefaultBoostMultiplier,
	}
}

func (r Retailer) RiskProfile() RiskProfile {
	p := DefaultRiskProfile()
	if r.TargetRTP != nil {
		p.TargetRTP = *r.TargetRTP
	}
	if r.EngagementChance != nil {
		p.EngagementChance = *r.EngagementChance
	}
	if r.BoostMultiplier != nil {
		p.BoostMultiplier = *r.BoostMultiplier
	}
	return p
}

// RetailerTransaction is the balance ledger. Settlement writes one DRAW_WIN row
// per winning ticket.
type RetailerTransaction struct {
	gorm.Model

	RetailerID    uint            `gorm:"index"`
	TicketID      uint            `gorm:"uniqueIndex:idx_trx_ticket_type"`
	DrawID        uint            `gorm:"index"`
	TrxType       string          `gorm:"size:16;uniqueIndex:idx_trx_ticket_type"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:numeric(14,2)" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(14,2)" json:"balance_after"`
	Note          string          `gorm:"size:255"`
	RefID         string          `gorm:"size:64;index"`
}
