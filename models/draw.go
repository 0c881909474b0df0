package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DrawStatus string

const (
	DrawPending   DrawStatus = "PENDING"
	DrawProcessed DrawStatus = "PROCESSED"
)

// Draw is one timed betting round. Mode, Variant and EndTime identify the slot
// and are unique together.
type Draw struct {
	gorm.Model

	Mode    int         `gorm:"column:game_mode;not null;uniqueIndex:idx_draw_slot,priority:1" json:"game_mode"`
	Variant GameVariant `gorm:"column:game_type;size:16;not null;uniqueIndex:idx_draw_slot,priority:2" json:"game_type"`
	EndTime time.Time   `gorm:"not null;uniqueIndex:idx_draw_slot,priority:3;index" json:"end_time"`

	Status     DrawStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	Result     string     `gorm:"column:winning_spot;size:8" json:"winning_spot"`
	Overridden bool       `gorm:"default:false" json:"overridden"`

	TotalCollection decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_collection"`
	TotalPayout     decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_payout"`
	ProcessedAt     *time.Time      `json:"processed_at"`

	Tickets []Ticket `gorm:"foreignKey:DrawID" json:"-"`
}

func (d Draw) IsProcessed() bool {
	return d.Status == DrawProcessed
}

// ForcedResult reports the operator-forced result of a draw that has not been
// settled yet.
func (d Draw) ForcedResult() (string, bool) {
	if d.IsProcessed() || d.Result == "" {
		return "", false
	}
	return d.Result, true
}
