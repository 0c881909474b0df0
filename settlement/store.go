package settlement

import (
	"context"
	"errors"
	"time"

	"winzone/models"

	"github.com/shopspring/decimal"
)

var (
	ErrDrawProcessed  = errors.New("draw already processed")
	ErrDrawNotFound   = errors.New("draw not found")
	ErrInvalidResult  = errors.New("invalid result")
	ErrUnknownVariant = errors.New("unknown game variant")
	ErrPassInProgress = errors.New("settlement pass already running for mode")
)

// DrawKey identifies a draw slot.
type DrawKey struct {
	Mode    int
	Variant models.GameVariant
	EndTime time.Time
}

// Settlement is everything the committer writes for one draw.
type Settlement struct {
	DrawID     uint
	Result     string
	Outcome    string
	Tier       Tier
	Collection decimal.Decimal
	Payout     decimal.Decimal
	Ceiling    decimal.Decimal
	Credits    []Credit
	RefID      string
}

// Credit is one winning ticket's payout to its retailer.
type Credit struct {
	TicketID   uint
	RetailerID uint
	Quantity   int64
	Amount     decimal.Decimal
}

// Decider computes a settlement from a locked draw, its active tickets and the
// retailers that own them. It must not touch storage.
type Decider func(draw models.Draw, tickets []models.Ticket, retailers map[uint]models.Retailer) (*Settlement, error)

// Store is the persistence boundary of the settlement engine.
type Store interface {
	// EnsureDraw inserts a PENDING draw for key unless one exists. It reports
	// whether a row was created.
	EnsureDraw(ctx context.Context, key DrawKey) (bool, error)
	// PendingDraws lists unsettled draws of one mode and variant that ended at
	// or before now, oldest first.
	PendingDraws(ctx context.Context, mode int, variant models.GameVariant, now time.Time) ([]models.Draw, error)
	// SettleDraw runs decide and commits its settlement atomically. It returns
	// ErrDrawProcessed without writing anything when the draw is already settled.
	SettleDraw(ctx context.Context, drawID uint, decide Decider) (*Settlement, error)
	// ForceResult stores an operator-forced result on a PENDING draw, creating
	// the draw if its slot has no row yet.
	ForceResult(ctx context.Context, key DrawKey, result string) (*models.Draw, error)
}
