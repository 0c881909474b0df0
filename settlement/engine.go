package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"winzone/metrics"
	"winzone/models"
	"winzone/rng"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidSlot = errors.New("end time is not a slot boundary for mode")
	ErrUnknownMode = errors.New("draw mode is not scheduled")
)

// DefaultLookback is how many recent slots each pass provisions.
const DefaultLookback = 2

// Engine provisions, decides and settles draws for one mode per pass.
type Engine struct {
	store    Store
	src      rng.Source
	log      *zap.Logger
	now      func() time.Time
	lookback int
	modes    map[int]bool

	mu     sync.Mutex
	passes map[int]*sync.Mutex
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLookback(slots int) Option {
	return func(e *Engine) {
		if slots > 0 {
			e.lookback = slots
		}
	}
}

// WithModes restricts overrides to the modes the scheduler runs. Without it
// any positive mode is accepted.
func WithModes(modes ...int) Option {
	return func(e *Engine) {
		e.modes = map[int]bool{}
		for _, m := range modes {
			e.modes[m] = true
		}
	}
}

func NewEngine(store Store, src rng.Source, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		src:      src,
		log:      log,
		now:      time.Now,
		lookback: DefaultLookback,
		passes:   map[int]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PassReport summarises one ProcessMode call.
type PassReport struct {
	Provisioned int
	Settled     int
	Skipped     int
	Failed      int
}

func (e *Engine) modeLock(mode int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.passes[mode]
	if !ok {
		l = &sync.Mutex{}
		e.passes[mode] = l
	}
	return l
}

// ProcessMode runs one pass for a mode: provision recent slots, then settle
// every pending draw of each variant, oldest first. A failing draw is logged
// and left pending; it never stops its siblings. Overlapping passes for the
// same mode return ErrPassInProgress.
func (e *Engine) ProcessMode(ctx context.Context, mode int) (PassReport, error) {
	lock := e.modeLock(mode)
	if !lock.TryLock() {
		return PassReport{}, ErrPassInProgress
	}
	defer lock.Unlock()

	started := time.Now()
	defer metrics.ObservePass(mode, started)

	now := e.now()
	log := e.log.With(zap.Int("mode", mode), zap.String("pass", uuid.NewString()))

	var report PassReport
	report.Provisioned = e.provision(ctx, log, mode, now)

	for _, variant := range models.Variants {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		draws, err := e.store.PendingDraws(ctx, mode, variant, now)
		if err != nil {
			log.Error("❌ failed to list pending draws", zap.String("variant", string(variant)), zap.Error(err))
			continue
		}
		if len(draws) > 0 {
			log.Info("⚡ processing pending draws", zap.String("variant", string(variant)), zap.Int("count", len(draws)))
		}

		for _, draw := range draws {
			_, err := e.SettleDraw(ctx, draw)
			switch {
			case err == nil:
				report.Settled++
			case errors.Is(err, ErrDrawProcessed):
				report.Skipped++
			default:
				report.Failed++
			}
		}
	}
	return report, nil
}

func (e *Engine) provision(ctx context.Context, log *zap.Logger, mode int, now time.Time) int {
	created := 0
	for _, end := range Slots(now, mode, e.lookback) {
		for _, variant := range models.Variants {
			ok, err := e.store.EnsureDraw(ctx, DrawKey{Mode: mode, Variant: variant, EndTime: end})
			if err != nil {
				log.Error("❌ failed to provision draw",
					zap.String("variant", string(variant)), zap.Time("end_time", end), zap.Error(err))
				continue
			}
			if ok {
				created++
				metrics.RecordProvisioned(mode, string(variant))
				log.Info("💡 created missing draw", zap.String("variant", string(variant)), zap.Time("end_time", end))
			}
		}
	}
	return created
}

// SettleDraw decides and commits one draw. Settling an already processed draw
// returns ErrDrawProcessed and changes nothing.
func (e *Engine) SettleDraw(ctx context.Context, draw models.Draw) (*Settlement, error) {
	log := e.log.With(
		zap.Uint("draw_id", draw.ID),
		zap.Int("mode", draw.Mode),
		zap.String("variant", string(draw.Variant)),
	)
	refID := uuid.NewString()

	s, err := e.store.SettleDraw(ctx, draw.ID, func(locked models.Draw, tickets []models.Ticket, retailers map[uint]models.Retailer) (*Settlement, error) {
		s, err := e.decide(log, locked, tickets, retailers)
		if err != nil {
			return nil, err
		}
		s.RefID = refID
		return s, nil
	})
	if err != nil {
		if errors.Is(err, ErrDrawProcessed) {
			log.Debug("draw already processed")
			return nil, err
		}
		metrics.RecordFailure(draw.Mode, string(draw.Variant))
		log.Error("❌ draw settlement failed", zap.Error(err))
		return nil, err
	}

	ceiling, _ := s.Ceiling.Float64()
	metrics.RecordSettled(draw.Mode, string(draw.Variant), string(s.Tier), ceiling)
	log.Info("✅ draw settled",
		zap.String("result", s.Result),
		zap.String("tier", string(s.Tier)),
		zap.String("ceiling", s.Ceiling.StringFixed(2)),
		zap.String("collection", s.Collection.StringFixed(2)),
		zap.String("payout", s.Payout.StringFixed(2)),
		zap.Int("credits", len(s.Credits)),
		zap.String("ref_id", refID),
	)
	return s, nil
}

func (e *Engine) decide(log *zap.Logger, draw models.Draw, tickets []models.Ticket, retailers map[uint]models.Retailer) (*Settlement, error) {
	tally, err := Aggregate(draw.Variant, tickets)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	for ticketID, keys := range tally.Dropped {
		log.Warn("⚠️ dropped unknown bet keys", zap.Uint("ticket_id", ticketID), zap.Strings("keys", keys))
	}

	var sel Selection
	ceiling := decimal.Zero
	if forced, ok := draw.ForcedResult(); ok {
		log.Warn("⚠️ admin override detected", zap.String("result", forced))
		sel = ResolveOverride(tally, forced)
		if sel.Outcome == "" {
			log.Warn("⚠️ forced result matches no outcome; nothing is paid", zap.String("result", forced))
		}
	} else {
		ceiling, err = Ceiling(tickets, retailers, NewBoostTrials(e.src))
		if err != nil {
			return nil, fmt.Errorf("payout ceiling: %w", err)
		}
		sel, err = Select(tally, ceiling, e.src)
		if err != nil {
			return nil, fmt.Errorf("select winner: %w", err)
		}
	}

	s := &Settlement{
		DrawID:     draw.ID,
		Result:     sel.Result,
		Outcome:    sel.Outcome,
		Tier:       sel.Tier,
		Collection: tally.Collection,
		Payout:     decimal.Zero,
		Ceiling:    ceiling,
	}
	if sel.Outcome != "" {
		s.Payout = tally.PotentialPayout(sel.Outcome)
		s.Credits = Credits(tally, sel.Outcome)
	}
	return s, nil
}

// Credits lists the payout owed to each ticket that wagered on outcome.
func Credits(t *Tally, outcome string) []Credit {
	var out []Credit
	for _, tb := range t.Bets {
		qty := tb.Bets[outcome]
		if qty <= 0 {
			continue
		}
		out = append(out, Credit{
			TicketID:   tb.TicketID,
			RetailerID: tb.RetailerID,
			Quantity:   qty,
			Amount:     decimal.NewFromInt(qty * PayoutPerUnit),
		})
	}
	return out
}

// Override forces the published result of a PENDING draw. A zero endTime
// targets the next slot of mode. Forcing a processed draw returns
// ErrDrawProcessed and leaves it unchanged.
func (e *Engine) Override(ctx context.Context, mode int, variant models.GameVariant, endTime time.Time, result string) (*models.Draw, error) {
	if mode <= 0 {
		return nil, fmt.Errorf("%w: mode %d", ErrInvalidSlot, mode)
	}
	if e.modes != nil && !e.modes[mode] {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
	}
	if err := ValidateResult(variant, result); err != nil {
		return nil, err
	}
	if endTime.IsZero() {
		endTime = NextSlot(e.now(), mode)
	}
	endTime = endTime.UTC()
	if !SlotEnd(endTime, mode).Equal(endTime) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlot, endTime.Format(time.RFC3339))
	}

	draw, err := e.store.ForceResult(ctx, DrawKey{Mode: mode, Variant: variant, EndTime: endTime}, result)
	if err != nil {
		if errors.Is(err, ErrDrawProcessed) {
			e.log.Warn("⚠️ override rejected: draw already processed",
				zap.Int("mode", mode), zap.String("variant", string(variant)), zap.Time("end_time", endTime))
		}
		return nil, err
	}
	e.log.Info("🎯 result forced",
		zap.Uint("draw_id", draw.ID), zap.Int("mode", mode), zap.String("variant", string(variant)),
		zap.Time("end_time", endTime), zap.String("result", result))
	return draw, nil
}

// Now returns the engine's clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}
