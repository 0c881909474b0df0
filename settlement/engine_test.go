package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"winzone/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 19, 10, 7, 30, 0, time.UTC)

func newTestEngine(store Store, src *script) *Engine {
	return NewEngine(store, src, zap.NewNop(), WithClock(func() time.Time { return testNow }))
}

func TestProcessModeProvisionsRecentSlots(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, &script{})

	report, err := engine.ProcessMode(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Provisioned)
	assert.Equal(t, 4, report.Settled)

	for _, end := range []time.Time{
		time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC),
		time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	} {
		for _, v := range models.Variants {
			d := store.find(DrawKey{Mode: 5, Variant: v, EndTime: end})
			require.NotNil(t, d, "%s %s", v, end)
			assert.True(t, d.IsProcessed())
		}
	}

	again, err := engine.ProcessMode(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, again.Provisioned)
	assert.Zero(t, again.Settled)
}

func TestProcessModeSettlesOldestFirst(t *testing.T) {
	store := newMemStore()
	late := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 9, 55, 0, 0, time.UTC))
	early := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 9, 50, 0, 0, time.UTC))
	future := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 10, 10, 0, 0, time.UTC))

	_, err := newTestEngine(store, &script{}).ProcessMode(context.Background(), 5)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(store.settleLog), 2)
	assert.Equal(t, early.ID, store.settleLog[0])
	assert.Equal(t, late.ID, store.settleLog[1])
	assert.False(t, future.IsProcessed(), "draws ending after now stay pending")
}

func TestProcessModeFailureDoesNotStopSiblings(t *testing.T) {
	store := newMemStore()
	bad := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 9, 50, 0, 0, time.UTC))
	good := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 9, 55, 0, 0, time.UTC))
	store.failSettle[bad.ID] = errors.New("connection reset")

	report, err := newTestEngine(store, &script{}).ProcessMode(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.False(t, bad.IsProcessed())
	assert.True(t, good.IsProcessed())

	delete(store.failSettle, bad.ID)
	retry, err := newTestEngine(store, &script{}).ProcessMode(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Settled)
	assert.True(t, bad.IsProcessed())
}

func TestProcessModeRejectsOverlappingPass(t *testing.T) {
	engine := newTestEngine(newMemStore(), &script{})
	lock := engine.modeLock(10)
	lock.Lock()
	defer lock.Unlock()

	_, err := engine.ProcessMode(context.Background(), 10)
	assert.ErrorIs(t, err, ErrPassInProgress)

	_, err = engine.ProcessMode(context.Background(), 5)
	assert.NoError(t, err, "other modes are independent")
}

func TestSettleDrawCreditsWinners(t *testing.T) {
	store := newMemStore()
	r := store.addRetailer(90, 0, 1.3)
	other := store.addRetailer(90, 0, 1.3)
	draw := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC))
	winner := store.addTicket(t, draw.ID, r.ID, 1000, models.BetMap{"A0": 1})
	store.addTicket(t, draw.ID, other.ID, 100, models.BetMap{"B1": 10})

	s, err := newTestEngine(store, &script{values: []int{3}}).SettleDraw(context.Background(), *draw)
	require.NoError(t, err)

	// ceiling 990: A0 (90) and B1 (900) both fit, so either may win.
	assert.Equal(t, TierGold, s.Tier)
	assert.True(t, draw.IsProcessed())
	assert.Equal(t, s.Result, draw.Result)
	assert.True(t, draw.TotalCollection.Equal(decimal.NewFromInt(1100)))

	switch s.Outcome {
	case "A0":
		assert.True(t, draw.TotalPayout.Equal(decimal.NewFromInt(90)))
		assert.True(t, r.Balance.Equal(decimal.NewFromInt(90)))
		assert.True(t, other.Balance.IsZero())
		require.Len(t, store.ledger, 1)
		assert.Equal(t, winner.ID, store.ledger[0].TicketID)
	case "B1":
		assert.True(t, draw.TotalPayout.Equal(decimal.NewFromInt(900)))
		assert.True(t, other.Balance.Equal(decimal.NewFromInt(900)))
		assert.True(t, r.Balance.IsZero())
	default:
		t.Fatalf("unexpected outcome %q", s.Outcome)
	}
}

func TestSettleDrawIsIdempotent(t *testing.T) {
	store := newMemStore()
	r := store.addRetailer(90, 0, 1)
	draw := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC))
	store.addTicket(t, draw.ID, r.ID, 1000, models.BetMap{"C2": 2})

	engine := newTestEngine(store, &script{})
	first, err := engine.SettleDraw(context.Background(), *draw)
	require.NoError(t, err)
	require.Equal(t, "C2", first.Outcome)

	result, payout, balance := draw.Result, draw.TotalPayout, r.Balance

	_, err = engine.SettleDraw(context.Background(), *draw)
	assert.ErrorIs(t, err, ErrDrawProcessed)
	assert.Equal(t, result, draw.Result)
	assert.True(t, payout.Equal(draw.TotalPayout))
	assert.True(t, balance.Equal(r.Balance))
	assert.Len(t, store.ledger, 1)
}

func TestOverrideOnPendingDrawIsPublished(t *testing.T) {
	store := newMemStore()
	r := store.addRetailer(90, 0, 1)
	end := time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)
	draw := store.addDraw(t, 5, models.VariantRange, end)
	store.addTicket(t, draw.ID, r.ID, 20, models.BetMap{"4000": 2, "7000": 1})

	engine := newTestEngine(store, &script{values: []int{0}})
	forced, err := engine.Override(context.Background(), 5, models.VariantRange, end, "4523")
	require.NoError(t, err)
	assert.Equal(t, draw.ID, forced.ID)
	assert.True(t, forced.Overridden)

	s, err := engine.SettleDraw(context.Background(), *draw)
	require.NoError(t, err)
	assert.Equal(t, TierOverride, s.Tier)
	assert.Equal(t, "4523", draw.Result)
	assert.True(t, draw.TotalPayout.Equal(decimal.NewFromInt(180)))
	assert.True(t, r.Balance.Equal(decimal.NewFromInt(180)))
}

func TestOverrideOnProcessedDrawIsRejected(t *testing.T) {
	store := newMemStore()
	end := time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)
	draw := store.addDraw(t, 5, models.VariantClassic, end)

	engine := newTestEngine(store, &script{})
	_, err := engine.SettleDraw(context.Background(), *draw)
	require.NoError(t, err)
	published := draw.Result

	_, err = engine.Override(context.Background(), 5, models.VariantClassic, end, "J9")
	assert.ErrorIs(t, err, ErrDrawProcessed)
	assert.Equal(t, published, draw.Result)
	assert.False(t, draw.Overridden)
}

func TestOverrideDefaultsToNextSlot(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(store, &script{})

	draw, err := engine.Override(context.Background(), 15, models.VariantClassic, time.Time{}, "H7")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC), draw.EndTime)
	assert.Equal(t, models.DrawPending, draw.Status)
	assert.Equal(t, "H7", draw.Result)
}

func TestOverrideValidation(t *testing.T) {
	engine := newTestEngine(newMemStore(), &script{})
	ctx := context.Background()

	_, err := engine.Override(ctx, 5, models.VariantClassic, time.Time{}, "K0")
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = engine.Override(ctx, 5, models.VariantClassic, time.Date(2026, 10, 19, 10, 3, 0, 0, time.UTC), "A0")
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = engine.Override(ctx, 0, models.VariantClassic, time.Time{}, "A0")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestOverrideRejectsUnscheduledMode(t *testing.T) {
	store := newMemStore()
	engine := NewEngine(store, &script{}, zap.NewNop(),
		WithClock(func() time.Time { return testNow }),
		WithModes(5, 10, 15),
	)
	ctx := context.Background()

	_, err := engine.Override(ctx, 7, models.VariantClassic, time.Time{}, "A0")
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Empty(t, store.draws)

	draw, err := engine.Override(ctx, 10, models.VariantClassic, time.Time{}, "A0")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 10, 0, 0, time.UTC), draw.EndTime)
}

func TestUnmappableForcedResultPaysNothing(t *testing.T) {
	store := newMemStore()
	r := store.addRetailer(90, 0, 1)
	draw := store.addDraw(t, 5, models.VariantClassic, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC))
	store.addTicket(t, draw.ID, r.ID, 100, models.BetMap{"A0": 3})
	draw.Result = "ZZ"

	engine := newTestEngine(store, &script{})
	s, err := engine.SettleDraw(context.Background(), *draw)
	require.NoError(t, err)
	assert.Equal(t, TierOverride, s.Tier)
	assert.Equal(t, "ZZ", s.Result)
	assert.Empty(t, s.Outcome)
	assert.Empty(t, s.Credits)
	assert.True(t, s.Payout.IsZero())
	assert.True(t, r.Balance.IsZero())
	assert.Empty(t, store.ledger)
}

func TestCreditsUsePayoutRate(t *testing.T) {
	tally := tallyOf(t, models.VariantClassic, `{"A0": 3, "B1": 1}`, `{"A0": 2}`, `{"C2": 4}`)

	credits := Credits(tally, "A0")
	require.Len(t, credits, 2)
	assert.True(t, credits[0].Amount.Equal(decimal.NewFromInt(270)))
	assert.True(t, credits[1].Amount.Equal(decimal.NewFromInt(180)))

	total := decimal.Zero
	for _, c := range credits {
		total = total.Add(c.Amount)
	}
	assert.True(t, total.Equal(tally.PotentialPayout("A0")))
}
