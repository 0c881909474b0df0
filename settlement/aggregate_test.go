package settlement

import (
	"testing"

	"winzone/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func ticket(id uint, retailer uint, stake int64, raw string) models.Ticket {
	t := models.Ticket{
		RetailerID:  retailer,
		BetDetails:  datatypes.JSON(raw),
		TotalAmount: decimal.NewFromInt(stake),
		Status:      models.TicketActive,
	}
	t.ID = id
	return t
}

func TestAggregateCoversEveryOutcome(t *testing.T) {
	tally, err := Aggregate(models.VariantRange, nil)
	require.NoError(t, err)

	assert.Len(t, tally.Quantities, 10)
	for _, o := range models.VariantRange.Outcomes() {
		assert.Zero(t, tally.Quantity(o), o)
	}
	assert.True(t, tally.Collection.IsZero())
}

func TestAggregateCollectionMatchesOutcomeValue(t *testing.T) {
	tickets := []models.Ticket{
		ticket(1, 1, 30, `{"A0": 1, "B1": 2}`),
		ticket(2, 1, 100, `{"J9": 10}`),
		ticket(3, 2, 50, `{"B1": 5}`),
	}
	tally, err := Aggregate(models.VariantClassic, tickets)
	require.NoError(t, err)

	assert.Equal(t, int64(7), tally.Quantity("B1"))
	assert.Equal(t, int64(10), tally.Quantity("J9"))
	assert.True(t, tally.Collection.Equal(decimal.NewFromInt(180)))
	assert.True(t, tally.TotalValue().Equal(tally.Collection))
}

func TestAggregateSkipsInactiveTickets(t *testing.T) {
	cancelled := ticket(2, 1, 100, `{"A0": 10}`)
	cancelled.Status = models.TicketCancelled

	tally, err := Aggregate(models.VariantClassic, []models.Ticket{ticket(1, 1, 10, `{"A0": 1}`), cancelled})
	require.NoError(t, err)

	assert.Equal(t, int64(1), tally.Quantity("A0"))
	assert.True(t, tally.Collection.Equal(decimal.NewFromInt(10)))
	assert.Len(t, tally.Bets, 1)
}

func TestAggregateReportsDroppedKeys(t *testing.T) {
	tally, err := Aggregate(models.VariantRange, []models.Ticket{ticket(7, 1, 10, `{"1000": 1, "A0": 3}`)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), tally.Quantity("1000"))
	assert.Equal(t, []string{"A0"}, tally.Dropped[7])
}

func TestAggregateRejectsMalformedBets(t *testing.T) {
	_, err := Aggregate(models.VariantClassic, []models.Ticket{ticket(1, 1, 10, `{"A0": -1}`)})
	assert.ErrorIs(t, err, models.ErrMalformedBets)

	_, err = Aggregate(models.VariantClassic, []models.Ticket{ticket(2, 1, 10, `not json`)})
	assert.ErrorIs(t, err, models.ErrMalformedBets)
}

func TestAggregateUnknownVariant(t *testing.T) {
	_, err := Aggregate(models.GameVariant("bingo"), nil)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestPotentialPayout(t *testing.T) {
	assert.True(t, PotentialPayout(30).Equal(decimal.NewFromInt(2700)))
	assert.True(t, PotentialPayout(0).IsZero())
}
