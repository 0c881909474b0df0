package settlement

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"winzone/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu        sync.Mutex
	nextID    uint
	draws     map[uint]*models.Draw
	tickets   []models.Ticket
	retailers map[uint]*models.Retailer
	ledger    []models.RetailerTransaction

	failSettle map[uint]error
	settleLog  []uint
}

func newMemStore() *memStore {
	return &memStore{
		draws:      map[uint]*models.Draw{},
		retailers:  map[uint]*models.Retailer{},
		failSettle: map[uint]error{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) find(key DrawKey) *models.Draw {
	for _, d := range m.draws {
		if d.Mode == key.Mode && d.Variant == key.Variant && d.EndTime.Equal(key.EndTime) {
			return d
		}
	}
	return nil
}

func (m *memStore) EnsureDraw(_ context.Context, key DrawKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(key) != nil {
		return false, nil
	}
	d := &models.Draw{Mode: key.Mode, Variant: key.Variant, EndTime: key.EndTime.UTC(), Status: models.DrawPending}
	d.ID = m.id()
	m.draws[d.ID] = d
	return true, nil
}

func (m *memStore) PendingDraws(_ context.Context, mode int, variant models.GameVariant, now time.Time) ([]models.Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Draw
	for _, d := range m.draws {
		if d.Mode == mode && d.Variant == variant && d.Status == models.DrawPending && !d.EndTime.After(now) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

func (m *memStore) SettleDraw(_ context.Context, drawID uint, decide Decider) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.draws[drawID]
	if !ok {
		return nil, ErrDrawNotFound
	}
	if d.IsProcessed() {
		return nil, ErrDrawProcessed
	}
	if err := m.failSettle[drawID]; err != nil {
		return nil, err
	}

	var tickets []models.Ticket
	retailers := map[uint]models.Retailer{}
	for _, t := range m.tickets {
		if t.DrawID == drawID && t.Status == models.TicketActive {
			tickets = append(tickets, t)
			if r, ok := m.retailers[t.RetailerID]; ok {
				retailers[r.ID] = *r
			}
		}
	}

	s, err := decide(*d, tickets, retailers)
	if err != nil {
		return nil, err
	}

	// Validate every credit before mutating so a failure leaves nothing behind.
	for _, c := range s.Credits {
		if _, ok := m.retailers[c.RetailerID]; !ok {
			return nil, errors.New("retailer missing")
		}
	}

	d.Result = s.Result
	d.TotalCollection = s.Collection
	d.TotalPayout = s.Payout
	d.Status = models.DrawProcessed
	for _, c := range s.Credits {
		r := m.retailers[c.RetailerID]
		before := r.Balance
		r.Balance = r.Balance.Add(c.Amount)
		m.ledger = append(m.ledger, models.RetailerTransaction{
			RetailerID: r.ID, TicketID: c.TicketID, DrawID: drawID, TrxType: models.TrxDrawWin,
			Amount: c.Amount, BalanceBefore: before, BalanceAfter: r.Balance, RefID: s.RefID,
		})
	}
	m.settleLog = append(m.settleLog, drawID)
	return s, nil
}

func (m *memStore) ForceResult(_ context.Context, key DrawKey, result string) (*models.Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.find(key)
	if d == nil {
		d = &models.Draw{Mode: key.Mode, Variant: key.Variant, EndTime: key.EndTime.UTC(), Status: models.DrawPending}
		d.ID = m.id()
		m.draws[d.ID] = d
	}
	if d.IsProcessed() {
		return nil, ErrDrawProcessed
	}
	d.Result = result
	d.Overridden = true
	cp := *d
	return &cp, nil
}

func (m *memStore) addDraw(t *testing.T, mode int, variant models.GameVariant, end time.Time) *models.Draw {
	t.Helper()
	_, err := m.EnsureDraw(context.Background(), DrawKey{Mode: mode, Variant: variant, EndTime: end})
	require.NoError(t, err)
	return m.find(DrawKey{Mode: mode, Variant: variant, EndTime: end.UTC()})
}

func (m *memStore) addRetailer(rtp, chance, boost float64) *models.Retailer {
	r := &models.Retailer{TargetRTP: &rtp, EngagementChance: &chance, BoostMultiplier: &boost, Balance: decimal.Zero}
	r.ID = m.id()
	m.retailers[r.ID] = r
	return r
}

func (m *memStore) addTicket(t *testing.T, drawID, retailerID uint, stake int64, bets models.BetMap) models.Ticket {
	t.Helper()
	raw, err := models.EncodeBets(bets)
	require.NoError(t, err)
	ticket := models.Ticket{DrawID: drawID, RetailerID: retailerID, BetDetails: raw,
		TotalAmount: decimal.NewFromInt(stake), Status: models.TicketActive}
	ticket.ID = m.id()
	m.tickets = append(m.tickets, ticket)
	return ticket
}

// script is a deterministic rng.Source that replays values modulo n.
type script struct {
	values []int
	calls  int
}

func (s *script) Intn(n int) (int, error) {
	v := 0
	if len(s.values) > 0 {
		v = s.values[s.calls%len(s.values)]
	}
	s.calls++
	return v % n, nil
}
