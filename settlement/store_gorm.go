package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"winzone/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on Postgres through gorm. Draw rows and retailer
// rows are locked with SELECT ... FOR UPDATE for the length of a transaction.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) EnsureDraw(ctx context.Context, key DrawKey) (bool, error) {
	draw := models.Draw{
		Mode:    key.Mode,
		Variant: key.Variant,
		EndTime: key.EndTime.UTC(),
		Status:  models.DrawPending,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&draw)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) PendingDraws(ctx context.Context, mode int, variant models.GameVariant, now time.Time) ([]models.Draw, error) {
	var draws []models.Draw
	err := s.db.WithContext(ctx).
		Where("game_mode = ? AND game_type = ? AND status = ? AND end_time <= ?", mode, variant, models.DrawPending, now.UTC()).
		Order("end_time ASC").
		Find(&draws).Error
	return draws, err
}

func (s *GormStore) SettleDraw(ctx context.Context, drawID uint, decide Decider) (*Settlement, error) {
	var out *Settlement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var draw models.Draw
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&draw, drawID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDrawNotFound
			}
			return err
		}
		if draw.IsProcessed() {
			return ErrDrawProcessed
		}

		var tickets []models.Ticket
		if err := tx.Where("draw_id = ? AND status = ?", draw.ID, models.TicketActive).
			Order("id ASC").
			Find(&tickets).Error; err != nil {
			return err
		}

		retailers, err := loadRetailers(tx, tickets)
		if err != nil {
			return err
		}

		settlement, err := decide(draw, tickets, retailers)
		if err != nil {
			return err
		}

		// Race-safe flip: only settle if still pending
		res := tx.Model(&models.Draw{}).
			Where("id = ? AND status = ?", draw.ID, models.DrawPending).
			Updates(map[string]any{
				"winning_spot":     settlement.Result,
				"total_collection": settlement.Collection,
				"total_payout":     settlement.Payout,
				"status":           models.DrawProcessed,
				"processed_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDrawProcessed
		}

		if err := applyCredits(tx, draw.ID, settlement); err != nil {
			return err
		}

		out = settlement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadRetailers(tx *gorm.DB, tickets []models.Ticket) (map[uint]models.Retailer, error) {
	out := map[uint]models.Retailer{}
	if len(tickets) == 0 {
		return out, nil
	}

	seen := map[uint]bool{}
	var ids []uint
	for _, t := range tickets {
		if !seen[t.RetailerID] {
			seen[t.RetailerID] = true
			ids = append(ids, t.RetailerID)
		}
	}

	var retailers []models.Retailer
	if err := tx.Where("id IN ?", ids).Find(&retailers).Error; err != nil {
		return nil, err
	}
	for _, r := range retailers {
		out[r.ID] = r
	}
	return out, nil
}

// applyCredits pays winning tickets. Retailers are locked in ascending id
// order so concurrent balance writers cannot deadlock against settlement.
func applyCredits(tx *gorm.DB, drawID uint, s *Settlement) error {
	byRetailer := map[uint][]Credit{}
	for _, c := range s.Credits {
		byRetailer[c.RetailerID] = append(byRetailer[c.RetailerID], c)
	}
	ids := make([]uint, 0, len(byRetailer))
	for id := range byRetailer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		var retailer models.Retailer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&retailer, id).Error; err != nil {
			return fmt.Errorf("lock retailer %d: %w", id, err)
		}

		for _, c := range byRetailer[id] {
			before := retailer.Balance
			retailer.Balance = retailer.Balance.Add(c.Amount)

			trx := models.RetailerTransaction{
				RetailerID:    retailer.ID,
				TicketID:      c.TicketID,
				DrawID:        drawID,
				TrxType:       models.TrxDrawWin,
				Amount:        c.Amount,
				BalanceBefore: before,
				BalanceAfter:  retailer.Balance,
				Note:          fmt.Sprintf("Draw %d result %s (%d units)", drawID, s.Result, c.Quantity),
				RefID:         s.RefID,
			}
			if err := tx.Create(&trx).Error; err != nil {
				return fmt.Errorf("ledger ticket %d: %w", c.TicketID, err)
			}
		}

		if err := tx.Model(&retailer).Update("balance", retailer.Balance).Error; err != nil {
			return fmt.Errorf("credit retailer %d: %w", id, err)
		}
	}
	return nil
}

func (s *GormStore) ForceResult(ctx context.Context, key DrawKey, result string) (*models.Draw, error) {
	var out models.Draw

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.Draw{
			Mode:    key.Mode,
			Variant: key.Variant,
			EndTime: key.EndTime.UTC(),
			Status:  models.DrawPending,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var draw models.Draw
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("game_mode = ? AND game_type = ? AND end_time = ?", key.Mode, key.Variant, key.EndTime.UTC()).
			First(&draw).Error; err != nil {
			return err
		}
		if draw.IsProcessed() {
			return ErrDrawProcessed
		}

		if err := tx.Model(&draw).Updates(map[string]any{
			"winning_spot": result,
			"overridden":   true,
		}).Error; err != nil {
			return err
		}
		draw.Result = result
		draw.Overridden = true
		out = draw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecentResults lists the latest settled draws of one mode and variant that
// ended at or before now, newest first.
func (s *GormStore) RecentResults(ctx context.Context, mode int, variant models.GameVariant, now time.Time, limit int) ([]models.Draw, error) {
	var draws []models.Draw
	err := s.db.WithContext(ctx).
		Where("game_mode = ? AND game_type = ? AND status = ? AND end_time <= ?", mode, variant, models.DrawProcessed, now.UTC()).
		Order("end_time DESC").
		Limit(limit).
		Find(&draws).Error
	return draws, err
}

// HistoryFilter narrows DrawHistory. Zero fields match everything.
type HistoryFilter struct {
	Mode    int
	Variant models.GameVariant
	Limit   int
}

func (s *GormStore) DrawHistory(ctx context.Context, f HistoryFilter) ([]models.Draw, error) {
	q := s.db.WithContext(ctx).Where("status = ?", models.DrawProcessed)
	if f.Mode > 0 {
		q = q.Where("game_mode = ?", f.Mode)
	}
	if f.Variant != "" {
		q = q.Where("game_type = ?", f.Variant)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var draws []models.Draw
	err := q.Order("end_time DESC").Limit(limit).Find(&draws).Error
	return draws, err
}

func (s *GormStore) Retailer(ctx context.Context, id uint) (*models.Retailer, error) {
	var retailer models.Retailer
	if err := s.db.WithContext(ctx).First(&retailer, id).Error; err != nil {
		return nil, err
	}
	return &retailer, nil
}

// UpdateRetailerRisk replaces a retailer's risk settings. The row is locked so
// the write serialises with settlement credits.
func (s *GormStore) UpdateRetailerRisk(ctx context.Context, id uint, p models.RiskProfile) (*models.Retailer, error) {
	var retailer models.Retailer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&retailer, id).Error; err != nil {
			return err
		}
		retailer.TargetRTP = &p.TargetRTP
		retailer.EngagementChance = &p.EngagementChance
		retailer.BoostMultiplier = &p.BoostMultiplier
		return tx.Model(&retailer).Updates(map[string]any{
			"target_rtp":        p.TargetRTP,
			"engagement_chance": p.EngagementChance,
			"boost_multiplier":  p.BoostMultiplier,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &retailer, nil
}
