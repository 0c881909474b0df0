package admin

import (
	"context"

	"winzone/helpers"
	"winzone/models"
	"winzone/settlement"

	"github.com/gofiber/fiber/v2"
)

type HistoryStore interface {
	DrawHistory(ctx context.Context, f settlement.HistoryFilter) ([]models.Draw, error)
}

type drawRow struct {
	DrawID          uint   `json:"draw_id"`
	GameMode        int    `json:"game_mode"`
	GameType        string `json:"game_type"`
	WinningSpot     string `json:"winning_spot"`
	Overridden      bool   `json:"overridden"`
	TotalCollection string `json:"total_collection"`
	TotalPayout     string `json:"total_payout"`
	EndTime         string `json:"end_time"`
}

// DrawHistory lists processed draws, newest first, optionally filtered by
// game_mode and game_type.
func DrawHistory(store HistoryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode, ok := helpers.QueryMode(c, 0)
		if !ok {
			return helpers.JSONError(c, "INVALID_GAME_MODE")
		}
		variant, ok := helpers.QueryVariant(c, "")
		if !ok {
			return helpers.JSONError(c, "INVALID_GAME_TYPE")
		}

		draws, err := store.DrawHistory(c.UserContext(), settlement.HistoryFilter{
			Mode:    mode,
			Variant: variant,
			Limit:   c.QueryInt("limit", 100),
		})
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_FETCH_DRAWS")
		}

		rows := make([]drawRow, 0, len(draws))
		for _, d := range draws {
			rows = append(rows, drawRow{
				DrawID:          d.ID,
				GameMode:        d.Mode,
				GameType:        string(d.Variant),
				WinningSpot:     d.Result,
				Overridden:      d.Overridden,
				TotalCollection: d.TotalCollection.StringFixed(2),
				TotalPayout:     d.TotalPayout.StringFixed(2),
				EndTime:         d.EndTime.UTC().Format("2006-01-02 15:04:05"),
			})
		}
		return helpers.JSONSuccess(c, "Draw history retrieved successfully", rows)
	}
}
