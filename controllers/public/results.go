package public

import (
	"context"
	"time"

	"winzone/helpers"
	"winzone/models"

	"github.com/gofiber/fiber/v2"
)

// ResultsLimit is how many published results the board shows.
const ResultsLimit = 7

type ResultStore interface {
	RecentResults(ctx context.Context, mode int, variant models.GameVariant, now time.Time, limit int) ([]models.Draw, error)
}

type result struct {
	DrawID      uint   `json:"draw_id"`
	WinningSpot string `json:"winning_spot"`
	EndTime     string `json:"end_time"`
}

// Results serves the latest published results of a mode and variant.
// Defaults: game_mode 5, game_type classic.
func Results(store ResultStore, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode, ok := helpers.QueryMode(c, 5)
		if !ok {
			return helpers.JSONError(c, "INVALID_GAME_MODE")
		}
		variant, ok := helpers.QueryVariant(c, models.VariantClassic)
		if !ok {
			return helpers.JSONError(c, "INVALID_GAME_TYPE")
		}

		draws, err := store.RecentResults(c.UserContext(), mode, variant, now(), ResultsLimit)
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_FETCH_RESULTS")
		}

		out := make([]result, 0, len(draws))
		for _, d := range draws {
			out = append(out, result{
				DrawID:      d.ID,
				WinningSpot: d.Result,
				EndTime:     d.EndTime.UTC().Format("2006-01-02 15:04:05"),
			})
		}
		return helpers.JSONSuccess(c, "Results retrieved successfully", out)
	}
}
