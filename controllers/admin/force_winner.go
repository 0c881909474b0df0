package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"winzone/helpers"
	"winzone/models"
	"winzone/settlement"

	"github.com/gofiber/fiber/v2"
)

// Overrider forces the published result of a pending draw.
type Overrider interface {
	Override(ctx context.Context, mode int, variant models.GameVariant, endTime time.Time, result string) (*models.Draw, error)
}

type ForceWinnerRequest struct {
	Spot     string     `json:"spot"`
	GameMode int        `json:"game_mode"`
	GameType string     `json:"game_type"`
	EndTime  *time.Time `json:"end_time"`
}

// ForceWinner sets the result of the next draw of a mode, or of the draw
// ending at end_time when given.
func ForceWinner(svc Overrider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ForceWinnerRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}

		if req.Spot == "" {
			return helpers.JSONError(c, "SPOT_REQUIRED")
		}
		if req.GameMode == 0 {
			req.GameMode = 5
		}
		if req.GameMode < 0 {
			return helpers.JSONError(c, "INVALID_GAME_MODE")
		}
		variant := models.VariantClassic
		if req.GameType != "" {
			v, err := models.ParseVariant(req.GameType)
			if err != nil {
				return helpers.JSONError(c, "INVALID_GAME_TYPE")
			}
			variant = v
		}

		var endTime time.Time
		if req.EndTime != nil {
			endTime = *req.EndTime
		}

		draw, err := svc.Override(c.UserContext(), req.GameMode, variant, endTime, req.Spot)
		switch {
		case errors.Is(err, settlement.ErrDrawProcessed):
			return helpers.JSONErrorStatus(c, fiber.StatusConflict, "DRAW_ALREADY_PROCESSED")
		case errors.Is(err, settlement.ErrUnknownMode):
			return helpers.JSONError(c, "INVALID_GAME_MODE")
		case errors.Is(err, settlement.ErrInvalidResult):
			return helpers.JSONError(c, "INVALID_SPOT")
		case errors.Is(err, settlement.ErrInvalidSlot):
			return helpers.JSONError(c, "INVALID_END_TIME")
		case err != nil:
			return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_FORCE_RESULT")
		}

		end := draw.EndTime.UTC().Format(time.RFC3339)
		return helpers.JSONSuccess(c, fmt.Sprintf("Next result set to %s for %s", req.Spot, end), fiber.Map{
			"draw_id":      draw.ID,
			"game_mode":    draw.Mode,
			"game_type":    draw.Variant,
			"end_time":     end,
			"winning_spot": draw.Result,
		})
	}
}
