package admin

import (
	"context"
	"errors"
	"strconv"

	"winzone/helpers"
	"winzone/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RetailerStore interface {
	Retailer(ctx context.Context, id uint) (*models.Retailer, error)
	UpdateRetailerRisk(ctx context.Context, id uint, p models.RiskProfile) (*models.Retailer, error)
}

type RetailerSettingsRequest struct {
	TargetRTP        *float64 `json:"target_rtp"`
	EngagementChance *float64 `json:"engagement_chance"`
	BoostMultiplier  *float64 `json:"boost_multiplier"`
}

func retailerView(r *models.Retailer) fiber.Map {
	return fiber.Map{
		"id":        r.ID,
		"username":  r.Username,
		"balance":   r.Balance,
		"is_active": r.IsActive,
		"risk":      r.RiskProfile(),
	}
}

func retailerID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// RetailerInfo returns a retailer's balance and effective risk profile.
func RetailerInfo(store RetailerStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := retailerID(c)
		if !ok {
			return helpers.JSONError(c, "INVALID_RETAILER_ID")
		}

		retailer, err := store.Retailer(c.UserContext(), id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "RETAILER_NOT_FOUND")
		}
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_FETCH_RETAILER")
		}

		return helpers.JSONSuccess(c, "Retailer info retrieved successfully", retailerView(retailer))
	}
}

// UpdateRetailerSettings changes a retailer's risk parameters. Omitted fields
// keep their current effective value.
func UpdateRetailerSettings(store RetailerStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := retailerID(c)
		if !ok {
			return helpers.JSONError(c, "INVALID_RETAILER_ID")
		}

		var req RetailerSettingsRequest
		if err := c.BodyParser(&req); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if req.TargetRTP == nil && req.EngagementChance == nil && req.BoostMultiplier == nil {
			return helpers.JSONError(c, "NO_SETTINGS_GIVEN")
		}
		if req.TargetRTP != nil && (*req.TargetRTP < 0 || *req.TargetRTP > 1000) {
			return helpers.JSONError(c, "INVALID_TARGET_RTP")
		}
		if req.EngagementChance != nil && (*req.EngagementChance < 0 || *req.EngagementChance > 100) {
			return helpers.JSONError(c, "INVALID_ENGAGEMENT_CHANCE")
		}
		if req.BoostMultiplier != nil && *req.BoostMultiplier <= 0 {
			return helpers.JSONError(c, "INVALID_BOOST_MULTIPLIER")
		}

		ctx := c.UserContext()
		current, err := store.Retailer(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "RETAILER_NOT_FOUND")
		}
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_FETCH_RETAILER")
		}

		profile := current.RiskProfile()
		if req.TargetRTP != nil {
			profile.TargetRTP = *req.TargetRTP
		}
		if req.EngagementChance != nil {
			profile.EngagementChance = *req.EngagementChance
		}
		if req.BoostMultiplier != nil {
			profile.BoostMultiplier = *req.BoostMultiplier
		}

		updated, err := store.UpdateRetailerRisk(ctx, id, profile)
		if err != nil {
			return helpers.JSONErrorStatus(c, fiber.StatusInternalServerError, "FAILED_TO_UPDATE_SETTINGS")
		}

		return helpers.JSONSuccess(c, "Retailer settings updated successfully", retailerView(updated))
	}
}
