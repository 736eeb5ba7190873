package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"carrental/internal/errors"
	"carrental/internal/seed"
)

// CacheInvalidator drops a cached collection.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	seeder *seed.Seeder
	caches []CacheInvalidator
}

// NewSeedHandler creates a new seed handler. caches are invalidated after
// every seed that wrote something.
func NewSeedHandler(seeder *seed.Seeder, caches ...CacheInvalidator) *SeedHandler {
	return &SeedHandler{seeder: seeder, caches: caches}
}

// Seed godoc
// @Summary Load fixture data
// @Description Existing category names, plates and emails are skipped.
// @Tags seed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body seed.Fixture true "Fixture"
// @Success 200 {object} Response{data=seed.Result}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /seed [post]
func (h *SeedHandler) Seed(c echo.Context) error {
	var fixture seed.Fixture
	if err := c.Bind(&fixture); err != nil {
		return errors.Validation("invalid request body")
	}

	ctx := c.Request().Context()
	result, err := h.seeder.Apply(ctx, &fixture)
	if err != nil {
		return err
	}
	if result.Changed() {
		for _, cache := range h.caches {
			cache.InvalidateCache(ctx)
		}
	}
	return ok(c, "seed applied", result)
}
