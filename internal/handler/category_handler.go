package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carrental/internal/service"
)

// CategoryHandler serves rental categories.
type CategoryHandler struct {
	svc service.CategoryService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(svc service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// CreateCategoryRequest represents a new category.
type CreateCategoryRequest struct {
	Name      string `json:"name" validate:"required"`
	DailyRate int    `json:"dailyRate" validate:"gte=0"`
}

// UpdateCategoryNameRequest renames a category.
type UpdateCategoryNameRequest struct {
	ID   uuid.UUID `json:"id" validate:"required"`
	Name string    `json:"name" validate:"required"`
}

// UpdateCategoryRateRequest changes a category's daily rate.
type UpdateCategoryRateRequest struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	DailyRate int       `json:"dailyRate" validate:"gte=0"`
}

// ListCategories godoc
// @Summary List categories
// @Tags category
// @Produce json
// @Success 200 {object} Response{data=[]model.Category}
// @Router /category [get]
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	categories, err := h.svc.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "categories", categories)
}

// GetCategory godoc
// @Summary Get category by id
// @Tags category
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} Response{data=model.Category}
// @Failure 400 {object} Response
// @Router /category/{id} [get]
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	category, err := h.svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "category", category)
}

// CreateCategory godoc
// @Summary Create category
// @Tags category
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "Category"
// @Success 200 {object} Response{data=model.Category}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /category [post]
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req CreateCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := h.svc.CreateCategory(c.Request().Context(), req.Name, req.DailyRate)
	if err != nil {
		return err
	}
	return ok(c, "category created", category)
}

// UpdateCategoryName godoc
// @Summary Rename category
// @Tags category
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateCategoryNameRequest true "New name"
// @Success 200 {object} Response{data=model.Category}
// @Failure 400 {object} Response
// @Router /category/name [put]
func (h *CategoryHandler) UpdateCategoryName(c echo.Context) error {
	var req UpdateCategoryNameRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := h.svc.UpdateCategoryName(c.Request().Context(), req.ID, req.Name)
	if err != nil {
		return err
	}
	return ok(c, "category updated", category)
}

// UpdateCategoryRate godoc
// @Summary Change category daily rate
// @Tags category
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateCategoryRateRequest true "New rate"
// @Success 200 {object} Response{data=model.Category}
// @Failure 400 {object} Response
// @Router /category/rate [put]
func (h *CategoryHandler) UpdateCategoryRate(c echo.Context) error {
	var req UpdateCategoryRateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := h.svc.UpdateCategoryRate(c.Request().Context(), req.ID, req.DailyRate)
	if err != nil {
		return err
	}
	return ok(c, "category updated", category)
}
