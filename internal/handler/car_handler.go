package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carrental/internal/service"
)

// CarHandler serves the fleet.
type CarHandler struct {
	svc service.CarService
}

// NewCarHandler creates a new car handler.
func NewCarHandler(svc service.CarService) *CarHandler {
	return &CarHandler{svc: svc}
}

// CreateCarRequest represents a new car. Available defaults to true.
type CreateCarRequest struct {
	PlateNumber string     `json:"plateNumber" validate:"required"`
	Type        string     `json:"type"`
	Odometer    int        `json:"odometer" validate:"gte=0"`
	Available   *bool      `json:"available"`
	CategoryID  *uuid.UUID `json:"categoryId"`
	Description string     `json:"description"`
}

// UpdateCarCategoryRequest moves a car to another category.
type UpdateCarCategoryRequest struct {
	ID         uuid.UUID `json:"id" validate:"required"`
	CategoryID uuid.UUID `json:"categoryId" validate:"required"`
}

// UpdateCarOdometerRequest records a new odometer reading.
type UpdateCarOdometerRequest struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Odometer int       `json:"odometer" validate:"gte=0"`
}

// UpdateCarAvailableRequest sets the availability flag.
type UpdateCarAvailableRequest struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	Available bool      `json:"available"`
}

// AppendCarDescriptionRequest adds a timestamped note.
type AppendCarDescriptionRequest struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Description string    `json:"description" validate:"required"`
}

// ListCars godoc
// @Summary List cars
// @Tags car
// @Produce json
// @Success 200 {object} Response{data=[]model.CarView}
// @Router /car [get]
func (h *CarHandler) ListCars(c echo.Context) error {
	cars, err := h.svc.ListCars(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "cars", cars)
}

// GetCar godoc
// @Summary Get car by id
// @Tags car
// @Produce json
// @Param id path string true "Car ID"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Router /car/{id} [get]
func (h *CarHandler) GetCar(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	car, err := h.svc.GetCar(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "car", car)
}

// ListCarsByCategory godoc
// @Summary List the cars of a category
// @Tags car
// @Produce json
// @Param categoryId path string true "Category ID"
// @Success 200 {object} Response{data=[]model.CarView}
// @Failure 400 {object} Response
// @Router /car/withCategory/{categoryId} [get]
func (h *CarHandler) ListCarsByCategory(c echo.Context) error {
	id, err := pathID(c, "categoryId")
	if err != nil {
		return err
	}
	cars, err := h.svc.ListCarsByCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "cars", cars)
}

// IsAvailable godoc
// @Summary Check whether a car is free for a date interval
// @Tags car
// @Produce json
// @Param id path string true "Car ID"
// @Param startDate query string true "Start date (YYYY-MM-DD or RFC 3339)"
// @Param endDate query string true "End date (YYYY-MM-DD or RFC 3339)"
// @Success 200 {object} Response{data=bool}
// @Failure 400 {object} Response
// @Router /car/isAvailable/{id} [get]
func (h *CarHandler) IsAvailable(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	start, err := parseDate("startDate", c.QueryParam("startDate"))
	if err != nil {
		return err
	}
	end, err := parseDate("endDate", c.QueryParam("endDate"))
	if err != nil {
		return err
	}

	free, err := h.svc.IsAvailableOnDayInterval(c.Request().Context(), id, start, end)
	if err != nil {
		return err
	}
	return ok(c, "availability", free)
}

// CreateCar godoc
// @Summary Add a car to the fleet
// @Tags car
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCarRequest true "Car"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /car [post]
func (h *CarHandler) CreateCar(c echo.Context) error {
	var req CreateCarRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	car, err := h.svc.CreateCar(c.Request().Context(), service.CreateCarInput{
		PlateNumber: req.PlateNumber,
		Type:        req.Type,
		Odometer:    req.Odometer,
		Available:   available,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return ok(c, "car created", car)
}

// UpdateCarCategory godoc
// @Summary Move a car to another category
// @Tags car
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateCarCategoryRequest true "Category change"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Router /car/category [put]
func (h *CarHandler) UpdateCarCategory(c echo.Context) error {
	var req UpdateCarCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	car, err := h.svc.UpdateCarCategory(c.Request().Context(), req.ID, req.CategoryID)
	if err != nil {
		return err
	}
	return ok(c, "car updated", car)
}

// UpdateCarOdometer godoc
// @Summary Record an odometer reading
// @Tags car
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateCarOdometerRequest true "Odometer"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Router /car/odometer [put]
func (h *CarHandler) UpdateCarOdometer(c echo.Context) error {
	var req UpdateCarOdometerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	car, err := h.svc.UpdateCarOdometer(c.Request().Context(), req.ID, req.Odometer)
	if err != nil {
		return err
	}
	return ok(c, "car updated", car)
}

// UpdateCarAvailable godoc
// @Summary Set the availability flag of a car
// @Tags car
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateCarAvailableRequest true "Availability"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Router /car/available [put]
func (h *CarHandler) UpdateCarAvailable(c echo.Context) error {
	var req UpdateCarAvailableRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	car, err := h.svc.UpdateCarAvailability(c.Request().Context(), req.ID, req.Available)
	if err != nil {
		return err
	}
	return ok(c, "car updated", car)
}

// AppendCarDescription godoc
// @Summary Append a note to a car's description
// @Tags car
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AppendCarDescriptionRequest true "Note"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Router /car/description [put]
func (h *CarHandler) AppendCarDescription(c echo.Context) error {
	var req AppendCarDescriptionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	car, err := h.svc.AppendCarDescription(c.Request().Context(), req.ID, req.Description)
	if err != nil {
		return err
	}
	return ok(c, "car updated", car)
}

// DeleteCar godoc
// @Summary Remove a car from the fleet
// @Tags car
// @Produce json
// @Security BearerAuth
// @Param id path string true "Car ID"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /car/{id} [delete]
func (h *CarHandler) DeleteCar(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCar(c.Request().Context(), id); err != nil {
		return err
	}
	return ok(c, "car deleted", nil)
}

// GetCarRentHistory godoc
// @Summary Rental history of a car
// @Tags car
// @Produce json
// @Security BearerAuth
// @Param id path string true "Car ID"
// @Success 200 {object} Response{data=[]model.CarRentView}
// @Failure 400 {object} Response
// @Router /car/rentHistory/{id} [get]
func (h *CarHandler) GetCarRentHistory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	history, err := h.svc.GetCarRentHistory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "rent history", history)
}
