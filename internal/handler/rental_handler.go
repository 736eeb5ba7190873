package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/service"
)

// RentalHandler serves bookings.
type RentalHandler struct {
	svc service.RentalService
}

// NewRentalHandler creates a new rental handler.
func NewRentalHandler(svc service.RentalService) *RentalHandler {
	return &RentalHandler{svc: svc}
}

// CreateRentalRequest opens a rental without a car binding.
// RenterID defaults to the caller.
type CreateRentalRequest struct {
	RenterID string `json:"renterId"`
	Owed     int    `json:"owed" validate:"gte=0"`
}

// CreateRentalWithDetailsRequest books a car for a date interval.
type CreateRentalWithDetailsRequest struct {
	RenterID  string    `json:"renterId"`
	CarID     uuid.UUID `json:"carId" validate:"required"`
	StartDate string    `json:"startDate" validate:"required"`
	EndDate   string    `json:"endDate" validate:"required"`
}

// UpdateRentalStatusRequest moves a rental through its lifecycle.
// Status is a name (Request, InProcess, Returned, Cancelled) or its code 1-4.
type UpdateRentalStatusRequest struct {
	ID     uuid.UUID `json:"id" validate:"required"`
	Status string    `json:"status" validate:"required"`
}

// ListRentals godoc
// @Summary List rentals, newest first
// @Tags rental
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]model.RentView}
// @Failure 403 {object} Response
// @Router /rental [get]
func (h *RentalHandler) ListRentals(c echo.Context) error {
	rentals, err := h.svc.ListRentals(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "rentals", rentals)
}

// SearchRentals godoc
// @Summary Search rentals by id, renter, status or date
// @Tags rental
// @Produce json
// @Security BearerAuth
// @Param searchTerm query string false "Search term"
// @Success 200 {object} Response{data=[]model.RentView}
// @Router /rental/search [get]
func (h *RentalHandler) SearchRentals(c echo.Context) error {
	rentals, err := h.svc.SearchRentals(c.Request().Context(), c.QueryParam("searchTerm"))
	if err != nil {
		return err
	}
	return ok(c, "rentals", rentals)
}

// ownedRental loads the rental at path parameter id and checks the caller may
// see it. Non-staff callers get ErrForbidden both for someone else's rental and
// for an unknown id, so they cannot learn which rental ids exist.
func (h *RentalHandler) ownedRental(c echo.Context) (*model.RentView, error) {
	claims, err := principal(c)
	if err != nil {
		return nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	rental, err := h.svc.GetRental(c.Request().Context(), id)
	if err != nil {
		if !claims.AccessLevel.IsStaff() && errors.Is(err, errors.ErrRentalNotFound) {
			return nil, errors.ErrForbidden
		}
		return nil, err
	}
	if err := authorizeUser(c, rental.RenterID); err != nil {
		return nil, err
	}
	return rental, nil
}

// GetRental godoc
// @Summary Get rental by id
// @Tags rental
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rental ID"
// @Success 200 {object} Response{data=model.RentView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /rental/{id} [get]
func (h *RentalHandler) GetRental(c echo.Context) error {
	rental, err := h.ownedRental(c)
	if err != nil {
		return err
	}
	return ok(c, "rental", rental)
}

// GetCarForRental godoc
// @Summary Car bound to a rental
// @Tags rental
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rental ID"
// @Success 200 {object} Response{data=model.CarView}
// @Failure 400 {object} Response
// @Router /rental/{id}/car [get]
func (h *RentalHandler) GetCarForRental(c echo.Context) error {
	rental, err := h.ownedRental(c)
	if err != nil {
		return err
	}
	car, err := h.svc.GetCarForRental(c.Request().Context(), rental.ID)
	if err != nil {
		return err
	}
	return ok(c, "car", car)
}

// GetInvoice godoc
// @Summary Invoice details of a rental
// @Description data is null when the rental has no car binding.
// @Tags rental
// @Produce json
// @Security BearerAuth
// @Param id path string true "Rental ID"
// @Success 200 {object} Response{data=model.CarRentView}
// @Failure 400 {object} Response
// @Router /rental/invoice/{id} [get]
func (h *RentalHandler) GetInvoice(c echo.Context) error {
	rental, err := h.ownedRental(c)
	if err != nil {
		return err
	}
	details, err := h.svc.GetRentalDetailsForInvoice(c.Request().Context(), rental.ID)
	if err != nil {
		return err
	}
	if details == nil {
		return ok(c, "rental has no car", nil)
	}
	return ok(c, "invoice", details)
}

// GetUserRentals godoc
// @Summary Rentals of one renter
// @Tags rental
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} Response{data=[]model.RentView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /rental/user/{userId} [get]
func (h *RentalHandler) GetUserRentals(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	if err := authorizeUser(c, userID); err != nil {
		return err
	}
	rentals, err := h.svc.GetUserRentals(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return ok(c, "rentals", rentals)
}

// CreateRental godoc
// @Summary Open a rental without a car
// @Tags rental
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRentalRequest true "Rental"
// @Success 200 {object} Response{data=model.RentView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /rental [post]
func (h *RentalHandler) CreateRental(c echo.Context) error {
	var req CreateRentalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	renterID, err := renterFor(c, req.RenterID)
	if err != nil {
		return err
	}
	rental, err := h.svc.CreateRental(c.Request().Context(), renterID, req.Owed)
	if err != nil {
		return err
	}
	return ok(c, "rental created", rental)
}

// CreateRentalWithDetails godoc
// @Summary Book a car for a date interval
// @Tags rental
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRentalWithDetailsRequest true "Booking"
// @Success 200 {object} Response{data=model.CarRentView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /rental/withDetails [post]
func (h *RentalHandler) CreateRentalWithDetails(c echo.Context) error {
	var req CreateRentalWithDetailsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	renterID, err := renterFor(c, req.RenterID)
	if err != nil {
		return err
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return err
	}

	booking, err := h.svc.CreateRentalWithDetails(c.Request().Context(), renterID, req.CarID, start, end)
	if err != nil {
		return err
	}
	return ok(c, "rental created", booking)
}

// UpdateRentalStatus godoc
// @Summary Change the status of a rental
// @Tags rental
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateRentalStatusRequest true "Status change"
// @Success 200 {object} Response{data=model.RentView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /rental/status [put]
func (h *RentalHandler) UpdateRentalStatus(c echo.Context) error {
	var req UpdateRentalStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, valid := model.ParseRentStatus(req.Status)
	if !valid {
		return errors.Validation("unknown rental status " + req.Status)
	}
	rental, err := h.svc.UpdateRentalStatus(c.Request().Context(), req.ID, status)
	if err != nil {
		return err
	}
	return ok(c, "rental updated", rental)
}
