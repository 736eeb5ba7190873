package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/service"
)

// UserHandler serves user accounts.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateUserRequest changes one profile property.
type UpdateUserRequest struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Property string    `json:"property" validate:"required"`
	Value    string    `json:"value"`
}

// AddUserDataRequest fills profile fields in bulk.
type AddUserDataRequest struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	PhoneNumber string    `json:"phoneNumber"`
	Description string    `json:"description"`
	Override    bool      `json:"override"`
}

// ListUsers godoc
// @Summary List enabled users
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]model.UserView}
// @Failure 403 {object} Response
// @Router /user [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "users", users)
}

// SearchUsers godoc
// @Summary Search enabled users
// @Tags user
// @Produce json
// @Security BearerAuth
// @Param searchTerm query string false "Search term"
// @Success 200 {object} Response{data=[]model.UserView}
// @Router /user/search [get]
func (h *UserHandler) SearchUsers(c echo.Context) error {
	users, err := h.svc.SearchUsers(c.Request().Context(), c.QueryParam("searchTerm"))
	if err != nil {
		return err
	}
	return ok(c, "users", users)
}

// GetUser godoc
// @Summary Get user by id
// @Tags user
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response{data=model.UserView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /user/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := authorizeUser(c, id); err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "user", user)
}

// UpdateUser godoc
// @Summary Change one profile property
// @Description property is one of name, email, address, phoneNumber, description, accessLevel.
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateUserRequest true "Property change"
// @Success 200 {object} Response{data=model.UserView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /user [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := authorizeUser(c, req.ID); err != nil {
		return err
	}

	update, err := service.ParseUserUpdate(req.Property, req.Value)
	if err != nil {
		return err
	}
	if _, changesLevel := update.(service.SetAccessLevel); changesLevel {
		claims, err := principal(c)
		if err != nil {
			return err
		}
		if claims.AccessLevel != model.AccessAdministrator {
			return errors.ErrForbidden
		}
	}

	user, err := h.svc.UpdateUser(c.Request().Context(), req.ID, update)
	if err != nil {
		return err
	}
	return ok(c, "user updated", user)
}

// AddUserData godoc
// @Summary Fill profile fields in bulk
// @Description Empty fields are filled; populated ones change only with override.
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddUserDataRequest true "Profile data"
// @Success 200 {object} Response{data=model.UserView}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /user/data [put]
func (h *UserHandler) AddUserData(c echo.Context) error {
	var req AddUserDataRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := authorizeUser(c, req.ID); err != nil {
		return err
	}

	user, err := h.svc.AddUserData(c.Request().Context(), req.ID, service.UserData{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Description: req.Description,
	}, req.Override)
	if err != nil {
		return err
	}
	return ok(c, "user updated", user)
}

// DeleteUser godoc
// @Summary Disable a user
// @Tags user
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /user/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return ok(c, "user deleted", nil)
}
