package handler

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"carrental/internal/auth"
	"carrental/internal/errors"
	"carrental/internal/middleware"
)

// Response is the envelope of every API response.
type Response struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Code       string      `json:"code,omitempty"`
	Data       interface{} `json:"data"`
	Date       time.Time   `json:"date"`
}

const dateLayout = "2006-01-02"

func ok(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
		Date:       time.Now().UTC(),
	})
}

// Failure renders err in the envelope. Domain errors go through
// errors.MapErrorToHTTP; echo errors keep their status.
func Failure(c echo.Context, err error) error {
	var (
		status  int
		message string
		code    string
	)
	var httpErr *echo.HTTPError
	if stderrors.As(err, &httpErr) {
		status = httpErr.Code
		message = http.StatusText(status)
		if m, isString := httpErr.Message.(string); isString {
			message = m
		}
		code = echoCode(status)
	} else {
		mapped := errors.MapErrorToHTTP(err)
		status, message, code = mapped.StatusCode, mapped.Message, mapped.Code
	}

	return c.JSON(status, Response{
		StatusCode: status,
		Message:    message,
		Code:       code,
		Date:       time.Now().UTC(),
	})
}

func echoCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return string(errors.KindAuth)
	case http.StatusForbidden:
		return string(errors.KindForbidden)
	case http.StatusNotFound:
		return string(errors.KindNotFound)
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusBadRequest:
		return string(errors.KindValidation)
	}
	return string(errors.KindInternal)
}

// bind decodes and validates the request body.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errors.Validation(err.Error())
	}
	return nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.Validation("invalid " + name)
	}
	return id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Validation(field + " must be YYYY-MM-DD or RFC 3339")
}

func principal(c echo.Context) (*auth.Claims, error) {
	claims, found := middleware.Principal(c)
	if !found {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return claims, nil
}

// authorizeUser lets staff act on anyone and everyone else on themselves.
func authorizeUser(c echo.Context, userID uuid.UUID) error {
	claims, err := principal(c)
	if err != nil {
		return err
	}
	if claims.AccessLevel.IsStaff() || claims.UserID == userID {
		return nil
	}
	return errors.ErrForbidden
}

// renterFor resolves the renter of a new rental: the principal unless a
// staff member names someone else.
func renterFor(c echo.Context, requested string) (uuid.UUID, error) {
	claims, err := principal(c)
	if err != nil {
		return uuid.Nil, err
	}
	if requested == "" {
		return claims.UserID, nil
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, errors.Validation("invalid renterId")
	}
	if id != claims.UserID && !claims.AccessLevel.IsStaff() {
		return uuid.Nil, errors.ErrForbidden
	}
	return id, nil
}
