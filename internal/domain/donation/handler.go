package donation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/domain/account"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/dates"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	donor := api.Group("/donor", auth.RequireRole(auth.RoleDonor))
	donor.GET("/eligibility", h.Eligibility)
	donor.GET("/donations", h.History)
	donor.POST("/donations", h.Donate)
}

func toHTTPError(err error) error {
	var notEligible *NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"message":        notEligible.Error(),
			"days_remaining": notEligible.DaysRemaining,
			"next_eligible":  notEligible.NextEligible.Format(dates.ISO),
		})
	case errors.Is(err, ErrNoBloodGroup):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func donorID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

func (h *Handler) Eligibility(c echo.Context) error {
	id, err := donorID(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Eligibility(c.Request().Context(), id, dates.Today())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) History(c echo.Context) error {
	id, err := donorID(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Donate(c echo.Context) error {
	id, err := donorID(c)
	if err != nil {
		return err
	}
	var in DonateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Donate(c.Request().Context(), id, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, d)
}
