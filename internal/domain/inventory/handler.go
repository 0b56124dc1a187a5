package inventory

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/inventory", auth.RequireAuthenticated())
	read.GET("", h.List)
	read.GET("/compatible/:label", h.Compatible)

	admin := api.Group("/admin/inventory", auth.RequireRole(auth.RoleAdmin))
	admin.PUT("/:label", h.Set)
}

func groupParam(c echo.Context) (bloodgroup.Group, error) {
	label, err := url.PathUnescape(c.Param("label"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid blood group label")
	}
	g, err := bloodgroup.Parse(label)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "unknown blood group: "+label)
	}
	return g, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidUnits):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, bloodgroup.ErrUnknownBloodGroup), errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) List(c echo.Context) error {
	stock, err := h.svc.List(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	total := 0
	for _, st := range stock {
		total += st.UnitsAvailable
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"inventory":   Views(stock),
		"total_units": total,
	})
}

func (h *Handler) Compatible(c echo.Context) error {
	g, err := groupParam(c)
	if err != nil {
		return err
	}
	out, err := h.svc.CompatibleStock(c.Request().Context(), g)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Set(c echo.Context) error {
	g, err := groupParam(c)
	if err != nil {
		return err
	}
	var body struct {
		Units *int `json:"units_available"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Units == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "units_available is required")
	}
	st, err := h.svc.Set(c.Request().Context(), g, *body.Units)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, View(st))
}
