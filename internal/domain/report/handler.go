package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/donor/dashboard", h.DonorDashboard, auth.RequireRole(auth.RoleDonor))
	api.GET("/patient/dashboard", h.PatientDashboard, auth.RequireRole(auth.RolePatient))

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/dashboard", h.AdminDashboard)
	admin.GET("/reports", h.Summary)
	admin.GET("/reports/export.xlsx", h.Export)
}

func toHTTPError(err error) error {
	if errors.Is(err, ErrInvalidRange) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	d, err := h.svc.AdminDashboard(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DonorDashboard(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.DonorDashboard(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) PatientDashboard(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.PatientDashboard(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Summary(c echo.Context) error {
	from, to, err := h.svc.Range(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return toHTTPError(err)
	}
	sum, err := h.svc.Summary(c.Request().Context(), from, to)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) Export(c echo.Context) error {
	from, to, err := h.svc.Range(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return toHTTPError(err)
	}
	data, filename, err := h.svc.ExportExcel(c.Request().Context(), from, to)
	if err != nil {
		return toHTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
