package bloodrequest

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("/patient", auth.RequireRole(auth.RolePatient))
	patient.GET("/requests", h.ListMine)
	patient.POST("/requests", h.Submit)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/requests", h.ListAll)
	admin.GET("/requests/:id", h.Get)
	admin.POST("/requests/:id/approve", h.Approve)
	admin.POST("/requests/:id/reject", h.Reject)
	admin.POST("/requests/:id/fulfill", h.Fulfill)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, inventory.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

func requestID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	return id, nil
}

func (h *Handler) Submit(c echo.Context) error {
	patientID, err := callerID(c)
	if err != nil {
		return err
	}
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := h.svc.Submit(c.Request().Context(), patientID, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, q)
}

func (h *Handler) ListMine(c echo.Context) error {
	patientID, err := callerID(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) ListAll(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	q, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	adminID, _ := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	q, err := h.svc.Approve(c.Request().Context(), id, adminID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q)
}

type rejectBody struct {
	Notes string `json:"notes"`
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	var body rejectBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	adminID, _ := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	q, err := h.svc.Reject(c.Request().Context(), id, adminID, body.Notes)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) Fulfill(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	q, err := h.svc.Fulfill(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, q)
}
