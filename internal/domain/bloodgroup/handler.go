package bloodgroup

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/platform/metrics"
)

type Handler struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewHandler(logger zerolog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, metrics: m}
}

// RegisterRoutes mounts the read-only compatibility endpoints. They need no
// authentication.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/blood-groups", h.ListCompatibility)
	api.GET("/blood-groups/:label", h.GetCompatibility)
}

func (h *Handler) ListCompatibility(c echo.Context) error {
	return c.JSON(http.StatusOK, Table())
}

// GetCompatibility answers for a single label. "+" must be sent either raw or
// percent-encoded as %2B.
func (h *Handler) GetCompatibility(c echo.Context) error {
	label, err := url.PathUnescape(c.Param("label"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid blood group label")
	}
	entry, ok := Lookup(label)
	h.metrics.ObserveLookup(ok)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown blood group: "+label)
	}
	h.logger.Debug().
		Str("blood_group", label).
		Strs("can_receive_from", entry.CanReceiveFrom.Strings()).
		Strs("can_donate_to", entry.CanDonateTo.Strings()).
		Msg("compatibility lookup")
	return c.JSON(http.StatusOK, entry)
}
