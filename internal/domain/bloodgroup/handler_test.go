package bloodgroup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/platform/metrics"
)

func newTestHandler() (*Handler, *metrics.Metrics, *echo.Echo) {
	m := metrics.New(prometheus.NewRegistry())
	return NewHandler(zerolog.Nop(), m), m, echo.New()
}

func TestHandler_ListCompatibility(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/blood-groups", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListCompatibility(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 8 {
		t.Errorf("expected 8 entries, got %d", len(entries))
	}
	if entries[0]["blood_group"] != "A+" {
		t.Errorf("expected first entry A+, got %v", entries[0]["blood_group"])
	}
}

func TestHandler_GetCompatibility(t *testing.T) {
	tests := []struct {
		name  string
		param string
	}{
		{"raw plus", "AB+"},
		{"encoded plus", "AB%2B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m, e := newTestHandler()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("label")
			c.SetParamValues(tt.param)

			if err := h.GetCompatibility(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var body struct {
				BloodGroup     string   `json:"blood_group"`
				CanReceiveFrom []string `json:"can_receive_from"`
				CanDonateTo    []string `json:"can_donate_to"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.BloodGroup != "AB+" {
				t.Errorf("expected AB+, got %s", body.BloodGroup)
			}
			if len(body.CanReceiveFrom) != 8 {
				t.Errorf("expected 8 donors for AB+, got %v", body.CanReceiveFrom)
			}
			if len(body.CanDonateTo) != 1 || body.CanDonateTo[0] != "AB+" {
				t.Errorf("expected [AB+], got %v", body.CanDonateTo)
			}
			if got := testutil.ToFloat64(m.CompatibilityLookups.WithLabelValues("found")); got != 1 {
				t.Errorf("expected 1 found lookup, got %v", got)
			}
		})
	}
}

func TestHandler_GetCompatibility_Unknown(t *testing.T) {
	h, m, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("label")
	c.SetParamValues("X%2B")

	err := h.GetCompatibility(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
	if got := testutil.ToFloat64(m.CompatibilityLookups.WithLabelValues("not_found")); got != 1 {
		t.Errorf("expected 1 not_found lookup, got %v", got)
	}
}
