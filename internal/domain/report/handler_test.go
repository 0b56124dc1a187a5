package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

func withUser(req *http.Request, role string) *http.Request {
	claims := &auth.Claims{Role: role}
	claims.Subject = "3f9a1c52-6a0e-4a77-9d6c-0b2a9b0f4c11"
	return req.WithContext(auth.WithClaims(context.Background(), claims))
}

func TestHandler_Export(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	req := withUser(httptest.NewRequest(http.MethodGet, "/?from=2024-05-01&to=2024-05-31", nil), auth.RoleAdmin)
	if err := h.Export(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxMIME {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "blood_bank_report_") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestHandler_SummaryBadRange(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?from=2024-06-01&to=2024-05-01", nil)
	err := h.Summary(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Dashboards(t *testing.T) {
	env := newTestEnv()
	h := NewHandler(env.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.AdminDashboard(e.NewContext(withUser(httptest.NewRequest(http.MethodGet, "/", nil), auth.RoleAdmin), rec)); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"pending_requests":5`) {
		t.Errorf("unexpected admin dashboard %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.DonorDashboard(e.NewContext(withUser(httptest.NewRequest(http.MethodGet, "/", nil), auth.RoleDonor), rec)); err != nil {
		t.Fatalf("donor: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total_donations":4`) || !strings.Contains(rec.Body.String(), "upcoming_camps") {
		t.Errorf("unexpected donor dashboard %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.PatientDashboard(e.NewContext(withUser(httptest.NewRequest(http.MethodGet, "/", nil), auth.RolePatient), rec)); err != nil {
		t.Fatalf("patient: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"recent_requests"`) {
		t.Errorf("unexpected patient dashboard %s", rec.Body.String())
	}

	err := h.PatientDashboard(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %v", err)
	}
}
