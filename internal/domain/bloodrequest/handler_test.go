package bloodrequest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
)

func asUser(method, body, userID, role string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	claims := &auth.Claims{Role: role}
	claims.Subject = userID
	return req.WithContext(auth.WithClaims(context.Background(), claims))
}

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError %d, got %v", code, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func TestHandler_Submit(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	body := `{"blood_group":"O-","units_required":2,"urgency":"urgent","reason":"accident"}`
	c := e.NewContext(asUser(http.MethodPost, body, env.patient.String(), auth.RolePatient), rec)
	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var q Request
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.BloodGroup != bloodgroup.ONeg || q.Status != StatusPending || q.PatientID != env.patient {
		t.Errorf("unexpected request %+v", q)
	}

	c = e.NewContext(asUser(http.MethodPost, `{"blood_group":"O-","units_required":0}`, env.patient.String(), auth.RolePatient), httptest.NewRecorder())
	expectCode(t, h.Submit(c), http.StatusBadRequest)

	c = e.NewContext(asUser(http.MethodPost, `{"blood_group":"Z+","units_required":1}`, env.patient.String(), auth.RolePatient), httptest.NewRecorder())
	expectCode(t, h.Submit(c), http.StatusBadRequest)
}

func TestHandler_ApproveFlow(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	e := echo.New()
	q := env.submit(t, bloodgroup.ABNeg, 4)

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(http.MethodPost, "", env.admin.String(), auth.RoleAdmin), rec)
	c.SetParamNames("id")
	c.SetParamValues(q.ID.String())
	if err := h.Approve(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"approved"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(asUser(http.MethodPost, "", env.admin.String(), auth.RoleAdmin), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(q.ID.String())
	expectCode(t, h.Approve(c), http.StatusConflict)

	rec = httptest.NewRecorder()
	c = e.NewContext(asUser(http.MethodPost, "", env.admin.String(), auth.RoleAdmin), rec)
	c.SetParamNames("id")
	c.SetParamValues(q.ID.String())
	if err := h.Fulfill(c); err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"fulfilled"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_ApproveInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	e := echo.New()
	q := env.submit(t, bloodgroup.ABNeg, 9)

	c := e.NewContext(asUser(http.MethodPost, "", env.admin.String(), auth.RoleAdmin), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(q.ID.String())
	expectCode(t, h.Approve(c), http.StatusConflict)
}

func TestHandler_Reject(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	e := echo.New()
	q := env.submit(t, bloodgroup.APos, 1)

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(http.MethodPost, `{"notes":"expired sample"}`, env.admin.String(), auth.RoleAdmin), rec)
	c.SetParamNames("id")
	c.SetParamValues(q.ID.String())
	if err := h.Reject(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"notes":"expired sample"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_BadAndUnknownID(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	e := echo.New()

	c := e.NewContext(asUser(http.MethodGet, "", env.admin.String(), auth.RoleAdmin), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectCode(t, h.Get(c), http.StatusBadRequest)

	c = e.NewContext(asUser(http.MethodGet, "", env.admin.String(), auth.RoleAdmin), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("7b0e8f3c-2c4d-4c55-9a51-0c6f4b1f2d3e")
	expectCode(t, h.Get(c), http.StatusNotFound)
}

func TestHandler_Lists(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(env.svc)
	e := echo.New()
	env.submit(t, bloodgroup.APos, 1)
	env.submit(t, bloodgroup.ONeg, 1)

	rec := httptest.NewRecorder()
	if err := h.ListMine(e.NewContext(asUser(http.MethodGet, "", env.patient.String(), auth.RolePatient), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":2`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	req := asUser(http.MethodGet, "", env.admin.String(), auth.RoleAdmin)
	req.URL.RawQuery = "status=approved"
	rec = httptest.NewRecorder()
	if err := h.ListAll(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("expected no approved requests, got %s", rec.Body.String())
	}

	req = asUser(http.MethodGet, "", env.admin.String(), auth.RoleAdmin)
	req.URL.RawQuery = "status=bogus"
	expectCode(t, h.ListAll(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)
}
