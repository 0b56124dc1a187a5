package bloodrequest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
	"github.com/bloodbank/bloodbank/internal/platform/websocket"
)

// -- Mocks --

type mockRepo struct {
	items map[uuid.UUID]*Request
	order []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Request)}
}

func (m *mockRepo) Create(_ context.Context, q *Request) error {
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.items[q.ID] = q
	m.order = append(m.order, q.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	q, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *mockRepo) Transition(_ context.Context, id uuid.UUID, d Decision) (*Request, error) {
	q, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if q.Status != d.From {
		return nil, ErrInvalidTransition
	}
	q.Status = d.To
	if d.To == StatusApproved || d.To == StatusRejected {
		if d.ApprovedBy != uuid.Nil {
			by := d.ApprovedBy
			q.ApprovedBy = &by
		}
		at := d.At
		q.ApprovedAt = &at
	}
	if d.Notes != "" {
		notes := d.Notes
		q.Notes = &notes
	}
	cp := *q
	return &cp, nil
}

func (m *mockRepo) filter(keep func(*Request) bool, limit, offset int) ([]*Request, int, error) {
	var out []*Request
	for i := len(m.order) - 1; i >= 0; i-- {
		if q := m.items[m.order[i]]; keep(q) {
			out = append(out, q)
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockRepo) ListForPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return m.filter(func(q *Request) bool { return q.PatientID == patientID }, limit, offset)
}

func (m *mockRepo) ListAll(_ context.Context, status string, limit, offset int) ([]*Request, int, error) {
	return m.filter(func(q *Request) bool { return status == "" || q.Status == status }, limit, offset)
}

func (m *mockRepo) CountsForPatient(_ context.Context, patientID uuid.UUID) (*Counts, error) {
	var c Counts
	for _, q := range m.items {
		if q.PatientID != patientID {
			continue
		}
		c.Total++
		switch q.Status {
		case StatusPending:
			c.Pending++
		case StatusApproved:
			c.Approved++
		case StatusRejected:
			c.Rejected++
		case StatusFulfilled:
			c.Fulfilled++
		}
	}
	return &c, nil
}

func (m *mockRepo) CountByStatus(_ context.Context, status string) (int, error) {
	n := 0
	for _, q := range m.items {
		if q.Status == status {
			n++
		}
	}
	return n, nil
}

// fakeStock mirrors the conditional decrement of the real inventory.
type fakeStock struct {
	units     map[bloodgroup.Group]int
	announced []*inventory.Stock
	calls     int
}

func (f *fakeStock) Adjust(_ context.Context, g bloodgroup.Group, delta int) (*inventory.Stock, error) {
	f.calls++
	if f.units[g]+delta < 0 {
		return nil, inventory.ErrInsufficientStock
	}
	f.units[g] += delta
	return &inventory.Stock{BloodGroup: g, UnitsAvailable: f.units[g]}, nil
}

func (f *fakeStock) Announce(_ context.Context, st *inventory.Stock) {
	f.announced = append(f.announced, st)
}

type testEnv struct {
	svc     *Service
	repo    *mockRepo
	stock   *fakeStock
	metrics *metrics.Metrics
	patient uuid.UUID
	admin   uuid.UUID
	today   time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo: newMockRepo(),
		stock: &fakeStock{units: map[bloodgroup.Group]int{
			bloodgroup.APos: 25, bloodgroup.ONeg: 18, bloodgroup.ABNeg: 5,
		}},
		metrics: metrics.New(prometheus.NewRegistry()),
		patient: uuid.New(),
		admin:   uuid.New(),
		today:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	env.svc = NewService(env.repo, env.stock, db.NoTx{}, env.metrics, zerolog.Nop())
	env.svc.now = func() time.Time { return env.today.Add(9 * time.Hour) }
	return env
}

func (env *testEnv) submit(t *testing.T, g bloodgroup.Group, units int) *Request {
	t.Helper()
	q, err := env.svc.Submit(context.Background(), env.patient, SubmitInput{BloodGroup: g, UnitsRequired: units})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return q
}

// -- Tests --

func TestSubmit_Defaults(t *testing.T) {
	env := newTestEnv(t)
	q, err := env.svc.Submit(context.Background(), env.patient, SubmitInput{
		BloodGroup:    bloodgroup.APos,
		UnitsRequired: 2,
		Reason:        "  surgery ",
		RequiredBy:    "2024-06-08",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Status != StatusPending || q.Urgency != UrgencyNormal {
		t.Errorf("expected pending/normal, got %s/%s", q.Status, q.Urgency)
	}
	if !q.RequestDate.Equal(env.today) {
		t.Errorf("expected request date %v, got %v", env.today, q.RequestDate)
	}
	if q.Reason == nil || *q.Reason != "surgery" {
		t.Errorf("expected trimmed reason, got %v", q.Reason)
	}
	if q.RequiredBy == nil || !q.RequiredBy.Equal(env.today.AddDate(0, 0, 7)) {
		t.Errorf("unexpected required_by %v", q.RequiredBy)
	}
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SubmitInput
	}{
		{"no group", SubmitInput{UnitsRequired: 1}},
		{"zero units", SubmitInput{BloodGroup: bloodgroup.APos}},
		{"negative units", SubmitInput{BloodGroup: bloodgroup.APos, UnitsRequired: -2}},
		{"bad urgency", SubmitInput{BloodGroup: bloodgroup.APos, UnitsRequired: 1, Urgency: "asap"}},
		{"bad date", SubmitInput{BloodGroup: bloodgroup.APos, UnitsRequired: 1, RequiredBy: "06/08/2024"}},
		{"past date", SubmitInput{BloodGroup: bloodgroup.APos, UnitsRequired: 1, RequiredBy: "2024-05-31"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if _, err := env.svc.Submit(context.Background(), env.patient, tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if len(env.repo.items) != 0 {
				t.Error("expected nothing stored")
			}
		})
	}
}

func TestSubmit_UrgencyCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	q, err := env.svc.Submit(context.Background(), env.patient, SubmitInput{
		BloodGroup: bloodgroup.ONeg, UnitsRequired: 1, Urgency: "URGENT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Urgency != UrgencyUrgent {
		t.Errorf("expected urgent, got %s", q.Urgency)
	}
}

func TestApprove_DeductsExactGroup(t *testing.T) {
	env := newTestEnv(t)
	q := env.submit(t, bloodgroup.APos, 3)

	out, err := env.svc.Approve(context.Background(), q.ID, env.admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusApproved {
		t.Errorf("expected approved, got %s", out.Status)
	}
	if out.ApprovedBy == nil || *out.ApprovedBy != env.admin || out.ApprovedAt == nil {
		t.Errorf("expected approver recorded, got %v/%v", out.ApprovedBy, out.ApprovedAt)
	}
	if env.stock.units[bloodgroup.APos] != 22 {
		t.Errorf("expected A+ stock 22, got %d", env.stock.units[bloodgroup.APos])
	}
	if env.stock.units[bloodgroup.ONeg] != 18 {
		t.Errorf("expected compatible groups untouched, O- = %d", env.stock.units[bloodgroup.ONeg])
	}
	if got := testutil.ToFloat64(env.metrics.RequestDecisions.WithLabelValues(StatusApproved)); got != 1 {
		t.Errorf("expected 1 approval metric, got %v", got)
	}
}

func TestApprove_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	q := env.submit(t, bloodgroup.ABNeg, 6)

	_, err := env.svc.Approve(context.Background(), q.ID, env.admin)
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	stored, _ := env.repo.GetByID(context.Background(), q.ID)
	if stored.Status != StatusPending {
		t.Errorf("expected request to stay pending, got %s", stored.Status)
	}
	if env.stock.units[bloodgroup.ABNeg] != 5 {
		t.Errorf("expected stock unchanged, got %d", env.stock.units[bloodgroup.ABNeg])
	}
	if len(env.stock.announced) != 0 {
		t.Error("a failed approval must not announce stock")
	}
}

func TestApprove_NotPending(t *testing.T) {
	env := newTestEnv(t)
	q := env.submit(t, bloodgroup.APos, 1)
	if _, err := env.svc.Reject(context.Background(), q.ID, env.admin, "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	_, err := env.svc.Approve(context.Background(), q.ID, env.admin)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if env.stock.calls != 0 {
		t.Error("expected no stock movement")
	}
}

func TestApprove_NotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Approve(context.Background(), uuid.New(), env.admin); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApprove_AnonymousApprover(t *testing.T) {
	env := newTestEnv(t)
	q := env.submit(t, bloodgroup.APos, 1)
	out, err := env.svc.Approve(context.Background(), q.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ApprovedBy != nil {
		t.Errorf("expected no approver for nil id, got %v", out.ApprovedBy)
	}
}

func TestReject(t *testing.T) {
	env := newTestEnv(t)
	q := env.submit(t, bloodgroup.APos, 1)

	out, err := env.svc.Reject(context.Background(), q.ID, env.admin, " Insufficient blood available at the time ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", out.Status)
	}
	if out.Notes == nil || *out.Notes != "Insufficient blood available at the time" {
		t.Errorf("unexpected notes %v", out.Notes)
	}
	if env.stock.calls != 0 {
		t.Error("expected rejection to leave stock alone")
	}
	if _, err := env.svc.Reject(context.Background(), q.ID, env.admin, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected second rejection to fail, got %v", err)
	}
}

func TestFulfill(t *testing.T) {
	env := newTestEnv(t)
	q := env.submit(t, bloodgroup.APos, 1)

	if _, err := env.svc.Fulfill(context.Background(), q.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected pending request to be unfulfillable, got %v", err)
	}
	if _, err := env.svc.Approve(context.Background(), q.ID, env.admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	out, err := env.svc.Fulfill(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusFulfilled {
		t.Errorf("expected fulfilled, got %s", out.Status)
	}
	if out.ApprovedBy == nil || *out.ApprovedBy != env.admin {
		t.Error("expected fulfilment to keep the approver")
	}
}

func TestCountsAndPending(t *testing.T) {
	env := newTestEnv(t)
	a := env.submit(t, bloodgroup.APos, 1)
	b := env.submit(t, bloodgroup.APos, 1)
	env.submit(t, bloodgroup.ONeg, 1)
	env.svc.Approve(context.Background(), a.ID, env.admin)
	env.svc.Reject(context.Background(), b.ID, env.admin, "")
	env.svc.Submit(context.Background(), uuid.New(), SubmitInput{BloodGroup: bloodgroup.APos, UnitsRequired: 1})

	c, err := env.svc.CountsForPatient(context.Background(), env.patient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Counts{Total: 3, Pending: 1, Approved: 1, Rejected: 1}
	if *c != want {
		t.Errorf("expected %+v, got %+v", want, *c)
	}

	pending, _ := env.svc.PendingCount(context.Background())
	if pending != 2 {
		t.Errorf("expected 2 pending across patients, got %d", pending)
	}
}

func TestListAll_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	a := env.submit(t, bloodgroup.APos, 1)
	env.submit(t, bloodgroup.APos, 1)
	env.svc.Approve(context.Background(), a.ID, env.admin)

	items, total, err := env.svc.ListAll(context.Background(), StatusApproved, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].ID != a.ID {
		t.Errorf("expected only the approved request, got %d", total)
	}

	_, total, _ = env.svc.ListAll(context.Background(), "", 20, 0)
	if total != 2 {
		t.Errorf("expected 2 without filter, got %d", total)
	}

	if _, _, err := env.svc.ListAll(context.Background(), "lost", 20, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestListForPatient_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	first := env.submit(t, bloodgroup.APos, 1)
	second := env.submit(t, bloodgroup.ONeg, 2)

	items, total, _ := env.svc.ListForPatient(context.Background(), env.patient, 20, 0)
	if total != 2 {
		t.Fatalf("expected 2, got %d", total)
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Error("expected newest request first")
	}
}

func TestRecord(t *testing.T) {
	env := newTestEnv(t)
	q := &Request{PatientID: env.patient, BloodGroup: bloodgroup.BNeg, UnitsRequired: 2, Status: StatusRejected, RequestDate: env.today}
	if err := env.svc.Record(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Urgency != UrgencyNormal || q.ID == uuid.Nil {
		t.Errorf("expected defaults applied, got %+v", q)
	}
	if err := env.svc.Record(context.Background(), &Request{BloodGroup: bloodgroup.BNeg, UnitsRequired: 1, Status: "lost"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if env.stock.calls != 0 {
		t.Error("expected record to leave stock alone")
	}
}

type published struct {
	topic, eventType string
	payload          interface{}
}

type recordingPublisher struct{ events []published }

func (r *recordingPublisher) Publish(_ context.Context, topic, eventType string, payload interface{}) error {
	r.events = append(r.events, published{topic, eventType, payload})
	return nil
}

func TestLifecyclePublishesEvents(t *testing.T) {
	env := newTestEnv(t)
	pub := &recordingPublisher{}
	env.svc.SetPublisher(pub)
	ctx := context.Background()

	q := env.submit(t, bloodgroup.APos, 2)
	if _, err := env.svc.Approve(ctx, q.ID, env.admin); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Fulfill(ctx, q.ID); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	want := []string{EventSubmitted, EventDecided, EventDecided}
	if len(pub.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pub.events))
	}
	for i, ev := range pub.events {
		if ev.eventType != want[i] || ev.topic != websocket.TopicRequests {
			t.Errorf("event %d: got %s on %s", i, ev.eventType, ev.topic)
		}
	}
	if last := pub.events[2].payload.(*Request); last.Status != StatusFulfilled {
		t.Errorf("expected fulfilled payload, got %s", last.Status)
	}

	if len(env.stock.announced) != 1 || env.stock.announced[0].UnitsAvailable != 23 {
		t.Errorf("expected one announcement of 23 A+ units, got %v", env.stock.announced)
	}
}
