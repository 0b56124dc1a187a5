package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
)

// -- Mock Repository --

type mockRepo struct {
	mu    sync.Mutex
	units map[bloodgroup.Group]int
}

func newMockRepo(levels map[bloodgroup.Group]int) *mockRepo {
	m := &mockRepo{units: make(map[bloodgroup.Group]int)}
	for _, g := range bloodgroup.All() {
		m.units[g] = levels[g]
	}
	return m
}

func (m *mockRepo) stock(g bloodgroup.Group) *Stock {
	return &Stock{BloodGroup: g, UnitsAvailable: m.units[g], LastUpdated: time.Now()}
}

func (m *mockRepo) List(_ context.Context) ([]*Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Stock
	for _, g := range bloodgroup.All() {
		if _, ok := m.units[g]; ok {
			out = append(out, m.stock(g))
		}
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, g bloodgroup.Group) (*Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[g]; !ok {
		return nil, ErrNotFound
	}
	return m.stock(g), nil
}

func (m *mockRepo) Set(_ context.Context, g bloodgroup.Group, units int) (*Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[g] = units
	return m.stock(g), nil
}

func (m *mockRepo) Adjust(_ context.Context, g bloodgroup.Group, delta int) (*Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.units[g]+delta < 0 {
		return nil, ErrInsufficientStock
	}
	m.units[g] += delta
	return m.stock(g), nil
}

func newTestService(levels map[bloodgroup.Group]int) (*Service, *mockRepo, *metrics.Metrics) {
	repo := newMockRepo(levels)
	m := metrics.New(prometheus.NewRegistry())
	return NewService(repo, m, zerolog.Nop()), repo, m
}

// Stock levels used by the sample data set.
var sampleLevels = map[bloodgroup.Group]int{
	bloodgroup.APos: 25, bloodgroup.ANeg: 15,
	bloodgroup.BPos: 20, bloodgroup.BNeg: 12,
	bloodgroup.ABPos: 8, bloodgroup.ABNeg: 5,
	bloodgroup.OPos: 30, bloodgroup.ONeg: 18,
}

// -- Tests --

func TestStatusFor(t *testing.T) {
	tests := []struct {
		units int
		want  string
	}{
		{0, StatusCritical},
		{9, StatusCritical},
		{10, StatusLow},
		{19, StatusLow},
		{20, StatusGood},
		{500, StatusGood},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.units); got != tt.want {
			t.Errorf("StatusFor(%d) = %s, want %s", tt.units, got, tt.want)
		}
	}
}

func TestList_CanonicalOrderAndGauge(t *testing.T) {
	svc, _, m := newTestService(sampleLevels)
	stock, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stock) != 8 {
		t.Fatalf("expected 8 rows, got %d", len(stock))
	}
	for i, g := range bloodgroup.All() {
		if stock[i].BloodGroup != g {
			t.Errorf("row %d: expected %s, got %s", i, g, stock[i].BloodGroup)
		}
	}
	if got := testutil.ToFloat64(m.InventoryUnits.WithLabelValues("O+")); got != 30 {
		t.Errorf("expected O+ gauge 30, got %v", got)
	}
}

func TestSet(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	ctx := context.Background()

	st, err := svc.Set(ctx, bloodgroup.ABNeg, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.UnitsAvailable != 7 || repo.units[bloodgroup.ABNeg] != 7 {
		t.Errorf("expected 7 units, got %d", st.UnitsAvailable)
	}
	if _, err := svc.Set(ctx, bloodgroup.ABNeg, -1); !errors.Is(err, ErrInvalidUnits) {
		t.Errorf("expected ErrInvalidUnits, got %v", err)
	}
	if _, err := svc.Set(ctx, bloodgroup.Group(0), 1); !errors.Is(err, bloodgroup.ErrUnknownBloodGroup) {
		t.Errorf("expected ErrUnknownBloodGroup, got %v", err)
	}
}

func TestAdjust(t *testing.T) {
	svc, repo, _ := newTestService(map[bloodgroup.Group]int{bloodgroup.BNeg: 2})
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, bloodgroup.BNeg, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Adjust(ctx, bloodgroup.BNeg, -3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Adjust(ctx, bloodgroup.BNeg, -1)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if repo.units[bloodgroup.BNeg] != 0 {
		t.Errorf("failed adjustment must not change stock, got %d", repo.units[bloodgroup.BNeg])
	}
}

func TestAvailableAndTotal(t *testing.T) {
	svc, _, _ := newTestService(map[bloodgroup.Group]int{bloodgroup.APos: 3, bloodgroup.ONeg: 4})
	ctx := context.Background()

	avail, err := svc.Available(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(avail) != 2 || avail[0].BloodGroup != bloodgroup.APos || avail[1].BloodGroup != bloodgroup.ONeg {
		t.Errorf("unexpected available groups: %v", avail)
	}
	if total, _ := svc.Total(ctx); total != 7 {
		t.Errorf("expected total 7, got %d", total)
	}
}

func TestCompatibleStock(t *testing.T) {
	svc, _, _ := newTestService(sampleLevels)
	ctx := context.Background()

	tests := []struct {
		recipient bloodgroup.Group
		sources   []bloodgroup.Group
		total     int
	}{
		{bloodgroup.ONeg, []bloodgroup.Group{bloodgroup.ONeg}, 18},
		{bloodgroup.APos, []bloodgroup.Group{bloodgroup.APos, bloodgroup.ANeg, bloodgroup.OPos, bloodgroup.ONeg}, 25 + 15 + 30 + 18},
		{bloodgroup.ABPos, bloodgroup.All(), 133},
	}

	for _, tt := range tests {
		t.Run(tt.recipient.String(), func(t *testing.T) {
			out, err := svc.CompatibleStock(ctx, tt.recipient)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.TotalUnits != tt.total {
				t.Errorf("expected total %d, got %d", tt.total, out.TotalUnits)
			}
			if len(out.Sources) != len(tt.sources) {
				t.Fatalf("expected %d sources, got %d", len(tt.sources), len(out.Sources))
			}
			for i, g := range tt.sources {
				if out.Sources[i].BloodGroup != g {
					t.Errorf("source %d: expected %s, got %s", i, g, out.Sources[i].BloodGroup)
				}
			}
		})
	}

	if _, err := svc.CompatibleStock(ctx, bloodgroup.Group(42)); !errors.Is(err, bloodgroup.ErrUnknownBloodGroup) {
		t.Errorf("expected ErrUnknownBloodGroup, got %v", err)
	}
}
