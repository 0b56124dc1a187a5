package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/bloodrequest"
	"github.com/bloodbank/bloodbank/internal/domain/camp"
	"github.com/bloodbank/bloodbank/internal/domain/donation"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/auth"
	"github.com/bloodbank/bloodbank/pkg/dates"
)

type StockReader interface {
	List(ctx context.Context) ([]*inventory.Stock, error)
}

type AccountCounter interface {
	CountActive(ctx context.Context, role string) (int, error)
}

type DonationReader interface {
	Recent(ctx context.Context, limit int) ([]*donation.Donation, error)
	Stats(ctx context.Context, donorID uuid.UUID, today time.Time) (*donation.Stats, error)
}

type RequestReader interface {
	PendingCount(ctx context.Context) (int, error)
	CountsForPatient(ctx context.Context, patientID uuid.UUID) (*bloodrequest.Counts, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*bloodrequest.Request, int, error)
}

type CampReader interface {
	Upcoming(ctx context.Context, today time.Time, limit int) ([]*camp.Camp, error)
}

// Sources are the domain services the reports read from.
type Sources struct {
	Stock     StockReader
	Accounts  AccountCounter
	Donations DonationReader
	Requests  RequestReader
	Camps     CampReader
}

type Service struct {
	repo       Repository
	src        Sources
	logger     zerolog.Logger
	windowDays int
	now        func() time.Time
}

func NewService(repo Repository, src Sources, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		src:        src,
		logger:     logger,
		windowDays: DefaultWindowDays,
		now:        time.Now,
	}
}

// SetWindowDays overrides the default report window.
func (s *Service) SetWindowDays(days int) {
	if days > 0 {
		s.windowDays = days
	}
}

// Range resolves an optional from/to pair. Missing ends default to the
// last windowDays days up to today.
func (s *Service) Range(from, to string) (time.Time, time.Time, error) {
	end := dates.Truncate(s.now())
	if to != "" {
		t, err := dates.Parse(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		end = t
	}
	start := dates.AddDays(end, -s.windowDays)
	if from != "" {
		f, err := dates.Parse(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		start = f
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	return start, end, nil
}

// byGroup lays totals out in canonical order with zero rows for groups
// that have no activity.
func byGroup(totals []GroupTotal) []GroupTotal {
	idx := make(map[bloodgroup.Group]GroupTotal, len(totals))
	for _, t := range totals {
		idx[t.BloodGroup] = t
	}
	out := make([]GroupTotal, 0, len(bloodgroup.All()))
	for _, g := range bloodgroup.All() {
		t := idx[g]
		t.BloodGroup = g
		out = append(out, t)
	}
	return out
}

func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	from, to = dates.Truncate(from), dates.Truncate(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	donations, err := s.repo.DonationsByGroup(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("donations by group: %w", err)
	}
	requests, err := s.repo.RequestsByGroup(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("requests by group: %w", err)
	}
	stock, err := s.src.Stock.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}

	sum := &Summary{
		From:        from,
		To:          to,
		GeneratedAt: s.now().UTC(),
		Donations:   byGroup(donations),
		Requests:    byGroup(requests),
		Inventory:   inventory.Views(stock),
	}
	for _, st := range stock {
		sum.TotalUnits += st.UnitsAvailable
	}
	return sum, nil
}

func (s *Service) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	d := &AdminDashboard{}
	var err error
	if d.ActiveDonors, err = s.src.Accounts.CountActive(ctx, auth.RoleDonor); err != nil {
		return nil, err
	}
	if d.ActivePatients, err = s.src.Accounts.CountActive(ctx, auth.RolePatient); err != nil {
		return nil, err
	}
	if d.PendingRequests, err = s.src.Requests.PendingCount(ctx); err != nil {
		return nil, err
	}
	if d.RecentDonations, err = s.src.Donations.Recent(ctx, AdminRecentDonations); err != nil {
		return nil, err
	}
	stock, err := s.src.Stock.List(ctx)
	if err != nil {
		return nil, err
	}
	d.Inventory = inventory.Views(stock)
	for _, st := range stock {
		d.TotalUnits += st.UnitsAvailable
	}
	if d.RecentDonations == nil {
		d.RecentDonations = []*donation.Donation{}
	}
	return d, nil
}

func (s *Service) DonorDashboard(ctx context.Context, donorID uuid.UUID) (*DonorDashboard, error) {
	today := dates.Truncate(s.now())
	stats, err := s.src.Donations.Stats(ctx, donorID, today)
	if err != nil {
		return nil, err
	}
	camps, err := s.src.Camps.Upcoming(ctx, today, DonorUpcomingCamps)
	if err != nil {
		return nil, err
	}
	return &DonorDashboard{Stats: stats, UpcomingCamps: camps}, nil
}

func (s *Service) PatientDashboard(ctx context.Context, patientID uuid.UUID) (*PatientDashboard, error) {
	counts, err := s.src.Requests.CountsForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.src.Requests.ListForPatient(ctx, patientID, PatientRecentRequests, 0)
	if err != nil {
		return nil, err
	}
	stock, err := s.src.Stock.List(ctx)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*bloodrequest.Request{}
	}
	return &PatientDashboard{Requests: counts, RecentRequests: recent, Inventory: inventory.Views(stock)}, nil
}
