package donation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/account"
	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
	"github.com/bloodbank/bloodbank/pkg/dates"
)

// DonorLookup resolves the donor's profile.
type DonorLookup interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*account.User, error)
}

// StockAdjuster credits donated units to the inventory. Announce is called
// once the transaction that adjusted the stock has committed.
type StockAdjuster interface {
	Adjust(ctx context.Context, g bloodgroup.Group, delta int) (*inventory.Stock, error)
	Announce(ctx context.Context, st *inventory.Stock)
}

type Service struct {
	repo         Repository
	donors       DonorLookup
	stock        StockAdjuster
	tx           db.Transactor
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	intervalDays int
	now          func() time.Time
}

func NewService(repo Repository, donors DonorLookup, stock StockAdjuster, tx db.Transactor, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		donors:       donors,
		stock:        stock,
		tx:           tx,
		metrics:      m,
		logger:       logger,
		intervalDays: DefaultIntervalDays,
		now:          time.Now,
	}
}

// SetIntervalDays overrides the minimum number of days between donations.
func (s *Service) SetIntervalDays(days int) {
	if days > 0 {
		s.intervalDays = days
	}
}

func (s *Service) IntervalDays() int {
	return s.intervalDays
}

// Eligibility computes when the donor may donate again, counted from their
// last completed donation.
func (s *Service) Eligibility(ctx context.Context, donorID uuid.UUID, today time.Time) (*Eligibility, error) {
	last, err := s.repo.LastCompleted(ctx, donorID)
	if errors.Is(err, ErrNotFound) {
		return &Eligibility{Eligible: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return eligibilityFrom(last.DonationDate, dates.Truncate(today), s.intervalDays), nil
}

func eligibilityFrom(lastDate, today time.Time, intervalDays int) *Eligibility {
	last := dates.Truncate(lastDate)
	next := dates.AddDays(last, intervalDays)
	e := &Eligibility{LastDonation: &last, NextEligible: &next, Eligible: true}
	if today.Before(next) {
		e.Eligible = false
		e.DaysRemaining = dates.DaysBetween(next, today)
	}
	return e
}

// Donate records a donation of the donor's blood group dated today and credits
// the inventory, both in one transaction.
func (s *Service) Donate(ctx context.Context, donorID uuid.UUID, in DonateInput) (*Donation, error) {
	donor, err := s.donors.GetProfile(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("load donor: %w", err)
	}
	if !donor.BloodGroup.Valid() {
		return nil, ErrNoBloodGroup
	}

	hb := DefaultHemoglobin
	if in.Hemoglobin != nil {
		hb = *in.Hemoglobin
	}
	if hb <= 0 || hb > 25 {
		return nil, fmt.Errorf("%w: hemoglobin level must be between 0 and 25 g/dL", ErrInvalidInput)
	}

	today := dates.Truncate(s.now())
	d := &Donation{
		DonorID:         donorID,
		DonationDate:    today,
		UnitsDonated:    UnitsPerDonation,
		BloodGroup:      donor.BloodGroup,
		Status:          StatusCompleted,
		HemoglobinLevel: &hb,
	}
	if in.Notes != "" {
		notes := in.Notes
		d.Notes = &notes
	}

	var stock *inventory.Stock
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Eligibility is read and acted on under the donor lock.
		if err := s.repo.LockDonor(ctx, donorID); err != nil {
			return fmt.Errorf("lock donor: %w", err)
		}
		elig, err := s.Eligibility(ctx, donorID, today)
		if err != nil {
			return err
		}
		if !elig.Eligible {
			return &NotEligibleError{DaysRemaining: elig.DaysRemaining, NextEligible: *elig.NextEligible}
		}
		if err := s.repo.Create(ctx, d); err != nil {
			return fmt.Errorf("insert donation: %w", err)
		}
		stock, err = s.stock.Adjust(ctx, d.BloodGroup, d.UnitsDonated)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.stock.Announce(ctx, stock)

	s.metrics.IncDonation(d.BloodGroup.String())
	s.logger.Info().
		Str("donation_id", d.ID.String()).
		Str("donor_id", donorID.String()).
		Str("blood_group", d.BloodGroup.String()).
		Float64("hemoglobin", hb).
		Msg("donation recorded")
	return d, nil
}

// Record stores a historical donation as is, without touching inventory.
// The seed command uses it.
func (s *Service) Record(ctx context.Context, d *Donation) error {
	if !d.BloodGroup.Valid() {
		return ErrNoBloodGroup
	}
	if d.UnitsDonated <= 0 {
		d.UnitsDonated = UnitsPerDonation
	}
	if d.Status == "" {
		d.Status = StatusCompleted
	}
	return s.repo.Create(ctx, d)
}

func (s *Service) History(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*Donation, int, error) {
	return s.repo.ListByDonor(ctx, donorID, limit, offset)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*Donation, error) {
	return s.repo.Recent(ctx, limit)
}

// Stats returns the donor's donation count, three latest donations and
// eligibility.
func (s *Service) Stats(ctx context.Context, donorID uuid.UUID, today time.Time) (*Stats, error) {
	recent, total, err := s.repo.ListByDonor(ctx, donorID, 3, 0)
	if err != nil {
		return nil, err
	}
	elig, err := s.Eligibility(ctx, donorID, today)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*Donation{}
	}
	return &Stats{TotalDonations: total, Recent: recent, Eligibility: elig}, nil
}
