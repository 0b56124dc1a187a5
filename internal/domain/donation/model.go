package donation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
)

var (
	ErrNotFound     = errors.New("donation not found")
	ErrNoBloodGroup = errors.New("donor has no blood group on file")
	ErrInvalidInput = errors.New("invalid input")
)

// NotEligibleError is returned when the donor gave blood too recently.
type NotEligibleError struct {
	DaysRemaining int
	NextEligible  time.Time
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("donor is not eligible yet: %d days remaining", e.DaysRemaining)
}

const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	DefaultHemoglobin = 12.5
	UnitsPerDonation  = 1
	// DefaultIntervalDays is the minimum gap between whole-blood donations.
	DefaultIntervalDays = 56
)

// Donation maps to the donation table.
type Donation struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	DonorID         uuid.UUID        `db:"donor_id" json:"donor_id"`
	DonorName       string           `db:"-" json:"donor_name,omitempty"`
	DonationDate    time.Time        `db:"donation_date" json:"donation_date"`
	UnitsDonated    int              `db:"units_donated" json:"units_donated"`
	BloodGroup      bloodgroup.Group `db:"blood_group" json:"blood_group"`
	Status          string           `db:"status" json:"status"`
	HemoglobinLevel *float64         `db:"hemoglobin_level" json:"hemoglobin_level,omitempty"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// DonateInput is the body of POST /donor/donations.
type DonateInput struct {
	Hemoglobin *float64 `json:"hemoglobin"`
	Notes      string   `json:"notes"`
}

// Eligibility reports when a donor may give blood again.
type Eligibility struct {
	Eligible      bool       `json:"eligible"`
	LastDonation  *time.Time `json:"last_donation,omitempty"`
	NextEligible  *time.Time `json:"next_eligible,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
}

// Stats backs the donor dashboard.
type Stats struct {
	TotalDonations int          `json:"total_donations"`
	Recent         []*Donation  `json:"recent_donations"`
	Eligibility    *Eligibility `json:"eligibility"`
}
