package camp

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("camp not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ClockFormat is the HH:MM format of camp opening hours.
const ClockFormat = "15:04"

// DefaultUpcomingLimit caps the public upcoming list when no limit is given.
const DefaultUpcomingLimit = 10

// Camp maps to the donation_camp table.
type Camp struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Location     string    `db:"location" json:"location"`
	CampDate     time.Time `db:"camp_date" json:"camp_date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	Organizer    *string   `db:"organizer" json:"organizer,omitempty"`
	ContactPhone *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Input is the body of camp create and update calls. CampDate is YYYY-MM-DD.
type Input struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	CampDate     string `json:"camp_date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Organizer    string `json:"organizer"`
	ContactPhone string `json:"contact_phone"`
	Description  string `json:"description"`
}
