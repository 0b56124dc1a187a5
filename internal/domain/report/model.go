package report

import (
	"errors"
	"time"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/bloodrequest"
	"github.com/bloodbank/bloodbank/internal/domain/camp"
	"github.com/bloodbank/bloodbank/internal/domain/donation"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
)

var ErrInvalidRange = errors.New("invalid report range")

// DefaultWindowDays is the report window when no range is given.
const DefaultWindowDays = 30

// Dashboard list sizes.
const (
	AdminRecentDonations  = 5
	DonorUpcomingCamps    = 3
	PatientRecentRequests = 5
)

// GroupTotal aggregates donations or requests of one blood group.
type GroupTotal struct {
	BloodGroup bloodgroup.Group `json:"blood_group"`
	Count      int              `json:"count"`
	Units      int              `json:"units"`
}

// Summary is the admin report for one date range, both ends inclusive.
type Summary struct {
	From        time.Time             `json:"from"`
	To          time.Time             `json:"to"`
	GeneratedAt time.Time             `json:"generated_at"`
	Donations   []GroupTotal          `json:"donations"`
	Requests    []GroupTotal          `json:"requests"`
	Inventory   []inventory.StockView `json:"inventory"`
	TotalUnits  int                   `json:"total_units"`
}

type AdminDashboard struct {
	ActiveDonors    int                   `json:"active_donors"`
	ActivePatients  int                   `json:"active_patients"`
	PendingRequests int                   `json:"pending_requests"`
	TotalUnits      int                   `json:"total_units"`
	RecentDonations []*donation.Donation  `json:"recent_donations"`
	Inventory       []inventory.StockView `json:"inventory"`
}

type DonorDashboard struct {
	*donation.Stats
	UpcomingCamps []*camp.Camp `json:"upcoming_camps"`
}

type PatientDashboard struct {
	Requests       *bloodrequest.Counts    `json:"requests"`
	RecentRequests []*bloodrequest.Request `json:"recent_requests"`
	Inventory      []inventory.StockView   `json:"inventory"`
}
