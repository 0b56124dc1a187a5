package inventory

import (
	"errors"
	"time"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
)

var (
	ErrNotFound          = errors.New("blood group not stocked")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidUnits      = errors.New("units must not be negative")
)

// Stock thresholds, in units.
const (
	CriticalBelow = 10
	LowBelow      = 20
)

const (
	StatusCritical = "critical"
	StatusLow      = "low"
	StatusGood     = "good"
)

// Stock maps to the blood_inventory table.
type Stock struct {
	BloodGroup     bloodgroup.Group `db:"blood_group" json:"blood_group"`
	UnitsAvailable int              `db:"units_available" json:"units_available"`
	LastUpdated    time.Time        `db:"last_updated" json:"last_updated"`
}

// Status classifies the stock level.
func (s Stock) Status() string {
	return StatusFor(s.UnitsAvailable)
}

func StatusFor(units int) string {
	switch {
	case units < CriticalBelow:
		return StatusCritical
	case units < LowBelow:
		return StatusLow
	default:
		return StatusGood
	}
}

// StockView is Stock plus its derived status, as returned by the API.
type StockView struct {
	Stock
	Status string `json:"status"`
}

func View(s *Stock) StockView {
	return StockView{Stock: *s, Status: s.Status()}
}

// CompatibleStock is the stock a recipient group can draw on.
type CompatibleStock struct {
	Recipient  bloodgroup.Group `json:"recipient"`
	Sources    []StockView      `json:"sources"`
	TotalUnits int              `json:"total_units"`
}
