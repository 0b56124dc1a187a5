package bloodrequest

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
)

var (
	ErrNotFound          = errors.New("blood request not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusFulfilled = "fulfilled"
)

const (
	UrgencyUrgent = "urgent"
	UrgencyNormal = "normal"
	UrgencyLow    = "low"
)

var validUrgency = map[string]bool{UrgencyUrgent: true, UrgencyNormal: true, UrgencyLow: true}

var validStatus = map[string]bool{
	StatusPending: true, StatusApproved: true, StatusRejected: true, StatusFulfilled: true,
}

// Request maps to the blood_request table.
type Request struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	PatientID     uuid.UUID        `db:"patient_id" json:"patient_id"`
	PatientName   string           `db:"-" json:"patient_name,omitempty"`
	BloodGroup    bloodgroup.Group `db:"blood_group" json:"blood_group"`
	UnitsRequired int              `db:"units_required" json:"units_required"`
	Urgency       string           `db:"urgency" json:"urgency"`
	Reason        *string          `db:"reason" json:"reason,omitempty"`
	Status        string           `db:"status" json:"status"`
	RequestDate   time.Time        `db:"request_date" json:"request_date"`
	RequiredBy    *time.Time       `db:"required_by" json:"required_by,omitempty"`
	ApprovedBy    *uuid.UUID       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt    *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	Notes         *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmitInput is the body of POST /patient/requests.
type SubmitInput struct {
	BloodGroup    bloodgroup.Group `json:"blood_group"`
	UnitsRequired int              `json:"units_required"`
	Urgency       string           `json:"urgency"`
	Reason        string           `json:"reason"`
	RequiredBy    string           `json:"required_by"`
}

// Decision is a guarded status change.
type Decision struct {
	From       string
	To         string
	ApprovedBy uuid.UUID
	Notes      string
	At         time.Time
}

// Counts summarizes one patient's requests.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Fulfilled int `json:"fulfilled"`
}
