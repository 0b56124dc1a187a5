package donation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Donation) error
	// LockDonor holds the donor's account row until the surrounding
	// transaction ends, so concurrent donations by one donor run one at a
	// time. Returns account.ErrNotFound for an unknown donor.
	LockDonor(ctx context.Context, donorID uuid.UUID) error
	// LastCompleted returns the donor's most recent completed donation or
	// ErrNotFound.
	LastCompleted(ctx context.Context, donorID uuid.UUID) (*Donation, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*Donation, int, error)
	// Recent lists the newest donations of all donors with donor names.
	Recent(ctx context.Context, limit int) ([]*Donation, error)
}
