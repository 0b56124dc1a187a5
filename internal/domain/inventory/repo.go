package inventory

import (
	"context"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
)

type Repository interface {
	List(ctx context.Context) ([]*Stock, error)
	Get(ctx context.Context, g bloodgroup.Group) (*Stock, error)
	Set(ctx context.Context, g bloodgroup.Group, units int) (*Stock, error)
	// Adjust adds delta atomically. A result below zero leaves the row
	// unchanged and returns ErrInsufficientStock.
	Adjust(ctx context.Context, g bloodgroup.Group, delta int) (*Stock, error)
}
