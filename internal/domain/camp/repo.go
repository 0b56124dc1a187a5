package camp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Camp) error
	GetByID(ctx context.Context, id uuid.UUID) (*Camp, error)
	Update(ctx context.Context, c *Camp) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// Upcoming returns active camps dated on or after from, soonest first.
	Upcoming(ctx context.Context, from time.Time, limit int) ([]*Camp, error)
	List(ctx context.Context, limit, offset int) ([]*Camp, int, error)
	// FindByNameAndDate lets the seed command stay idempotent.
	FindByNameAndDate(ctx context.Context, name string, date time.Time) (*Camp, error)
}
