package report

import (
	"context"
	"time"
)

// Repository runs the aggregate report queries. Ranges are inclusive
// calendar dates.
type Repository interface {
	DonationsByGroup(ctx context.Context, from, to time.Time) ([]GroupTotal, error)
	RequestsByGroup(ctx context.Context, from, to time.Time) ([]GroupTotal, error)
}
