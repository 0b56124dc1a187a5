package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/platform/db"
)

const donationsByGroupSQL = `
	SELECT blood_group, COUNT(*), COALESCE(SUM(units_donated), 0)
	FROM donation
	WHERE status = 'completed' AND donation_date BETWEEN $1 AND $2
	GROUP BY blood_group`

const requestsByGroupSQL = `
	SELECT blood_group, COUNT(*), COALESCE(SUM(units_required), 0)
	FROM blood_request
	WHERE request_date BETWEEN $1 AND $2
	GROUP BY blood_group`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) totals(ctx context.Context, sql string, from, to time.Time) ([]GroupTotal, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupTotal
	for rows.Next() {
		var t GroupTotal
		if err := rows.Scan(&t.BloodGroup, &t.Count, &t.Units); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repoPG) DonationsByGroup(ctx context.Context, from, to time.Time) ([]GroupTotal, error) {
	return r.totals(ctx, donationsByGroupSQL, from, to)
}

func (r *repoPG) RequestsByGroup(ctx context.Context, from, to time.Time) ([]GroupTotal, error) {
	return r.totals(ctx, requestsByGroupSQL, from, to)
}
