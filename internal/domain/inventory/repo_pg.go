package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const stockColumns = `blood_group, units_available, last_updated`

func scanStock(row pgx.Row) (*Stock, error) {
	var s Stock
	if err := row.Scan(&s.BloodGroup, &s.UnitsAvailable, &s.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List orders rows by the canonical group order, not alphabetically.
func (r *repoPG) List(ctx context.Context) ([]*Stock, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+stockColumns+` FROM blood_inventory
		ORDER BY array_position(ARRAY['A+','A-','B+','B-','AB+','AB-','O+','O-']::varchar[], blood_group)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Stock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) Get(ctx context.Context, g bloodgroup.Group) (*Stock, error) {
	return scanStock(r.conn(ctx).QueryRow(ctx,
		`SELECT `+stockColumns+` FROM blood_inventory WHERE blood_group = $1`, g))
}

func (r *repoPG) Set(ctx context.Context, g bloodgroup.Group, units int) (*Stock, error) {
	return scanStock(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_inventory (blood_group, units_available, last_updated)
		VALUES ($1, $2, NOW())
		ON CONFLICT (blood_group) DO UPDATE
			SET units_available = EXCLUDED.units_available, last_updated = NOW()
		RETURNING `+stockColumns, g, units))
}

func (r *repoPG) Adjust(ctx context.Context, g bloodgroup.Group, delta int) (*Stock, error) {
	if delta >= 0 {
		return scanStock(r.conn(ctx).QueryRow(ctx, `
			INSERT INTO blood_inventory (blood_group, units_available, last_updated)
			VALUES ($1, $2, NOW())
			ON CONFLICT (blood_group) DO UPDATE
				SET units_available = blood_inventory.units_available + EXCLUDED.units_available,
				    last_updated = NOW()
			RETURNING `+stockColumns, g, delta))
	}

	s, err := scanStock(r.conn(ctx).QueryRow(ctx, `
		UPDATE blood_inventory
		SET units_available = units_available + $2, last_updated = NOW()
		WHERE blood_group = $1 AND units_available + $2 >= 0
		RETURNING `+stockColumns, g, delta))
	// A missing row counts as zero stock.
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInsufficientStock
	}
	return s, err
}
