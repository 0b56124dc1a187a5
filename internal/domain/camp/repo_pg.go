package camp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

const campColumns = `id, name, location, camp_date, start_time, end_time, organizer,
	contact_phone, description, active, created_at, updated_at`

func scanCamp(row pgx.Row) (*Camp, error) {
	var c Camp
	err := row.Scan(&c.ID, &c.Name, &c.Location, &c.CampDate, &c.StartTime, &c.EndTime,
		&c.Organizer, &c.ContactPhone, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Camp) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO donation_camp (id, name, location, camp_date, start_time, end_time,
			organizer, contact_phone, description, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Location, c.CampDate, c.StartTime, c.EndTime,
		c.Organizer, c.ContactPhone, c.Description, c.Active,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Camp, error) {
	return scanCamp(r.conn(ctx).QueryRow(ctx,
		`SELECT `+campColumns+` FROM donation_camp WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Camp) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE donation_camp SET name = $2, location = $3, camp_date = $4, start_time = $5,
			end_time = $6, organizer = $7, contact_phone = $8, description = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Location, c.CampDate, c.StartTime, c.EndTime,
		c.Organizer, c.ContactPhone, c.Description,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE donation_camp SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Camp, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Camp
	for rows.Next() {
		c, err := scanCamp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) Upcoming(ctx context.Context, from time.Time, limit int) ([]*Camp, error) {
	return r.query(ctx, `SELECT `+campColumns+` FROM donation_camp
		WHERE active AND camp_date >= $1
		ORDER BY camp_date, start_time
		LIMIT $2`, from, limit)
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Camp, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM donation_camp`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.query(ctx, `SELECT `+campColumns+` FROM donation_camp
		ORDER BY camp_date DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	return items, total, err
}

func (r *repoPG) FindByNameAndDate(ctx context.Context, name string, date time.Time) (*Camp, error) {
	return scanCamp(r.conn(ctx).QueryRow(ctx,
		`SELECT `+campColumns+` FROM donation_camp WHERE name = $1 AND camp_date = $2`, name, date))
}
