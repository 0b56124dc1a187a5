package donation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodbank/bloodbank/internal/domain/account"
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

const donationColumns = `d.id, d.donor_id, d.donation_date, d.units_donated, d.blood_group, d.status,
	d.hemoglobin_level, d.notes, d.created_at`

func scanDonation(row pgx.Row, extra ...interface{}) (*Donation, error) {
	var d Donation
	dest := []interface{}{&d.ID, &d.DonorID, &d.DonationDate, &d.UnitsDonated, &d.BloodGroup,
		&d.Status, &d.HemoglobinLevel, &d.Notes, &d.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Donation) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO donation (
			id, donor_id, donation_date, units_donated, blood_group, status, hemoglobin_level, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		d.ID, d.DonorID, d.DonationDate, d.UnitsDonated, d.BloodGroup, d.Status, d.HemoglobinLevel, d.Notes,
	).Scan(&d.CreatedAt)
}

func (r *repoPG) LockDonor(ctx context.Context, donorID uuid.UUID) error {
	var one int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT 1 FROM app_user WHERE id = $1 FOR UPDATE`, donorID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return account.ErrNotFound
	}
	return err
}

func (r *repoPG) LastCompleted(ctx context.Context, donorID uuid.UUID) (*Donation, error) {
	return scanDonation(r.conn(ctx).QueryRow(ctx, `
		SELECT `+donationColumns+` FROM donation d
		WHERE d.donor_id = $1 AND d.status = 'completed'
		ORDER BY d.donation_date DESC, d.created_at DESC
		LIMIT 1`, donorID))
}

func (r *repoPG) ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*Donation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM donation WHERE donor_id = $1`, donorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+donationColumns+` FROM donation d
		WHERE d.donor_id = $1
		ORDER BY d.donation_date DESC, d.created_at DESC
		LIMIT $2 OFFSET $3`, donorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *repoPG) Recent(ctx context.Context, limit int) ([]*Donation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+donationColumns+`, u.full_name FROM donation d
		JOIN app_user u ON u.id = d.donor_id
		ORDER BY d.donation_date DESC, d.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Donation
	for rows.Next() {
		var name string
		d, err := scanDonation(rows, &name)
		if err != nil {
			return nil, err
		}
		d.DonorName = name
		out = append(out, d)
	}
	return out, rows.Err()
}
