package bloodrequest

import (
	"context"
	"errors"
	"fmt"

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

const requestColumns = `r.id, r.patient_id, r.blood_group, r.units_required, r.urgency, r.reason,
	r.status, r.request_date, r.required_by, r.approved_by, r.approved_at, r.notes,
	r.created_at, r.updated_at`

func scanRequest(row pgx.Row, extra ...interface{}) (*Request, error) {
	var q Request
	dest := []interface{}{&q.ID, &q.PatientID, &q.BloodGroup, &q.UnitsRequired, &q.Urgency,
		&q.Reason, &q.Status, &q.RequestDate, &q.RequiredBy, &q.ApprovedBy, &q.ApprovedAt,
		&q.Notes, &q.CreatedAt, &q.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repoPG) Create(ctx context.Context, q *Request) error {
	q.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_request (
			id, patient_id, blood_group, units_required, urgency, reason, status,
			request_date, required_by, approved_by, approved_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		q.ID, q.PatientID, q.BloodGroup, q.UnitsRequired, q.Urgency, q.Reason, q.Status,
		q.RequestDate, q.RequiredBy, q.ApprovedBy, q.ApprovedAt, q.Notes,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM blood_request r WHERE r.id = $1`, id))
}

func (r *repoPG) Transition(ctx context.Context, id uuid.UUID, d Decision) (*Request, error) {
	var approver *uuid.UUID
	if d.ApprovedBy != uuid.Nil {
		approver = &d.ApprovedBy
	}
	var notes *string
	if d.Notes != "" {
		notes = &d.Notes
	}

	// approved_by/approved_at record who decided; fulfilment keeps them.
	q, err := scanRequest(r.conn(ctx).QueryRow(ctx, `
		UPDATE blood_request r SET
			status = $3,
			approved_by = CASE WHEN $3 IN ('approved', 'rejected') THEN $4 ELSE r.approved_by END,
			approved_at = CASE WHEN $3 IN ('approved', 'rejected') THEN $5::timestamptz ELSE r.approved_at END,
			notes = COALESCE($6, r.notes),
			updated_at = NOW()
		WHERE r.id = $1 AND r.status = $2
		RETURNING `+requestColumns,
		id, d.From, d.To, approver, d.At, notes))
	if !errors.Is(err, ErrNotFound) {
		return q, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidTransition
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM blood_request r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s, u.full_name FROM blood_request r
		JOIN app_user u ON u.id = r.patient_id
		WHERE %s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d`, requestColumns, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		var name string
		q, err := scanRequest(rows, &name)
		if err != nil {
			return nil, 0, err
		}
		q.PatientName = name
		out = append(out, q)
	}
	return out, total, rows.Err()
}

func (r *repoPG) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return r.list(ctx, `r.patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *repoPG) ListAll(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	if status == "" {
		return r.list(ctx, `TRUE`, nil, limit, offset)
	}
	return r.list(ctx, `r.status = $1`, []interface{}{status}, limit, offset)
}

func (r *repoPG) CountsForPatient(ctx context.Context, patientID uuid.UUID) (*Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'fulfilled')
		FROM blood_request WHERE patient_id = $1`, patientID,
	).Scan(&c.Total, &c.Pending, &c.Approved, &c.Rejected, &c.Fulfilled)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM blood_request WHERE status = $1`, status).Scan(&n)
	return n, err
}
