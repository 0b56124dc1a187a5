package bloodrequest

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	// Transition applies d only if the request is still in d.From. It
	// returns ErrInvalidTransition when the status has moved on.
	Transition(ctx context.Context, id uuid.UUID, d Decision) (*Request, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error)
	// ListAll filters by status when status is not empty.
	ListAll(ctx context.Context, status string, limit, offset int) ([]*Request, int, error)
	CountsForPatient(ctx context.Context, patientID uuid.UUID) (*Counts, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}
