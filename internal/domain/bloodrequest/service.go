package bloodrequest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/domain/inventory"
	"github.com/bloodbank/bloodbank/internal/platform/db"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
	"github.com/bloodbank/bloodbank/internal/platform/websocket"
	"github.com/bloodbank/bloodbank/pkg/dates"
)

// Event types published on the requests topic.
const (
	EventSubmitted = "request.submitted"
	EventDecided   = "request.decided"
)

// StockAdjuster debits approved units from the inventory. Announce is called
// once the transaction that adjusted the stock has committed.
type StockAdjuster interface {
	Adjust(ctx context.Context, g bloodgroup.Group, delta int) (*inventory.Stock, error)
	Announce(ctx context.Context, st *inventory.Stock)
}

type Service struct {
	repo      Repository
	stock     StockAdjuster
	tx        db.Transactor
	metrics   *metrics.Metrics
	publisher websocket.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, stock StockAdjuster, tx db.Transactor, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		stock:   stock,
		tx:      tx,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SetPublisher enables live request events for administrators.
func (s *Service) SetPublisher(p websocket.Publisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, eventType string, q *Request) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, websocket.TopicRequests, eventType, q); err != nil {
		s.logger.Warn().Err(err).Str("request_id", q.ID.String()).Msg("publish request event")
	}
}

// Submit files a new pending request dated today.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, in SubmitInput) (*Request, error) {
	if !in.BloodGroup.Valid() {
		return nil, fmt.Errorf("%w: blood_group is required", ErrInvalidInput)
	}
	if in.UnitsRequired <= 0 {
		return nil, fmt.Errorf("%w: units_required must be positive", ErrInvalidInput)
	}
	urgency := strings.ToLower(strings.TrimSpace(in.Urgency))
	if urgency == "" {
		urgency = UrgencyNormal
	}
	if !validUrgency[urgency] {
		return nil, fmt.Errorf("%w: urgency must be urgent, normal or low", ErrInvalidInput)
	}

	today := dates.Truncate(s.now())
	q := &Request{
		PatientID:     patientID,
		BloodGroup:    in.BloodGroup,
		UnitsRequired: in.UnitsRequired,
		Urgency:       urgency,
		Status:        StatusPending,
		RequestDate:   today,
	}
	if r := strings.TrimSpace(in.Reason); r != "" {
		q.Reason = &r
	}
	if in.RequiredBy != "" {
		by, err := dates.Parse(in.RequiredBy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if by.Before(today) {
			return nil, fmt.Errorf("%w: required_by cannot be in the past", ErrInvalidInput)
		}
		q.RequiredBy = &by
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	s.logger.Info().
		Str("request_id", q.ID.String()).
		Str("blood_group", q.BloodGroup.String()).
		Int("units", q.UnitsRequired).
		Str("urgency", q.Urgency).
		Msg("blood request submitted")
	s.publish(ctx, EventSubmitted, q)
	return q, nil
}

// Approve moves a pending request to approved and deducts its units from
// the stock of the requested group. If the stock is short the request
// stays pending and inventory.ErrInsufficientStock is returned.
func (s *Service) Approve(ctx context.Context, id, adminID uuid.UUID) (*Request, error) {
	var (
		out   *Request
		stock *inventory.Stock
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		q, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if q.Status != StatusPending {
			return fmt.Errorf("%w: request is %s", ErrInvalidTransition, q.Status)
		}
		if stock, err = s.stock.Adjust(ctx, q.BloodGroup, -q.UnitsRequired); err != nil {
			return err
		}
		out, err = s.repo.Transition(ctx, id, Decision{
			From:       StatusPending,
			To:         StatusApproved,
			ApprovedBy: adminID,
			At:         s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDecision(StatusApproved)
	s.stock.Announce(ctx, stock)
	s.publish(ctx, EventDecided, out)
	s.logger.Info().
		Str("request_id", id.String()).
		Str("blood_group", out.BloodGroup.String()).
		Int("units", out.UnitsRequired).
		Msg("blood request approved")
	return out, nil
}

// Reject closes a pending request. Notes explain the decision to the patient.
func (s *Service) Reject(ctx context.Context, id, adminID uuid.UUID, notes string) (*Request, error) {
	out, err := s.repo.Transition(ctx, id, Decision{
		From:       StatusPending,
		To:         StatusRejected,
		ApprovedBy: adminID,
		Notes:      strings.TrimSpace(notes),
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDecision(StatusRejected)
	s.publish(ctx, EventDecided, out)
	s.logger.Info().Str("request_id", id.String()).Msg("blood request rejected")
	return out, nil
}

// Fulfill marks an approved request as handed over.
func (s *Service) Fulfill(ctx context.Context, id uuid.UUID) (*Request, error) {
	out, err := s.repo.Transition(ctx, id, Decision{
		From: StatusApproved,
		To:   StatusFulfilled,
		At:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDecision(StatusFulfilled)
	s.publish(ctx, EventDecided, out)
	s.logger.Info().Str("request_id", id.String()).Msg("blood request fulfilled")
	return out, nil
}

// Record stores a historical request as is. The seed command uses it.
func (s *Service) Record(ctx context.Context, q *Request) error {
	if !q.BloodGroup.Valid() || q.UnitsRequired <= 0 {
		return ErrInvalidInput
	}
	if q.Urgency == "" {
		q.Urgency = UrgencyNormal
	}
	if q.Status == "" {
		q.Status = StatusPending
	}
	if !validStatus[q.Status] || !validUrgency[q.Urgency] {
		return ErrInvalidInput
	}
	return s.repo.Create(ctx, q)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return s.repo.ListForPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	if status != "" && !validStatus[status] {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.ListAll(ctx, status, limit, offset)
}

func (s *Service) CountsForPatient(ctx context.Context, patientID uuid.UUID) (*Counts, error) {
	return s.repo.CountsForPatient(ctx, patientID)
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.repo.CountByStatus(ctx, StatusPending)
}
