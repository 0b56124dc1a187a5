package camp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/platform/websocket"
	"github.com/bloodbank/bloodbank/pkg/dates"
)

// Event types published on the camps topic.
const (
	EventScheduled = "camp.scheduled"
	EventUpdated   = "camp.updated"
	EventCancelled = "camp.cancelled"
)

type Service struct {
	repo      Repository
	publisher websocket.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) SetPublisher(p websocket.Publisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, websocket.TopicCamps, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("publish camp event")
	}
}

// fromInput validates in and fills the editable fields of c.
func fromInput(c *Camp, in Input) error {
	name := strings.TrimSpace(in.Name)
	location := strings.TrimSpace(in.Location)
	if name == "" || location == "" {
		return fmt.Errorf("%w: name and location are required", ErrInvalidInput)
	}
	date, err := dates.Parse(in.CampDate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	start, err := time.Parse(ClockFormat, in.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidInput)
	}
	end, err := time.Parse(ClockFormat, in.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidInput)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidInput)
	}

	c.Name = name
	c.Location = location
	c.CampDate = date
	c.StartTime = start.Format(ClockFormat)
	c.EndTime = end.Format(ClockFormat)
	c.Organizer = optional(in.Organizer)
	c.ContactPhone = optional(in.ContactPhone)
	c.Description = optional(in.Description)
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) Create(ctx context.Context, in Input) (*Camp, error) {
	c := &Camp{Active: true}
	if err := fromInput(c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("insert camp: %w", err)
	}
	s.logger.Info().
		Str("camp_id", c.ID.String()).
		Str("camp_date", c.CampDate.Format(dates.ISO)).
		Msg("donation camp created")
	s.publish(ctx, EventScheduled, c)
	return c, nil
}

// Ensure creates the camp unless one with the same name and date exists.
func (s *Service) Ensure(ctx context.Context, in Input) (*Camp, bool, error) {
	date, err := dates.Parse(in.CampDate)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	existing, err := s.repo.FindByNameAndDate(ctx, strings.TrimSpace(in.Name), date)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	c, err := s.Create(ctx, in)
	return c, err == nil, err
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Camp, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fromInput(c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, EventUpdated, c)
	return c, nil
}

// Deactivate hides the camp from the upcoming list. Camps are never deleted.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("camp_id", id.String()).Msg("donation camp deactivated")
	s.publish(ctx, EventCancelled, map[string]string{"id": id.String()})
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Camp, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Upcoming(ctx context.Context, today time.Time, limit int) ([]*Camp, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	camps, err := s.repo.Upcoming(ctx, dates.Truncate(today), limit)
	if err != nil {
		return nil, err
	}
	if camps == nil {
		camps = []*Camp{}
	}
	return camps, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Camp, int, error) {
	return s.repo.List(ctx, limit, offset)
}
