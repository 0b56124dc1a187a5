package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/platform/metrics"
	"github.com/bloodbank/bloodbank/internal/platform/websocket"
)

// EventUpdated is published on the inventory topic whenever a level changes.
const EventUpdated = "inventory.updated"

type Service struct {
	repo      Repository
	metrics   *metrics.Metrics
	publisher websocket.Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{repo: repo, metrics: m, logger: logger}
}

// SetPublisher enables live inventory events.
func (s *Service) SetPublisher(p websocket.Publisher) {
	s.publisher = p
}

func (s *Service) observe(st *Stock) {
	s.metrics.SetInventory(st.BloodGroup.String(), st.UnitsAvailable)
}

// Announce publishes the new level of st. Adjust runs inside the caller's
// transaction, so callers announce once it has committed.
func (s *Service) Announce(ctx context.Context, st *Stock) {
	if s.publisher == nil || st == nil {
		return
	}
	if err := s.publisher.Publish(ctx, websocket.TopicInventory, EventUpdated, View(st)); err != nil {
		s.logger.Warn().Err(err).Str("blood_group", st.BloodGroup.String()).Msg("publish inventory event")
	}
}

// List returns every stocked group in canonical order.
func (s *Service) List(ctx context.Context) ([]*Stock, error) {
	stock, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range stock {
		s.observe(st)
	}
	return stock, nil
}

// Set overrides the stock level of g.
func (s *Service) Set(ctx context.Context, g bloodgroup.Group, units int) (*Stock, error) {
	if !g.Valid() {
		return nil, bloodgroup.ErrUnknownBloodGroup
	}
	if units < 0 {
		return nil, ErrInvalidUnits
	}
	st, err := s.repo.Set(ctx, g, units)
	if err != nil {
		return nil, err
	}
	s.observe(st)
	s.Announce(ctx, st)
	s.logger.Info().Str("blood_group", g.String()).Int("units", units).Msg("inventory set")
	return st, nil
}

// Adjust adds delta units to g; negative deltas draw stock down.
func (s *Service) Adjust(ctx context.Context, g bloodgroup.Group, delta int) (*Stock, error) {
	if !g.Valid() {
		return nil, bloodgroup.ErrUnknownBloodGroup
	}
	st, err := s.repo.Adjust(ctx, g, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust %s by %d: %w", g, delta, err)
	}
	s.observe(st)
	return st, nil
}

// Available returns the groups with at least one unit in stock.
func (s *Service) Available(ctx context.Context) ([]*Stock, error) {
	stock, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Stock
	for _, st := range stock {
		if st.UnitsAvailable > 0 {
			out = append(out, st)
		}
	}
	return out, nil
}

// CompatibleStock lists the stock of every donor group recipient can
// receive from.
func (s *Service) CompatibleStock(ctx context.Context, recipient bloodgroup.Group) (*CompatibleStock, error) {
	if !recipient.Valid() {
		return nil, bloodgroup.ErrUnknownBloodGroup
	}
	donors := recipient.Compatibility().CanReceiveFrom

	stock, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := &CompatibleStock{Recipient: recipient, Sources: []StockView{}}
	for _, st := range stock {
		if donors.Contains(st.BloodGroup) {
			out.Sources = append(out.Sources, View(st))
			out.TotalUnits += st.UnitsAvailable
		}
	}
	return out, nil
}

// Total returns the sum of all units in stock.
func (s *Service) Total(ctx context.Context) (int, error) {
	stock, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, st := range stock {
		total += st.UnitsAvailable
	}
	return total, nil
}

// Views decorates stock rows with their status.
func Views(stock []*Stock) []StockView {
	out := make([]StockView, len(stock))
	for i, st := range stock {
		out[i] = View(st)
	}
	return out
}
