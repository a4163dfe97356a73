package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-app/pedidos/internal/cache"
	"github.com/comanda-app/pedidos/internal/config"
	"github.com/comanda-app/pedidos/internal/entity"
	"github.com/comanda-app/pedidos/internal/messaging"
	"github.com/comanda-app/pedidos/internal/notifier"
	repo "github.com/comanda-app/pedidos/internal/repository/order"
	"github.com/comanda-app/pedidos/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/comanda-app/pedidos/service/order")

// Repository is the persistence surface the service needs. Satisfied by
// the bun-backed repository; tests swap in an in-memory fake.
type Repository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	List(ctx context.Context, limit int) ([]*entity.Order, error)
	ListByStatus(ctx context.Context, status entity.Status) ([]*entity.Order, error)
	Search(ctx context.Context, q string) ([]*entity.Order, error)
	CreatedBetween(ctx context.Context, from, to time.Time) ([]*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	Delete(ctx context.Context, id int64) error
}

// Service encapsulates the pedido lifecycle: creation, validated state
// transitions, the LISTO notification, and the listing surface.
type Service struct {
	repo      Repository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	notifier  notifier.ReadyNotifier
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
	Notifier   notifier.ReadyNotifier
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		notifier:  p.Notifier,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// CreateInput carries the fields accepted on direct creation. Table is a
// pointer so an absent value is distinguishable from table 0.
type CreateInput struct {
	Table       *int
	Customer    string
	Description string
	Status      string
}

// IntakeInput carries the payload pushed by the upstream module. Any
// inbound state hint is ignored; the local workflow owns the lifecycle.
type IntakeInput struct {
	Mesa    *int
	Cliente string
	Orden   string
}

// UpdatePatch is a partial update; nil fields are left untouched.
type UpdatePatch struct {
	Table       *int
	Customer    *string
	Description *string
	Status      *string
}

// StatusListing is the filtered-by-state response shape.
type StatusListing struct {
	Estado     string
	Cantidad   int
	Resultados []*entity.Order
}

// HistoryEntry pairs a pedido with its kitchen timing for the day view.
// HoraSalida is set only once the pedido is ENTREGADO.
type HistoryEntry struct {
	Order          *entity.Order
	HoraIngreso    time.Time
	HoraSalida     *time.Time
	TiempoEnCocina time.Duration
}

// Get retrieves a pedido by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.Get", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("pedidos cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("pedido not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load pedido", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("pedidos cache write failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	return order, nil
}

// List returns every pedido, newest first.
func (s *Service) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.List")
	defer span.End()

	orders, err := s.repo.List(ctx, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list pedidos", errorbank.WithCause(err))
	}
	return orders, nil
}

// Create validates the input and persists a new pedido. The state
// defaults to CREADO when absent.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.Create")
	defer span.End()

	var missing []string
	if in.Table == nil {
		missing = append(missing, "table")
	}
	if strings.TrimSpace(in.Customer) == "" {
		missing = append(missing, "customer")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, errorbank.BadRequest(
			"missing required fields: "+strings.Join(missing, ", "),
			errorbank.WithDetail("fields", missing),
		)
	}

	status := entity.StatusCreated
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := entity.ParseStatus(in.Status)
		if !ok {
			return nil, errorbank.BadRequest(
				fmt.Sprintf("unknown state: %s", in.Status),
				errorbank.WithDetail("state", in.Status),
			)
		}
		status = parsed
	}

	order := &entity.Order{
		Table:       *in.Table,
		Customer:    in.Customer,
		Description: in.Description,
		Status:      status,
	}
	if err := s.persistNew(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}
	return order, nil
}

// Intake accepts a pedido pushed by the upstream module. The pedido is
// always created as CREADO regardless of any inbound state hint.
func (s *Service) Intake(ctx context.Context, in IntakeInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.Intake")
	defer span.End()

	var missing []string
	if in.Mesa == nil {
		missing = append(missing, "mesa")
	}
	if strings.TrimSpace(in.Cliente) == "" {
		missing = append(missing, "cliente")
	}
	if strings.TrimSpace(in.Orden) == "" {
		missing = append(missing, "orden")
	}
	if len(missing) > 0 {
		return nil, errorbank.BadRequest(
			"missing required fields: "+strings.Join(missing, ", "),
			errorbank.WithDetail("fields", missing),
		)
	}

	order := &entity.Order{
		Table:       *in.Mesa,
		Customer:    in.Cliente,
		Description: in.Orden,
		Status:      entity.StatusCreated,
	}
	if err := s.persistNew(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}
	return order, nil
}

// Update applies a partial update. A state change is validated against
// the transition table first; on rejection nothing at all is persisted.
// The first transition into LISTO triggers the downstream notification.
func (s *Service) Update(ctx context.Context, id int64, patch UpdatePatch) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.Update", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("pedido not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load pedido", errorbank.WithCause(err))
	}

	previous := order.Status
	transitioned := false
	if patch.Status != nil {
		// Same-state updates skip validation; the body is treated as an
		// ordinary field update.
		requested, _ := entity.ParseStatus(*patch.Status)
		if requested != previous {
			if !previous.CanTransitionTo(requested) {
				return nil, errorbank.BadRequest(
					fmt.Sprintf("cannot go from %s to %s", previous, requested),
					errorbank.WithDetail("from", string(previous)),
					errorbank.WithDetail("to", string(requested)),
				)
			}
			order.Status = requested
			transitioned = true
		}
	}

	if patch.Table != nil {
		order.Table = *patch.Table
	}
	if patch.Customer != nil {
		order.Customer = *patch.Customer
	}
	if patch.Description != nil {
		order.Description = *patch.Description
	}
	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, order); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("pedido not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update pedido", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("pedidos cache write failed", zap.Int64("id", order.ID), zap.Error(err))
		}
	}

	if transitioned {
		s.publishEvent(ctx, OrderEvent{
			Type:       EventStatusChanged,
			ID:         order.ID,
			Mesa:       order.Table,
			Estado:     order.Status,
			Previo:     previous,
			OccurredAt: order.UpdatedAt,
		})

		// The state change is already committed; a notification failure
		// is logged and never unwinds it.
		if order.Status == entity.StatusReady && previous != entity.StatusReady && s.notifier != nil {
			if err := s.notifier.NotifyReady(ctx, order); err != nil && s.logger != nil {
				s.logger.Warn("ready notification failed", zap.Int64("id", order.ID), zap.Error(err))
			}
		}
	}

	return order, nil
}

// ListByStatus returns pedidos in the requested state with a count. The
// input is uppercased; unknown or empty states yield an empty listing,
// not an error. An absent state defaults to CREADO.
func (s *Service) ListByStatus(ctx context.Context, rawStatus string) (*StatusListing, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.ListByStatus")
	defer span.End()

	estado := strings.ToUpper(strings.TrimSpace(rawStatus))
	if estado == "" {
		estado = string(entity.StatusCreated)
	}

	orders, err := s.repo.ListByStatus(ctx, entity.Status(estado))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list pedidos", errorbank.WithCause(err))
	}

	return &StatusListing{
		Estado:     estado,
		Cantidad:   len(orders),
		Resultados: orders,
	}, nil
}

// ListDelivered returns every pedido currently ENTREGADO.
func (s *Service) ListDelivered(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.ListDelivered")
	defer span.End()

	orders, err := s.repo.ListByStatus(ctx, entity.StatusDelivered)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list pedidos", errorbank.WithCause(err))
	}
	return orders, nil
}

// Search matches customer/description substrings (case-insensitive) and
// numeric ids. An empty query falls back to the 10 most recent pedidos.
func (s *Service) Search(ctx context.Context, q string) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.Search")
	defer span.End()

	q = strings.TrimSpace(q)

	var (
		orders []*entity.Order
		err    error
	)
	if q == "" {
		orders, err = s.repo.List(ctx, 10)
	} else {
		orders, err = s.repo.Search(ctx, q)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to search pedidos", errorbank.WithCause(err))
	}
	return orders, nil
}

// History returns today's pedidos oldest first with their kitchen
// timings. Exit time is the last update once the pedido is ENTREGADO;
// until then the clock keeps running.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.History")
	defer span.End()

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	orders, err := s.repo.CreatedBetween(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load history", errorbank.WithCause(err))
	}

	entries := make([]HistoryEntry, 0, len(orders))
	for _, order := range orders {
		entry := HistoryEntry{
			Order:       order,
			HoraIngreso: order.CreatedAt,
		}
		if order.Status == entity.StatusDelivered {
			salida := order.UpdatedAt
			entry.HoraSalida = &salida
			entry.TiempoEnCocina = salida.Sub(order.CreatedAt)
		} else {
			entry.TiempoEnCocina = now.Sub(order.CreatedAt)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete removes a pedido. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "PedidoService.Delete", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to delete pedido", errorbank.WithCause(err))
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil && s.logger != nil {
			s.logger.Warn("pedidos cache delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) persistNew(ctx context.Context, order *entity.Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.repo.Create(ctx, order); err != nil {
		return errorbank.Internal("failed to create pedido", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		if s.logger != nil {
			s.logger.Warn("pedidos cache write failed", zap.Int64("id", order.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, OrderEvent{
		Type:       EventCreated,
		ID:         order.ID,
		Mesa:       order.Table,
		Estado:     order.Status,
		OccurredAt: order.CreatedAt,
	})
	return nil
}

func (s *Service) publishEvent(ctx context.Context, event OrderEvent) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal pedido event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("pedido-%d", event.ID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish pedido event", zap.Error(err))
		}
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("pedidos:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

// Event types published to the bus.
const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
)

// OrderEvent is emitted when a pedido is created or changes state.
type OrderEvent struct {
	Type       string        `json:"type"`
	ID         int64         `json:"id"`
	Mesa       int           `json:"mesa"`
	Estado     entity.Status `json:"estado"`
	Previo     entity.Status `json:"previo,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
