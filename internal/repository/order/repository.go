package order

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/comanda-app/pedidos/internal/database"
	"github.com/comanda-app/pedidos/internal/entity"
)

var repoTracer = otel.Tracer("github.com/comanda-app/pedidos/repository/order")

// ErrNotFound is returned when a pedido is missing.
var ErrNotFound = errors.New("pedido not found")

// Repository encapsulates read/write access for pedidos.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new pedido using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil pedido")
	}
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.Create", trace.WithAttributes(attribute.Int("pedido.mesa", order.Table)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a pedido by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.GetByID", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns pedidos ordered newest first. A limit <= 0 returns all rows.
func (r *Repository) List(ctx context.Context, limit int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.List")
	defer span.End()

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByStatus returns pedidos in the given state, newest first. Unknown
// states simply match nothing.
func (r *Repository) ListByStatus(ctx context.Context, status entity.Status) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.ListByStatus", trace.WithAttributes(attribute.String("pedido.estado", status.String())))
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Where("estado = ?", status).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Search matches pedidos whose customer or description contains q
// (case-insensitive), or whose id equals q when q is numeric. Results
// come back newest first.
func (r *Repository) Search(ctx context.Context, q string) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.Search")
	defer span.End()

	pattern := "%" + q + "%"
	var orders []*entity.Order
	query := r.reader.NewSelect().Model(&orders).
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			sq = sq.WhereOr("lower(cliente) LIKE lower(?)", pattern).
				WhereOr("lower(descripcion) LIKE lower(?)", pattern)
			if id, err := strconv.ParseInt(q, 10, 64); err == nil {
				sq = sq.WhereOr("id = ?", id)
			}
			return sq
		}).
		Order("created_at DESC")
	if err := query.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// CreatedBetween returns pedidos created within [from, to), oldest first.
// Used for the day-history listing.
func (r *Repository) CreatedBetween(ctx context.Context, from, to time.Time) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.CreatedBetween")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Update persists the mutated pedido by primary key.
func (r *Repository) Update(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil pedido")
	}
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.Update", trace.WithAttributes(attribute.Int64("pedido.id", order.ID)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model(order).WherePK().Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}

// Delete removes a pedido. Deleting an absent id is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "PedidoRepository.Delete", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}
