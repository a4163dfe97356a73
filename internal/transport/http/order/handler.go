package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/comanda-app/pedidos/internal/dto"
	"github.com/comanda-app/pedidos/internal/entity"
	"github.com/comanda-app/pedidos/internal/presentation/http/response"
	service "github.com/comanda-app/pedidos/internal/service/order"
	"github.com/comanda-app/pedidos/pkg/errorbank"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var httpTracer = otel.Tracer("github.com/comanda-app/pedidos/transport/http/order")

// Handler exposes pedido endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a pedido Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. Static paths are
// registered alongside /:id; echo resolves static segments first.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/pedidos")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/filtrados", h.filtered)
	g.GET("/entregados", h.delivered)
	g.GET("/buscar", h.search)
	g.GET("/historial", h.history)
	g.POST("/desde-modulo3", h.intake)
	g.GET("/:id", h.getByID)
	g.PUT("/:id", h.update)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.list")
	defer span.End()

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(orders)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.getByID", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Table       *int   `json:"table"`
		Customer    string `json:"customer"`
		Description string `json:"description"`
		State       string `json:"state"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.create")
	defer span.End()

	order, err := h.svc.Create(ctx, service.CreateInput{
		Table:       payload.Table,
		Customer:    payload.Customer,
		Description: payload.Description,
		Status:      payload.State,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Table       *int    `json:"table"`
		Customer    *string `json:"customer"`
		Description *string `json:"description"`
		State       *string `json:"state"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.update", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, id, service.UpdatePatch{
		Table:       payload.Table,
		Customer:    payload.Customer,
		Description: payload.Description,
		Status:      payload.State,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) remove(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.delete", trace.WithAttributes(attribute.Int64("pedido.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) filtered(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.filtered")
	defer span.End()

	listing, err := h.svc.ListByStatus(ctx, c.QueryParam("estado"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.StatusListing{
		Estado:     listing.Estado,
		Cantidad:   listing.Cantidad,
		Resultados: toDTOs(listing.Resultados),
	}).Build()
}

func (h *Handler) delivered(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.delivered")
	defer span.End()

	orders, err := h.svc.ListDelivered(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(orders)).Build()
}

func (h *Handler) search(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.search")
	defer span.End()

	orders, err := h.svc.Search(ctx, c.QueryParam("q"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(orders)).Build()
}

func (h *Handler) history(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.history")
	defer span.End()

	entries, err := h.svc.History(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	rows := make([]dto.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, dto.HistoryEntry{
			Pedido:                 toDTO(entry.Order),
			HoraIngreso:            entry.HoraIngreso,
			HoraSalida:             entry.HoraSalida,
			TiempoEnCocinaSegundos: int64(entry.TiempoEnCocina.Seconds()),
		})
	}
	return b.WithData(rows).Build()
}

func (h *Handler) intake(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Mesa          *int   `json:"mesa"`
		Cliente       string `json:"cliente"`
		Orden         string `json:"orden"`
		IDPedido      string `json:"id_pedido"`
		FechaCreacion string `json:"fecha_creacion"`
		Estado        string `json:"estado"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "pedidos.intake")
	defer span.End()

	order, err := h.svc.Intake(ctx, service.IntakeInput{
		Mesa:    payload.Mesa,
		Cliente: payload.Cliente,
		Orden:   payload.Orden,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:          order.ID,
		Table:       order.Table,
		Customer:    order.Customer,
		Description: order.Description,
		State:       string(order.Status),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func toDTOs(orders []*entity.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toDTO(order))
	}
	return out
}
