package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-app/pedidos/internal/config"
	"github.com/comanda-app/pedidos/internal/messaging"
	ordersvc "github.com/comanda-app/pedidos/internal/service/order"
	"github.com/comanda-app/pedidos/internal/worker"
)

var workerTracer = otel.Tracer("github.com/comanda-app/pedidos/worker/order")

// Module registers pedido-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewPedidoEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewPedidoEventHandler sets up a worker handler that records pedido
// lifecycle events published on the bus.
func NewPedidoEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.pedidos.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode pedido event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		fields := []zap.Field{
			zap.Int64("id", event.ID),
			zap.Int("mesa", event.Mesa),
			zap.String("estado", string(event.Estado)),
		}
		if event.Type == ordersvc.EventStatusChanged {
			fields = append(fields, zap.String("previo", string(event.Previo)))
		}
		logger.Info("pedido event processed", append(fields, zap.String("type", event.Type))...)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
