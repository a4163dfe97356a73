package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-app/pedidos/internal/config"
	"github.com/comanda-app/pedidos/internal/entity"
)

// ReadyNotifier informs the downstream module that a pedido reached LISTO.
// Implementations must be safe to call once per transition; the caller
// treats any returned error as observability-only and never rolls back
// the persisted state change.
type ReadyNotifier interface {
	NotifyReady(ctx context.Context, order *entity.Order) error
}

// Module wires the configured notifier.
var Module = fx.Provide(New)

// Payload is the wire format agreed with the downstream module.
type Payload struct {
	IDPedido      int64   `json:"id_pedido"`
	Mesa          int     `json:"mesa"`
	Cliente       string  `json:"cliente"`
	Orden         string  `json:"orden"`
	FechaCreacion *string `json:"fecha_creacion"`
	Estado        string  `json:"estado"`
	HoraListo     *string `json:"hora_listo"`
}

// New returns the webhook notifier, or a no-op when no URL is configured.
func New(cfg config.Config, logger *zap.Logger) ReadyNotifier {
	if cfg.Notify.WebhookURL == "" {
		logger.Info("ready notification disabled; no webhook URL configured")
		return noopNotifier{}
	}
	return &WebhookNotifier{
		url:    cfg.Notify.WebhookURL,
		client: &http.Client{Timeout: cfg.Notify.Timeout},
		logger: logger,
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifyReady(context.Context, *entity.Order) error { return nil }

// WebhookNotifier posts the LISTO payload over HTTP. Single attempt,
// bounded timeout, no retries.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NotifyReady issues one outbound request for the given pedido.
func (n *WebhookNotifier) NotifyReady(ctx context.Context, order *entity.Order) error {
	payload := Payload{
		IDPedido: order.ID,
		Mesa:     order.Table,
		Cliente:  order.Customer,
		Orden:    order.Description,
		Estado:   string(entity.StatusReady),
	}
	if !order.CreatedAt.IsZero() {
		s := order.CreatedAt.Format(time.RFC3339)
		payload.FechaCreacion = &s
	}
	if !order.UpdatedAt.IsZero() {
		// UpdatedAt is stamped by the transition that made the pedido
		// LISTO, so it doubles as the ready timestamp.
		s := order.UpdatedAt.Format(time.RFC3339)
		payload.HoraListo = &s
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ready payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ready request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("ready notification failed", zap.Int64("id", order.ID), zap.Error(err))
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("ready notification rejected: status %d", resp.StatusCode)
		n.logger.Warn("ready notification failed", zap.Int64("id", order.ID), zap.Error(err))
		return err
	}

	n.logger.Info("ready notification delivered", zap.Int64("id", order.ID))
	return nil
}
