package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comanda-app/pedidos/internal/config"
	"github.com/comanda-app/pedidos/internal/entity"
)

func testOrder() *entity.Order {
	created := time.Date(2025, 12, 11, 18, 30, 0, 0, time.UTC)
	return &entity.Order{
		ID:          42,
		Table:       7,
		Customer:    "Ana",
		Description: "2x Hamburguesa, 1x Refresco",
		Status:      entity.StatusReady,
		CreatedAt:   created,
		UpdatedAt:   created.Add(25 * time.Minute),
	}
}

func TestWebhookNotifier_SendsAgreedPayload(t *testing.T) {
	var calls int32
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(config.Config{Notify: config.Notify{WebhookURL: srv.URL, Timeout: 5 * time.Second}}, zap.NewNop())

	require.NoError(t, n.NotifyReady(context.Background(), testOrder()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.Equal(t, int64(42), got.IDPedido)
	assert.Equal(t, 7, got.Mesa)
	assert.Equal(t, "Ana", got.Cliente)
	assert.Equal(t, "2x Hamburguesa, 1x Refresco", got.Orden)
	assert.Equal(t, "LISTO", got.Estado)
	require.NotNil(t, got.FechaCreacion)
	assert.Equal(t, "2025-12-11T18:30:00Z", *got.FechaCreacion)
	require.NotNil(t, got.HoraListo)
	assert.Equal(t, "2025-12-11T18:55:00Z", *got.HoraListo)
}

func TestWebhookNotifier_NonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(config.Config{Notify: config.Notify{WebhookURL: srv.URL, Timeout: time.Second}}, zap.NewNop())

	err := n.NotifyReady(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestWebhookNotifier_UnreachableEndpoint(t *testing.T) {
	// Reserved-unroutable port on localhost; the dial fails fast.
	n := New(config.Config{Notify: config.Notify{WebhookURL: "http://127.0.0.1:1", Timeout: time.Second}}, zap.NewNop())

	require.Error(t, n.NotifyReady(context.Background(), testOrder()))
}

func TestNew_NoURLMeansNoop(t *testing.T) {
	n := New(config.Config{}, zap.NewNop())

	require.NoError(t, n.NotifyReady(context.Background(), testOrder()))
	_, isNoop := n.(noopNotifier)
	assert.True(t, isNoop)
}

func TestWebhookNotifier_NilTimestampsMarshalAsNull(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	}))
	defer srv.Close()

	n := New(config.Config{Notify: config.Notify{WebhookURL: srv.URL, Timeout: time.Second}}, zap.NewNop())

	order := testOrder()
	order.CreatedAt = time.Time{}
	order.UpdatedAt = time.Time{}
	require.NoError(t, n.NotifyReady(context.Background(), order))

	assert.Nil(t, raw["fecha_creacion"])
	assert.Nil(t, raw["hora_listo"])
}
