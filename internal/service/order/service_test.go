package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comanda-app/pedidos/internal/entity"
	repo "github.com/comanda-app/pedidos/internal/repository/order"
	"github.com/comanda-app/pedidos/pkg/errorbank"
)

// fakeRepo is an in-memory Repository. GetByID hands out copies so a
// rejected update cannot leak mutations back into the store.
type fakeRepo struct {
	seq    int64
	store  map[int64]entity.Order
	byTime []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: make(map[int64]entity.Order)}
}

func (f *fakeRepo) Create(_ context.Context, order *entity.Order) error {
	f.seq++
	order.ID = f.seq
	f.store[order.ID] = *order
	f.byTime = append(f.byTime, order.ID)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	order, ok := f.store[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := order
	return &copied, nil
}

func (f *fakeRepo) List(_ context.Context, limit int) ([]*entity.Order, error) {
	var out []*entity.Order
	for i := len(f.byTime) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		order := f.store[f.byTime[i]]
		out = append(out, &order)
	}
	return out, nil
}

func (f *fakeRepo) ListByStatus(_ context.Context, status entity.Status) ([]*entity.Order, error) {
	var out []*entity.Order
	for i := len(f.byTime) - 1; i >= 0; i-- {
		if order, ok := f.store[f.byTime[i]]; ok && order.Status == status {
			copied := order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRepo) Search(_ context.Context, _ string) ([]*entity.Order, error) {
	return f.List(context.Background(), 0)
}

func (f *fakeRepo) CreatedBetween(_ context.Context, from, to time.Time) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, id := range f.byTime {
		order := f.store[id]
		if !order.CreatedAt.Before(from) && order.CreatedAt.Before(to) {
			copied := order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, order *entity.Order) error {
	if _, ok := f.store[order.ID]; !ok {
		return repo.ErrNotFound
	}
	f.store[order.ID] = *order
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	delete(f.store, id)
	return nil
}

type fakeNotifier struct {
	calls []entity.Order
}

func (f *fakeNotifier) NotifyReady(_ context.Context, order *entity.Order) error {
	f.calls = append(f.calls, *order)
	return nil
}

func newTestService(r Repository, n *fakeNotifier) *Service {
	return &Service{
		repo:     r,
		logger:   zap.NewNop(),
		notifier: n,
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func seedOrder(t *testing.T, svc *Service, status entity.Status) *entity.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateInput{
		Table:       intPtr(3),
		Customer:    "Juan",
		Description: "1x Tacos",
	})
	require.NoError(t, err)

	if status != entity.StatusCreated {
		order.Status = status
		require.NoError(t, svc.repo.Update(context.Background(), order))
	}
	return order
}

func TestService_Create(t *testing.T) {
	t.Run("defaults to CREADO and stamps timestamps", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})

		order, err := svc.Create(context.Background(), CreateInput{
			Table:       intPtr(7),
			Customer:    "Ana",
			Description: "2x Soda",
		})

		require.NoError(t, err)
		assert.NotZero(t, order.ID)
		assert.Equal(t, 7, order.Table)
		assert.Equal(t, entity.StatusCreated, order.Status)
		assert.False(t, order.CreatedAt.IsZero())
		assert.Equal(t, order.CreatedAt, order.UpdatedAt)
	})

	t.Run("rejects missing fields and creates nothing", func(t *testing.T) {
		fr := newFakeRepo()
		svc := newTestService(fr, &fakeNotifier{})

		_, err := svc.Create(context.Background(), CreateInput{Customer: "Ana"})

		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
		assert.Contains(t, err.Error(), "table")
		assert.Contains(t, err.Error(), "description")
		assert.Empty(t, fr.store)
	})

	t.Run("accepts an explicit valid state", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})

		order, err := svc.Create(context.Background(), CreateInput{
			Table:       intPtr(1),
			Customer:    "Ana",
			Description: "Cafe",
			Status:      "urgente",
		})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusUrgent, order.Status)
	})

	t.Run("rejects an unknown state", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})

		_, err := svc.Create(context.Background(), CreateInput{
			Table:       intPtr(1),
			Customer:    "Ana",
			Description: "Cafe",
			Status:      "PENDIENTE",
		})

		require.Error(t, err)
		assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	})
}

func TestService_Update_Transitions(t *testing.T) {
	t.Run("URGENTE to EN_PREPARACION succeeds", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})
		order := seedOrder(t, svc, entity.StatusUrgent)

		updated, err := svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("EN_PREPARACION")})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusInPreparation, updated.Status)
	})

	t.Run("CREADO to EN_PREPARACION succeeds", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})
		order := seedOrder(t, svc, entity.StatusCreated)

		updated, err := svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("EN_PREPARACION")})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusInPreparation, updated.Status)
	})

	t.Run("ENTREGADO is terminal", func(t *testing.T) {
		fr := newFakeRepo()
		svc := newTestService(fr, &fakeNotifier{})
		order := seedOrder(t, svc, entity.StatusDelivered)

		_, err := svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("EN_PREPARACION")})

		require.Error(t, err)
		appErr := errorbank.From(err)
		assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
		assert.Equal(t, "cannot go from ENTREGADO to EN_PREPARACION", appErr.Message())

		stored := fr.store[order.ID]
		assert.Equal(t, entity.StatusDelivered, stored.Status)
	})

	t.Run("rejected transition applies no patch fields at all", func(t *testing.T) {
		fr := newFakeRepo()
		svc := newTestService(fr, &fakeNotifier{})
		order := seedOrder(t, svc, entity.StatusCreated)

		_, err := svc.Update(context.Background(), order.ID, UpdatePatch{
			Status:   strPtr("ENTREGADO"),
			Customer: strPtr("Someone Else"),
			Table:    intPtr(99),
		})

		require.Error(t, err)
		stored := fr.store[order.ID]
		assert.Equal(t, "Juan", stored.Customer)
		assert.Equal(t, 3, stored.Table)
		assert.Equal(t, entity.StatusCreated, stored.Status)
	})

	t.Run("same-state update skips validation and notification", func(t *testing.T) {
		fr := newFakeRepo()
		fn := &fakeNotifier{}
		svc := newTestService(fr, fn)
		order := seedOrder(t, svc, entity.StatusReady)

		updated, err := svc.Update(context.Background(), order.ID, UpdatePatch{
			Status:   strPtr("LISTO"),
			Customer: strPtr("Ana Maria"),
		})

		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", updated.Customer)
		assert.Equal(t, entity.StatusReady, updated.Status)
		assert.Empty(t, fn.calls)
	})

	t.Run("patch without state is a plain field update", func(t *testing.T) {
		fn := &fakeNotifier{}
		svc := newTestService(newFakeRepo(), fn)
		order := seedOrder(t, svc, entity.StatusInPreparation)

		updated, err := svc.Update(context.Background(), order.ID, UpdatePatch{Description: strPtr("3x Tacos")})

		require.NoError(t, err)
		assert.Equal(t, "3x Tacos", updated.Description)
		assert.Equal(t, entity.StatusInPreparation, updated.Status)
		assert.Empty(t, fn.calls)
	})

	t.Run("unknown id surfaces not found", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})

		_, err := svc.Update(context.Background(), 404, UpdatePatch{Status: strPtr("LISTO")})

		require.Error(t, err)
		assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
	})
}

func TestService_Update_ReadyNotification(t *testing.T) {
	t.Run("first transition into LISTO notifies exactly once", func(t *testing.T) {
		fn := &fakeNotifier{}
		svc := newTestService(newFakeRepo(), fn)
		order := seedOrder(t, svc, entity.StatusInPreparation)

		_, err := svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("listo")})

		require.NoError(t, err)
		require.Len(t, fn.calls, 1)
		assert.Equal(t, order.ID, fn.calls[0].ID)
		assert.Equal(t, entity.StatusReady, fn.calls[0].Status)
	})

	t.Run("re-saving while LISTO does not notify again", func(t *testing.T) {
		fn := &fakeNotifier{}
		svc := newTestService(newFakeRepo(), fn)
		order := seedOrder(t, svc, entity.StatusInPreparation)

		_, err := svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("LISTO")})
		require.NoError(t, err)
		_, err = svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("LISTO"), Table: intPtr(5)})
		require.NoError(t, err)

		assert.Len(t, fn.calls, 1)
	})

	t.Run("other transitions never notify", func(t *testing.T) {
		fn := &fakeNotifier{}
		svc := newTestService(newFakeRepo(), fn)
		order := seedOrder(t, svc, entity.StatusCreated)

		_, err := svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("URGENTE")})
		require.NoError(t, err)
		_, err = svc.Update(context.Background(), order.ID, UpdatePatch{Status: strPtr("EN_PREPARACION")})
		require.NoError(t, err)

		assert.Empty(t, fn.calls)
	})
}

func TestService_ListByStatus(t *testing.T) {
	t.Run("case variants return identical listings", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})
		seedOrder(t, svc, entity.StatusReady)
		seedOrder(t, svc, entity.StatusReady)
		seedOrder(t, svc, entity.StatusCreated)

		lower, err := svc.ListByStatus(context.Background(), "listo")
		require.NoError(t, err)
		upper, err := svc.ListByStatus(context.Background(), "LISTO")
		require.NoError(t, err)

		assert.Equal(t, lower, upper)
		assert.Equal(t, 2, lower.Cantidad)
		assert.Equal(t, "LISTO", lower.Estado)
	})

	t.Run("unknown state yields an empty listing, not an error", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})
		seedOrder(t, svc, entity.StatusCreated)

		listing, err := svc.ListByStatus(context.Background(), "banana")

		require.NoError(t, err)
		assert.Equal(t, "BANANA", listing.Estado)
		assert.Zero(t, listing.Cantidad)
		assert.Empty(t, listing.Resultados)
	})

	t.Run("empty input defaults to CREADO", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})
		seedOrder(t, svc, entity.StatusCreated)

		listing, err := svc.ListByStatus(context.Background(), "")

		require.NoError(t, err)
		assert.Equal(t, "CREADO", listing.Estado)
		assert.Equal(t, 1, listing.Cantidad)
	})
}

func TestService_ListDelivered(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeNotifier{})
	seedOrder(t, svc, entity.StatusDelivered)
	seedOrder(t, svc, entity.StatusCreated)
	seedOrder(t, svc, entity.StatusDelivered)

	orders, err := svc.ListDelivered(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, order := range orders {
		assert.Equal(t, entity.StatusDelivered, order.Status)
	}
}

func TestService_Intake(t *testing.T) {
	t.Run("creates a CREADO pedido from the upstream payload", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})

		order, err := svc.Intake(context.Background(), IntakeInput{
			Mesa:    intPtr(7),
			Cliente: "Ana",
			Orden:   "2x Soda",
		})

		require.NoError(t, err)
		assert.NotZero(t, order.ID)
		assert.Equal(t, 7, order.Table)
		assert.Equal(t, "2x Soda", order.Description)
		assert.Equal(t, entity.StatusCreated, order.Status)
	})

	t.Run("missing cliente creates nothing", func(t *testing.T) {
		fr := newFakeRepo()
		svc := newTestService(fr, &fakeNotifier{})

		_, err := svc.Intake(context.Background(), IntakeInput{
			Mesa:  intPtr(7),
			Orden: "2x Soda",
		})

		require.Error(t, err)
		appErr := errorbank.From(err)
		assert.Equal(t, errorbank.KindBadRequest, appErr.Kind())
		assert.Contains(t, appErr.Message(), "cliente")
		assert.Empty(t, fr.store)
	})
}

func TestService_History(t *testing.T) {
	fr := newFakeRepo()
	svc := newTestService(fr, &fakeNotifier{})

	delivered := seedOrder(t, svc, entity.StatusCreated)
	_, err := svc.Update(context.Background(), delivered.ID, UpdatePatch{Status: strPtr("EN_PREPARACION")})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), delivered.ID, UpdatePatch{Status: strPtr("LISTO")})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), delivered.ID, UpdatePatch{Status: strPtr("ENTREGADO")})
	require.NoError(t, err)

	open := seedOrder(t, svc, entity.StatusCreated)

	entries, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Oldest first.
	assert.Equal(t, delivered.ID, entries[0].Order.ID)
	require.NotNil(t, entries[0].HoraSalida)
	assert.Equal(t, entries[0].HoraSalida.Sub(entries[0].HoraIngreso), entries[0].TiempoEnCocina)

	assert.Equal(t, open.ID, entries[1].Order.ID)
	assert.Nil(t, entries[1].HoraSalida)
	assert.GreaterOrEqual(t, entries[1].TiempoEnCocina, time.Duration(0))
}

func TestService_Delete(t *testing.T) {
	fr := newFakeRepo()
	svc := newTestService(fr, &fakeNotifier{})
	order := seedOrder(t, svc, entity.StatusCreated)

	require.NoError(t, svc.Delete(context.Background(), order.ID))
	assert.Empty(t, fr.store)

	// Idempotent.
	require.NoError(t, svc.Delete(context.Background(), order.ID))
}

func TestService_Get(t *testing.T) {
	t.Run("returns a stored pedido", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})
		order := seedOrder(t, svc, entity.StatusCreated)

		got, err := svc.Get(context.Background(), order.ID)

		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
	})

	t.Run("unknown id surfaces not found", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), &fakeNotifier{})

		_, err := svc.Get(context.Background(), 12345)

		require.Error(t, err)
		assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
	})
}
