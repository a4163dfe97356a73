package entity_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comanda-app/pedidos/internal/entity"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    entity.Status
		to      entity.Status
		allowed bool
	}{
		{entity.StatusCreated, entity.StatusUrgent, true},
		{entity.StatusCreated, entity.StatusInPreparation, true},
		{entity.StatusCreated, entity.StatusReady, false},
		{entity.StatusCreated, entity.StatusDelivered, false},
		{entity.StatusUrgent, entity.StatusInPreparation, true},
		{entity.StatusUrgent, entity.StatusCreated, false},
		{entity.StatusUrgent, entity.StatusReady, false},
		{entity.StatusInPreparation, entity.StatusReady, true},
		{entity.StatusInPreparation, entity.StatusDelivered, false},
		{entity.StatusInPreparation, entity.StatusCreated, false},
		{entity.StatusReady, entity.StatusDelivered, true},
		{entity.StatusReady, entity.StatusInPreparation, false},
		{entity.StatusDelivered, entity.StatusCreated, false},
		{entity.StatusDelivered, entity.StatusReady, false},
		{entity.StatusDelivered, entity.StatusDelivered, false},
		{entity.Status("NOPE"), entity.StatusCreated, false},
		{entity.StatusCreated, entity.Status("NOPE"), false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s->%s", tc.from, tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestStatus_DeliveredIsTerminal(t *testing.T) {
	assert.True(t, entity.StatusDelivered.Terminal())

	for _, s := range []entity.Status{
		entity.StatusCreated,
		entity.StatusUrgent,
		entity.StatusInPreparation,
		entity.StatusReady,
	} {
		assert.False(t, s.Terminal(), "%s must not be terminal", s)
	}
}

func TestStatus_EveryStateReachableFromCreated(t *testing.T) {
	// Walk the full lifecycle; each hop must be legal.
	path := []entity.Status{
		entity.StatusCreated,
		entity.StatusUrgent,
		entity.StatusInPreparation,
		entity.StatusReady,
		entity.StatusDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		require.True(t, path[i].CanTransitionTo(path[i+1]),
			"%s -> %s should be legal", path[i], path[i+1])
	}

	// The shortcut lane skips URGENTE.
	assert.True(t, entity.StatusCreated.CanTransitionTo(entity.StatusInPreparation))
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		raw   string
		want  entity.Status
		known bool
	}{
		{"listo", entity.StatusReady, true},
		{"LISTO", entity.StatusReady, true},
		{"  en_preparacion ", entity.StatusInPreparation, true},
		{"creado", entity.StatusCreated, true},
		{"entregado", entity.StatusDelivered, true},
		{"urgente", entity.StatusUrgent, true},
		{"banana", entity.Status("BANANA"), false},
		{"", entity.Status(""), false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := entity.ParseStatus(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.known, ok)
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, entity.StatusCreated.Valid())
	assert.False(t, entity.Status("PENDIENTE").Valid())
	assert.False(t, entity.Status("").Valid())
}
