package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/comanda-app/pedidos/internal/database"
	"github.com/comanda-app/pedidos/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Pedidos seeds example pedidos when the table is empty.
func (s *Seeder) Pedidos(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		if s.logger != nil {
			s.logger.Info("pedidos already present; skipping seed", zap.Int("count", count))
		}
		return nil
	}

	now := time.Now().UTC()
	samples := []entity.Order{
		{Table: 1, Customer: "Ana", Description: "2x Hamburguesa, 1x Refresco", Status: entity.StatusCreated, CreatedAt: now, UpdatedAt: now},
		{Table: 4, Customer: "Luis", Description: "1x Pizza Margarita", Status: entity.StatusInPreparation, CreatedAt: now, UpdatedAt: now},
		{Table: 7, Customer: "Marta", Description: "3x Tacos al pastor", Status: entity.StatusUrgent, CreatedAt: now, UpdatedAt: now},
	}

	for _, sample := range samples {
		order := sample
		if _, err := s.db.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded pedidos", zap.Int("count", len(samples)))
	}
	return nil
}
