package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order represents a pedido tied to a physical table, tracked through
// the kitchen lifecycle.
type Order struct {
	bun.BaseModel `bun:"table:pedidos"`

	ID          int64     `bun:",pk,autoincrement"`
	Table       int       `bun:"mesa"`
	Customer    string    `bun:"cliente"`
	Description string    `bun:"descripcion"`
	Status      Status    `bun:"estado"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero"`
}
