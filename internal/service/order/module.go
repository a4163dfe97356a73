package order

import (
	"go.uber.org/fx"

	repo "github.com/comanda-app/pedidos/internal/repository/order"
)

// Module provides the pedido service to Fx, binding the bun-backed
// repository to the service-side Repository interface.
var Module = fx.Options(
	fx.Provide(func(r *repo.Repository) Repository { return r }),
	fx.Provide(NewService),
)
