package app

import (
	"go.uber.org/fx"

	"github.com/comanda-app/pedidos/internal/cache"
	"github.com/comanda-app/pedidos/internal/config"
	"github.com/comanda-app/pedidos/internal/database"
	"github.com/comanda-app/pedidos/internal/logger"
	"github.com/comanda-app/pedidos/internal/messaging"
	"github.com/comanda-app/pedidos/internal/notifier"
	"github.com/comanda-app/pedidos/internal/observability"
	repositoryorder "github.com/comanda-app/pedidos/internal/repository/order"
	httpserver "github.com/comanda-app/pedidos/internal/server/http"
	serviceorder "github.com/comanda-app/pedidos/internal/service/order"
	transporthttp "github.com/comanda-app/pedidos/internal/transport/http"
	"github.com/comanda-app/pedidos/internal/worker"
	workerorder "github.com/comanda-app/pedidos/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	notifier.Module,
	observability.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
