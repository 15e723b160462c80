package app

import (
	"go.uber.org/fx"

	"github.com/igorwgn/vitrine/internal/cache"
	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/database"
	"github.com/igorwgn/vitrine/internal/gateway"
	"github.com/igorwgn/vitrine/internal/logger"
	"github.com/igorwgn/vitrine/internal/messaging"
	"github.com/igorwgn/vitrine/internal/notifier"
	"github.com/igorwgn/vitrine/internal/observability"
	"github.com/igorwgn/vitrine/internal/reconciler"
	repositoryorder "github.com/igorwgn/vitrine/internal/repository/order"
	httpserver "github.com/igorwgn/vitrine/internal/server/http"
	serviceorder "github.com/igorwgn/vitrine/internal/service/order"
	transporthttp "github.com/igorwgn/vitrine/internal/transport/http"
	"github.com/igorwgn/vitrine/internal/worker"
	workernotification "github.com/igorwgn/vitrine/internal/worker/notification"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	gateway.Module,
	notifier.Module,
	serviceorder.Module,
	reconciler.Module,
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
	workernotification.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
