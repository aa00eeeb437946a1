package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/handyman/internal/cache"
	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/database"
	"github.com/Additional-Code/handyman/internal/logger"
	"github.com/Additional-Code/handyman/internal/messaging"
	"github.com/Additional-Code/handyman/internal/notification"
	"github.com/Additional-Code/handyman/internal/observability"
	repositoryavailability "github.com/Additional-Code/handyman/internal/repository/availability"
	repositoryorder "github.com/Additional-Code/handyman/internal/repository/order"
	repositoryverification "github.com/Additional-Code/handyman/internal/repository/verification"
	grpcserver "github.com/Additional-Code/handyman/internal/server/grpc"
	httpserver "github.com/Additional-Code/handyman/internal/server/http"
	serviceavailability "github.com/Additional-Code/handyman/internal/service/availability"
	serviceorder "github.com/Additional-Code/handyman/internal/service/order"
	serviceverification "github.com/Additional-Code/handyman/internal/service/verification"
	"github.com/Additional-Code/handyman/internal/sms"
	"github.com/Additional-Code/handyman/internal/storage"
	transporthttp "github.com/Additional-Code/handyman/internal/transport/http"
	"github.com/Additional-Code/handyman/internal/worker"
	workernotification "github.com/Additional-Code/handyman/internal/worker/notification"
)

// Infra provides configuration, logging and connections without domain services.
var Infra = fx.Options(
	config.Module,
	database.Module,
	logger.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Infra,
	cache.Module,
	messaging.Module,
	observability.Module,
	sms.Module,
	storage.Module,
	notification.Module,
	repositoryavailability.Module,
	repositoryorder.Module,
	repositoryverification.Module,
	serviceavailability.Module,
	serviceverification.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport and the gRPC health endpoint on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workernotification.Module,
	// Nothing in the worker graph depends on the manager, but its providers
	// must be installed for delivery spans and handled-message counters.
	fx.Invoke(func(*observability.Manager) {}),
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
