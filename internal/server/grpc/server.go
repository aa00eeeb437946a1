package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/handyman/internal/cache"
	"github.com/Additional-Code/handyman/internal/config"
	"github.com/Additional-Code/handyman/internal/database"
	"github.com/Additional-Code/handyman/pkg/errorbank"
)

// Health service names reported next to the overall server status.
const (
	DatabaseService = "handyman.database"
	CacheService    = "handyman.cache"
)

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, health.NewServer),
	fx.Invoke(RegisterHealth, Run),
)

// NewServer builds a gRPC server with logging and error-mapping interceptors.
func NewServer(logger *zap.Logger) *grpc.Server {
	unary := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		err = toStatus(err)
		duration := time.Since(start)
		if err != nil {
			logger.Warn("grpc unary call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration), zap.Error(err))
		} else {
			logger.Info("grpc unary call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration))
		}
		return resp, err
	}

	stream := func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := toStatus(handler(srv, ss))
		duration := time.Since(start)
		if err != nil {
			logger.Warn("grpc stream call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration), zap.Error(err))
		} else {
			logger.Info("grpc stream call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration))
		}
		return err
	}

	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
}

// toStatus converts application errors into gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	appErr := errorbank.From(err)
	return status.Error(appErr.GRPCCode(), appErr.Message())
}

// HealthParams collects the dependencies probed by the health service.
type HealthParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Server    *grpc.Server
	Health    *health.Server
	Conns     *database.Connections
	Cache     cache.Store
	Logger    *zap.Logger
}

// RegisterHealth exposes the standard health service. The overall status
// follows the server lifecycle; DatabaseService and CacheService reflect a
// ping taken at startup.
func RegisterHealth(p HealthParams) {
	hs, logger := p.Health, p.Logger
	healthpb.RegisterHealthServer(p.Server, hs)

	probe := func(name string, ping func() error) {
		st := healthpb.HealthCheckResponse_SERVING
		if err := ping(); err != nil {
			logger.Warn("health probe failed", zap.String("service", name), zap.Error(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus(name, st)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			probe(DatabaseService, func() error { return p.Conns.Writer.PingContext(ctx) })
			probe(CacheService, func() error { return p.Cache.Ping(ctx) })
			return nil
		},
		OnStop: func(ctx context.Context) error {
			hs.Shutdown()
			return nil
		},
	})
}

// Run binds the gRPC server to the configured host/port and manages lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	var listener net.Listener

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			listener = ln
			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Fatal("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				if listener != nil {
					_ = listener.Close()
				}
				return nil
			}
		},
	})
}
