// lifecycle-service
//
// Application lifecycle manager for the job board. Exposes REST and gRPC APIs
// used by the gateway to implement:
//   - transitionStatus(applicationId, newStatus)
//   - scheduleInterview(applicationId, date, type, link, notes)
//   - confirmIntern(applicationId, startDate, durationMonths)
//   - markCompleted / completeWithBadge / terminateInternship
//   - listOrphanedHires
//
// Lifecycle events are published to Redis (and NATS when configured) for
// gateway notification fan-out, and appended to ClickHouse when configured.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"jobboard/lifecycle-service/internal/analytics"
	"jobboard/lifecycle-service/internal/config"
	"jobboard/lifecycle-service/internal/db"
	"jobboard/lifecycle-service/internal/grpcserver"
	"jobboard/lifecycle-service/internal/httpapi"
	"jobboard/lifecycle-service/internal/lifecycle"
	"jobboard/lifecycle-service/internal/notify"
	"jobboard/lifecycle-service/internal/reconcile"
	"jobboard/lifecycle-service/internal/store/postgres"
	"jobboard/lifecycle-service/internal/telemetry"
)

const (
	serviceName = "lifecycle-service"
	version     = "1.0.0"
)

const connectTimeout = 15 * time.Second

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			newPostgresPool,
			newRedisClient,
			newNotifier,
			newStore,
			newService,
			newHTTPServer,
			newGRPCServer,
			newScheduler,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(
			registerTracing,
			func(*http.Server, *grpc.Server, *reconcile.Scheduler) {},
		),
	).Run()
}

// ── Logging ─────────────────────────────────────────────────────────────────

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName), zap.String("version", version)), nil
}

// ── Tracing ─────────────────────────────────────────────────────────────────

func registerTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	if cfg.OTelCollectorURL == "" {
		logger.Info("tracing disabled: OTEL_COLLECTOR_URL not set")
		return nil
	}
	shutdown, err := telemetry.InitTracer(context.Background(), serviceName, version, cfg.OTelCollectorURL)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	logger.Info("tracing enabled", zap.String("collector", cfg.OTelCollectorURL))
	return nil
}

// ── PostgreSQL ──────────────────────────────────────────────────────────────

func newPostgresPool(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, db.PostgresOptions{
		URL:              cfg.DatabaseURL,
		MaxConns:         int32(cfg.DBMaxConns),
		StatementTimeout: cfg.DBStatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("postgres connected")

	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		pool.Close()
		return nil
	}})
	return pool, nil
}

func newStore(pool *pgxpool.Pool) lifecycle.Store {
	return postgres.NewStore(pool)
}

// ── Redis ───────────────────────────────────────────────────────────────────

func newRedisClient(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info("redis connected")

	lc.Append(fx.Hook{OnStop: func(context.Context) error { return rdb.Close() }})
	return rdb, nil
}

// ── Notifications ───────────────────────────────────────────────────────────

// newNotifier fans lifecycle events out to Redis, plus NATS and ClickHouse when
// configured, behind a bounded asynchronous queue.
func newNotifier(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, rdb *redis.Client) (lifecycle.Notifier, error) {
	sinks := notify.Fanout{notify.NewRedisPublisher(rdb, notify.RedisChannel)}

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		if nc, err = db.NewNATSConn(cfg.NATSURL, serviceName, connectTimeout); err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		sinks = append(sinks, notify.NewNATSPublisher(nc))
		logger.Info("nats connected", zap.String("url", cfg.NATSURL))
	}

	var ch clickhouse.Conn
	if cfg.ClickHouseDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		var err error
		ch, err = db.NewClickHouseConn(ctx, db.ClickHouseOptions{
			Addr:     cfg.ClickHouseDSN,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			if nc != nil {
				nc.Close()
			}
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		sink, err := analytics.NewClickHouseSink(ctx, ch, logger)
		if err != nil {
			ch.Close()
			if nc != nil {
				nc.Close()
			}
			return nil, fmt.Errorf("clickhouse sink: %w", err)
		}
		sinks = append(sinks, sink)
		logger.Info("clickhouse analytics enabled")
	}

	async := notify.NewAsync(sinks, logger, cfg.NotifyQueueSize, cfg.NotifyTimeout)

	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		err := async.Close(ctx)
		if nc != nil {
			err = errors.Join(err, nc.Drain())
		}
		if ch != nil {
			err = errors.Join(err, ch.Close())
		}
		return err
	}})
	return async, nil
}

// ── Service ─────────────────────────────────────────────────────────────────

func newService(store lifecycle.Store, notifier lifecycle.Notifier, logger *zap.Logger) *lifecycle.Service {
	return lifecycle.NewService(store, notifier, logger.Named("lifecycle"))
}

// ── HTTP server ─────────────────────────────────────────────────────────────

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, svc *lifecycle.Service, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	httpapi.NewHandler(svc, logger.Named("http")).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("http listen: %w", err)
			}
			logger.Info("http listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": version,
	})
}

// ── gRPC server ─────────────────────────────────────────────────────────────

func newGRPCServer(lc fx.Lifecycle, cfg *config.Config, svc *lifecycle.Service, logger *zap.Logger) *grpc.Server {
	log := logger.Named("grpc")
	srv := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Info("rpc failed", zap.String("method", info.FullMethod), zap.Duration("took", time.Since(start)), zap.Error(err))
		}
		return resp, err
	}))
	grpcserver.Register(srv, grpcserver.NewServer(svc))

	addr := fmt.Sprintf(":%s", cfg.GRPCPort)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("grpc listen: %w", err)
			}
			log.Info("grpc listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil {
					log.Error("grpc server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := make(chan struct{})
			go func() {
				srv.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-ctx.Done():
				srv.Stop()
			}
			return nil
		},
	})
	return srv
}

// ── Reconciliation ──────────────────────────────────────────────────────────

func newScheduler(lc fx.Lifecycle, cfg *config.Config, svc *lifecycle.Service, logger *zap.Logger) *reconcile.Scheduler {
	s := reconcile.New(svc, logger.Named("reconcile"), cfg.ReconcileSchedule)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return s.Start(context.Background()) },
		OnStop:  s.Stop,
	})
	return s
}
