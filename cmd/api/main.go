package main

import (
	"context"
	"log"
	"time"

	"coldchain-monitor/internal/core/cache"
	"coldchain-monitor/internal/core/config"
	"coldchain-monitor/internal/core/lock"
	"coldchain-monitor/internal/core/logger"
	"coldchain-monitor/internal/core/notify"
	"coldchain-monitor/internal/core/server"
	monitoradapter "coldchain-monitor/internal/features/monitoring/adapters"
	monitorhandler "coldchain-monitor/internal/features/monitoring/handler"
	monitorports "coldchain-monitor/internal/features/monitoring/ports"
	monitorservice "coldchain-monitor/internal/features/monitoring/service"
	policyservice "coldchain-monitor/internal/features/policy/service"
	shipadapter "coldchain-monitor/internal/features/shipments/adapters"
	shiphandler "coldchain-monitor/internal/features/shipments/handler"
	shipports "coldchain-monitor/internal/features/shipments/ports"
	shipservice "coldchain-monitor/internal/features/shipments/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// @title Coldchain Monitor API
// @version 1.0
// @description Cold-chain shipment temperature monitoring and status tracking.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	ctx := context.Background()

	var (
		shipStore    shipports.Store
		monitorStore monitorports.Store
	)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			l.Fatal("Failed to create db pool", zap.Error(err))
		}
		if err := pool.Ping(ctx); err != nil {
			l.Fatal("Failed to ping db", zap.Error(err))
		}
		defer pool.Close()

		ss := shipadapter.NewPostgresStoreWithPool(pool)
		if err := ss.Migrate(ctx); err != nil {
			l.Fatal("Failed to migrate shipment schema", zap.Error(err))
		}
		ms := monitoradapter.NewPostgresMonitoringStoreWithPool(pool)
		if err := ms.Migrate(ctx); err != nil {
			l.Fatal("Failed to migrate monitoring schema", zap.Error(err))
		}
		shipStore, monitorStore = ss, ms
		l.Info("Postgres connection verified")
	default:
		shipStore = shipadapter.NewMemoryStore()
		monitorStore = monitoradapter.NewMemoryStore()
		l.Info("Using in-memory storage")
	}

	var snapshots monitorports.Snapshotter
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisAdapter(cfg.Cache.RedisURL)
		if err != nil {
			l.Fatal("Failed to create redis adapter", zap.Error(err))
		}
		if err := redisCache.Ping(ctx); err != nil {
			l.Fatal("Redis health check failed", zap.Error(err))
		}
		defer redisCache.Close()
		snapshots = monitoradapter.NewRedisSnapshotter(redisCache)
		l.Info("Redis connection verified")
	}

	hub := notify.NewHub()
	locks := lock.NewKeyed()

	timelineSvc := shipservice.NewTimelineService(shipStore, locks, hub)
	monitorSvc := monitorservice.NewMonitorService(
		monitorStore,
		timelineSvc,
		policyservice.NewResolver(),
		timelineSvc,
		locks,
		hub,
		snapshots,
		time.Duration(cfg.Storage.PersistTimeoutMS)*time.Millisecond,
	)

	shipHdl := shiphandler.NewShipmentHandler(timelineSvc)
	monitorHdl := monitorhandler.NewMonitoringHandler(monitorSvc)

	srv := server.New(cfg)

	srv.App.Post("/shipments", shipHdl.RegisterShipment)
	srv.App.Post("/timeline-events", shipHdl.Advance)
	srv.App.Get("/timeline", shipHdl.GetTimeline)
	srv.App.Post("/readings", monitorHdl.SubmitReading)
	srv.App.Get("/readings", monitorHdl.GetReadings)
	srv.App.Get("/alerts", monitorHdl.GetAlerts)
	srv.App.Get("/stats", monitorHdl.GetStats)

	srv.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	srv.App.Get("/ws/alerts", websocket.New(monitorhandler.AlertStream(hub)))

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
