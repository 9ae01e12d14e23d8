package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/skyreserve/inventory-reservation/internal/cache"
	"github.com/skyreserve/inventory-reservation/internal/config"
	"github.com/skyreserve/inventory-reservation/internal/engine"
	"github.com/skyreserve/inventory-reservation/internal/handler"
	"github.com/skyreserve/inventory-reservation/internal/middleware"
	"github.com/skyreserve/inventory-reservation/internal/model"
	"github.com/skyreserve/inventory-reservation/internal/queue"
	"github.com/skyreserve/inventory-reservation/internal/router"
	queue_publisher "github.com/skyreserve/inventory-reservation/internal/service"
	"github.com/skyreserve/inventory-reservation/internal/store"
	"github.com/skyreserve/inventory-reservation/internal/store/memory"
	mysqlstore "github.com/skyreserve/inventory-reservation/internal/store/mysql"
	"github.com/skyreserve/inventory-reservation/internal/sweeper"
)

func main() {
	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "inventory-reservation").
		Logger()

	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = memory.New()
		logger.Warn().Msg("using in-memory store; reservations will not survive a restart")
	default:
		db, err := mysqlstore.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			logger.Fatal().Err(err).Msg("mysql connect failed")
		}
		st = mysqlstore.New(db)
	}

	eng := engine.New(st, cfg.HoldWindow, logger)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; availability cache and rate limiting disabled")
	}
	avail := cache.NewAvailability(rdb, 30*time.Second)

	// The sweeper is owned by the process lifecycle: started here, stopped
	// by cancelling ctx during shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(eng, cfg.SweepInt, logger)
	sw.Notify = func(ctx context.Context, expired []model.Reservation) {
		units := make([]string, 0, len(expired))
		for i := range expired {
			r := &expired[i]
			units = append(units, r.InventoryUnitID)
			_ = queue_publisher.PublishReservationEvent(ctx, queue.QueueExpired, queue.ReservationEvent{
				ReservationID:     r.ID,
				InventoryUnitID:   r.InventoryUnitID,
				ExternalBookingID: r.ExternalBookingID,
				Quantity:          r.Quantity,
				Status:            string(r.Status),
				OccurredAt:        time.Now().UTC().Format(time.RFC3339),
			})
		}
		avail.Invalidate(ctx, units...)
	}
	go sw.Run(ctx)

	h := handler.NewReservationHandler(eng, avail, logger)
	h.Publish = queue_publisher.PublishReservationEvent

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, h, middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}
