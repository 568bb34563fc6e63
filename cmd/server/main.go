package main // Entry point package

import (
	"context"   // Root context for the process lifetime
	"errors"    // Detecting a clean server shutdown
	"net/http"  // http.ErrServerClosed
	"os"        // Signals
	"os/signal" // Cancel on SIGINT/SIGTERM
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/sirupsen/logrus"  // Structured logging
	"golang.org/x/sync/errgroup"  // Runs the server and background workers together

	"github.com/iliyamo/event-ticketing/internal/clock"      // Wall clock
	"github.com/iliyamo/event-ticketing/internal/config"     // Internal config loader
	"github.com/iliyamo/event-ticketing/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/event-ticketing/internal/handler"    // HTTP handlers
	"github.com/iliyamo/event-ticketing/internal/logging"    // Logger construction
	"github.com/iliyamo/event-ticketing/internal/mailer"     // SMTP delivery of notifications
	"github.com/iliyamo/event-ticketing/internal/middleware" // Request logging, cache, rate limit
	"github.com/iliyamo/event-ticketing/internal/queue"      // RabbitMQ publisher and consumer
	"github.com/iliyamo/event-ticketing/internal/repository" // Data access
	"github.com/iliyamo/event-ticketing/internal/router"     // Route registration
	"github.com/iliyamo/event-ticketing/internal/service"    // Booking, check-in and inventory logic
)

func main() {
	config.LoadDotEnv() // Pick up a local .env when present
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.SchemaAutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log) // nil disables caching and rate limiting
	if rdb != nil {
		defer rdb.Close()
	}
	availability := middleware.NewAvailabilityCache(config.LoadCacheConfig(), rdb, log)

	clk := clock.NewSystem()
	tickets := repository.NewTicketTypeRepo(db)
	bookings := repository.NewBookingRepo(db)
	txm := repository.NewTxManager(db)

	// Notifications go to RabbitMQ when a broker is configured; otherwise
	// they are only logged.
	var dispatcher service.Dispatcher = service.LogDispatcher{Log: log}
	if cfg.AMQPURL != "" {
		dispatcher = queue.NewPublisher(cfg.AMQPURL, log)
	}

	ledger := service.NewInventoryLedger(tickets, txm, clk,
		service.WithLedgerLogger(log),
		service.WithLedgerCache(availability),
	)
	codes := service.NewCodeIssuer(bookings, clk,
		service.WithCodeLength(cfg.BookingCodeLength),
		service.WithCodeLogger(log),
	)
	bookingSvc := service.NewBookingService(bookings, ledger, txm, codes, clk,
		service.WithDispatcher(dispatcher),
		service.WithNotifyTimeout(cfg.NotifyTimeout),
		service.WithAvailabilityCache(availability),
		service.WithBookingLogger(log),
	)
	checkinSvc := service.NewCheckinService(bookings, clk, log)
	auditor := service.NewInventoryAuditor(tickets, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.Recover(log), middleware.RequestID(), middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Health:    handler.Health(db),
		Inventory: handler.NewInventoryHandler(ledger, log),
		Bookings:  handler.NewBookingHandler(bookingSvc, log),
		Checkin:   handler.NewCheckinHandler(checkinSvc, log),
		Cache:     availability.Middleware(),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port // Address string with port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})
	g.Go(func() error {
		return auditor.Run(ctx, cfg.AuditInterval)
	})
	if cfg.AMQPURL != "" && cfg.ConsumerEnabled {
		var sender queue.Sender
		mcfg := mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}
		if mcfg.Enabled() {
			sender = mailer.New(mcfg, log)
		}
		consumer := queue.NewConsumer(cfg.AMQPURL, sender, cfg.LogDir, log)
		g.Go(func() error { return consumer.Run(ctx) })
	}

	err = g.Wait()
	waitFor(log, bookingSvc, 5*time.Second)
	return err
}

// waitFor gives in-flight notifications a bounded time to finish.
func waitFor(log logrus.FieldLogger, svc *service.BookingService, d time.Duration) {
	done := make(chan struct{})
	go func() { svc.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(d):
		log.Warn("notifications still in flight at shutdown")
	}
}
