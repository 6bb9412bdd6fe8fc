package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/0ppliger/oam-broker/internal/mirror"
	mid "github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/internal/util"
	"github.com/0ppliger/oam-broker/pkg/broker"
	"github.com/0ppliger/oam-broker/pkg/logger"
	"github.com/0ppliger/oam-broker/pkg/store"
	storepgx "github.com/0ppliger/oam-broker/pkg/store/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Init wires the broker and runs the HTTP server until SIGINT or
// SIGTERM. The Postgres archive and the RabbitMQ mirror are attached
// only when their environment configuration is present.
func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := broker.NewBus(
		util.GetEnvInt("SUBSCRIBER_QUEUE_SIZE", broker.DefaultQueueSize),
		util.GetEnvInt("LOG_RETENTION", broker.DefaultRetention),
	)

	var sinks []broker.Sink
	var archive *storepgx.Archive
	if dbURL := util.GetEnv("DATABASE_URL"); dbURL != "" {
		var err error
		archive, err = storepgx.New(ctx, storepgx.ArchiveParams{
			DatabaseURL:   dbURL,
			MigrationsDir: util.GetEnvString("MIGRATIONS_DIR", "migrations"),
		})
		if err != nil {
			logger.Fatal("Failed to open change archive", "err", err)
		}
		defer archive.Close()

		sink := store.NewArchiveSink(ctx, archive)
		defer sink.Wait()
		sinks = append(sinks, sink)
		logger.Info("Change archive enabled")
	}
	if util.GetEnv("RABBITMQ_HOST") != "" {
		m, err := mirror.Init(ctx)
		if err != nil {
			logger.Fatal("Failed to connect event mirror", "err", err)
		}
		defer m.Close()
		defer m.Wait()
		sinks = append(sinks, m)
		logger.Info("Event mirror enabled")
	}

	graph := broker.NewGraph(broker.GraphParams{
		Bus:   bus,
		Sinks: sinks,
	})

	// Recover state and the change log from the archive, so from_seq
	// subscriptions survive a restart.
	if archive != nil {
		restored := 0
		err := archive.Replay(ctx, 1, func(rec broker.ChangeRecord) error {
			restored++
			return graph.Restore(rec)
		})
		if err != nil {
			logger.Fatal("Failed to restore from change archive", "err", err)
		}
		if restored > 0 {
			logger.Info("Restored change log from archive", "records", restored)
		}
	}

	e.Use(mid.AppContextMiddleware(&mid.App{Graph: graph, Bus: bus}))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server shut down with error", "err", err)
	}
}
