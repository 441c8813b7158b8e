package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/epp-ledger/internal/application/inventory"
	"github.com/jhoicas/epp-ledger/internal/application/usecase"
	"github.com/jhoicas/epp-ledger/internal/domain/repository"
	"github.com/jhoicas/epp-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/epp-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/epp-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/epp-ledger/internal/infrastructure/scheduler"
	"github.com/jhoicas/epp-ledger/internal/infrastructure/webhook"
	httpRouter "github.com/jhoicas/epp-ledger/internal/interfaces/http"
	"github.com/jhoicas/epp-ledger/pkg/config"
	"github.com/jhoicas/epp-ledger/pkg/jwt"
	"github.com/jhoicas/epp-ledger/pkg/logger"
)

// storage repositorios y runner transaccional del backend elegido.
type storage struct {
	txRunner      inventory.TxRunner
	lotRepo       repository.LotRepository
	deliveryRepo  repository.DeliveryRepository
	thresholdRepo repository.ThresholdRepository
	centerRepo    repository.CenterRepository
	workerRepo    repository.WorkerRepository
	close         func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore()
		return &storage{
			txRunner:      store,
			lotRepo:       store.LotRepository(),
			deliveryRepo:  store.DeliveryRepository(),
			thresholdRepo: store.ThresholdRepository(),
			centerRepo:    store.CenterRepository(),
			workerRepo:    store.WorkerRepository(),
			close:         func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema aplicado")
	}
	return &storage{
		txRunner:      postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		lotRepo:       postgres.NewLotRepository(pool),
		deliveryRepo:  postgres.NewDeliveryRepository(pool),
		thresholdRepo: postgres.NewThresholdRepository(pool),
		centerRepo:    postgres.NewCenterRepository(pool),
		workerRepo:    postgres.NewWorkerRepository(pool),
		close:         pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		App:   cfg.App.Name,
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	verifier, err := jwt.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar verificación de tokens")
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	var (
		notifiers []inventory.DeliveryNotifier
		publisher inventory.AlertPublisher = scheduler.NewLogPublisher(log.Named("alerts"))
	)
	if cfg.Webhook.URL != "" {
		hook := webhook.NewNotifier(cfg.Webhook)
		notifiers = append(notifiers, hook)
		publisher = hook
		log.Info().Str("url", cfg.Webhook.URL).Msg("webhook habilitado")
	}

	intakeUC := inventory.NewIntakeUseCase(st.txRunner, st.lotRepo, st.centerRepo, log.Named("intake"), cfg.Ledger.MaxBulkRows)
	auditGuard := inventory.NewAuditGuard(st.txRunner, log.Named("audit"))
	thresholds := inventory.NewThresholdRegistry(st.thresholdRepo, st.lotRepo)
	coordinator := inventory.NewDeliveryCoordinator(
		st.txRunner, inventory.NewFIFOAllocator(),
		st.deliveryRepo, st.workerRepo, st.centerRepo,
		inventory.CoordinatorConfig{TxTimeout: cfg.Ledger.TxTimeout, MaxRetries: cfg.Ledger.MaxRetries},
		log.Named("deliveries"),
		notifiers...,
	)
	receipts := inventory.NewReceiptUseCase(coordinator, st.workerRepo, st.centerRepo, infrapdf.NewReceiptGenerator())
	reconciler := inventory.NewReconciler(st.lotRepo, st.deliveryRepo, log.Named("reconcile"))
	centerUC := usecase.NewCenterUseCase(st.centerRepo, st.workerRepo)

	var sweeper *scheduler.Scheduler
	if cfg.Alerts.Enabled {
		sweeper = scheduler.New(cfg.Alerts.CronSchedule, thresholds, publisher, log.Named("scheduler"))
		if err := sweeper.Start(); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Alerts.CronSchedule).Msg("programar barrido de stock crítico")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Named("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.DocsPath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.DocsPath,
			Path:     "docs",
			Title:    "EPP Ledger API",
		}))
	} else {
		log.Warn().Str("path", cfg.HTTP.DocsPath).Msg("swagger.json no encontrado, /docs deshabilitado")
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		IntakeUC:    intakeUC,
		AuditGuard:  auditGuard,
		Thresholds:  thresholds,
		Coordinator: coordinator,
		Receipts:    receipts,
		Reconciler:  reconciler,
		CenterUC:    centerUC,
		Verifier:    verifier,
		Logger:      log.Named("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if err := coordinator.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("notificaciones pendientes sin completar")
	}

	log.Info().Msg("aplicación detenida")
}
