package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	lockpg "github.com/rkreddybogati/scalr/internal/adapter/lock/postgres"
	nomadPlatform "github.com/rkreddybogati/scalr/internal/adapter/platform/nomad"
	"github.com/rkreddybogati/scalr/internal/adapter/repository/postgres"
	"github.com/rkreddybogati/scalr/internal/agent"
	"github.com/rkreddybogati/scalr/internal/api"
	"github.com/rkreddybogati/scalr/internal/behavior"
	"github.com/rkreddybogati/scalr/internal/config"
	"github.com/rkreddybogati/scalr/internal/domain/account"
	"github.com/rkreddybogati/scalr/internal/domain/farm"
	"github.com/rkreddybogati/scalr/internal/domain/platform"
	"github.com/rkreddybogati/scalr/internal/domain/server"
	"github.com/rkreddybogati/scalr/internal/event"
	"github.com/rkreddybogati/scalr/internal/globalvar"
	"github.com/rkreddybogati/scalr/internal/governance"
	"github.com/rkreddybogati/scalr/internal/observer"
	"github.com/rkreddybogati/scalr/internal/reconciler"
	"github.com/rkreddybogati/scalr/internal/usecase/launch"
	"github.com/rkreddybogati/scalr/internal/webhook"
	"github.com/rkreddybogati/scalr/pkg/db"
	zaplog "github.com/rkreddybogati/scalr/pkg/log"
	"github.com/rkreddybogati/scalr/pkg/snowflake"
	"github.com/rkreddybogati/scalr/sql/migrations"
)

// RunServer starts the HTTP server and background workers.
func RunServer() {
	app := fx.New(
		fx.Provide(
			// Config
			config.Load,

			// Persistence adapters (bind interfaces)
			fx.Annotate(
				postgres.NewServerRepository,
				fx.As(new(server.Repository)),
			),
			fx.Annotate(
				postgres.NewFarmRepository,
				fx.As(new(farm.Repository)),
			),
			fx.Annotate(
				postgres.NewStorageRepository,
				fx.As(new(farm.Storage)),
			),
			fx.Annotate(
				postgres.NewProjectRepository,
				fx.As(new(farm.ProjectResolver)),
			),
			fx.Annotate(
				postgres.NewAccountRepository,
				fx.As(new(account.Repository)),
			),
			fx.Annotate(
				postgres.NewUserRepository,
				fx.As(new(account.UserResolver)),
			),
			fx.Annotate(
				postgres.NewGlobalVarRepository,
				fx.As(new(globalvar.Resolver)),
			),
			fx.Annotate(
				postgres.NewGovernanceRepository,
				fx.As(new(governance.Policy)),
			),
			fx.Annotate(
				postgres.NewWebhookStore,
				fx.As(new(webhook.Store)),
			),
			fx.Annotate(
				postgres.NewAgentOutbox,
				fx.As(new(agent.Outbox)),
			),
			fx.Annotate(
				postgres.NewDNSRepository,
				fx.As(new(observer.DNSManager)),
			),
			fx.Annotate(
				postgres.NewHistoryRepository,
				fx.As(new(launch.HistoryRecorder)),
			),
			fx.Annotate(
				postgres.NewImageRegistry,
				fx.As(new(launch.ImageCatalog)),
			),
			fx.Annotate(
				postgres.NewDeploymentRepository,
				fx.As(new(behavior.DeploymentService)),
			),
			fx.Annotate(
				lockpg.NewLocker,
				fx.As(new(reconciler.Locker)),
			),

			// Platform clients
			newPlatformFactory,

			// Behaviors
			newBehaviorRegistry,
			newBehaviorDeps,
			behavior.NewDispatcher,

			// Event core
			newObserverBuiltin,
			event.NewRegistry,
			event.NewDispatcher,
			newEventStore,
			event.NewService,

			// Webhooks
			webhook.NewFanout,
			newWebhookWorker,

			// Launch orchestration
			newLaunchDeps,
			launch.NewOrchestrator,
			reconciler.NewLaunchReconciler,

			// API
			api.NewRouter,
		),
		db.Module,
		snowflake.Module,
		zaplog.Module,
		fx.Invoke(registerHooks),
	)

	app.Run()
}

// RunMigrations executes database migrations (up or down).
func RunMigrations(command string) error {
	if command == "" {
		command = "up"
	}

	cfg := config.Load()
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting database migration...", zap.String("command", command))

	dbURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	d, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dbURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	switch command {
	case "up":
		err := m.Up()
		if err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration up failed: %w", err)
		}
		if err == migrate.ErrNoChange {
			logger.Info("No changes to apply")
		} else {
			logger.Info("Migration up applied successfully")
		}
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Info("Migration down applied successfully")
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}

	return nil
}

func registerHooks(
	lc fx.Lifecycle,
	router *api.Router,
	worker *webhook.Worker,
	launchReconciler *reconciler.LaunchReconciler,
	registry *event.Registry,
	logger *zap.Logger,
) {
	var workerCancel context.CancelFunc
	var reconcilerCancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := registry.EnsureInitialized(); err != nil {
				return err
			}

			workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			workerCancel = cancel
			go worker.Run(workerCtx)

			reconcilerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			reconcilerCancel = cancel
			go launchReconciler.Run(reconcilerCtx)

			go func() {
				if err := router.Run(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("Server failed to start", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server gracefully...")

			if workerCancel != nil {
				workerCancel()
			}
			if reconcilerCancel != nil {
				reconcilerCancel()
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := router.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", zap.Error(err))
				return err
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		},
	})
}

// newPlatformFactory registers the platform clients available to this
// deployment. Cloud SDK clients register here as they are added; the Nomad
// client is always present as the development platform.
func newPlatformFactory(logger *zap.Logger) (*platform.Factory, error) {
	factory := platform.NewFactory()

	nomadClient, err := nomadPlatform.New()
	if err != nil {
		return nil, fmt.Errorf("build nomad platform client: %w", err)
	}
	factory.Register(platform.Nomad, nomadClient)

	return factory, nil
}

func newBehaviorRegistry() (*behavior.Registry, error) {
	registry := behavior.NewRegistry()
	if err := behavior.RegisterBuiltin(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func newBehaviorDeps(
	farms farm.Repository,
	storage farm.Storage,
	servers server.Repository,
	platforms *platform.Factory,
	policy governance.Policy,
	vars globalvar.Resolver,
	deploy behavior.DeploymentService,
	cfg *config.Config,
	logger *zap.Logger,
) behavior.Deps {
	return behavior.Deps{
		Farms:      farms,
		Storage:    storage,
		Servers:    servers,
		Platforms:  platforms,
		Governance: policy,
		Vars:       vars,
		Deploy:     deploy,
		Config:     cfg,
		Logger:     logger,
	}
}

func newObserverBuiltin(
	dns observer.DNSManager,
	storage farm.Storage,
	outbox agent.Outbox,
	behaviors *behavior.Dispatcher,
	logger *zap.Logger,
) func() []event.Observer {
	return observer.Builtin(observer.BuiltinDeps{
		DNS:       dns,
		Storage:   storage,
		Outbox:    outbox,
		Behaviors: behaviors,
		Logger:    logger,
	})
}

func newEventStore(gormDB *gorm.DB, ids *snowflake.Node, fanout *webhook.Fanout, logger *zap.Logger) *event.Store {
	return event.NewStore(gormDB, ids, fanout, logger)
}

func newWebhookWorker(store webhook.Store, cfg *config.Config, logger *zap.Logger) *webhook.Worker {
	return webhook.NewWorker(store, webhook.WorkerConfig{
		PollInterval: time.Duration(cfg.WebhookPollIntervalSec) * time.Second,
		BatchSize:    cfg.WebhookBatchSize,
		MaxAttempts:  cfg.WebhookMaxAttempts,
		RatePerSec:   cfg.WebhookRatePerSec,
		Timeout:      time.Duration(cfg.WebhookTimeoutSec) * time.Second,
	}, logger)
}

func newLaunchDeps(
	servers server.Repository,
	farms farm.Repository,
	accounts account.Repository,
	users account.UserResolver,
	projects farm.ProjectResolver,
	platforms *platform.Factory,
	events *event.Service,
	history launch.HistoryRecorder,
	images launch.ImageCatalog,
	cfg *config.Config,
	logger *zap.Logger,
) launch.Deps {
	return launch.Deps{
		Servers:   servers,
		Farms:     farms,
		Accounts:  accounts,
		Users:     users,
		Projects:  projects,
		Platforms: platforms,
		Events:    events,
		History:   history,
		Images:    images,
		Config:    cfg,
		Logger:    logger,
	}
}
