package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/phrazzld/taskman-api/internal/events"
	"github.com/phrazzld/taskman-api/internal/job"
	"github.com/phrazzld/taskman-api/internal/notify"
	"github.com/phrazzld/taskman-api/internal/platform/postgres"
	"github.com/phrazzld/taskman-api/internal/platform/redis"
	"github.com/phrazzld/taskman-api/internal/platform/scheduler"
	"github.com/phrazzld/taskman-api/internal/service"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/store"
	"github.com/phrazzld/taskman-api/internal/sweep"
)

const (
	sweepJobName    = "overdue_sweep"
	leaseKeyPrefix  = "taskman:lease:"
	shutdownTimeout = 10 * time.Second
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	userStore    store.UserStore
	projectStore store.ProjectStore
	taskStore    store.TaskStore

	jwtService     auth.JWTService
	userService    service.UserService
	projectService service.ProjectService
	taskService    service.TaskService

	eventEmitter *events.InMemoryEventEmitter
	jobRunner    *job.Runner
	channel      notify.Channel
	notifier     *notify.Notifier

	sweeper   *sweep.Sweeper
	scheduler *scheduler.Scheduler
}

// newApplication wires stores, services, the job runner and the sweep
// schedule. The job runner is started here so jobs left over from a previous
// run are recovered before the first request is accepted. The application
// owns db from here on and closes it on failure.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := app.init(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

func (app *application) init(ctx context.Context) error {
	cfg, logger, db := app.config, app.logger, app.db

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.projectStore = postgres.NewPostgresProjectStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.channel, err = notify.NewChannel(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notification channel: %w", err)
	}
	logger.Info("notification channel initialized", "provider", cfg.Notify.Provider)

	if err := app.setupJobs(); err != nil {
		return err
	}

	app.userService = service.NewUserService(app.userStore, auth.NewBcryptVerifier(), db, logger)
	app.projectService, err = service.NewProjectService(db, app.projectStore, app.taskStore, logger)
	if err != nil {
		return fmt.Errorf("failed to create project service: %w", err)
	}
	app.taskService, err = service.NewTaskService(
		db, app.taskStore, app.projectStore, app.userStore, app.eventEmitter, logger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}

	return app.setupSweep(ctx)
}

// setupJobs builds the persisted job runner, registers the notification
// handlers and connects the event emitter to it.
func (app *application) setupJobs() error {
	log := app.logger

	app.jobRunner = job.NewRunner(
		postgres.NewPostgresJobStore(app.db, log),
		job.ConfigFromJobs(app.config.Jobs),
		log,
	)
	app.jobRunner.SetErrorHandler(func(j *job.Job, err error) {
		log.Error("notification job failed permanently",
			slog.String("job_id", j.ID.String()),
			slog.String("job_kind", j.Kind),
			slog.Int("attempts", j.Attempts),
			slog.String("error", err.Error()))
	})

	app.notifier = notify.NewNotifier(app.taskStore, app.channel, log)
	app.notifier.RegisterHandlers(app.jobRunner)

	app.eventEmitter = events.NewInMemoryEventEmitter(log)
	app.eventEmitter.RegisterHandler(job.NewEventHandler(app.jobRunner, log))

	if err := app.jobRunner.Start(); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	return nil
}

// setupSweep schedules the overdue sweep. The lease lives in Redis when a
// Redis URL is configured so only one replica sends each day's summaries.
func (app *application) setupSweep(ctx context.Context) error {
	cfg := app.config.Sweep
	app.scheduler = scheduler.New(app.logger)
	if !cfg.Enabled {
		app.logger.Info("overdue sweep disabled")
		return nil
	}

	var lease sweep.Lease
	if app.config.Redis.URL != "" {
		client, err := redis.NewClient(ctx, app.config.Redis.URL, app.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		lease = sweep.NewRedisLease(client, leaseKeyPrefix)
	} else {
		app.logger.Warn("redis not configured, overdue sweep lease is process-local")
		lease = sweep.NewLocalLease()
	}

	app.sweeper = sweep.NewSweeper(app.taskStore, app.channel, lease, app.logger,
		sweep.WithLeaseTTL(time.Duration(cfg.LeaseTTLSeconds)*time.Second))

	if err := app.scheduler.AddJob(sweepJobName, cfg.Cron, app.runSweep); err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	return nil
}

func (app *application) runSweep(ctx context.Context) {
	result, err := app.sweeper.Run(ctx)
	if err != nil {
		app.logger.Error("overdue sweep failed", slog.String("error", err.Error()))
		return
	}
	app.logger.Info("overdue sweep finished",
		slog.Bool("skipped", result.Skipped),
		slog.Int("tasks", result.Tasks),
		slog.Int("recipients", result.Recipients),
		slog.Int("sent", result.Sent),
		slog.Int("failed", len(result.Failures)))
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	app.scheduler.Start()
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and closes connections. Safe to call on a
// partially initialized application.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
