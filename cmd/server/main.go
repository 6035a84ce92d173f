package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"siwarga/internal/access"
	"siwarga/internal/announcement"
	"siwarga/internal/directory"
	dirstore "siwarga/internal/directory/store"
	jwttoken "siwarga/internal/jwt_token"
	"siwarga/internal/notification"
	"siwarga/internal/notification/fanout"
	notifhandler "siwarga/internal/notification/handler"
	notifmetrics "siwarga/internal/notification/metrics"
	notifservice "siwarga/internal/notification/service"
	notifstore "siwarga/internal/notification/store"
	"siwarga/internal/notification/store/unreadcache"
	"siwarga/internal/platform/config"
	"siwarga/internal/platform/httpserver"
	"siwarga/internal/platform/logger"
	"siwarga/internal/platform/metrics"
	"siwarga/internal/platform/postgres"
	"siwarga/internal/platform/redis"
	httptransport "siwarga/internal/transport/http"
	"siwarga/internal/workflow"
	wfhandler "siwarga/internal/workflow/handler"
	wfmetrics "siwarga/internal/workflow/metrics"
	wfstore "siwarga/internal/workflow/store"
	"siwarga/migrations"
)

type storage struct {
	directory     directory.Store
	residents     workflow.ResidentStore
	records       workflowRecords
	notifications notifservice.Store
	db            *sql.DB
}

type workflowRecords interface {
	workflow.DocumentStore
	workflow.ComplaintStore
	workflow.RecipientStore
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)
	if err := run(cfg, log); err != nil {
		log.Error("siwarga stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStorage(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if stores.db != nil {
		defer stores.db.Close()
	}

	templates := notification.DefaultTemplates()
	if cfg.Notification.TemplatesPath != "" {
		if templates, err = notification.LoadTemplates(cfg.Notification.TemplatesPath); err != nil {
			return err
		}
	}

	notifMetrics := notifmetrics.New()
	notifOpts := []notifservice.Option{notifservice.WithLogger(log), notifservice.WithMetrics(notifMetrics)}
	cache, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		notifOpts = append(notifOpts, notifservice.WithUnreadCache(unreadcache.New(cache.Client, cfg.Redis.UnreadTTL)))
		log.Info("unread count cache enabled")
	}
	notifications := notifservice.New(stores.notifications, notifOpts...)

	dir := directory.New(stores.directory, directory.WithLogger(log))
	policy := access.New(dir, access.WithLogger(log))
	dispatcher := fanout.New(dir, notifications,
		fanout.WithLogger(log),
		fanout.WithMetrics(notifMetrics),
		fanout.WithConcurrency(cfg.Notification.FanoutConcurrency),
	)
	engine, err := workflow.New(policy, dir, workflow.Stores{
		Residents:  stores.residents,
		Documents:  stores.records,
		Complaints: stores.records,
		Recipients: stores.records,
	},
		workflow.WithLogger(log),
		workflow.WithMetrics(wfmetrics.New()),
		workflow.WithDispatcher(dispatcher),
		workflow.WithTemplates(templates),
	)
	if err != nil {
		return err
	}
	announcements := announcement.New(dir, announcement.WithLogger(log), announcement.WithDispatcher(dispatcher))

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Validator: jwttoken.NewMiddlewareValidator(tokens),
		Metrics:   metrics.New(),
		Gatherer:  prometheus.DefaultGatherer,
		Health: func(r *http.Request) error {
			if stores.db != nil {
				if err := stores.db.PingContext(r.Context()); err != nil {
					return err
				}
			}
			if cache != nil {
				return cache.Health(r.Context())
			}
			return nil
		},
	},
		notifhandler.New(notifications, log),
		wfhandler.New(engine, log),
		announcement.NewHandler(announcements, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting siwarga", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// Let detached notification dispatches finish before closing the stores.
	engine.Wait()
	return nil
}

// openStorage selects Postgres stores when a database URL is configured and
// in-memory stores otherwise.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*storage, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		dirs := dirstore.NewInMemoryStore()
		return &storage{
			directory:     dirs,
			residents:     dirs,
			records:       wfstore.NewInMemoryStore(dirs),
			notifications: notifstore.NewInMemoryStore(),
		}, nil
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := migrations.Apply(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("database migrations applied")
	}
	dirs := dirstore.NewPostgres(db)
	return &storage{
		directory:     dirs,
		residents:     dirs,
		records:       wfstore.NewPostgres(db),
		notifications: notifstore.NewPostgres(db),
		db:            db,
	}, nil
}
