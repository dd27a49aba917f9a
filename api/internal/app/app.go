package app

import (
	"context"
	"errors"
	"fmt"
	"mashub/api/internal/config"
	"mashub/api/internal/delivery"
	"mashub/api/internal/infra/database"
	"mashub/api/internal/infra/health"
	"mashub/api/internal/infra/nats"
	"mashub/api/internal/infra/redis"
	"mashub/api/internal/infra/s3"
	"mashub/api/internal/logger"
	"mashub/api/internal/service"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"
	"gorm.io/gorm"
)

const (
	SHUTDOWN_TIMEOUT = 10 * time.Second
	HEALTH_INTERVAL  = 15 * time.Second
)

type App struct {
	Config *config.Config
	Db     *gorm.DB
	Log    logger.Logger

	closers    []func()
	background sync.WaitGroup
}

// Deps builds the optional backends named in the config. Everything that
// fails here is fatal: a configured backend that can't start is a
// misconfiguration, not something to degrade around.
func (app *App) Deps(ctx context.Context) (service.Deps, error) {
	var deps service.Deps

	if app.Config.Nats.Url != "" {
		ni, err := nats.Init(ctx, app.Config, app.Log)
		if err != nil {
			return deps, fmt.Errorf("nats: %w", err)
		}
		app.Log.SetSink(ni)
		deps.Notifier = service.NewNatsNotifier(ni)
		app.closers = append(app.closers, ni.Close)
	}

	if app.Config.Archive.Bucket != "" {
		store, err := s3.Init(ctx, app.Config)
		if err != nil {
			return deps, fmt.Errorf("archive: %w", err)
		}
		deps.Archiver = service.NewS3Archiver(store)
	}

	switch app.Config.Locker.Backend {
	case "redis":
		rdb, err := redis.Init(ctx, app.Config)
		if err != nil {
			return deps, fmt.Errorf("redis: %w", err)
		}
		deps.Locker = service.NewRedisLocker(rdb)
		app.closers = append(app.closers, func() { rdb.Close() })
	case "postgres":
		pool, err := database.InitPgxPool(ctx, app.Config.DB.Dsn)
		if err != nil {
			return deps, fmt.Errorf("pgx: %w", err)
		}
		deps.Locker = service.NewPostgresLocker(pool)
		app.closers = append(app.closers, pool.Close)
	}

	return deps, nil
}

// Start runs the app until SIGINT/SIGTERM and releases everything after.
func (app *App) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer app.Close()

	return app.Run(ctx)
}

// Run serves until ctx is done or a listener fails. Background loops are
// stopped and drained before it returns, so the db can be closed after.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer app.background.Wait()
	defer cancel()

	deps, err := app.Deps(ctx)
	if err != nil {
		return fmt.Errorf("init backends: %w", err)
	}

	services := service.HewServices(app.Db, app.Log, app.Config, deps)

	gin.SetMode(gin.ReleaseMode)
	if !app.Config.ProdEnv {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	{
		h := delivery.InitHandler(services, app.Db, app.Config, app.Log)

		h.InitAPI(r)
	}

	eChan := make(chan error, 2)

	if app.Config.Grpc.HealthAddr != "" {
		hs, err := app.startHealth(ctx, eChan)
		if err != nil {
			return fmt.Errorf("grpc health listen %s: %w", app.Config.Grpc.HealthAddr, err)
		}
		defer hs.Stop()
	}

	lis, err := net.Listen("tcp", app.Config.Api.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.Config.Api.Addr, err)
	}
	if app.Config.Api.MaxConns > 0 {
		lis = netutil.LimitListener(lis, app.Config.Api.MaxConns)
	}

	app.Autostart(ctx, services)

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.Log.Info("api is starting", logger.LS_HTTP, false, "addr", lis.Addr().String())

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			eChan <- fmt.Errorf("serve: %w", err)
		}
	}()

	var runErr error
	select {
	case runErr = <-eChan:
		app.Log.TemplHTTPError("app fatal error", app.Config.Api.Addr, runErr)
	case <-ctx.Done():
		app.Log.Info("shutting down", logger.LS_HTTP, false)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Log.TemplHTTPError("shutdown", app.Config.Api.Addr, err)
	}

	return runErr
}

func (app *App) startHealth(ctx context.Context, eChan chan<- error) (*health.Server, error) {
	lis, err := net.Listen("tcp", app.Config.Grpc.HealthAddr)
	if err != nil {
		return nil, err
	}

	hs := health.New(func(ctx context.Context) error {
		return database.Ping(ctx, app.Db)
	})
	app.background.Add(1)
	go func() {
		defer app.background.Done()
		hs.Watch(ctx, HEALTH_INTERVAL)
	}()

	go func() {
		if err := hs.Serve(lis); err != nil {
			eChan <- fmt.Errorf("grpc health: %w", err)
		}
	}()

	app.Log.Info("grpc health is starting", logger.LS_HTTP, false, "addr", app.Config.Grpc.HealthAddr)
	return hs, nil
}

// Autostart runs the background loops.
func (app *App) Autostart(ctx context.Context, services *service.Services) {
	if !app.Config.Retry.Autostart {
		app.Log.Info("Autostart: retry sweeper disabled", logger.LS_RETRIES, false)
		return
	}

	app.Log.Info("Autostart: run retry sweeper", logger.LS_RETRIES, false, "interval", app.Config.Retry.Interval.String())
	app.background.Add(1)
	go func() {
		defer app.background.Done()
		services.Retries.RunSweeper(ctx, app.Config.Retry.Interval)
	}()
}

// Close releases the backends opened by Deps and the db.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	if app.Db != nil {
		if err := database.Close(app.Db); err != nil {
			fmt.Fprintln(os.Stderr, "close db:", err)
		}
	}
}
