package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "hive_schedule/docs"
	"hive_schedule/internal/cognito"
	"hive_schedule/internal/config"
	"hive_schedule/internal/handlers"
	"hive_schedule/internal/hive"
	"hive_schedule/internal/logger"
	"hive_schedule/internal/repository"
	"hive_schedule/internal/repository/db"
	"hive_schedule/internal/server"
	"hive_schedule/internal/service"
	"hive_schedule/internal/session"
)

const shutdownTimeout = 10 * time.Second

// @title                       Hive Schedule API
// @version                     1.0
// @description                 Keeps a Hive session alive and edits heating schedules one day at a time.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token from /auth/sign-in.
func main() {
	// load configs/config.yml + HIVE_SCHEDULE_* env
	cfg, err := config.Load("configs", ".")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	// open DB
	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	httpClient := &http.Client{Timeout: cfg.Hive.RequestTimeout}

	idp := cognito.NewClient(cfg.CognitoEndpoint(), cfg.Cognito.PoolID, cfg.Cognito.ClientID, httpClient)
	mgr := session.NewManager(idp, repos.TokenRepo, repos.EventRepo, cfg.Credential(), cfg.Session.TokenLifetime, log.Named("session"))
	mgr.Restore(ctx)

	hiveClient := hive.NewClient(cfg.Hive.APIURL, httpClient, mgr, log.Named("hive"))

	services := service.NewService(repos, service.Deps{
		Hive:       hiveClient,
		Session:    mgr,
		Profiles:   cfg.Profiles,
		SigningKey: cfg.API.SigningKey,
		TokenTTL:   cfg.API.TokenTTL,
		Log:        log,
	})
	apiHandler := handlers.NewHandler(services, log.Named("http"))

	// keep the Hive token fresh; first tick logs in if nothing was restored
	go services.Refresher.Run(ctx, cfg.Session.RefreshInterval)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(ctx, srv, cfg, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	log.Infow("opening sqlite", "path", cfg.DB.Path)
	return db.InitDB(cfg.DB.Path)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(ctx context.Context, srv *server.Server, cfg *config.Config, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_listen", "port", cfg.Port)
		if err := srv.Run(ctx, cfg.Port, handler.InitRoutes(), cfg.Hive.RequestTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines and cancel in-flight upstream calls
	cancel()

	// wait for handlers to return
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
