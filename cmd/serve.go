package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Scorekeep/config"
	"Scorekeep/middleware"
	"Scorekeep/routes"
	"Scorekeep/services/jobs"
	"Scorekeep/services/ledger"
	"Scorekeep/services/metrics"
	"Scorekeep/services/orchestrator"
	"Scorekeep/services/redis"
	"Scorekeep/services/snapshot"
	"Scorekeep/services/socket_io"
	socketio_types "Scorekeep/services/socket_io/types"
	"Scorekeep/sync"
	"Scorekeep/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and realtime server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	zap.S().Info("Setting up server...")
	if cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := config.ConnectGORM(cfg.Postgres)
	if err != nil {
		return errors.Wrap(err, "connecting to PostgreSQL")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return errors.Wrap(err, "reading GORM PostgreSQL instance")
	}
	defer sqlDB.Close()

	// Only migrate in development or during deployment
	if cfg.Postgres.AutoMigrate {
		if err := config.MigrateDatabase(gormDB); err != nil {
			zap.S().Warnf("Database migration failed: %v", err)
		}
	}

	redisClient, err := config.Connect_redis(cfg.Redis)
	if err != nil {
		return errors.Wrap(err, "connecting to Redis")
	}
	var cache snapshot.Cache
	if redisClient != nil {
		cache = redisClient
		defer redis.CloseRedis(redisClient)
	}

	users := ledger.NewGormUserDirectory(gormDB)
	invitationLedger := ledger.NewLedger(ledger.NewGormStore(gormDB), users, ledger.Options{
		TTL:           cfg.Invitations.TTL,
		EnforceExpiry: cfg.Invitations.EnforceExpiry,
	})
	snapshots := snapshot.NewService(snapshot.NewGormStore(gormDB), cache, cfg.Redis.CacheTTL)
	sio := (*socket_io.MySocketServer)(socketio_types.NewSocketServer())
	orch := orchestrator.New(invitationLedger, orchestrator.NewGormSessionStore(gormDB), snapshots, sio.Registry)
	syncManager := sync.NewSyncManager(snapshots, sync.NewGormCompletedStore(gormDB))

	r := gin.New()
	r.Use(gin.Recovery(), utils.Logger())
	middleware.SetUpMiddleware(r, middleware.Options{
		SessionKey:     cfg.Auth.SessionKey,
		SecureCookies:  cfg.Auth.SecureCookies || cfg.Server.UseHTTPS,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	routes.SetupRoutes(r, routes.Dependencies{
		Users:         users,
		Orchestrator:  orch,
		Invitations:   invitationLedger,
		ActiveGames:   snapshots,
		Completed:     syncManager,
		Metrics:       metrics.NewRegistry(),
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      cfg.Auth.TokenTTL,
		PollInterval:  cfg.Realtime.PollInterval,
		InvitationTTL: cfg.Invitations.TTL,
	})

	corsOrigin := "*"
	if len(cfg.Server.AllowedOrigins) == 1 {
		corsOrigin = cfg.Server.AllowedOrigins[0]
	}
	sio.Start(r, orch, socket_io.Options{
		JWTSecret:       cfg.Auth.JWTSecret,
		RequireAuth:     cfg.Realtime.RequireAuth,
		PingInterval:    cfg.Realtime.PingInterval,
		PingTimeout:     cfg.Realtime.PingTimeout,
		ResponseTimeout: cfg.Realtime.ResponseTimeout,
		CorsOrigin:      corsOrigin,
		Debug:           cfg.Realtime.Debug,
	})
	defer sio.Close()

	sweeper := jobs.NewSessionSweeper(orch, cfg.Jobs.SweepSchedule, cfg.Jobs.SessionMaxAge)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	// Configure port
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
		if cfg.Server.UseHTTPS {
			port = "443"
		}
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	serveErr := make(chan error, 1)
	go func() {
		zap.S().Infof("Server listening on port %s (https=%t)", port, cfg.Server.UseHTTPS)
		var err error
		if cfg.Server.UseHTTPS {
			err = srv.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serveErr:
		if ok {
			return errors.Wrap(err, "starting server")
		}
		return nil
	case sig := <-quit:
		zap.S().Infof("Received signal: %v, shutting down gracefully...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorf("HTTP server shutdown error: %v", err)
	} else {
		zap.S().Info("HTTP server shut down gracefully")
	}
	return nil
}
