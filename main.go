package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocalib/internal"
	"gocalib/internal/config"
	"gocalib/internal/container"
	"gocalib/internal/metrics"
	"gocalib/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level), appConfig.Log.Format == "console")
	internal.DefaultLogger = logger

	if err := run(appConfig, logger); err != nil {
		logger.Error("server stopped: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appConfig *config.Config, logger *internal.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create application container: %w", err)
	}
	if err := appContainer.InitStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer appContainer.Shutdown(context.Background())

	metrics.MustRegister()
	gin.SetMode(appConfig.Server.GinMode)

	server := ui.NewServer(appContainer.CalibrationService, appContainer.ExperimentService, ui.Options{
		RateLimitRPS:   appConfig.Server.RateLimitRPS,
		RateLimitBurst: appConfig.Server.RateLimitBurst,
		DefaultSeed:    appConfig.Experiment.Seed,
		Logger:         logger,
	})

	servers := []*http.Server{
		server.HTTPServer(":"+appConfig.Server.Port, appConfig.Server.ReadTimeout, appConfig.Server.WriteTimeout),
	}
	if appConfig.Admin.Enabled {
		admin := ui.NewAdminApp(nil, appContainer.HealthChecks())
		servers = append(servers, &http.Server{
			Addr:              ":" + appConfig.Admin.Port,
			Handler:           admin,
			ReadHeaderTimeout: appConfig.Server.ReadTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Stale client limiters are dropped so the map does not grow without bound
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if l := server.Limiter(); l != nil {
					if n := l.Cleanup(10 * time.Minute); n > 0 {
						logger.Debug("dropped %d idle rate limiters", n)
					}
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown of %s: %v", srv.Addr, err)
			}
		}
		return nil
	})

	return g.Wait()
}
