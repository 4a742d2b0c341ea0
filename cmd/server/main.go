package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/config"
	"github.com/garcia-cyber/popcornRDC/internal/handler"
	"github.com/garcia-cyber/popcornRDC/internal/infra"
	"github.com/garcia-cyber/popcornRDC/internal/router"
	"github.com/garcia-cyber/popcornRDC/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	store, err := newImagenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to init image storage")
	}

	svcs := router.NewServicios(cfg, db, rdb, store)

	// Label e-mails only run when SMTP is configured. The pool is wired here
	// (composition root) so it shares the product service with the API.
	var cola handler.EtiquetaEncolador
	var pool *worker.Pool
	mailer := infra.NewMailer(cfg)
	if mailer.Configurado() {
		cola = worker.NewDispatcher(rdb)
		smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
		pool = worker.NewPool(rdb, worker.QueueEtiquetas, map[string]worker.Handler{
			worker.JobEtiqueta: worker.NewEtiquetaWorker(svcs.Productos, mailer, smtpCB, cfg.ShopName),
		})
		pool.Start(ctx, cfg.WorkerPoolSize)
	} else {
		log.Warn().Msg("SMTP_HOST not set: label e-mails disabled")
	}

	r := router.New(cfg, db, rdb, svcs, cola)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("popcornRDC listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

func newImagenStore(ctx context.Context, cfg *config.Config) (infra.ImagenStore, error) {
	if cfg.StorageDriver == "minio" {
		return infra.NewMinioStore(ctx, infra.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return infra.NewLocalStore(cfg.BarcodeStoragePath)
}
