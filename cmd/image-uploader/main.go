package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/unimarket/image-uploader/internal/api/handlers/upload"
	"github.com/unimarket/image-uploader/internal/api/router"
	"github.com/unimarket/image-uploader/internal/api/server"
	"github.com/unimarket/image-uploader/internal/config"
	"github.com/unimarket/image-uploader/internal/crop"
	"github.com/unimarket/image-uploader/internal/infra/kafka/consumer"
	"github.com/unimarket/image-uploader/internal/infra/kafka/producer"
	"github.com/unimarket/image-uploader/internal/kafka/handlers/recrop"
	"github.com/unimarket/image-uploader/internal/queue"
	uploadsvc "github.com/unimarket/image-uploader/internal/service/upload"
	"github.com/unimarket/image-uploader/internal/storage/file"
	"github.com/unimarket/image-uploader/internal/validate"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	targets, err := cfg.CropTargets()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid crop targets")
	}

	// Retry strategy for Kafka and upload calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize object storage (MinIO).
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL, cfg.Storage.PublicBaseURL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Crop pipeline: transform engine + gg rasterizer.
	cropper := crop.NewCropper(crop.NewGGRasterizer())

	// Kafka producer for upload-completed events.
	p := producer.New(&cfg.Kafka, strategy)

	// Queue controller driving crop -> upload, one file at a time.
	controller := queue.New(ctx, cropper, storage, p, queue.Config{
		Folder:        cfg.Upload.Folder,
		UploadTimeout: cfg.Upload.Timeout,
		Retry:         strategy,
	})

	service := uploadsvc.NewService(controller, cropper, storage, p, targets, validate.Options{
		MaxSizeMB:         cfg.Validation.MaxSizeMB,
		AcceptedMimeTypes: cfg.Validation.AcceptedMimeTypes,
		MaxCount:          cfg.Validation.MaxCount,
	}, cfg.Upload.Folder)

	// Kafka message handler for re-crop requests.
	recropHandler := recrop.NewHandler(service)

	// HTTP handler for queue routes.
	h := upload.NewHandler(service)

	// Kafka consumer for re-crop request events.
	c := consumer.New(&cfg.Kafka, strategy, recropHandler)

	// Start Kafka consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Log queue events for observability.
	go func() {
		for ev := range controller.Events() {
			zlog.Logger.Info().
				Str("kind", string(ev.Kind)).
				Str("filename", ev.Filename).
				Str("state", string(ev.State)).
				Str("error", ev.Error).
				Msg("queue event")
		}
	}()

	// Start HTTP server in a separate goroutine.
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
