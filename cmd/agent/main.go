package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/geo_attendance_system/internal/client"
	"github.com/shenikar/geo_attendance_system/internal/config"
	"github.com/shenikar/geo_attendance_system/internal/delivery"
	"github.com/shenikar/geo_attendance_system/internal/detector"
	"github.com/shenikar/geo_attendance_system/internal/handler/http/local"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/outbox"
	"github.com/shenikar/geo_attendance_system/internal/registry"
	"github.com/shenikar/geo_attendance_system/internal/tracker"
	"github.com/shenikar/geo_attendance_system/pkg/logger"
	"github.com/shenikar/geo_attendance_system/pkg/sqlite"
	"github.com/sirupsen/logrus"
)

func main() {
	replay := flag.String("replay", "", "JSON-lines file with location samples to feed on startup (- for stdin)")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.LoadAgentConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userID, err := client.IdentityFromToken(cfg.Token)
	if err != nil {
		log.Fatalf("Failed to read identity from agent token: %v", err)
	}
	log.WithField("user_id", userID).Info("Agent identity resolved")

	// Очередь событий переживает перезапуск агента
	db, err := sqlite.Open(ctx, cfg.Outbox.Path)
	if err != nil {
		log.Fatalf("Failed to open outbox database: %v", err)
	}
	defer db.Close()

	queue, err := outbox.New(ctx, db, log, cfg.Outbox)
	if err != nil {
		log.Fatalf("Failed to initialize outbox: %v", err)
	}
	if pending, err := queue.Pending(ctx); err == nil && pending > 0 {
		log.Infof("Resuming delivery of %d pending events", pending)
	}

	apiClient := client.NewAPIClient(cfg.BackendURL, cfg.Token, cfg.RequestTimeout, log)

	// Реестр геозон: ошибка первого обновления не мешает старту
	zones := registry.New(apiClient, userID, log)
	if err := zones.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Initial zone refresh failed, starting with an empty zone set")
	}
	go zones.Run(ctx, cfg.RegistryRefreshInterval)

	// Воркер доставки
	worker := delivery.NewWorker(queue, apiClient, log, cfg.Delivery)
	worker.OnDeadLetter(func(entry models.OutboxEntry, cause error) {
		log.WithFields(logrus.Fields{
			"local_id": entry.Event.LocalID,
			"type":     entry.Event.Type,
			"zone_id":  entry.Event.ZoneID,
		}).Warnf("Attendance event will not be delivered: %v", cause)
	})
	worker.Start(ctx)

	// Детектор принадлежит горутине трекера
	transitions := detector.New(zones, queue, log, cfg.Detector)
	track := tracker.New(transitions, queue, log, cfg.SampleBufferSize)
	track.Start(ctx)

	if *replay != "" {
		go feedReplay(ctx, track, *replay, log)
	}

	// Loopback API
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := local.NewHandler(track, queue, log)
	handler.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:              cfg.LocalHTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting local HTTP server: %v", err)
		}
	}()
	log.Infof("Agent API listening on %s", cfg.LocalHTTPAddr)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, stopping agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Local server forced to shutdown: %v", err)
	}

	// Несданные события остаются в очереди до следующего запуска
	track.Stop()
	cancel()
	stopped := make(chan struct{})
	go func() {
		worker.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("Delivery worker did not stop in time")
	}

	log.Info("Agent stopped")
}

func feedReplay(ctx context.Context, track *tracker.Tracker, path string, log *logrus.Logger) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.WithError(err).Error("Failed to open replay file")
			return
		}
		defer f.Close()
		r = f
	}

	accepted, err := track.FeedJSONLines(ctx, r)
	if err != nil {
		log.WithError(err).Errorf("Replay stopped after %d samples", accepted)
		return
	}
	log.Infof("Replay finished: %d samples queued", accepted)
}
