// cmd/conference-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"conference-engine/internal/common/config"
	"conference-engine/internal/common/database"
	"conference-engine/internal/common/logger"
	"conference-engine/internal/engine/conference"
	"conference-engine/internal/engine/templates"
	"conference-engine/internal/engine/wizard"
	"conference-engine/internal/executor"
	"conference-engine/internal/links"
	"conference-engine/internal/notify"
	"conference-engine/internal/storage/memory"
	"conference-engine/pkg/transfer"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting conference engine...",
		zap.String("environment", cfg.App.Environment),
		zap.String("executorSource", cfg.Executor.Source),
	)

	ctx := context.Background()
	executorTimeout := time.Duration(cfg.Executor.Timeout) * time.Millisecond

	// --- Init query executor ---
	var queryExecutor executor.QueryExecutor
	switch cfg.Executor.Source {
	case "elasticsearch":
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		queryExecutor = executor.NewElasticsearchExecutor(esClient.Client, executorTimeout, log)

	default:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		queryExecutor = executor.NewPostgresExecutor(pg.DB, executorTimeout, log)
	}
	zapLog.Info("Query executor ready")

	// --- Init Redis for client links ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	linkManager := links.NewManager(
		redis.Client,
		time.Duration(cfg.Links.TTLHours)*time.Hour,
		cfg.Links.BaseURL,
		log,
	)

	// --- Init link delivery adapters ---
	var notifiers notify.Multi
	if cfg.Notifications.Email.Enabled {
		sesNotifier, err := notify.NewSESNotifier(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail, log)
		if err != nil {
			zapLog.Fatal("failed to create SES notifier", zap.Error(err))
		}
		notifiers = append(notifiers, sesNotifier)
	}
	if cfg.Notifications.Push.Enabled {
		snsNotifier, err := notify.NewSNSNotifier(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Push.TopicARN, log)
		if err != nil {
			zapLog.Fatal("failed to create SNS notifier", zap.Error(err))
		}
		notifiers = append(notifiers, snsNotifier)
	}

	// --- Wire engine services ---
	store := memory.New()
	app := &engineApp{
		templates:   templates.NewService(store, log),
		conferences: conference.NewService(store, queryExecutor, log),
		wizard:      wizard.NewController(store, cfg.Wizard.EnforceSectionCompletion, log),
		links:       linkManager,
		notifier:    notifiers,
		logger:      log,
	}

	if cfg.Templates.Dir != "" {
		if err := app.loadTemplates(ctx, cfg.Templates.Dir); err != nil {
			zapLog.Fatal("template import failed", zap.Error(err))
		}
	}

	zapLog.Info("Engine services wired",
		zap.Bool("enforceSectionCompletion", cfg.Wizard.EnforceSectionCompletion),
	)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	zapLog.Info("Conference engine stopped gracefully")
}

// engineApp groups the wired services so the presentation layer (out of
// process) can be pointed at one place.
type engineApp struct {
	templates   *templates.Service
	conferences *conference.Service
	wizard      *wizard.Controller
	links       *links.Manager
	notifier    notify.Notifier
	logger      logger.Logger
}

// loadTemplates imports every *.json template document from a directory
// at startup. Inconsistent documents abort the boot: a bad template must
// never become instantiable.
func (a *engineApp) loadTemplates(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		template, err := transfer.Import(data)
		if err != nil {
			return fmt.Errorf("import %s: %w", entry.Name(), err)
		}
		if err := a.templates.Save(ctx, template); err != nil {
			return fmt.Errorf("save %s: %w", entry.Name(), err)
		}
		count++
	}

	a.logger.Info("templates imported", map[string]interface{}{
		"dir":   dir,
		"count": count,
	})
	return nil
}
