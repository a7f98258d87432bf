package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihttp "zepp-bridge/internal/api/http"
	"zepp-bridge/internal/auth"
	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/eventing"
	"zepp-bridge/internal/fields"
	"zepp-bridge/internal/ingest/webhook"
	"zepp-bridge/internal/notify"
	"zepp-bridge/internal/observability/metrics"
	"zepp-bridge/internal/projection"
	"zepp-bridge/internal/snapshots"
	snapshotspg "zepp-bridge/internal/snapshots/postgres"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	metrics.Init()

	deviceCfg, err := devices.LoadConfig()
	if err != nil {
		logger.Fatalf("device config error: %v", err)
	}
	registry, err := devices.NewRegistry(deviceCfg)
	if err != nil {
		logger.Fatalf("device registry error: %v", err)
	}
	for _, device := range registry.All() {
		logger.Printf("device registered: id=%s name=%q webhook=%s", device.ID, device.Name, device.WebhookPath())
	}

	bus := eventing.NewBus(logger)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		snapshotRepo := snapshotspg.NewSnapshotRepository(db)
		if err := snapshotRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("snapshot schema error: %v", err)
		}
		snapshots.Rehydrate(context.Background(), registry, snapshotRepo, logger)
		snapshotConsumer, err := snapshots.NewConsumer(registry, snapshotRepo, logger)
		if err != nil {
			logger.Fatalf("snapshot consumer error: %v", err)
		}
		bus.SubscribePayloadReceived("snapshots", snapshotConsumer.Consume)

		if cfg.SnapshotRetention > 0 {
			go func() {
				ticker := time.NewTicker(time.Hour)
				defer ticker.Stop()
				for tick := range ticker.C {
					removed, err := snapshotRepo.Prune(context.Background(), tick.Add(-cfg.SnapshotRetention))
					if err != nil {
						logger.Printf("snapshot prune error: %v", err)
						continue
					}
					if removed > 0 {
						logger.Printf("snapshot prune: removed %d rows", removed)
					}
				}
			}()
		}
	}

	if cfg.NotifyWebhookURL != "" {
		notifier, err := notify.NewNotifier(cfg.NotifyWebhookURL, registry, logger,
			notify.WithCooldown(cfg.NotifyCooldown))
		if err != nil {
			logger.Fatalf("notifier error: %v", err)
		}
		bus.SubscribePayloadReceived("notify", notifier.Consume)
	}

	ingestHandler, err := webhook.NewHandler(registry, bus, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	formatterRegistry := fields.NewRegistry()
	projector, err := projection.NewProjector(formatterRegistry)
	if err != nil {
		logger.Fatalf("projector error: %v", err)
	}
	devicesHandler, err := apihttp.NewDevicesHandler(registry)
	if err != nil {
		logger.Fatalf("devices handler error: %v", err)
	}
	metricsHandler, err := apihttp.NewMetricsHandler(registry, projector)
	if err != nil {
		logger.Fatalf("metrics handler error: %v", err)
	}
	payloadHandler, err := apihttp.NewPayloadHandler(registry)
	if err != nil {
		logger.Fatalf("payload handler error: %v", err)
	}
	workoutsHandler, err := apihttp.NewWorkoutsHandler(registry)
	if err != nil {
		logger.Fatalf("workouts handler error: %v", err)
	}
	errorsHandler, err := apihttp.NewErrorsHandler(registry)
	if err != nil {
		logger.Fatalf("errors handler error: %v", err)
	}
	exportHandler, err := apihttp.NewExportHandler(registry, projector, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/api/webhook/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(func(next http.Handler) http.Handler { return loggingMiddleware(next, logger) })
	router.Use(authMiddleware.Wrap)

	router.Handle("/api/webhook/{webhookID}", ingestHandler)
	router.Handle("/api/v1/devices", devicesHandler)
	router.Handle("/api/v1/devices/{deviceID}/metrics", metricsHandler)
	router.Handle("/api/v1/devices/{deviceID}/payload", payloadHandler)
	router.Handle("/api/v1/devices/{deviceID}/workouts", workoutsHandler)
	router.Handle("/api/v1/devices/{deviceID}/errors", errorsHandler)
	router.Handle("/api/v1/devices/{deviceID}/export/{document}", exportHandler)
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	HTTPAddr          string
	DatabaseURL       string
	SnapshotRetention time.Duration
	NotifyWebhookURL  string
	NotifyCooldown    time.Duration
	JWTSecret         string
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		SnapshotRetention: getenvDuration("SNAPSHOT_RETENTION", 0),
		NotifyWebhookURL:  getenvDefault("NOTIFY_WEBHOOK_URL", ""),
		NotifyCooldown:    getenvDuration("NOTIFY_COOLDOWN", notify.DefaultCooldown),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
