package apihttp

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"zepp-bridge/internal/auth"
	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/fields"
	"zepp-bridge/internal/projection"
)

func newTestServer(t *testing.T) (*httptest.Server, *devices.Registry) {
	server, registry, _ := newTestServerWithLog(t)
	return server, registry
}

func newTestServerWithLog(t *testing.T) (*httptest.Server, *devices.Registry, *strings.Builder) {
	t.Helper()
	registry, err := devices.NewRegistry(devices.Config{
		Defaults: devices.Settings{MaxRequests: 30, WindowSeconds: 60, ErrorLogCapacity: 100},
		Devices:  []devices.DeviceConfig{{ID: "watch-1", Name: "Bedroom Watch"}},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	projector, err := projection.NewProjector(fields.NewRegistry())
	if err != nil {
		t.Fatalf("projector: %v", err)
	}

	devicesHandler, err := NewDevicesHandler(registry)
	if err != nil {
		t.Fatalf("devices handler: %v", err)
	}
	metricsHandler, err := NewMetricsHandler(registry, projector)
	if err != nil {
		t.Fatalf("metrics handler: %v", err)
	}
	workoutsHandler, err := NewWorkoutsHandler(registry)
	if err != nil {
		t.Fatalf("workouts handler: %v", err)
	}
	errorsHandler, err := NewErrorsHandler(registry)
	if err != nil {
		t.Fatalf("errors handler: %v", err)
	}
	logged := &strings.Builder{}
	exportHandler, err := NewExportHandler(registry, projector, log.New(logged, "", 0))
	if err != nil {
		t.Fatalf("export handler: %v", err)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), auth.RoleAdmin, "ops-user")))
		})
	})
	router.Handle("/api/v1/devices", devicesHandler)
	router.Handle("/api/v1/devices/{deviceID}/metrics", metricsHandler)
	router.Handle("/api/v1/devices/{deviceID}/workouts", workoutsHandler)
	router.Handle("/api/v1/devices/{deviceID}/errors", errorsHandler)
	router.Handle("/api/v1/devices/{deviceID}/export/{document}", exportHandler)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry, logged
}

func seedPayload(t *testing.T, registry *devices.Registry) {
	t.Helper()
	device, ok := registry.ByID("watch-1")
	if !ok {
		t.Fatal("device watch-1 not registered")
	}
	device.Store.Set(map[string]any{
		"battery": map[string]any{"current": float64(85)},
		"steps":   map[string]any{"current": float64(4200), "target": float64(10000)},
		"workout": map[string]any{
			"history": []any{
				map[string]any{"startTime": float64(100), "type": float64(1)},
				map[string]any{"startTime": float64(300), "type": float64(9)},
				map[string]any{"startTime": float64(200), "type": float64(16)},
			},
		},
	}, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestDevicesList(t *testing.T) {
	server, registry := newTestServer(t)
	seedPayload(t, registry)

	resp, err := http.Get(server.URL + "/api/v1/devices")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 device, got %d", len(list))
	}
	if list[0]["id"] != "watch-1" || list[0]["name"] != "Bedroom Watch" {
		t.Fatalf("unexpected device entry: %v", list[0])
	}
	if list[0]["received_at"] == "" {
		t.Fatal("expected received_at to be set")
	}
}

func TestDeviceMetrics(t *testing.T) {
	server, registry := newTestServer(t)
	seedPayload(t, registry)

	resp, err := http.Get(server.URL + "/api/v1/devices/watch-1/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var sawBattery, sawSteps bool
	for _, metric := range body.Metrics {
		switch metric.Key {
		case "battery":
			sawBattery = true
		case "steps":
			sawSteps = true
			if metric.Target == nil {
				t.Fatal("expected steps target to be projected")
			}
		}
	}
	if !sawBattery || !sawSteps {
		t.Fatalf("expected battery and steps metrics, got %v", body.Metrics)
	}
}

func TestDeviceMetricsUnknownDevice(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/devices/nope/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestWorkoutsSortedAndLimited(t *testing.T) {
	server, registry := newTestServer(t)
	seedPayload(t, registry)

	resp, err := http.Get(server.URL + "/api/v1/devices/watch-1/workouts?limit=2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var workouts []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&workouts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(workouts) != 2 {
		t.Fatalf("expected 2 workouts, got %d", len(workouts))
	}
	if workouts[0]["startTime"].(float64) != 300 || workouts[1]["startTime"].(float64) != 200 {
		t.Fatalf("expected newest-first order, got %v", workouts)
	}
}

func TestWorkoutsRejectsBadLimit(t *testing.T) {
	server, registry := newTestServer(t)
	seedPayload(t, registry)

	resp, err := http.Get(server.URL + "/api/v1/devices/watch-1/workouts?limit=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestExportSummaryPDF(t *testing.T) {
	server, registry, logged := newTestServerWithLog(t)
	seedPayload(t, registry)

	resp, err := http.Get(server.URL + "/api/v1/devices/watch-1/export/summary.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected pdf content type, got %q", got)
	}
	if !strings.Contains(logged.String(), "subject=ops-user") || !strings.Contains(logged.String(), "role=admin") {
		t.Fatalf("expected export log with caller identity, got %q", logged.String())
	}
}

func TestExportUnknownDocument(t *testing.T) {
	server, registry := newTestServer(t)
	seedPayload(t, registry)

	resp, err := http.Get(server.URL + "/api/v1/devices/watch-1/export/summary.docx")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeviceErrors(t *testing.T) {
	server, registry := newTestServer(t)
	device, _ := registry.ByID("watch-1")
	device.Errors.Append(time.Now(), "sensor timeout")

	resp, err := http.Get(server.URL + "/api/v1/devices/watch-1/errors")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var entries []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["error"] != "sensor timeout" {
		t.Fatalf("unexpected entry: %v", entries[0])
	}
}
