package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/ingest/events"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry(t *testing.T) *devices.Registry {
	t.Helper()
	registry, err := devices.NewRegistry(devices.Config{
		Defaults: devices.Settings{MaxRequests: 30, WindowSeconds: 60, ErrorLogCapacity: 100},
		Devices:  []devices.DeviceConfig{{ID: "watch-1", Name: "Bedroom Watch"}},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

func TestNotifierSendsSummary(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := newTestRegistry(t)
	device, _ := registry.ByID("watch-1")
	device.Store.Set(map[string]any{
		"battery": map[string]any{"current": float64(77)},
		"steps":   map[string]any{"current": float64(4200)},
	}, time.Now())

	notifier, err := NewNotifier(server.URL, registry, log.New(&strings.Builder{}, "", 0))
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	event := events.PayloadReceived{
		DeviceID:   "watch-1",
		DeviceName: "Bedroom Watch",
		ReceivedAt: time.Now(),
		LastError:  "sensor timeout",
	}
	if err := notifier.Consume(context.Background(), event); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.MsgType != "text" {
		t.Fatalf("expected msgtype text, got %q", got.MsgType)
	}
	for _, want := range []string{"Bedroom Watch", "Battery: 77%", "Steps: 4200", "Last error: sensor timeout"} {
		if !strings.Contains(got.Text.Content, want) {
			t.Fatalf("summary missing %q: %s", want, got.Text.Content)
		}
	}
}

func TestNotifierCooldown(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := newTestRegistry(t)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	notifier, err := NewNotifier(server.URL, registry, log.New(&strings.Builder{}, "", 0),
		WithClock(clock), WithCooldown(time.Minute))
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	event := events.PayloadReceived{DeviceID: "watch-1", DeviceName: "Bedroom Watch", ReceivedAt: clock.Now()}

	if err := notifier.Consume(context.Background(), event); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := notifier.Consume(context.Background(), event); err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cooldown to suppress second send, got %d calls", calls)
	}

	clock.advance(2 * time.Minute)
	if err := notifier.Consume(context.Background(), event); err != nil {
		t.Fatalf("third consume: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected send after cooldown, got %d calls", calls)
	}
}

func TestNotifierNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	registry := newTestRegistry(t)
	notifier, err := NewNotifier(server.URL, registry, log.New(&strings.Builder{}, "", 0))
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	event := events.PayloadReceived{DeviceID: "watch-1", ReceivedAt: time.Now()}
	if err := notifier.Consume(context.Background(), event); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
