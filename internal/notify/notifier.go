package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/fields"
	"zepp-bridge/internal/ingest/events"
	"zepp-bridge/internal/observability/metrics"
)

// DefaultCooldown suppresses repeat notifications per device.
const DefaultCooldown = 5 * time.Minute

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Notifier posts a payload summary to an outbound webhook.
type Notifier struct {
	url      string
	registry *devices.Registry
	client   *http.Client
	logger   *log.Logger
	cooldown time.Duration
	clock    Clock

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown overrides the per-device send interval.
func WithCooldown(d time.Duration) Option {
	return func(n *Notifier) {
		n.cooldown = d
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.client = client
		}
	}
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewNotifier constructs an outbound webhook notifier.
func NewNotifier(url string, registry *devices.Registry, logger *log.Logger, opts ...Option) (*Notifier, error) {
	if url == "" {
		return nil, errors.New("notifier: empty url")
	}
	if registry == nil {
		return nil, errors.New("notifier: nil registry")
	}
	if logger == nil {
		logger = log.Default()
	}
	n := &Notifier{
		url:      url,
		registry: registry,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
		cooldown: DefaultCooldown,
		clock:    systemClock{},
		lastSent: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Consume sends a summary for the stored payload, respecting the cooldown.
func (n *Notifier) Consume(ctx context.Context, event events.PayloadReceived) error {
	if !n.shouldSend(event.DeviceID) {
		return nil
	}
	content := n.formatSummary(event)
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: content},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		metrics.IncNotifySend(metrics.ResultError)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.IncNotifySend(metrics.ResultError)
		return fmt.Errorf("notifier: unexpected status %d", resp.StatusCode)
	}
	metrics.IncNotifySend(metrics.ResultSuccess)
	return nil
}

func (n *Notifier) shouldSend(deviceID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.clock.Now()
	if last, ok := n.lastSent[deviceID]; ok && now.Sub(last) < n.cooldown {
		return false
	}
	n.lastSent[deviceID] = now
	return true
}

func (n *Notifier) formatSummary(event events.PayloadReceived) string {
	var b strings.Builder
	b.WriteString("[Zepp Bridge]\n")
	fmt.Fprintf(&b, "Device: %s (%s)\n", event.DeviceName, event.DeviceID)
	fmt.Fprintf(&b, "Received: %s\n", event.ReceivedAt.Format(time.RFC3339))
	if device, ok := n.registry.ByID(event.DeviceID); ok {
		if battery, found := device.Store.Value("battery.current"); found && battery != nil {
			fmt.Fprintf(&b, "Battery: %v%%\n", battery)
		}
		if steps, found := device.Store.Value("steps.current"); found && steps != nil {
			fmt.Fprintf(&b, "Steps: %v\n", steps)
		}
		if workout := device.Store.LastWorkout(); workout != nil {
			if raw, ok := workout["duration"]; ok {
				if minutes, ok := fields.DurationMinutes(raw); ok {
					fmt.Fprintf(&b, "Last workout: %d min\n", minutes)
				}
			}
		}
	}
	if event.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", event.LastError)
	}
	return strings.TrimSpace(b.String())
}
