package devices

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"zepp-bridge/internal/errlog"
	"zepp-bridge/internal/payload"
	"zepp-bridge/internal/ratelimit"
)

// Device is the runtime context for one registered watch. Each device owns
// its payload store, rate limiter, and error log; nothing is shared across
// devices, so no cross-device locking exists.
type Device struct {
	ID        string
	Name      string
	WebhookID string

	Store   *payload.Store
	Limiter *ratelimit.Limiter
	Errors  *errlog.Ring
}

// WebhookPath returns the ingestion path for this device.
func (d *Device) WebhookPath() string {
	return "/api/webhook/" + d.WebhookID
}

// Registry holds all registered devices. It is built once at startup and
// never mutated afterwards, so lookups need no locking.
type Registry struct {
	byID        map[string]*Device
	byWebhookID map[string]*Device
	ordered     []*Device
}

// NewRegistry builds device runtimes from configuration. Devices without a
// configured webhook ID get a generated one; webhook IDs must be unique.
func NewRegistry(cfg Config) (*Registry, error) {
	registry := &Registry{
		byID:        make(map[string]*Device, len(cfg.Devices)),
		byWebhookID: make(map[string]*Device, len(cfg.Devices)),
	}
	for _, dc := range cfg.Devices {
		webhookID := dc.WebhookID
		if webhookID == "" {
			webhookID = uuid.NewString()
		}
		if _, dup := registry.byWebhookID[webhookID]; dup {
			return nil, fmt.Errorf("device registry: duplicate webhook id %s", webhookID)
		}
		device := &Device{
			ID:        dc.ID,
			Name:      dc.Name,
			WebhookID: webhookID,
			Store:     payload.NewStore(),
			Limiter:   ratelimit.NewLimiter(dc.MaxRequests, time.Duration(dc.WindowSeconds)*time.Second),
			Errors:    errlog.NewRing(dc.ErrorLogCapacity),
		}
		registry.byID[device.ID] = device
		registry.byWebhookID[device.WebhookID] = device
		registry.ordered = append(registry.ordered, device)
	}
	return registry, nil
}

// ByID looks a device up by its stable ID.
func (r *Registry) ByID(id string) (*Device, bool) {
	device, ok := r.byID[id]
	return device, ok
}

// ByWebhookID looks a device up by its webhook ID.
func (r *Registry) ByWebhookID(webhookID string) (*Device, bool) {
	device, ok := r.byWebhookID[webhookID]
	return device, ok
}

// All returns devices in registration order.
func (r *Registry) All() []*Device {
	return r.ordered
}
