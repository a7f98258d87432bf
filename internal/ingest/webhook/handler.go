package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/eventing"
	"zepp-bridge/internal/ingest/events"
	"zepp-bridge/internal/observability/metrics"
)

// lastErrorPath is where the companion app reports its own failures inside an
// otherwise valid payload. A reported error is data, not a request failure.
const lastErrorPath = "last_error"

// Handler ingests webhook pushes from Zepp companion apps. Per request:
// admit via the device's rate limiter before touching the body, parse and
// validate JSON, replace the device's stored payload, capture any
// device-reported error, then notify subscribers.
type Handler struct {
	registry *devices.Registry
	bus      *eventing.Bus
	logger   *log.Logger
}

// NewHandler constructs an ingest handler.
func NewHandler(registry *devices.Registry, bus *eventing.Bus, logger *log.Logger) (*Handler, error) {
	if registry == nil {
		return nil, errors.New("webhook ingest: nil device registry")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{registry: registry, bus: bus, logger: logger}, nil
}

// ServeHTTP handles POST /api/webhook/{webhookID}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Unexpected failures must never escape to the host runtime; the sender
	// gets a generic 500 and the detail stays in the server log.
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Printf("webhook ingest: panic: %v\n%s", rec, debug.Stack())
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Processing error",
				"message": "internal error",
			})
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		}
	}()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	webhookID := chi.URLParam(r, "webhookID")
	device, ok := h.registry.ByWebhookID(webhookID)
	if !ok {
		metrics.IncIngestRejection(metrics.RejectionUnknownDevice)
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Device not found",
			"message": "unknown webhook id",
		})
		return
	}

	// Admission is checked before reading the body so a flooding sender
	// costs no parse work.
	if !device.Limiter.Allow() {
		h.logger.Printf("webhook ingest: rate limit exceeded for device %s", device.ID)
		metrics.IncIngestRejection(metrics.RejectionRateLimited)
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":   "Rate limit exceeded",
			"message": "too many requests, try again later",
		})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("webhook ingest: read body error: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid JSON",
			"message": "read body error",
		})
		metrics.IncIngestRejection(metrics.RejectionInvalidJSON)
		return
	}
	defer r.Body.Close()

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		h.logger.Printf("webhook ingest: decode error for device %s: %v", device.ID, err)
		metrics.IncIngestRejection(metrics.RejectionInvalidJSON)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid JSON",
			"message": err.Error(),
		})
		return
	}

	data, ok := decoded.(map[string]any)
	if !ok {
		h.logger.Printf("webhook ingest: non-object payload for device %s (%T)", device.ID, decoded)
		metrics.IncIngestRejection(metrics.RejectionInvalidPayload)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid payload",
			"message": "Payload must be a JSON object",
		})
		return
	}

	receivedAt := time.Now()
	device.Store.Set(data, receivedAt)

	lastError := extractLastError(data)
	if lastError != "" {
		device.Errors.Append(receivedAt, lastError)
		metrics.IncDeviceError()
	}

	if h.bus != nil {
		h.bus.PublishPayloadReceived(r.Context(), events.PayloadReceived{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			ReceivedAt: receivedAt.UTC(),
			Sections:   sectionKeys(data),
			LastError:  lastError,
		})
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func extractLastError(data map[string]any) string {
	value, found := data[lastErrorPath]
	if !found || value == nil {
		return ""
	}
	if detail, ok := value.(string); ok {
		return detail
	}
	return fmt.Sprintf("%v", value)
}

func sectionKeys(data map[string]any) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
