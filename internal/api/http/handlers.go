package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"zepp-bridge/internal/auth"
	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/errlog"
	"zepp-bridge/internal/export"
	"zepp-bridge/internal/observability/metrics"
	"zepp-bridge/internal/projection"
)

const timeLayout = time.RFC3339

// DevicesHandler serves the device inventory.
type DevicesHandler struct {
	registry *devices.Registry
}

// NewDevicesHandler constructs a DevicesHandler.
func NewDevicesHandler(registry *devices.Registry) (*DevicesHandler, error) {
	if registry == nil {
		return nil, errors.New("devices handler: nil registry")
	}
	return &DevicesHandler{registry: registry}, nil
}

type deviceSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebhookPath string `json:"webhook_path"`
	ReceivedAt  string `json:"received_at,omitempty"`
	ErrorCount  int    `json:"error_count"`
}

// ServeHTTP handles GET /api/v1/devices.
func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	all := h.registry.All()
	summaries := make([]deviceSummary, 0, len(all))
	for _, device := range all {
		summary := deviceSummary{
			ID:          device.ID,
			Name:        device.Name,
			WebhookPath: device.WebhookPath(),
			ErrorCount:  device.Errors.Len(),
		}
		if receivedAt := device.Store.ReceivedAt(); !receivedAt.IsZero() {
			summary.ReceivedAt = receivedAt.Format(timeLayout)
		}
		summaries = append(summaries, summary)
	}
	writeJSON(w, http.StatusOK, summaries)
}

// MetricsHandler serves the projected metric view of a device.
type MetricsHandler struct {
	registry  *devices.Registry
	projector *projection.Projector
}

// NewMetricsHandler constructs a MetricsHandler.
func NewMetricsHandler(registry *devices.Registry, projector *projection.Projector) (*MetricsHandler, error) {
	if registry == nil {
		return nil, errors.New("metrics handler: nil registry")
	}
	if projector == nil {
		return nil, errors.New("metrics handler: nil projector")
	}
	return &MetricsHandler{registry: registry, projector: projector}, nil
}

type metricsResponse struct {
	DeviceID     string                   `json:"device_id"`
	DeviceName   string                   `json:"device_name"`
	ReceivedAt   string                   `json:"received_at,omitempty"`
	Metrics      []projection.Metric      `json:"metrics"`
	BinaryStates []projection.BinaryState `json:"binary_states"`
}

// ServeHTTP handles GET /api/v1/devices/{deviceID}/metrics.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	device, ok := lookupDevice(h.registry, w, r)
	if !ok {
		return
	}
	resp := metricsResponse{
		DeviceID:     device.ID,
		DeviceName:   device.Name,
		Metrics:      h.projector.Metrics(device.Store),
		BinaryStates: h.projector.BinaryStates(device.Store),
	}
	if receivedAt := device.Store.ReceivedAt(); !receivedAt.IsZero() {
		resp.ReceivedAt = receivedAt.Format(timeLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PayloadHandler serves the raw stored payload of a device.
type PayloadHandler struct {
	registry *devices.Registry
}

// NewPayloadHandler constructs a PayloadHandler.
func NewPayloadHandler(registry *devices.Registry) (*PayloadHandler, error) {
	if registry == nil {
		return nil, errors.New("payload handler: nil registry")
	}
	return &PayloadHandler{registry: registry}, nil
}

type payloadResponse struct {
	DeviceID   string         `json:"device_id"`
	ReceivedAt string         `json:"received_at,omitempty"`
	Payload    map[string]any `json:"payload"`
}

// ServeHTTP handles GET /api/v1/devices/{deviceID}/payload.
func (h *PayloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	device, ok := lookupDevice(h.registry, w, r)
	if !ok {
		return
	}
	resp := payloadResponse{
		DeviceID: device.ID,
		Payload:  device.Store.Get(),
	}
	if receivedAt := device.Store.ReceivedAt(); !receivedAt.IsZero() {
		resp.ReceivedAt = receivedAt.Format(timeLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// WorkoutsHandler serves the sorted workout history of a device.
type WorkoutsHandler struct {
	registry *devices.Registry
}

// NewWorkoutsHandler constructs a WorkoutsHandler.
func NewWorkoutsHandler(registry *devices.Registry) (*WorkoutsHandler, error) {
	if registry == nil {
		return nil, errors.New("workouts handler: nil registry")
	}
	return &WorkoutsHandler{registry: registry}, nil
}

// ServeHTTP handles GET /api/v1/devices/{deviceID}/workouts.
func (h *WorkoutsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	device, ok := lookupDevice(h.registry, w, r)
	if !ok {
		return
	}
	workouts := device.Store.SortedWorkoutHistory()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if limit < len(workouts) {
			workouts = workouts[:limit]
		}
	}
	writeJSON(w, http.StatusOK, workouts)
}

// ErrorsHandler serves the recent error log of a device.
type ErrorsHandler struct {
	registry *devices.Registry
}

// NewErrorsHandler constructs an ErrorsHandler.
func NewErrorsHandler(registry *devices.Registry) (*ErrorsHandler, error) {
	if registry == nil {
		return nil, errors.New("errors handler: nil registry")
	}
	return &ErrorsHandler{registry: registry}, nil
}

// ServeHTTP handles GET /api/v1/devices/{deviceID}/errors.
func (h *ErrorsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	device, ok := lookupDevice(h.registry, w, r)
	if !ok {
		return
	}
	entries := device.Errors.List()
	if entries == nil {
		entries = []errlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ExportHandler renders a device summary as a downloadable document. Exports
// are an admin operation, so each download is logged with the caller identity.
type ExportHandler struct {
	registry  *devices.Registry
	projector *projection.Projector
	logger    *log.Logger
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(registry *devices.Registry, projector *projection.Projector, logger *log.Logger) (*ExportHandler, error) {
	if registry == nil {
		return nil, errors.New("export handler: nil registry")
	}
	if projector == nil {
		return nil, errors.New("export handler: nil projector")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{registry: registry, projector: projector, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/devices/{deviceID}/export/{document},
// where document is summary.xlsx or summary.pdf.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	device, ok := lookupDevice(h.registry, w, r)
	if !ok {
		return
	}
	document := chi.URLParam(r, "document")

	summary := export.Summary{
		DeviceID:   device.ID,
		DeviceName: device.Name,
		ReceivedAt: device.Store.ReceivedAt(),
		Metrics:    h.projector.Metrics(device.Store),
		Workouts:   device.Store.SortedWorkoutHistory(),
	}

	var (
		data        []byte
		err         error
		format      string
		contentType string
	)
	switch document {
	case "summary.xlsx":
		format = "xlsx"
		data, err = export.BuildSummaryXLSX(summary)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "summary.pdf":
		format = "pdf"
		data, err = export.BuildSummaryPDF(summary)
		contentType = "application/pdf"
	default:
		http.Error(w, "unknown export document", http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.IncExport(format, metrics.ResultError)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.IncExport(format, metrics.ResultSuccess)
	h.logger.Printf("export %s device=%s subject=%s role=%s",
		document, device.ID, auth.SubjectFromContext(r.Context()), auth.RoleFromContext(r.Context()))

	filename := device.ID + "-" + document

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func lookupDevice(registry *devices.Registry, w http.ResponseWriter, r *http.Request) (*devices.Device, bool) {
	deviceID := chi.URLParam(r, "deviceID")
	device, ok := registry.ByID(deviceID)
	if !ok {
		http.Error(w, "device not found", http.StatusNotFound)
		return nil, false
	}
	return device, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
