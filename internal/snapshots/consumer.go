package snapshots

import (
	"context"
	"errors"
	"log"
	"time"

	"zepp-bridge/internal/devices"
	"zepp-bridge/internal/ingest/events"
	"zepp-bridge/internal/observability/metrics"
)

// Writer appends payload snapshots.
type Writer interface {
	Insert(ctx context.Context, deviceID string, receivedAt time.Time, data map[string]any) error
}

// Consumer persists every stored payload as a snapshot.
type Consumer struct {
	registry *devices.Registry
	writer   Writer
	logger   *log.Logger
}

// NewConsumer constructs a snapshot consumer.
func NewConsumer(registry *devices.Registry, writer Writer, logger *log.Logger) (*Consumer, error) {
	if registry == nil {
		return nil, errors.New("snapshot consumer: nil registry")
	}
	if writer == nil {
		return nil, errors.New("snapshot consumer: nil writer")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Consumer{registry: registry, writer: writer, logger: logger}, nil
}

// Consume writes the device's current payload to the snapshot history.
func (c *Consumer) Consume(ctx context.Context, event events.PayloadReceived) error {
	device, ok := c.registry.ByID(event.DeviceID)
	if !ok {
		return errors.New("snapshot consumer: unknown device " + event.DeviceID)
	}
	data := device.Store.Get()
	if data == nil {
		return nil
	}
	if err := c.writer.Insert(ctx, event.DeviceID, event.ReceivedAt, data); err != nil {
		metrics.IncSnapshotWrite(metrics.ResultError)
		return err
	}
	metrics.IncSnapshotWrite(metrics.ResultSuccess)
	return nil
}
