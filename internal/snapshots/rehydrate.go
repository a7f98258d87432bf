package snapshots

import (
	"context"
	"log"
	"time"

	"zepp-bridge/internal/devices"
)

// Reader loads persisted payload snapshots.
type Reader interface {
	Latest(ctx context.Context, deviceID string) (map[string]any, time.Time, bool, error)
}

// Rehydrate fills device stores from the latest persisted snapshot, so a
// restart does not lose state until the next push arrives. A device with no
// snapshot stays empty; a read failure is logged and skips only that device.
func Rehydrate(ctx context.Context, registry *devices.Registry, reader Reader, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	for _, device := range registry.All() {
		data, receivedAt, ok, err := reader.Latest(ctx, device.ID)
		if err != nil {
			logger.Printf("snapshot rehydrate: device %s: %v", device.ID, err)
			continue
		}
		if !ok {
			continue
		}
		device.Store.Set(data, receivedAt)
		logger.Printf("snapshot rehydrate: device %s restored from %s", device.ID, receivedAt.Format(time.RFC3339))
	}
}
