package devices

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings holds per-device tunables.
type Settings struct {
	MaxRequests      int `yaml:"max_requests"`
	WindowSeconds    int `yaml:"window_seconds"`
	ErrorLogCapacity int `yaml:"error_log_capacity"`
}

// DeviceConfig describes one watch registration. An empty WebhookID gets a
// generated one at registry construction.
type DeviceConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	WebhookID string `yaml:"webhook_id"`
	Settings  `yaml:",inline"`
}

// Config defines the device list and shared defaults.
type Config struct {
	Defaults Settings       `yaml:"defaults"`
	Devices  []DeviceConfig `yaml:"devices"`
}

// LoadConfig loads device configuration from yaml or env. Without a config
// file a single default device is registered so the bridge works out of the
// box.
func LoadConfig() (Config, error) {
	cfg := Config{
		Defaults: Settings{
			MaxRequests:      getenvIntDefault("RATE_LIMIT_REQUESTS", 30),
			WindowSeconds:    getenvIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
			ErrorLogCapacity: getenvIntDefault("MAX_ERROR_LOGS", 100),
		},
	}

	if path := os.Getenv("DEVICES_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if len(cfg.Devices) == 0 {
		cfg.Devices = []DeviceConfig{{
			ID:   getenvDefault("DEVICE_ID", "zepp_device"),
			Name: getenvDefault("DEVICE_NAME", "Zepp Smartwatch"),
		}}
	}

	seen := make(map[string]struct{}, len(cfg.Devices))
	for i := range cfg.Devices {
		device := &cfg.Devices[i]
		if device.ID == "" {
			return cfg, fmt.Errorf("devices config: device %d missing id", i)
		}
		if _, dup := seen[device.ID]; dup {
			return cfg, fmt.Errorf("devices config: duplicate device id %s", device.ID)
		}
		seen[device.ID] = struct{}{}
		if device.Name == "" {
			device.Name = device.ID
		}
		device.Settings = mergeSettings(cfg.Defaults, device.Settings)
	}

	if cfg.Defaults.MaxRequests <= 0 || cfg.Defaults.WindowSeconds <= 0 {
		return cfg, errors.New("devices config: rate limit defaults must be positive")
	}
	return cfg, nil
}

func mergeSettings(base, override Settings) Settings {
	if override.MaxRequests != 0 {
		base.MaxRequests = override.MaxRequests
	}
	if override.WindowSeconds != 0 {
		base.WindowSeconds = override.WindowSeconds
	}
	if override.ErrorLogCapacity != 0 {
		base.ErrorLogCapacity = override.ErrorLogCapacity
	}
	return base
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
