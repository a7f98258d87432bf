package projection

import (
	"errors"
	"fmt"

	"zepp-bridge/internal/fields"
	"zepp-bridge/internal/payload"
)

// Metric is one display-ready output projected from the current payload.
type Metric struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Unit     string `json:"unit,omitempty"`
	Category string `json:"category,omitempty"`
	Target   any    `json:"target,omitempty"`
}

// BinaryState is an on/off state derived from the current payload.
type BinaryState struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	On   bool   `json:"on"`
}

// Projector resolves the static field definition tables against a device's
// payload store. It holds no per-device state and may be shared.
type Projector struct {
	registry *fields.Registry
}

// NewProjector constructs a projector. Every formatter name referenced by the
// definition tables must be registered; a typo in the tables fails here
// instead of silently passing values through at request time.
func NewProjector(registry *fields.Registry) (*Projector, error) {
	if registry == nil {
		return nil, errors.New("projection: nil formatter registry")
	}
	for _, def := range fields.Definitions {
		if def.Formatter != "" && !registry.Has(def.Formatter) {
			return nil, fmt.Errorf("projection: unknown formatter %q for %s", def.Formatter, def.Key)
		}
	}
	for _, def := range fields.TargetDefinitions {
		if def.Formatter != "" && !registry.Has(def.Formatter) {
			return nil, fmt.Errorf("projection: unknown formatter %q for %s", def.Formatter, def.Key)
		}
	}
	return &Projector{registry: registry}, nil
}

// Metrics projects every defined field that resolves in the current payload.
// A path that resolves to an explicit null is included with a null value; a
// missing path is omitted entirely.
func (p *Projector) Metrics(store *payload.Store) []Metric {
	if store == nil {
		return nil
	}
	out := make([]Metric, 0, len(fields.Definitions)+len(fields.TargetDefinitions))

	for _, def := range fields.Definitions {
		value, found := store.Value(def.Path)
		if !found {
			continue
		}
		out = append(out, Metric{
			Key:      def.Key,
			Name:     def.Name,
			Value:    p.registry.Format(value, def.Formatter),
			Unit:     def.Unit,
			Category: def.Category,
		})
	}

	for _, def := range fields.TargetDefinitions {
		current, found := store.Value(def.CurrentPath)
		if !found {
			continue
		}
		metric := Metric{
			Key:      def.Key,
			Name:     def.Name,
			Value:    p.registry.Format(current, def.Formatter),
			Unit:     def.Unit,
			Category: def.Category,
		}
		if target, ok := store.Value(def.TargetPath); ok {
			metric.Target = p.registry.Format(target, def.Formatter)
		}
		out = append(out, metric)
	}
	return out
}

// BinaryStates projects the on/off definitions. States whose source value is
// absent or null are omitted, mirroring an unavailable sensor.
func (p *Projector) BinaryStates(store *payload.Store) []BinaryState {
	if store == nil {
		return nil
	}
	out := make([]BinaryState, 0, len(fields.BinaryDefinitions))
	for _, def := range fields.BinaryDefinitions {
		value, found := store.Value(def.Path)
		if !found || value == nil {
			continue
		}
		code, ok := asCode(value)
		if !ok {
			continue
		}
		out = append(out, BinaryState{Key: def.Key, Name: def.Name, On: def.IsOn(code)})
	}
	return out
}

func asCode(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
