package fields

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Formatter transforms a raw extracted value into a display-ready one. Every
// shipped formatter is total: unexpected input types pass through unchanged,
// and applying a formatter twice yields the same result as applying it once.
type Formatter func(value any) any

// Clock provides local time for formatters that reconstruct timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Registry resolves formatters by name. The table is built once at
// construction and never mutated; an unknown or empty name is the identity
// transform, since definitions are configuration rather than user input.
type Registry struct {
	formatters map[string]Formatter
	// formatters that round on their own; the default two-decimal rounding
	// must not be applied again on top.
	selfRounding map[string]struct{}
}

// RegistryOption configures the registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	clock Clock
}

// WithClock overrides the clock used by time-reconstructing formatters.
func WithClock(clock Clock) RegistryOption {
	return func(c *registryConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewRegistry builds the formatter table.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := registryConfig{clock: systemClock{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		formatters: map[string]Formatter{
			"format_gender":        formatGender,
			"format_sport_type":    formatSportType,
			"format_wearing_state": formatWearingState,
			"format_sleep_status":  formatSleepStatus,
			"format_bool":          formatBool,
			"format_yes_no":        formatYesNo,
			"format_float":         formatFloat,
			"format_body_temp":     formatBodyTemp,
			"format_birth_date":    formatBirthDate,
			"format_sleep_time":    newSleepTimeFormatter(cfg.clock),
		},
		selfRounding: map[string]struct{}{
			"format_body_temp": {},
		},
	}
}

// Format applies the named formatter, then the default float rounding unless
// the formatter already rounds. A nil value stays nil.
func (r *Registry) Format(value any, name string) any {
	if value == nil {
		return nil
	}
	if name != "" {
		if formatter, ok := r.formatters[name]; ok {
			value = formatter(value)
		}
	}
	if f, ok := value.(float64); ok {
		if _, skip := r.selfRounding[name]; !skip {
			value = round2(f)
		}
	}
	return value
}

// Has reports whether a formatter name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.formatters[name]
	return ok
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// asInt accepts the integer shapes JSON decoding produces. Fractional floats
// are not enum codes.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func decodeEnum(value any, table map[int]string) any {
	code, ok := asInt(value)
	if !ok {
		return value
	}
	if name, ok := table[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

func formatGender(value any) any { return decodeEnum(value, genderNames) }

func formatWearingState(value any) any { return decodeEnum(value, wearingStateNames) }

func formatSleepStatus(value any) any { return decodeEnum(value, sleepStatusNames) }

// formatSportType decodes a sport code. Zepp prefixes a category digit when
// the code has more than one digit; the prefix is stripped before lookup.
func formatSportType(value any) any {
	code, ok := asInt(value)
	if !ok {
		return value
	}
	digits := strconv.Itoa(code)
	if len(digits) > 1 {
		stripped, err := strconv.Atoi(digits[1:])
		if err == nil {
			code = stripped
		}
	}
	return decodeEnum(code, sportTypeNames)
}

func formatBool(value any) any {
	if b, ok := value.(bool); ok {
		if b {
			return "On"
		}
		return "Off"
	}
	return value
}

func formatYesNo(value any) any {
	if b, ok := value.(bool); ok {
		if b {
			return "Yes"
		}
		return "No"
	}
	return value
}

func formatFloat(value any) any {
	if f, ok := value.(float64); ok {
		return round2(f)
	}
	return value
}

// formatBodyTemp converts device hundredths to Celsius when the magnitude
// exceeds 100. The threshold is a guess about an undocumented wire format; a
// legitimate reading above 100 in the raw unit would be misclassified.
func formatBodyTemp(value any) any {
	switch v := value.(type) {
	case float64:
		if v > 100 {
			return round2(v / 100)
		}
		return round2(v)
	case int:
		return formatBodyTemp(float64(v))
	case int64:
		return formatBodyTemp(float64(v))
	default:
		return value
	}
}

// formatBirthDate renders a {year, month, day} object as DD/MM/YYYY. Any
// missing sub-field passes the original value through.
func formatBirthDate(value any) any {
	obj, ok := value.(map[string]any)
	if !ok {
		return value
	}
	year, okYear := asInt(obj["year"])
	month, okMonth := asInt(obj["month"])
	day, okDay := asInt(obj["day"])
	if !okYear || !okMonth || !okDay || year == 0 || month == 0 || day == 0 {
		return value
	}
	return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
}

// newSleepTimeFormatter reconstructs an absolute timestamp from minutes since
// the previous local midnight. The watch reports sleep offsets against
// yesterday's day boundary; this holds only while the device clock and the
// host agree on that convention, and drifts across DST transitions.
func newSleepTimeFormatter(clock Clock) Formatter {
	return func(value any) any {
		minutes, ok := asInt(value)
		if !ok {
			return value
		}
		now := clock.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		yesterday := midnight.AddDate(0, 0, -1)
		return yesterday.Add(time.Duration(minutes) * time.Minute)
	}
}

// DurationMinutes converts a millisecond duration to whole minutes.
func DurationMinutes(value any) (int, bool) {
	ms, ok := asInt(value)
	if !ok {
		return 0, false
	}
	return ms / 60000, true
}
