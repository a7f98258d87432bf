package fields

// Category tags group metrics the way the companion app groups sensors.
const (
	CategoryDiagnostic = "diagnostic"
	CategoryBattery    = "battery"
	CategoryHealth     = "health"
	CategoryActivity   = "activity"
	CategoryHeartRate  = "heart_rate"
	CategorySleep      = "sleep"
	CategoryUser       = "user"
)

// Definition binds a payload path to a named, unit-tagged metric output.
// The tables below are static configuration; they never change at runtime.
type Definition struct {
	Path      string
	Key       string
	Name      string
	Unit      string
	Formatter string
	Category  string
}

// TargetDefinition describes a metric with a current value and a daily goal.
type TargetDefinition struct {
	CurrentPath string
	TargetPath  string
	Key         string
	Name        string
	Unit        string
	Formatter   string
	Category    string
}

// BinaryDefinition describes an on/off state derived from a payload value.
type BinaryDefinition struct {
	Path string
	Key  string
	Name string
	IsOn func(code int) bool
}

// Definitions lists every single-path metric.
var Definitions = []Definition{
	// diagnostics
	{Path: "record_time", Key: "record_time", Name: "Record Time", Category: CategoryDiagnostic},
	{Path: "screen.status", Key: "screen_status", Name: "Screen Status", Category: CategoryDiagnostic},
	{Path: "screen.aod_mode", Key: "screen_aod_mode", Name: "Screen AOD Mode", Formatter: "format_bool", Category: CategoryDiagnostic},
	{Path: "screen.light", Key: "screen_light", Name: "Screen Brightness", Unit: "%", Category: CategoryDiagnostic},

	// battery
	{Path: "battery.current", Key: "battery", Name: "Battery", Unit: "%", Category: CategoryBattery},

	// health
	{Path: "body_temperature.current.value", Key: "body_temperature", Name: "Body Temperature", Unit: "°C", Formatter: "format_body_temp", Category: CategoryHealth},
	{Path: "stress.current.value", Key: "stress_value", Name: "Stress", Unit: "points", Category: CategoryHealth},
	{Path: "blood_oxygen.current.spo2", Key: "blood_oxygen", Name: "Blood Oxygen", Unit: "%", Category: CategoryHealth},
	{Path: "pai.week", Key: "pai_week", Name: "PAI Week", Unit: "points", Category: CategoryHealth},
	{Path: "pai.day", Key: "pai_day", Name: "PAI Day", Unit: "points", Category: CategoryHealth},

	// activity
	{Path: "distance.current", Key: "distance", Name: "Distance", Unit: "m", Category: CategoryActivity},
	{Path: "workout.status.trainingLoad", Key: "training_load", Name: "Training Load", Unit: "points", Category: CategoryActivity},
	{Path: "workout.status.vo2Max", Key: "vo2_max", Name: "VO2 Max", Unit: "ml/kg/min", Category: CategoryActivity},

	// heart rate
	{Path: "heart_rate.last", Key: "heart_rate_last", Name: "Heart Rate", Unit: "bpm", Category: CategoryHeartRate},
	{Path: "heart_rate.resting", Key: "heart_rate_resting", Name: "Heart Rate Resting", Unit: "bpm", Category: CategoryHeartRate},
	{Path: "heart_rate.summary.maximum.hr_value", Key: "heart_rate_max", Name: "Heart Rate Max", Unit: "bpm", Category: CategoryHeartRate},

	// sleep
	{Path: "sleep.info.score", Key: "sleep_score", Name: "Sleep Score", Unit: "points", Category: CategorySleep},
	{Path: "sleep.info.startTime", Key: "sleep_start", Name: "Sleep Start", Formatter: "format_sleep_time", Category: CategorySleep},
	{Path: "sleep.info.endTime", Key: "sleep_end", Name: "Sleep End", Formatter: "format_sleep_time", Category: CategorySleep},
	{Path: "sleep.info.deepTime", Key: "sleep_deep", Name: "Sleep Deep", Unit: "min", Category: CategorySleep},
	{Path: "sleep.info.totalTime", Key: "sleep_total", Name: "Sleep Total", Unit: "min", Category: CategorySleep},

	// user profile
	{Path: "user.gender", Key: "user_gender", Name: "User Gender", Formatter: "format_gender", Category: CategoryUser},
	{Path: "user.age", Key: "user_age", Name: "User Age", Unit: "years", Category: CategoryUser},
	{Path: "user.height", Key: "user_height", Name: "User Height", Unit: "cm", Category: CategoryUser},
	{Path: "user.weight", Key: "user_weight", Name: "User Weight", Unit: "kg", Category: CategoryUser},
	{Path: "user.birth", Key: "user_birth_date", Name: "User Birth Date", Formatter: "format_birth_date", Category: CategoryUser},
}

// TargetDefinitions lists current/goal metric pairs.
var TargetDefinitions = []TargetDefinition{
	{CurrentPath: "steps.current", TargetPath: "steps.target", Key: "steps", Name: "Steps", Unit: "steps", Category: CategoryActivity},
	{CurrentPath: "calorie.current", TargetPath: "calorie.target", Key: "calories", Name: "Calories", Unit: "kcal", Category: CategoryActivity},
	{CurrentPath: "fat_burning.current", TargetPath: "fat_burning.target", Key: "fat_burning", Name: "Fat Burning", Unit: "min", Category: CategoryActivity},
	{CurrentPath: "stands.current", TargetPath: "stands.target", Key: "stands", Name: "Stands", Unit: "times", Category: CategoryActivity},
}

// BinaryDefinitions lists the on/off states.
//
// is_wearing codes: 0 not worn, 1 worn, 2 worn and in motion.
var BinaryDefinitions = []BinaryDefinition{
	{Path: "is_wearing", Key: "is_wearing", Name: "Is Wearing", IsOn: func(code int) bool { return code == 1 || code == 2 }},
	{Path: "is_wearing", Key: "is_moving", Name: "Is Moving", IsOn: func(code int) bool { return code == 2 }},
	{Path: "sleep.status", Key: "is_sleeping", Name: "Is Sleeping", IsOn: func(code int) bool { return code == 1 }},
}
