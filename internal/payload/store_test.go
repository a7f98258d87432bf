package payload

import (
	"testing"
	"time"
)

func workoutPayload(starts ...float64) map[string]any {
	history := make([]any, 0, len(starts))
	for i, start := range starts {
		history = append(history, map[string]any{
			"startTime": start,
			"index":     i,
		})
	}
	return map[string]any{
		"workout": map[string]any{"history": history},
	}
}

func TestStore_SetReplacesWholesale(t *testing.T) {
	store := NewStore()
	store.Set(map[string]any{"steps": map[string]any{"current": float64(100)}}, time.Now())
	store.Set(map[string]any{"battery": map[string]any{"current": float64(85)}}, time.Now())

	if _, found := store.Value("steps.current"); found {
		t.Fatal("old payload fields must not survive a Set")
	}
	value, found := store.Value("battery.current")
	if !found || value != float64(85) {
		t.Fatalf("expected battery 85, got %v found=%v", value, found)
	}
}

func TestStore_SortedWorkoutHistory(t *testing.T) {
	store := NewStore()
	store.Set(workoutPayload(100, 300, 200), time.Now())

	sorted := store.SortedWorkoutHistory()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 workouts, got %d", len(sorted))
	}
	if workoutStart(sorted[0]) != 300 || workoutStart(sorted[2]) != 100 {
		t.Fatalf("expected descending order, got %v", sorted)
	}
}

func TestStore_SortedHistoryStableUnderTies(t *testing.T) {
	store := NewStore()
	store.Set(workoutPayload(200, 200, 100), time.Now())

	sorted := store.SortedWorkoutHistory()
	if sorted[0]["index"] != 0 || sorted[1]["index"] != 1 {
		t.Fatalf("tied workouts must keep payload order, got %v", sorted)
	}
}

func TestStore_LastWorkoutSinglePassMax(t *testing.T) {
	store := NewStore()
	store.Set(workoutPayload(100, 500, 300), time.Now())

	last := store.LastWorkout()
	if last == nil || workoutStart(last) != 500 {
		t.Fatalf("expected startTime 500, got %v", last)
	}
}

func TestStore_ViewsInvalidatedOnSet(t *testing.T) {
	store := NewStore()
	store.Set(workoutPayload(100, 200), time.Now())
	if got := len(store.SortedWorkoutHistory()); got != 2 {
		t.Fatalf("expected 2 workouts, got %d", got)
	}

	store.Set(workoutPayload(900), time.Now())
	sorted := store.SortedWorkoutHistory()
	if len(sorted) != 1 || workoutStart(sorted[0]) != 900 {
		t.Fatalf("view must reflect the new payload, got %v", sorted)
	}
	if last := store.LastWorkout(); last == nil || workoutStart(last) != 900 {
		t.Fatalf("last workout must reflect the new payload, got %v", last)
	}
}

func TestStore_EmptyViews(t *testing.T) {
	store := NewStore()
	if store.Get() != nil {
		t.Fatal("expected nil payload before first Set")
	}
	if got := store.SortedWorkoutHistory(); len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
	if store.LastWorkout() != nil {
		t.Fatal("expected nil last workout")
	}
}
