package payload

import (
	"sort"
	"sync"
	"time"
)

// Store holds the most recent validated payload for one device. Every webhook
// call replaces the payload wholesale; derived views are computed lazily and
// cached until the next Set. Set and the view accessors are each a single
// critical section so a racing update cannot serve a stale view.
type Store struct {
	mu         sync.Mutex
	data       map[string]any
	receivedAt time.Time

	sortedWorkouts []map[string]any
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored payload and invalidates every cached view before
// returning. There is no partial-merge path.
func (s *Store) Set(data map[string]any, receivedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.receivedAt = receivedAt.UTC()
	s.sortedWorkouts = nil
}

// Get returns the current payload, or nil when nothing has arrived yet.
func (s *Store) Get() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// ReceivedAt returns when the current payload was stored.
func (s *Store) ReceivedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receivedAt
}

// Value resolves a dot path against the current payload.
func (s *Store) Value(path string) (any, bool) {
	s.mu.Lock()
	data := s.data
	s.mu.Unlock()
	if data == nil {
		return nil, false
	}
	return Get(data, path)
}

// SortedWorkoutHistory returns workout entries ordered by startTime
// descending. Ties keep payload order (stable sort). The result is cached
// until the next Set; callers must not mutate it.
func (s *Store) SortedWorkoutHistory() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sortedWorkouts != nil {
		return s.sortedWorkouts
	}

	history := workoutHistoryLocked(s.data)
	sorted := make([]map[string]any, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return workoutStart(sorted[i]) > workoutStart(sorted[j])
	})
	s.sortedWorkouts = sorted
	return sorted
}

// LastWorkout returns the workout with the greatest startTime using a single
// pass, or nil when there is no history. Under equal timestamps the first
// occurrence wins; callers that need deterministic tie order should use
// SortedWorkoutHistory.
func (s *Store) LastWorkout() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := workoutHistoryLocked(s.data)
	if len(history) == 0 {
		return nil
	}
	last := history[0]
	best := workoutStart(last)
	for _, workout := range history[1:] {
		if start := workoutStart(workout); start > best {
			last = workout
			best = start
		}
	}
	return last
}

func workoutHistoryLocked(data map[string]any) []map[string]any {
	if data == nil {
		return nil
	}
	raw, found := Get(data, "workout.history")
	if !found {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	history := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		if workout, ok := entry.(map[string]any); ok {
			history = append(history, workout)
		}
	}
	return history
}

func workoutStart(workout map[string]any) float64 {
	switch value := workout["startTime"].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return 0
	}
}
