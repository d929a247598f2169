package entity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// mockPublisher records retained publishes for assertions.
type mockPublisher struct {
	mu       sync.Mutex
	messages map[string][]byte
	err      error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{messages: make(map[string][]byte)}
}

func (m *mockPublisher) PublishRetained(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages[topic] = payload
	return nil
}

func (m *mockPublisher) get(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.messages[topic]
	return payload, ok
}

// mockHistory records state history calls in memory.
type mockHistory struct {
	mu      sync.Mutex
	records []StateHistoryEntry
	err     error
}

func (m *mockHistory) RecordStateChange(_ context.Context, entityID string, state State, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, StateHistoryEntry{
		EntityID: entityID,
		State:    state,
		Source:   source,
	})
	return nil
}

func (m *mockHistory) GetHistory(_ context.Context, entityID string, _ int) ([]StateHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []StateHistoryEntry
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].EntityID == entityID {
			entries = append(entries, m.records[i])
		}
	}
	return entries, nil
}

func (m *mockHistory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func testEntity(id string) *Entity {
	return &Entity{
		ID:       id,
		Name:     "Living Room Thermostat",
		Kind:     KindClimate,
		Category: CategoryPrimary,
		Bridge:   "somfy",
		State:    State{"hvac_mode": "heat"},
	}
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry(nil, nil)

	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if count := r.Count(); count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r := NewRegistry(nil, nil)

	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	err := r.Add(testEntity("climate-1"))
	if !errors.Is(err, ErrExists) {
		t.Errorf("Add() duplicate error = %v, want ErrExists", err)
	}
}

func TestRegistry_AddValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Entity)
		wantErr error
	}{
		{
			name:    "empty id",
			mutate:  func(e *Entity) { e.ID = "" },
			wantErr: ErrInvalidID,
		},
		{
			name:    "empty name",
			mutate:  func(e *Entity) { e.Name = "" },
			wantErr: ErrInvalidName,
		},
		{
			name:    "unknown kind",
			mutate:  func(e *Entity) { e.Kind = "vacuum" },
			wantErr: ErrInvalidKind,
		},
		{
			name:    "unknown category",
			mutate:  func(e *Entity) { e.Category = "hidden" },
			wantErr: ErrInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil, nil)
			e := testEntity("climate-1")
			tt.mutate(e)

			err := r.Add(e)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(nil, nil)
	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := r.Get("climate-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Living Room Thermostat" {
		t.Errorf("Name = %q, want %q", got.Name, "Living Room Thermostat")
	}

	// Mutating the returned copy must not affect the cached entity.
	got.State["hvac_mode"] = "cool"

	again, err := r.Get("climate-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.State["hvac_mode"] != "heat" {
		t.Error("mutation of returned copy leaked into the registry cache")
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry(nil, nil)

	_, err := r.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(nil, nil)
	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := r.Remove("climate-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if count := r.Count(); count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	if err := r.Remove("climate-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() second call error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ListFilters(t *testing.T) {
	r := NewRegistry(nil, nil)

	climate := testEntity("climate-1")
	sensor := &Entity{
		ID:       "binary-1",
		Name:     "Door Contact",
		Kind:     KindBinarySensor,
		Category: CategoryPrimary,
		Bridge:   "devolo",
	}
	overload := &Entity{
		ID:       "binary-2",
		Name:     "Overload Warning",
		Kind:     KindBinarySensor,
		Category: CategoryDiagnostic,
		Bridge:   "devolo",
	}

	for _, e := range []*Entity{climate, sensor, overload} {
		if err := r.Add(e); err != nil {
			t.Fatalf("Add(%s) error = %v", e.ID, err)
		}
	}

	if got := len(r.List()); got != 3 {
		t.Errorf("List() len = %d, want 3", got)
	}
	if got := len(r.ListByKind(KindBinarySensor)); got != 2 {
		t.Errorf("ListByKind(binary_sensor) len = %d, want 2", got)
	}
	if got := len(r.ListByCategory(CategoryDiagnostic)); got != 1 {
		t.Errorf("ListByCategory(diagnostic) len = %d, want 1", got)
	}
	if got := len(r.ListByBridge("devolo")); got != 2 {
		t.Errorf("ListByBridge(devolo) len = %d, want 2", got)
	}
}

func TestRegistry_SetState(t *testing.T) {
	pub := newMockPublisher()
	hist := &mockHistory{}
	r := NewRegistry(pub, hist)

	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	state := State{"hvac_mode": "cool", "current_temperature": 24.5}
	if err := r.SetState(context.Background(), "climate-1", state); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	// Cached snapshot updated
	got, err := r.Get("climate-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State["hvac_mode"] != "cool" {
		t.Errorf("cached hvac_mode = %v, want cool", got.State["hvac_mode"])
	}
	if got.StateUpdatedAt == nil {
		t.Error("StateUpdatedAt not set after SetState()")
	}

	// Canonical state published retained
	payload, ok := pub.get("emberhome/core/entity/climate-1/state")
	if !ok {
		t.Fatal("no retained publish on the entity state topic")
	}
	var published map[string]any
	if err := json.Unmarshal(payload, &published); err != nil {
		t.Fatalf("published payload is not JSON: %v", err)
	}
	if published["hvac_mode"] != "cool" {
		t.Errorf("published hvac_mode = %v, want cool", published["hvac_mode"])
	}

	// History row recorded
	if hist.count() != 1 {
		t.Errorf("history records = %d, want 1", hist.count())
	}
}

func TestRegistry_SetStateNotFound(t *testing.T) {
	r := NewRegistry(nil, nil)

	err := r.SetState(context.Background(), "missing", State{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetState() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_SetStatePublishFailureIsNonFatal(t *testing.T) {
	pub := newMockPublisher()
	pub.err = errors.New("broker gone")
	r := NewRegistry(pub, nil)

	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := r.SetState(context.Background(), "climate-1", State{"x": 1}); err != nil {
		t.Errorf("SetState() error = %v, want nil despite publish failure", err)
	}

	got, err := r.Get("climate-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := got.State["x"]; !ok {
		t.Error("cached state not updated when publish fails")
	}
}

func TestRegistry_SetAvailable(t *testing.T) {
	pub := newMockPublisher()
	r := NewRegistry(pub, nil)

	e := testEntity("climate-1")
	e.Available = true
	if err := r.Add(e); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := r.SetAvailable("climate-1", false); err != nil {
		t.Fatalf("SetAvailable() error = %v", err)
	}

	got, err := r.Get("climate-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Available {
		t.Error("Available = true after SetAvailable(false)")
	}

	payload, ok := pub.get("emberhome/core/entity/climate-1/availability")
	if !ok {
		t.Fatal("no retained publish on the availability topic")
	}
	if string(payload) != "offline" {
		t.Errorf("availability payload = %q, want %q", payload, "offline")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(newMockPublisher(), &mockHistory{})

	if err := r.Add(testEntity("climate-1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = r.SetState(context.Background(), "climate-1", State{"n": n, "j": j})
				_, _ = r.Get("climate-1")
				_ = r.List()
			}
		}(i)
	}
	wg.Wait()

	got, err := r.Get("climate-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State == nil {
		t.Error("state is nil after concurrent updates")
	}
}
