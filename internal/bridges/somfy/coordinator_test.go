package somfy

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// failingLister always errors.
type failingLister struct{}

func (failingLister) ListDevices(context.Context) ([]Device, error) {
	return nil, errors.New("vendor cloud unreachable")
}

// mockTelemetry records telemetry writes.
type mockTelemetry struct {
	mu       sync.Mutex
	climate  map[string][]float64
	battery  map[string]float64
	writeSeq []string
}

func newMockTelemetry() *mockTelemetry {
	return &mockTelemetry{
		climate: make(map[string][]float64),
		battery: make(map[string]float64),
	}
}

func (m *mockTelemetry) WriteClimateMetric(entityID string, currentTemp, targetTemp, humidity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.climate[entityID] = []float64{currentTemp, targetTemp, humidity}
	m.writeSeq = append(m.writeSeq, entityID)
}

func (m *mockTelemetry) WriteBatteryLevel(entityID string, percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battery[entityID] = percent
}

func TestCoordinatorRefresh(t *testing.T) {
	lister := &staticLister{devices: []Device{thermostatDevice(nil)}}
	c := NewCoordinator(lister, 0)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	device, ok := c.Device("therm-1")
	if !ok {
		t.Fatal("Device(therm-1) not found after refresh")
	}
	if device.Name != "Living Room Thermostat" {
		t.Errorf("Name = %q, want Living Room Thermostat", device.Name)
	}
	if len(c.Devices()) != 1 {
		t.Errorf("Devices() len = %d, want 1", len(c.Devices()))
	}
}

func TestCoordinatorRefresh_FailureKeepsSnapshot(t *testing.T) {
	lister := &staticLister{devices: []Device{thermostatDevice(nil)}}
	c := NewCoordinator(lister, 0)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Swap in a failing client; the old snapshot must survive.
	c.client = failingLister{}
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() with failing client should error")
	}

	if _, ok := c.Device("therm-1"); !ok {
		t.Error("previous snapshot lost after failed refresh")
	}
}

func TestCoordinatorListeners(t *testing.T) {
	lister := &staticLister{devices: []Device{thermostatDevice(nil)}}
	c := NewCoordinator(lister, 0)

	calls := 0
	c.AddListener(func() { calls++ })
	c.AddListener(nil) // ignored

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("listener calls = %d, want 2", calls)
	}
}

func TestCoordinatorTelemetry(t *testing.T) {
	devices := []Device{
		thermostatDevice(nil),
		{ID: "shutter-1", Name: "Shutter", Categories: []string{CategoryRollerShutter}},
	}
	c := NewCoordinator(&staticLister{devices: devices}, 0)
	telemetry := newMockTelemetry()
	c.SetTelemetry(telemetry)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	entityID := ClimateEntityID("therm-1")
	values, ok := telemetry.climate[entityID]
	if !ok {
		t.Fatal("no climate telemetry written for thermostat")
	}
	if values[0] != 21.5 || values[1] != 19.0 || values[2] != 48.0 {
		t.Errorf("climate telemetry = %v, want [21.5 19 48]", values)
	}
	if telemetry.battery[entityID] != 87.0 {
		t.Errorf("battery telemetry = %v, want 87", telemetry.battery[entityID])
	}

	// Non-HVAC devices produce no telemetry.
	if len(telemetry.writeSeq) != 1 {
		t.Errorf("telemetry writes = %d, want 1", len(telemetry.writeSeq))
	}
}

func TestCoordinatorStopIdempotent(t *testing.T) {
	c := NewCoordinator(&staticLister{}, 0)
	c.Start(context.Background())

	c.Stop()
	c.Stop() // must not panic
}
