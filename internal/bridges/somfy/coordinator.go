package somfy

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceLister retrieves the device inventory. Satisfied by *Client.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]Device, error)
}

// Telemetry receives climate measurements on each refresh.
// Satisfied by *influxdb.Client. Optional.
type Telemetry interface {
	WriteClimateMetric(entityID string, currentTemp, targetTemp, humidity float64)
	WriteBatteryLevel(entityID string, percent float64)
}

const defaultRefreshInterval = 2 * time.Minute

// Coordinator polls the vendor API and holds the latest device snapshot,
// keyed by device ID.
//
// One coordinator serves every entity the bridge exposes: entities read
// from the shared snapshot instead of issuing their own API calls, so a
// site with ten thermostats still costs one request per refresh.
//
// Thread Safety: all methods are safe for concurrent use.
type Coordinator struct {
	client   DeviceLister
	interval time.Duration

	data   map[string]Device
	dataMu sync.RWMutex

	listeners   []func()
	listenersMu sync.Mutex

	telemetry Telemetry
	logger    Logger

	// Shutdown coordination
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewCoordinator creates a coordinator polling at the given interval.
// A non-positive interval falls back to the default.
func NewCoordinator(client DeviceLister, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Coordinator{
		client:   client,
		interval: interval,
		data:     make(map[string]Device),
		logger:   noopLogger{},
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetTelemetry sets the optional telemetry sink.
func (c *Coordinator) SetTelemetry(t Telemetry) {
	c.telemetry = t
}

// Refresh fetches the device inventory and replaces the snapshot.
//
// On success it writes telemetry for HVAC devices and notifies listeners.
// On failure the previous snapshot is kept.
func (c *Coordinator) Refresh(ctx context.Context) error {
	devices, err := c.client.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("refreshing devices: %w", err)
	}

	snapshot := make(map[string]Device, len(devices))
	for _, d := range devices {
		snapshot[d.ID] = d
	}

	c.dataMu.Lock()
	c.data = snapshot
	c.dataMu.Unlock()

	c.writeTelemetry(devices)
	c.notifyListeners()

	c.logger.Debug("device snapshot refreshed", "count", len(devices))
	return nil
}

// Device returns the latest snapshot for a device ID.
func (c *Coordinator) Device(id string) (Device, bool) {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	d, ok := c.data[id]
	return d, ok
}

// Devices returns the latest snapshot of all devices.
func (c *Coordinator) Devices() []Device {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()

	devices := make([]Device, 0, len(c.data))
	for _, d := range c.data {
		devices = append(devices, d)
	}
	return devices
}

// AddListener registers a callback invoked after every successful refresh.
// Listeners run synchronously on the refresh goroutine.
func (c *Coordinator) AddListener(fn func()) {
	if fn == nil {
		return
	}
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenersMu.Unlock()
}

// Start launches the periodic refresh loop.
//
// The loop runs until Stop is called or ctx is cancelled. Refresh errors
// are logged and the loop continues; the vendor cloud being briefly
// unreachable must not kill the bridge.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.logger.Warn("periodic refresh failed", "error", err)
				}
			}
		}
	}()
}

// Stop terminates the refresh loop and waits for it to exit.
// Safe to call multiple times.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// writeTelemetry records climate measurements for HVAC devices.
func (c *Coordinator) writeTelemetry(devices []Device) {
	if c.telemetry == nil {
		return
	}

	for i := range devices {
		d := &devices[i]
		if !d.HasCategory(CategoryHVAC) {
			continue
		}

		therm := NewThermostat(*d, nil)
		id := ClimateEntityID(d.ID)
		c.telemetry.WriteClimateMetric(id, therm.AmbientTemperature(), therm.TargetTemperature(), therm.Humidity())
		c.telemetry.WriteBatteryLevel(id, therm.Battery())
	}
}

// notifyListeners invokes refresh listeners in registration order.
func (c *Coordinator) notifyListeners() {
	c.listenersMu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
