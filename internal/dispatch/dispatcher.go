package dispatch

import (
	"sync"
)

// Handler is the callback signature for dispatched device messages.
//
// Handlers run synchronously on the dispatching goroutine, so they must
// not block for extended periods.
type Handler func(msg Message)

// Message is a device update delivered through the dispatcher.
//
// Property carries the element property identifier for element updates
// (e.g. "devolo.BinarySensor:hdm:ZWave:1469419635/6") and the literal
// "Status" marker for out-of-band device status changes.
type Message struct {
	Property string
	Value    any
	Kind     string
}

// Dispatcher routes device update messages to registered handlers.
//
// Registration is keyed by device identifier: each device gets at most one
// handler, and the handler fans the message out to whatever entities the
// device backs. This keeps subscription lifecycle per-device, so teardown
// can unregister each device exactly once.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	// unregisters counts Unregister calls per device ID, including calls
	// for devices that were never registered. Used to verify teardown.
	unregisters map[string]int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:    make(map[string]Handler),
		unregisters: make(map[string]int),
	}
}

// Register installs the handler for a device.
//
// Registering a device that already has a handler replaces it; callers
// that need fan-out to multiple entities should compose a single handler.
//
// Parameters:
//   - deviceID: Unique device identifier
//   - handler: Callback invoked for each dispatched message
func (d *Dispatcher) Register(deviceID string, handler Handler) {
	if deviceID == "" || handler == nil {
		return
	}

	d.mu.Lock()
	d.handlers[deviceID] = handler
	d.mu.Unlock()
}

// Unregister removes the handler for a device.
//
// Idempotent: unregistering an unknown or already-removed device is a
// no-op apart from the bookkeeping counter.
func (d *Dispatcher) Unregister(deviceID string) {
	d.mu.Lock()
	delete(d.handlers, deviceID)
	d.unregisters[deviceID]++
	d.mu.Unlock()
}

// Dispatch delivers a message to the device's handler, if one is registered.
//
// The handler runs synchronously before Dispatch returns. Messages for
// devices without a handler are dropped silently.
//
// Returns:
//   - bool: true if a handler received the message
func (d *Dispatcher) Dispatch(deviceID string, msg Message) bool {
	d.mu.RLock()
	handler, ok := d.handlers[deviceID]
	d.mu.RUnlock()

	if !ok {
		return false
	}

	handler(msg)
	return true
}

// Registered reports whether a handler is installed for the device.
func (d *Dispatcher) Registered(deviceID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[deviceID]
	return ok
}

// HandlerCount returns the number of registered device handlers.
func (d *Dispatcher) HandlerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// UnregisterCount returns how many times Unregister was called for the device.
//
// Integration teardown is expected to unregister each distinct device
// exactly once; tests use this counter to verify it.
func (d *Dispatcher) UnregisterCount(deviceID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.unregisters[deviceID]
}
