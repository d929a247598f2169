package devolo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/emberhaus/ember-core/internal/dispatch"
)

// Device status codes on the gateway wire.
const (
	StatusOnline  = 0
	StatusOffline = 1
)

// ElementKind classifies a device element.
type ElementKind string

// Element kinds.
const (
	ElementBinarySensor  ElementKind = "binary_sensor"
	ElementRemoteControl ElementKind = "remote_control"
)

// Sub-types with special handling.
const (
	// SubTypeOverload marks an overload-warning sensor; its entity is
	// diagnostic rather than primary.
	SubTypeOverload = "overload"
)

// Element is one observable property of a gateway device.
type Element struct {
	// UID is the element property identifier
	// (e.g. "devolo.BinarySensor:hdm:ZWave:1469419635/6").
	UID string `json:"uid"`

	Name    string      `json:"name"`
	Kind    ElementKind `json:"kind"`
	SubType string      `json:"sub_type,omitempty"`
}

// Device is a gateway device with its elements.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   int       `json:"status"`
	Enabled  bool      `json:"enabled"`
	Elements []Element `json:"elements"`
}

// Online reports whether the gateway considers the device reachable.
func (d *Device) Online() bool {
	return d.Status == StatusOnline
}

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

const (
	inventoryTimeout = 10 * time.Second

	// maxInventoryBytes bounds the gateway inventory response (1MB).
	maxInventoryBytes = 1 << 20
)

// HomeControl is the gateway client: device inventory plus the push
// channel that streams live updates.
//
// Updates reach consumers through the publisher, a dispatcher keyed by
// device ID. The websocket listener feeds it; entity adapters register
// one handler per device.
//
// Thread Safety: all methods are safe for concurrent use.
type HomeControl struct {
	gatewayID string

	devices  map[string]*Device
	deviceMu sync.RWMutex

	publisher *dispatch.Dispatcher
	listener  *wsListener
	logger    Logger
}

// NewHomeControl creates a gateway client over a known inventory.
// Used directly in tests; production code goes through Connect.
func NewHomeControl(gatewayID string, devices []Device) *HomeControl {
	hc := &HomeControl{
		gatewayID: gatewayID,
		devices:   make(map[string]*Device, len(devices)),
		publisher: dispatch.NewDispatcher(),
		logger:    noopLogger{},
	}
	for i := range devices {
		d := devices[i]
		hc.devices[d.ID] = &d
	}
	return hc
}

// Connect fetches the device inventory from the gateway and starts the
// websocket listener for push updates.
//
// Parameters:
//   - ctx: Context for the inventory fetch and websocket dial
//   - gatewayURL: Gateway base URL (e.g. "http://hc-gateway.local:14791")
//   - gatewayID: Gateway serial, used in log attribution
//   - logger: Bridge logger (nil for none)
//
// Returns:
//   - *HomeControl: Connected client; call Close to stop the listener
//   - error: If the inventory fetch or websocket dial fails
func Connect(ctx context.Context, gatewayURL, gatewayID string, logger Logger) (*HomeControl, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	devices, err := fetchInventory(ctx, gatewayURL)
	if err != nil {
		return nil, err
	}

	hc := NewHomeControl(gatewayID, devices)
	hc.logger = logger

	listener, err := dialListener(ctx, gatewayURL, hc)
	if err != nil {
		return nil, err
	}
	hc.listener = listener
	listener.start()

	logger.Info("gateway connected", "gateway", gatewayID, "devices", len(devices))
	return hc, nil
}

// fetchInventory retrieves the device list from the gateway.
func fetchInventory(ctx context.Context, gatewayURL string) ([]Device, error) {
	reqCtx, cancel := context.WithTimeout(ctx, inventoryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, gatewayURL+"/devices", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnreachable, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inventory status %d", ErrGatewayUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxInventoryBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading inventory: %w", ErrGatewayUnreachable, err)
	}

	var devices []Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("%w: decoding inventory: %w", ErrGatewayUnreachable, err)
	}
	return devices, nil
}

// Publisher returns the dispatcher that fans out device updates.
func (hc *HomeControl) Publisher() *dispatch.Dispatcher {
	return hc.publisher
}

// GatewayID returns the gateway serial.
func (hc *HomeControl) GatewayID() string {
	return hc.gatewayID
}

// Devices returns a snapshot of the device inventory.
func (hc *HomeControl) Devices() []Device {
	hc.deviceMu.RLock()
	defer hc.deviceMu.RUnlock()

	devices := make([]Device, 0, len(hc.devices))
	for _, d := range hc.devices {
		devices = append(devices, *d)
	}
	return devices
}

// Device returns the inventory entry for a device ID.
func (hc *HomeControl) Device(id string) (Device, bool) {
	hc.deviceMu.RLock()
	defer hc.deviceMu.RUnlock()

	d, ok := hc.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// SetDeviceStatus updates the inventory status for a device.
// Called by the websocket listener ahead of dispatching status messages.
func (hc *HomeControl) SetDeviceStatus(id string, status int) {
	hc.deviceMu.Lock()
	if d, ok := hc.devices[id]; ok {
		d.Status = status
	}
	hc.deviceMu.Unlock()
}

// Close stops the websocket listener.
func (hc *HomeControl) Close() error {
	if hc.listener == nil {
		return nil
	}
	return hc.listener.stop()
}
