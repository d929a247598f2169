package devolo

import (
	"context"
	"fmt"

	"github.com/emberhaus/ember-core/internal/entity"
	"github.com/emberhaus/ember-core/internal/infrastructure/config"
)

// EntityRegistry is the subset of the platform registry the bridge needs.
// Satisfied by *entity.Registry.
type EntityRegistry interface {
	Add(e *entity.Entity) error
	Remove(id string) error
	SetState(ctx context.Context, id string, state entity.State) error
	SetAvailable(id string, available bool) error
}

// Bridge owns the devolo Home Control integration lifecycle.
type Bridge struct {
	hc       *HomeControl
	registry EntityRegistry
	handlers map[string]*deviceHandler
	logger   Logger
}

// Setup connects to the gateway and registers binary-sensor and
// remote-control entities.
//
// Disabled devices produce no entities at all. Each device with at least
// one entity gets exactly one publisher registration; the handler fans
// messages out to the device's entities.
//
// Parameters:
//   - ctx: Context for the gateway connection
//   - cfg: Bridge configuration (gateway URL and ID)
//   - registry: Platform entity registry
//   - logger: Bridge logger (nil for none)
//
// Returns:
//   - *Bridge: Running bridge; call Teardown to stop it
//   - error: If the gateway connection or registration fails
func Setup(ctx context.Context, cfg config.DevoloConfig, registry EntityRegistry, logger Logger) (*Bridge, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	hc, err := Connect(ctx, cfg.GatewayURL, cfg.GatewayID, logger)
	if err != nil {
		return nil, err
	}

	b, err := bindEntities(hc, registry, logger)
	if err != nil {
		hc.Close()
		return nil, err
	}
	return b, nil
}

// bindEntities registers entities and per-device handlers over a
// connected gateway client. Split from Setup so tests can drive it with
// a NewHomeControl inventory.
func bindEntities(hc *HomeControl, registry EntityRegistry, logger Logger) (*Bridge, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	b := &Bridge{
		hc:       hc,
		registry: registry,
		handlers: make(map[string]*deviceHandler),
		logger:   logger,
	}

	for _, device := range hc.Devices() {
		if !device.Enabled {
			logger.Debug("disabled device skipped", "device", device.ID)
			continue
		}
		if len(device.Elements) == 0 {
			continue
		}

		handler := &deviceHandler{
			hc:       hc,
			registry: registry,
			deviceID: device.ID,
			logger:   logger,
		}

		for _, element := range device.Elements {
			tracker := newElementEntity(element)

			e := &entity.Entity{
				ID:        tracker.entityID,
				Name:      element.Name,
				Kind:      tracker.entityKind(),
				Category:  tracker.entityCategory(),
				Bridge:    "devolo",
				Available: device.Online(),
				State:     initialState(&device),
			}
			if err := registry.Add(e); err != nil {
				return nil, fmt.Errorf("registering %s: %w", e.ID, err)
			}

			handler.entities = append(handler.entities, tracker)
		}

		hc.Publisher().Register(device.ID, handler.handle)
		b.handlers[device.ID] = handler
	}

	logger.Info("devolo bridge started",
		"gateway", hc.GatewayID(),
		"devices", len(b.handlers),
		"entities", b.entityCount())
	return b, nil
}

// initialState is the published state before the first payload arrives.
func initialState(device *Device) entity.State {
	if !device.Online() {
		return entity.State{"state": entity.BinaryStateUnavailable}
	}
	return entity.State{"state": entity.BinaryStateOff}
}

// HomeControl exposes the underlying gateway client.
func (b *Bridge) HomeControl() *HomeControl {
	return b.hc
}

// entityCount counts entities across all device handlers.
func (b *Bridge) entityCount() int {
	n := 0
	for _, h := range b.handlers {
		n += len(h.entities)
	}
	return n
}

// Teardown unregisters every device subscription exactly once, removes
// the bridge's entities, and closes the gateway connection.
func (b *Bridge) Teardown() {
	for deviceID, handler := range b.handlers {
		b.hc.Publisher().Unregister(deviceID)

		for _, e := range handler.entities {
			if err := b.registry.Remove(e.entityID); err != nil {
				b.logger.Warn("entity removal failed", "entity", e.entityID, "error", err)
			}
		}
	}

	if err := b.hc.Close(); err != nil {
		b.logger.Warn("gateway close failed", "error", err)
	}

	b.logger.Info("devolo bridge stopped")
}
