package devolo

import (
	"context"
	"sync"

	"github.com/emberhaus/ember-core/internal/dispatch"
	"github.com/emberhaus/ember-core/internal/entity"
)

// BinarySensorEntityID derives the canonical entity ID for an element.
func BinarySensorEntityID(elementUID string) string {
	return "devolo-" + elementUID
}

// elementEntity tracks one element's canonical entity and its last
// observed on/off value.
//
// The last value survives offline periods: a device going unavailable
// does not erase what the sensor last reported, it only masks it until
// the device returns.
type elementEntity struct {
	entityID string
	element  Element

	mu        sync.Mutex
	lastState string
}

// newElementEntity builds the tracker with the off state as baseline.
func newElementEntity(element Element) *elementEntity {
	return &elementEntity{
		entityID:  BinarySensorEntityID(element.UID),
		element:   element,
		lastState: entity.BinaryStateOff,
	}
}

// entityKind maps the element kind to the canonical entity kind.
// Remote controls surface as momentary buttons.
func (e *elementEntity) entityKind() entity.Kind {
	if e.element.Kind == ElementRemoteControl {
		return entity.KindButton
	}
	return entity.KindBinarySensor
}

// entityCategory puts overload warnings in the diagnostic section.
func (e *elementEntity) entityCategory() entity.Category {
	if e.element.SubType == SubTypeOverload {
		return entity.CategoryDiagnostic
	}
	return entity.CategoryPrimary
}

// apply folds a payload value into the tracked state and returns the
// new on/off state.
//
// Binary sensors report booleans; remote controls report the pressed
// key as a number where zero means released. Any non-zero, non-false
// payload reads as on.
func (e *elementEntity) apply(value any) string {
	state := entity.BinaryStateOff
	switch v := value.(type) {
	case bool:
		if v {
			state = entity.BinaryStateOn
		}
	case float64:
		if v != 0 {
			state = entity.BinaryStateOn
		}
	case int:
		if v != 0 {
			state = entity.BinaryStateOn
		}
	}

	e.mu.Lock()
	e.lastState = state
	e.mu.Unlock()
	return state
}

// last returns the last observed on/off state.
func (e *elementEntity) last() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastState
}

// deviceHandler fans one device's dispatches out to its element entities.
//
// Registration with the publisher is per-device: one handler serves all
// of the device's elements, so teardown unregisters each device exactly
// once no matter how many entities it backs.
type deviceHandler struct {
	hc       *HomeControl
	registry EntityRegistry
	deviceID string
	entities []*elementEntity
	logger   Logger
}

// handle processes one dispatched message for the device.
func (h *deviceHandler) handle(msg dispatch.Message) {
	if msg.Kind == "status" || msg.Property == statusProperty {
		h.handleStatus()
		return
	}

	for _, e := range h.entities {
		if e.element.UID != msg.Property {
			continue
		}
		state := e.apply(msg.Value)
		h.pushState(e, state)
		return
	}

	h.logger.Debug("update for unknown element dropped", "device", h.deviceID, "property", msg.Property)
}

// handleStatus re-reads the inventory status and masks or restores
// every element entity accordingly.
//
// Offline wins over payloads: while the device status is offline the
// published state is unavailable regardless of the last value, and the
// last value resurfaces when the device comes back.
func (h *deviceHandler) handleStatus() {
	device, ok := h.hc.Device(h.deviceID)
	if !ok {
		return
	}

	for _, e := range h.entities {
		if err := h.registry.SetAvailable(e.entityID, device.Online()); err != nil {
			h.logger.Warn("availability update failed", "entity", e.entityID, "error", err)
		}

		if device.Online() {
			h.pushState(e, e.last())
		} else {
			h.pushState(e, entity.BinaryStateUnavailable)
		}
	}
}

// pushState writes an element's published state into the registry.
func (h *deviceHandler) pushState(e *elementEntity, state string) {
	err := h.registry.SetState(context.Background(), e.entityID, entity.State{"state": state})
	if err != nil {
		h.logger.Warn("state update failed", "entity", e.entityID, "error", err)
	}
}
