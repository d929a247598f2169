package entity

import "time"

// Kind classifies what an entity represents.
type Kind string

// Entity kinds supported by the platform.
const (
	KindClimate      Kind = "climate"
	KindBinarySensor Kind = "binary_sensor"
	KindButton       Kind = "button"
)

// Category distinguishes primary entities from diagnostic ones.
//
// Diagnostic entities (overload warnings, battery alarms) report on the
// device itself rather than the environment, and UIs typically tuck them
// away in a separate section.
type Category string

// Entity categories.
const (
	CategoryPrimary    Category = "primary"
	CategoryDiagnostic Category = "diagnostic"
)

// HVACMode is the operating mode of a climate entity.
type HVACMode string

// HVAC modes.
const (
	HVACModeAuto HVACMode = "auto"
	HVACModeHeat HVACMode = "heat"
	HVACModeCool HVACMode = "cool"
)

// HVACAction is what a climate device is currently doing, as opposed to
// what mode it is set to.
type HVACAction string

// HVAC actions.
const (
	HVACActionHeating HVACAction = "heating"
	HVACActionCooling HVACAction = "cooling"
	HVACActionIdle    HVACAction = "idle"
)

// Preset names for climate entities.
const (
	PresetHome       = "Home"
	PresetAway       = "Away"
	PresetSleep      = "Sleep"
	PresetManual     = "Manual"
	PresetGeofencing = "Geofencing"
	PresetFrostGuard = "Frost Guard"
)

// Features is a bit mask of optional capabilities a climate entity supports.
type Features uint32

// Climate feature flags.
const (
	FeatureTargetTemperature Features = 1 << iota
	FeaturePresetMode
)

// Has reports whether all the given feature bits are set.
func (f Features) Has(feature Features) bool {
	return f&feature == feature
}

// Binary entity states.
const (
	BinaryStateOn          = "on"
	BinaryStateOff         = "off"
	BinaryStateUnavailable = "unavailable"
)

// State holds the current entity state as a JSON map.
//
// Examples:
//   - Climate: {"hvac_mode": "heat", "current_temperature": 21.5, "target_temperature": 19.0}
//   - Binary sensor: {"state": "on"}
type State map[string]any

// Entity represents a single canonical entity exposed by a vendor bridge.
type Entity struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Classification
	Kind     Kind     `json:"kind"`
	Category Category `json:"category"`

	// Bridge identifies which integration owns the entity (e.g. "somfy").
	Bridge string `json:"bridge"`

	// Features declares optional capabilities (climate entities only).
	Features Features `json:"features,omitempty"`

	// Availability and current state
	Available      bool       `json:"available"`
	State          State      `json:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DeepCopy creates a complete independent copy of the Entity.
// The state map is cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (e *Entity) DeepCopy() *Entity {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.State = deepCopyMap(e.State)

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// validKinds and validCategories gate entity registration.
var validKinds = map[Kind]bool{
	KindClimate:      true,
	KindBinarySensor: true,
	KindButton:       true,
}

var validCategories = map[Category]bool{
	CategoryPrimary:    true,
	CategoryDiagnostic: true,
}

// Validate checks that the entity is well-formed for registration.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return ErrInvalidID
	}
	if e.Name == "" {
		return ErrInvalidName
	}
	if !validKinds[e.Kind] {
		return ErrInvalidKind
	}
	if !validCategories[e.Category] {
		return ErrInvalidCategory
	}
	return nil
}
