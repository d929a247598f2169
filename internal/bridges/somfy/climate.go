package somfy

import (
	"context"
	"fmt"

	"github.com/emberhaus/ember-core/internal/entity"
)

// Fixed thermostat bounds in Celsius. The device does not negotiate a
// temperature range, so the adapter pins the vendor's documented limits.
const (
	MinTemp = 15.0
	MaxTemp = 26.0
)

// TemperatureUnit is the unit for every temperature this bridge reports.
const TemperatureUnit = "celsius"

// climateEntityPrefix namespaces climate entity IDs under this bridge.
const climateEntityPrefix = "somfy-climate-"

// ClimateEntityID derives the canonical entity ID for a thermostat device.
func ClimateEntityID(deviceID string) string {
	return climateEntityPrefix + deviceID
}

// presetMapping is the bidirectional mapping between vendor target modes
// and canonical preset names.
//
// The forward table is authoritative; the reverse table is derived and
// validated at construction so an accidental duplicate preset name fails
// fast instead of silently shadowing a mode.
type presetMapping struct {
	forward map[TargetMode]string
	reverse map[string]TargetMode
}

// newPresetMapping builds and validates the preset tables.
func newPresetMapping() (*presetMapping, error) {
	forward := map[TargetMode]string{
		TargetModeAtHome:          entity.PresetHome,
		TargetModeAway:            entity.PresetAway,
		TargetModeSleep:           entity.PresetSleep,
		TargetModeManual:          entity.PresetManual,
		TargetModeGeofencing:      entity.PresetGeofencing,
		TargetModeFrostProtection: entity.PresetFrostGuard,
	}

	reverse := make(map[string]TargetMode, len(forward))
	for mode, preset := range forward {
		if existing, ok := reverse[preset]; ok {
			return nil, fmt.Errorf("%w: %q maps to both %q and %q",
				ErrAmbiguousPresetMapping, preset, existing, mode)
		}
		reverse[preset] = mode
	}

	return &presetMapping{forward: forward, reverse: reverse}, nil
}

// preset returns the canonical preset name for a target mode.
func (p *presetMapping) preset(mode TargetMode) (string, bool) {
	name, ok := p.forward[mode]
	return name, ok
}

// mode returns the target mode for a canonical preset name.
func (p *presetMapping) mode(preset string) (TargetMode, bool) {
	mode, ok := p.reverse[preset]
	return mode, ok
}

// presetOrder fixes the presentation order of presets. Iterating the
// forward map would shuffle the list between calls.
var presetOrder = []TargetMode{
	TargetModeAtHome,
	TargetModeAway,
	TargetModeSleep,
	TargetModeManual,
	TargetModeGeofencing,
	TargetModeFrostProtection,
}

// presets returns all canonical preset names in presentation order.
func (p *presetMapping) presets() []string {
	names := make([]string, 0, len(presetOrder))
	for _, mode := range presetOrder {
		if name, ok := p.forward[mode]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Climate adapts one HVAC-category device into a climate entity.
//
// All reads go through the coordinator's shared snapshot; commands go
// straight to the vendor API. The adapter holds no state of its own
// beyond identity, so a stale handle is impossible.
type Climate struct {
	coordinator *Coordinator
	executor    CommandExecutor
	deviceID    string
	presets     *presetMapping
	logger      Logger
}

// NewClimate creates the climate adapter for a device.
//
// Parameters:
//   - coordinator: Shared snapshot source
//   - executor: Command path to the vendor API
//   - deviceID: Vendor device identifier
//
// Returns:
//   - *Climate: Adapter ready for use
//   - error: If the preset mapping fails validation
func NewClimate(coordinator *Coordinator, executor CommandExecutor, deviceID string) (*Climate, error) {
	presets, err := newPresetMapping()
	if err != nil {
		return nil, err
	}

	return &Climate{
		coordinator: coordinator,
		executor:    executor,
		deviceID:    deviceID,
		presets:     presets,
		logger:      noopLogger{},
	}, nil
}

// SetLogger sets the logger for the adapter.
func (c *Climate) SetLogger(logger Logger) {
	c.logger = logger
}

// EntityID returns the canonical entity identifier.
func (c *Climate) EntityID() string {
	return ClimateEntityID(c.deviceID)
}

// Name returns the vendor-assigned device name.
func (c *Climate) Name() string {
	return c.thermostat().device.Name
}

// DeviceID returns the vendor device identifier.
func (c *Climate) DeviceID() string {
	return c.deviceID
}

// SupportedFeatures declares target temperature and preset support.
func (c *Climate) SupportedFeatures() entity.Features {
	return entity.FeatureTargetTemperature | entity.FeaturePresetMode
}

// thermostat builds a handle over the latest snapshot for this device.
func (c *Climate) thermostat() *Thermostat {
	device, _ := c.coordinator.Device(c.deviceID)
	return NewThermostat(device, c.executor)
}

// CurrentTemperature returns the measured room temperature.
func (c *Climate) CurrentTemperature() float64 {
	return c.thermostat().AmbientTemperature()
}

// TargetTemperature returns the active setpoint.
func (c *Climate) TargetTemperature() float64 {
	return c.thermostat().TargetTemperature()
}

// CurrentHumidity returns the measured relative humidity.
func (c *Climate) CurrentHumidity() float64 {
	return c.thermostat().Humidity()
}

// BatteryLevel returns the device battery percentage.
func (c *Climate) BatteryLevel() float64 {
	return c.thermostat().Battery()
}

// HVACMode maps the device regulation to a canonical HVAC mode.
//
// Timetable regulation is auto; otherwise the device's exclusive
// heat-or-cool state decides.
func (c *Climate) HVACMode() entity.HVACMode {
	therm := c.thermostat()
	if therm.RegulationState() == RegulationTimetable {
		return entity.HVACModeAuto
	}
	switch therm.HvacState() {
	case HvacStateHeat:
		return entity.HVACModeHeat
	case HvacStateCool:
		return entity.HVACModeCool
	default:
		return ""
	}
}

// HVACModes returns the modes available on this device.
//
// Heat and cool are exclusive; the end user switches between them in the
// vendor application, so only one appears alongside auto.
func (c *Climate) HVACModes() []entity.HVACMode {
	modes := []entity.HVACMode{entity.HVACModeAuto}
	switch c.thermostat().HvacState() {
	case HvacStateHeat:
		modes = append(modes, entity.HVACModeHeat)
	case HvacStateCool:
		modes = append(modes, entity.HVACModeCool)
	}
	return modes
}

// HVACAction reports what the device is currently doing.
//
// With no usable current or target temperature the device is idle.
// Otherwise heating when set to heat below target, cooling when set to
// cool above target, idle in every other case.
func (c *Climate) HVACAction() entity.HVACAction {
	current := c.CurrentTemperature()
	target := c.TargetTemperature()
	if current == 0 || target == 0 {
		return entity.HVACActionIdle
	}

	mode := c.HVACMode()
	if mode == entity.HVACModeHeat && current < target {
		return entity.HVACActionHeating
	}
	if mode == entity.HVACModeCool && current > target {
		return entity.HVACActionCooling
	}
	return entity.HVACActionIdle
}

// PresetMode returns the canonical preset for the active target mode.
// Unknown vendor modes return "".
func (c *Climate) PresetMode() string {
	preset, _ := c.presets.preset(c.thermostat().TargetMode())
	return preset
}

// PresetModes returns all selectable presets.
func (c *Climate) PresetModes() []string {
	return c.presets.presets()
}

// SetTemperature sets a manual target until the next scheduled mode.
// A nil temperature is a no-op.
func (c *Climate) SetTemperature(ctx context.Context, temperature *float64) error {
	if temperature == nil {
		return nil
	}
	return c.thermostat().SetTarget(ctx, TargetModeManual, *temperature, DurationNextMode)
}

// SetHVACMode switches between scheduled and manual regulation.
//
// Selecting the current mode is a no-op. Auto cancels any manual target
// and returns to the timetable; heat or cool pins the current target
// temperature until further notice.
func (c *Climate) SetHVACMode(ctx context.Context, mode entity.HVACMode) error {
	if mode == c.HVACMode() {
		return nil
	}
	if mode == entity.HVACModeAuto {
		return c.thermostat().CancelTarget(ctx)
	}
	return c.thermostat().SetTarget(ctx, TargetModeManual, c.TargetTemperature(), DurationFurtherNotice)
}

// SetPresetMode activates a preset until the next scheduled mode.
//
// Selecting the active preset is a no-op. The target temperature comes
// from the preset's configured value on the device; Manual and
// Geofencing have no configured value, so they reuse the live target.
// Unrecognised preset names are logged and dropped without an error,
// matching the bus contract that bad preset requests never fault the
// adapter.
func (c *Climate) SetPresetMode(ctx context.Context, preset string) error {
	if preset == c.PresetMode() {
		return nil
	}

	therm := c.thermostat()

	var temperature float64
	switch preset {
	case entity.PresetHome:
		temperature = therm.AtHomeTemperature()
	case entity.PresetAway:
		temperature = therm.AwayTemperature()
	case entity.PresetSleep:
		temperature = therm.NightTemperature()
	case entity.PresetFrostGuard:
		temperature = therm.FrostProtectionTemperature()
	case entity.PresetManual, entity.PresetGeofencing:
		temperature = c.TargetTemperature()
	default:
		c.logger.Error("preset mode not supported",
			"device", c.deviceID, "error", fmt.Errorf("%w: %q", ErrUnsupportedPreset, preset))
		return nil
	}

	mode, ok := c.presets.mode(preset)
	if !ok {
		// Unreachable while the switch above and the mapping agree.
		c.logger.Error("preset mode not supported",
			"device", c.deviceID, "error", fmt.Errorf("%w: %q", ErrUnsupportedPreset, preset))
		return nil
	}

	return therm.SetTarget(ctx, mode, temperature, DurationNextMode)
}

// State returns the canonical state snapshot for the registry.
func (c *Climate) State() entity.State {
	return entity.State{
		"hvac_mode":           string(c.HVACMode()),
		"hvac_action":         string(c.HVACAction()),
		"current_temperature": c.CurrentTemperature(),
		"target_temperature":  c.TargetTemperature(),
		"humidity":            c.CurrentHumidity(),
		"battery_level":       c.BatteryLevel(),
		"preset_mode":         c.PresetMode(),
		"temperature_unit":    TemperatureUnit,
		"min_temp":            MinTemp,
		"max_temp":            MaxTemp,
	}
}
