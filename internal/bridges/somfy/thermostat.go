package somfy

import (
	"context"
	"fmt"
)

// TargetMode is the thermostat setpoint mode.
type TargetMode string

// Thermostat target modes.
const (
	TargetModeAtHome          TargetMode = "at_home"
	TargetModeAway            TargetMode = "away"
	TargetModeSleep           TargetMode = "sleep"
	TargetModeManual          TargetMode = "manual"
	TargetModeGeofencing      TargetMode = "geofencing"
	TargetModeFrostProtection TargetMode = "frost_protection"
)

// DurationType controls how long a manual target applies.
type DurationType string

// Target durations.
const (
	// DurationNextMode holds the target until the next scheduled mode.
	DurationNextMode DurationType = "next_mode"

	// DurationFurtherNotice holds the target until explicitly cancelled.
	DurationFurtherNotice DurationType = "further_notice"
)

// RegulationState says whether the thermostat follows its timetable or a
// manual derogation.
type RegulationState string

// Regulation states.
const (
	RegulationTimetable  RegulationState = "timetable"
	RegulationDerogation RegulationState = "derogation"
)

// HvacState is the thermostat's exclusive operating capability.
// Heat and cool are mutually exclusive; the end user switches between
// them in the vendor application.
type HvacState string

// HVAC states.
const (
	HvacStateHeat HvacState = "heat"
	HvacStateCool HvacState = "cool"
)

// Thermostat state names on the wire.
const (
	stateAmbientTemperature = "ambient_temperature"
	stateTargetTemperature  = "target_temperature"
	stateHumidity           = "humidity"
	stateBatteryLevel       = "battery"
	stateRegulationState    = "regulation_state"
	stateHvacState          = "hvac_state"
	stateTargetMode         = "target_mode"
	stateAtHomeTemp         = "at_home_temperature"
	stateAwayTemp           = "away_temperature"
	stateNightTemp          = "night_temperature"
	stateFrostProtectionTmp = "frost_protection_temperature"
)

// CommandExecutor sends commands to a device. Satisfied by *Client.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, deviceID string, cmd Command) error
}

// Thermostat is a typed handle over an HVAC-category device snapshot.
//
// Getters read from the snapshot the handle was built with; commands go
// through the executor. Build a fresh handle from the latest coordinator
// snapshot rather than holding one across refreshes.
type Thermostat struct {
	device   Device
	executor CommandExecutor
}

// NewThermostat binds a device snapshot to a command executor.
func NewThermostat(device Device, executor CommandExecutor) *Thermostat {
	return &Thermostat{device: device, executor: executor}
}

// AmbientTemperature returns the measured room temperature in Celsius.
// Zero means the device has not reported one.
func (t *Thermostat) AmbientTemperature() float64 {
	v, _ := t.device.StateFloat(stateAmbientTemperature)
	return v
}

// TargetTemperature returns the active setpoint in Celsius.
func (t *Thermostat) TargetTemperature() float64 {
	v, _ := t.device.StateFloat(stateTargetTemperature)
	return v
}

// Humidity returns the measured relative humidity percentage.
func (t *Thermostat) Humidity() float64 {
	v, _ := t.device.StateFloat(stateHumidity)
	return v
}

// Battery returns the battery level percentage.
func (t *Thermostat) Battery() float64 {
	v, _ := t.device.StateFloat(stateBatteryLevel)
	return v
}

// RegulationState returns whether the thermostat follows its timetable.
func (t *Thermostat) RegulationState() RegulationState {
	v, _ := t.device.StateString(stateRegulationState)
	return RegulationState(v)
}

// HvacState returns the device's exclusive heat-or-cool capability.
func (t *Thermostat) HvacState() HvacState {
	v, _ := t.device.StateString(stateHvacState)
	return HvacState(v)
}

// TargetMode returns the active setpoint mode.
func (t *Thermostat) TargetMode() TargetMode {
	v, _ := t.device.StateString(stateTargetMode)
	return TargetMode(v)
}

// AtHomeTemperature returns the configured at-home preset temperature.
func (t *Thermostat) AtHomeTemperature() float64 {
	v, _ := t.device.StateFloat(stateAtHomeTemp)
	return v
}

// AwayTemperature returns the configured away preset temperature.
func (t *Thermostat) AwayTemperature() float64 {
	v, _ := t.device.StateFloat(stateAwayTemp)
	return v
}

// NightTemperature returns the configured night preset temperature.
func (t *Thermostat) NightTemperature() float64 {
	v, _ := t.device.StateFloat(stateNightTemp)
	return v
}

// FrostProtectionTemperature returns the configured frost guard temperature.
func (t *Thermostat) FrostProtectionTemperature() float64 {
	v, _ := t.device.StateFloat(stateFrostProtectionTmp)
	return v
}

// SetTarget sets a temperature target.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - mode: Target mode the setpoint belongs to
//   - temperature: Setpoint in Celsius
//   - duration: How long the target applies
func (t *Thermostat) SetTarget(ctx context.Context, mode TargetMode, temperature float64, duration DurationType) error {
	cmd := Command{
		Name: "set_target",
		Parameters: []Parameter{
			{Name: "target_mode", Value: string(mode)},
			{Name: "target_temperature", Value: temperature},
			{Name: "duration_type", Value: string(duration)},
		},
	}
	if err := t.executor.ExecuteCommand(ctx, t.device.ID, cmd); err != nil {
		return fmt.Errorf("setting target on %s: %w", t.device.ID, err)
	}
	return nil
}

// CancelTarget cancels any manual target and returns to the timetable.
func (t *Thermostat) CancelTarget(ctx context.Context) error {
	if err := t.executor.ExecuteCommand(ctx, t.device.ID, Command{Name: "cancel_target"}); err != nil {
		return fmt.Errorf("cancelling target on %s: %w", t.device.ID, err)
	}
	return nil
}
