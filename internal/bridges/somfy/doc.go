// Package somfy integrates Somfy connected thermostats.
//
// The bridge polls the vendor REST API through a shared coordinator and
// presents each HVAC-category device as a climate entity: temperatures,
// humidity, battery, HVAC mode/action, and the six setpoint presets
// (Home, Away, Sleep, Manual, Geofencing, Frost Guard).
//
// Command flow is write-through: SetTemperature, SetHVACMode, and
// SetPresetMode issue vendor commands immediately, and the next
// coordinator refresh folds the resulting device state back into the
// registry. The bridge adds no retry logic of its own; transient API
// failures surface as errors and the periodic refresh recovers state.
package somfy
