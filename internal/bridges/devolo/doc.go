// Package devolo integrates devolo Home Control gateways.
//
// The bridge connects to the gateway once at setup: a REST call fetches
// the device inventory and a websocket carries push updates from then
// on. Binary-sensor elements (door contacts, motion, overload warnings)
// surface as binary-sensor entities; remote-control switches surface as
// momentary button entities.
//
// Availability follows the gateway's device status, not the last
// payload: a device reported offline publishes unavailable until a
// status update brings it back, at which point the last observed value
// resurfaces. Overload-warning sensors are diagnostic-category entities.
// Devices the user disabled on the gateway produce no entities.
package devolo
