// Package dispatch provides the in-process publish/subscribe channel that
// connects vendor gateway clients to their entity adapters.
//
// Gateway push connections (websocket listeners, poll loops) decode vendor
// messages and hand them to a Dispatcher keyed by device identifier. Entity
// adapters register one handler per device and translate the raw updates
// into canonical entity state.
//
// The dispatcher is deliberately simple: synchronous delivery, one handler
// per device, idempotent unregistration. Retry and reconnect concerns live
// in the gateway clients, not here.
package dispatch
