// Package entity defines the canonical entity model that vendor bridges
// populate and the rest of the platform consumes.
//
// An Entity is the vendor-neutral representation of one controllable or
// observable thing: a thermostat surfaces as a climate entity, a door
// contact as a binary sensor, a wall switch as a button. Bridges own the
// translation from vendor devices to entities; everything downstream
// (MQTT subscribers, the HTTP API, dashboards) sees only this model.
//
// The Registry is the single authority for entity state. Bridges push
// state changes into it; the registry fans them out to the message bus
// (retained, so late subscribers converge immediately) and to the SQLite
// state-history store.
package entity
