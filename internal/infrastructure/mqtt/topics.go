package mqtt

import "fmt"

// Topic prefixes for the Ember Core message bus.
//
// Canonical entity state is published by Core under emberhome/core; bridge
// health and system status live under their own prefixes.
const (
	// TopicPrefixRoot is the base for all Ember Core topics.
	TopicPrefixRoot = "emberhome"

	// TopicPrefixCore is the base for canonical state published by Core.
	TopicPrefixCore = "emberhome/core"

	// TopicPrefixBridge is the base for bridge-level topics.
	TopicPrefixBridge = "emberhome/bridge"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "emberhome/system"
)

// Topics provides builders for Ember Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState("climate-living")
//	// Returns: "emberhome/core/entity/climate-living/state"
type Topics struct{}

// EntityState returns the canonical state topic for an entity.
// This is the authoritative state published by Core after a bridge update.
//
// Example: emberhome/core/entity/climate-living/state
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/state", TopicPrefixCore, entityID)
}

// EntityAvailability returns the availability topic for an entity.
//
// Example: emberhome/core/entity/binary-door/availability
func (Topics) EntityAvailability(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/availability", TopicPrefixCore, entityID)
}

// EntityCommand returns the command request topic for an entity.
// Bridges subscribe here and route decoded commands to their adapters.
//
// Example: emberhome/core/entity/climate-living/command
func (Topics) EntityCommand(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/command", TopicPrefixCore, entityID)
}

// CoreEvent returns the topic for system events.
//
// Example: emberhome/core/event/entity_state_changed
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: emberhome/bridge/somfy/health
func (Topics) BridgeHealth(bridge string) string {
	return fmt.Sprintf("%s/%s/health", TopicPrefixBridge, bridge)
}

// SystemStatus returns the system status topic.
// Core publishes online/offline here; the broker publishes the LWT here
// on unexpected disconnect.
//
// Example: emberhome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEntityStates returns a pattern matching all canonical entity states.
//
// Pattern: emberhome/core/entity/+/state
func (Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/entity/+/state", TopicPrefixCore)
}

// AllEntityCommands returns a pattern matching all entity command topics.
//
// Pattern: emberhome/core/entity/+/command
func (Topics) AllEntityCommands() string {
	return fmt.Sprintf("%s/entity/+/command", TopicPrefixCore)
}

// AllBridgeHealth returns a pattern matching all bridge health topics.
//
// Pattern: emberhome/bridge/+/health
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/+/health", TopicPrefixBridge)
}

// AllTopics returns a pattern matching every Ember Core topic.
//
// Pattern: emberhome/#
func (Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", TopicPrefixRoot)
}
