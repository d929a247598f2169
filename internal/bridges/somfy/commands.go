package somfy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/emberhaus/ember-core/internal/entity"
	"github.com/emberhaus/ember-core/internal/infrastructure/mqtt"
)

// Command names accepted on entity command topics.
const (
	commandSetTemperature = "set_temperature"
	commandSetHVACMode    = "set_hvac_mode"
	commandSetPresetMode  = "set_preset_mode"
)

const (
	// commandQoS is at-least-once: a lost setpoint is worse than a
	// duplicate, and the vendor API treats repeats as idempotent.
	commandQoS = 1

	commandTimeout = 30 * time.Second
)

// CommandBus is the subset of the message bus the bridge needs to
// receive entity commands. Satisfied by *mqtt.Client.
type CommandBus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// commandMessage is the JSON payload published to an entity command topic.
//
//	{"command": "set_temperature", "temperature": 20.5}
//	{"command": "set_hvac_mode", "hvac_mode": "auto"}
//	{"command": "set_preset_mode", "preset_mode": "Away"}
type commandMessage struct {
	Command     string   `json:"command"`
	Temperature *float64 `json:"temperature,omitempty"`
	HVACMode    string   `json:"hvac_mode,omitempty"`
	PresetMode  string   `json:"preset_mode,omitempty"`
}

// handleCommand routes one entity command to its climate adapter.
//
// The subscription is a wildcard over every entity, so commands for
// entities this bridge does not own are ignored without logging. A
// successful command is followed by a refresh so the canonical state
// topics converge without waiting for the next scheduled poll.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	entityID := entityIDFromCommandTopic(topic)

	deviceID, ok := strings.CutPrefix(entityID, climateEntityPrefix)
	if !ok {
		return nil
	}
	climate, ok := b.climates[deviceID]
	if !ok {
		b.logger.Warn("command for unknown device", "device", deviceID, "topic", topic)
		return nil
	}

	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding command for %s: %w", entityID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch msg.Command {
	case commandSetTemperature:
		err = climate.SetTemperature(ctx, msg.Temperature)
	case commandSetHVACMode:
		err = climate.SetHVACMode(ctx, entity.HVACMode(msg.HVACMode))
	case commandSetPresetMode:
		err = climate.SetPresetMode(ctx, msg.PresetMode)
	default:
		b.logger.Warn("unknown entity command", "command", msg.Command, "entity", entityID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("executing %s on %s: %w", msg.Command, entityID, err)
	}

	if err := b.coordinator.Refresh(ctx); err != nil {
		b.logger.Warn("refresh after command failed", "entity", entityID, "error", err)
	}
	return nil
}

// entityIDFromCommandTopic extracts the entity ID from a command topic
// shaped emberhome/core/entity/{id}/command.
func entityIDFromCommandTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
