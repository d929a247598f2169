package somfy

import (
	"context"
	"fmt"
	"time"

	"github.com/emberhaus/ember-core/internal/entity"
	"github.com/emberhaus/ember-core/internal/infrastructure/config"
	"github.com/emberhaus/ember-core/internal/infrastructure/mqtt"
)

// EntityRegistry is the subset of the platform registry the bridge needs.
// Satisfied by *entity.Registry.
type EntityRegistry interface {
	Add(e *entity.Entity) error
	Remove(id string) error
	SetState(ctx context.Context, id string, state entity.State) error
}

// Bridge owns the Somfy integration lifecycle: one API client, one
// coordinator, and a climate adapter per HVAC-category device.
type Bridge struct {
	client       *Client
	coordinator  *Coordinator
	registry     EntityRegistry
	climates     map[string]*Climate
	bus          CommandBus
	commandTopic string
	logger       Logger
}

// Setup connects to the vendor API and registers climate entities.
//
// Devices outside the HVAC category produce no entities. The coordinator
// is started and pushes registry state updates on every refresh. With a
// command bus the bridge also subscribes to entity command topics and
// routes decoded commands to its climate adapters.
//
// Parameters:
//   - ctx: Context for the initial inventory fetch
//   - cfg: Bridge configuration (base URL, token, refresh interval)
//   - registry: Platform entity registry
//   - telemetry: Optional telemetry sink (nil to disable)
//   - bus: Optional command bus (nil to disable inbound commands)
//   - logger: Bridge logger
//
// Returns:
//   - *Bridge: Running bridge; call Teardown to stop it
//   - error: If the initial fetch, registration, or subscription fails
func Setup(ctx context.Context, cfg config.SomfyConfig, registry EntityRegistry, telemetry Telemetry, bus CommandBus, logger Logger) (*Bridge, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	client := NewClient(cfg.BaseURL, cfg.AccessToken)

	if expiry, err := client.TokenExpiry(); err != nil {
		logger.Warn("access token expiry unreadable", "error", err)
	} else if until := time.Until(expiry); until < cfg.GetRefreshInterval() {
		logger.Warn("access token expires soon", "expires_in", until.String())
	}

	coordinator := NewCoordinator(client, cfg.GetRefreshInterval())
	coordinator.SetLogger(logger)
	if telemetry != nil {
		coordinator.SetTelemetry(telemetry)
	}

	if err := coordinator.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial refresh: %w", err)
	}

	b := &Bridge{
		client:      client,
		coordinator: coordinator,
		registry:    registry,
		climates:    make(map[string]*Climate),
		logger:      logger,
	}

	for _, device := range coordinator.Devices() {
		if !device.HasCategory(CategoryHVAC) {
			continue
		}

		climate, err := NewClimate(coordinator, client, device.ID)
		if err != nil {
			return nil, fmt.Errorf("creating climate adapter for %s: %w", device.ID, err)
		}
		climate.SetLogger(logger)

		e := &entity.Entity{
			ID:        climate.EntityID(),
			Name:      device.Name,
			Kind:      entity.KindClimate,
			Category:  entity.CategoryPrimary,
			Bridge:    "somfy",
			Features:  climate.SupportedFeatures(),
			Available: true,
			State:     climate.State(),
		}
		if err := registry.Add(e); err != nil {
			return nil, fmt.Errorf("registering %s: %w", e.ID, err)
		}

		b.climates[device.ID] = climate
	}

	if bus != nil {
		topic := mqtt.Topics{}.AllEntityCommands()
		if err := bus.Subscribe(topic, commandQoS, b.handleCommand); err != nil {
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		b.bus = bus
		b.commandTopic = topic
	}

	coordinator.AddListener(func() {
		b.pushStates(context.Background())
	})
	coordinator.Start(ctx)

	logger.Info("somfy bridge started", "climates", len(b.climates), "commands", bus != nil)
	return b, nil
}

// Climate returns the adapter for a device ID, if one was registered.
func (b *Bridge) Climate(deviceID string) (*Climate, bool) {
	c, ok := b.climates[deviceID]
	return c, ok
}

// Coordinator exposes the shared coordinator (used by the API layer for
// on-demand refresh).
func (b *Bridge) Coordinator() *Coordinator {
	return b.coordinator
}

// pushStates writes every adapter's current state into the registry.
func (b *Bridge) pushStates(ctx context.Context) {
	for _, climate := range b.climates {
		if err := b.registry.SetState(ctx, climate.EntityID(), climate.State()); err != nil {
			b.logger.Warn("state push failed", "entity", climate.EntityID(), "error", err)
		}
	}
}

// Teardown stops the refresh loop, drops the command subscription, and
// removes the bridge's entities.
func (b *Bridge) Teardown() {
	b.coordinator.Stop()

	if b.bus != nil {
		if err := b.bus.Unsubscribe(b.commandTopic); err != nil {
			b.logger.Warn("command unsubscribe failed", "topic", b.commandTopic, "error", err)
		}
	}

	for _, climate := range b.climates {
		if err := b.registry.Remove(climate.EntityID()); err != nil {
			b.logger.Warn("entity removal failed", "entity", climate.EntityID(), "error", err)
		}
	}

	b.logger.Info("somfy bridge stopped")
}
