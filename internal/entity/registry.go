package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/emberhaus/ember-core/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher publishes canonical entity state onto the message bus.
// Satisfied by *mqtt.Client.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Registry is the in-memory entity inventory and state store.
//
// Bridges register entities at setup and push state changes as vendor
// updates arrive. On every state change the registry:
//  1. Updates the cached entity snapshot.
//  2. Publishes the canonical state to MQTT (retained), so subscribers
//     always see the latest state on connect.
//  3. Appends a row to the state-history store.
//
// The publisher and history store are optional; a nil value disables
// that side effect, which keeps unit tests and partial deployments simple.
//
// All public methods are thread-safe.
type Registry struct {
	entities map[string]*Entity
	mu       sync.RWMutex

	publisher Publisher
	history   StateHistoryRepository
	logger    Logger
}

// NewRegistry creates a new entity registry.
//
// Parameters:
//   - publisher: Bus publisher for canonical state (nil to disable)
//   - history: State-history store (nil to disable)
func NewRegistry(publisher Publisher, history StateHistoryRepository) *Registry {
	return &Registry{
		entities:  make(map[string]*Entity),
		publisher: publisher,
		history:   history,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Add registers a new entity.
// Returns ErrExists if the ID is already registered.
func (r *Registry) Add(e *Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, e.ID)
	}

	stored := e.DeepCopy()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.entities[e.ID] = stored

	r.logger.Info("entity registered", "id", e.ID, "kind", e.Kind, "bridge", e.Bridge)
	return nil
}

// Remove deletes an entity from the registry.
// Removing an unknown ID returns ErrNotFound.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.entities, id)

	r.logger.Info("entity removed", "id", id)
	return nil
}

// Get retrieves an entity by ID.
// The returned entity is a deep copy; callers can safely modify it.
func (r *Registry) Get(id string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.DeepCopy(), nil
}

// List retrieves all entities.
// The returned entities are deep copies; callers can safely modify them.
func (r *Registry) List() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, *e.DeepCopy())
	}
	return entities
}

// ListByKind retrieves all entities of a specific kind.
func (r *Registry) ListByKind(kind Kind) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entities []Entity
	for _, e := range r.entities {
		if e.Kind == kind {
			entities = append(entities, *e.DeepCopy())
		}
	}
	return entities
}

// ListByCategory retrieves all entities with a specific category.
func (r *Registry) ListByCategory(category Category) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entities []Entity
	for _, e := range r.entities {
		if e.Category == category {
			entities = append(entities, *e.DeepCopy())
		}
	}
	return entities
}

// ListByBridge retrieves all entities owned by a specific bridge.
func (r *Registry) ListByBridge(bridge string) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entities []Entity
	for _, e := range r.entities {
		if e.Bridge == bridge {
			entities = append(entities, *e.DeepCopy())
		}
	}
	return entities
}

// SetState updates the state of an entity.
//
// This is the hot path for bridge updates: the cached snapshot is
// replaced atomically, the canonical state is published retained on the
// bus, and a history row is recorded. Publish and history failures are
// logged, not returned; the in-memory state is already authoritative.
func (r *Registry) SetState(ctx context.Context, id string, state State) error {
	r.mu.Lock()
	cached, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := cached.DeepCopy()
	updated.State = deepCopyMap(state)
	now := time.Now().UTC()
	updated.StateUpdatedAt = &now
	r.entities[id] = updated
	r.mu.Unlock()

	r.publishState(id, state)
	r.recordHistory(ctx, id, state)

	r.logger.Debug("entity state updated", "id", id)
	return nil
}

// SetAvailable updates the availability of an entity and publishes it.
func (r *Registry) SetAvailable(id string, available bool) error {
	r.mu.Lock()
	cached, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := cached.DeepCopy()
	updated.Available = available
	r.entities[id] = updated
	r.mu.Unlock()

	if r.publisher != nil {
		payload := "online"
		if !available {
			payload = "offline"
		}
		topic := mqtt.Topics{}.EntityAvailability(id)
		if err := r.publisher.PublishRetained(topic, []byte(payload)); err != nil {
			r.logger.Warn("availability publish failed", "id", id, "error", err)
		}
	}

	r.logger.Debug("entity availability updated", "id", id, "available", available)
	return nil
}

// Count returns the number of registered entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// publishState publishes the canonical entity state retained on the bus.
func (r *Registry) publishState(id string, state State) {
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(state)
	if err != nil {
		r.logger.Error("state marshal failed", "id", id, "error", err)
		return
	}

	topic := mqtt.Topics{}.EntityState(id)
	if err := r.publisher.PublishRetained(topic, payload); err != nil {
		r.logger.Warn("state publish failed", "id", id, "error", err)
	}
}

// recordHistory appends the state snapshot to the history store.
func (r *Registry) recordHistory(ctx context.Context, id string, state State) {
	if r.history == nil {
		return
	}

	if err := r.history.RecordStateChange(ctx, id, state, StateHistorySourceBridge); err != nil {
		r.logger.Warn("state history record failed", "id", id, "error", err)
	}
}
