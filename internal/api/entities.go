package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emberhaus/ember-core/internal/entity"
)

const (
	// maxQueryParamLen bounds user-supplied identifiers and filters.
	maxQueryParamLen = 256

	defaultHistoryLimit   = 50
	maxHistoryLimit       = 200
	serviceUnavailableKey = "service_unavailable"
)

// handleListEntities returns the entity inventory, optionally filtered
// by kind and category.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	category := r.URL.Query().Get("category")
	if len(kind) > maxQueryParamLen || len(category) > maxQueryParamLen {
		writeBadRequest(w, "filter exceeds maximum length")
		return
	}

	var entities []entity.Entity
	switch {
	case kind != "":
		entities = s.registry.ListByKind(entity.Kind(kind))
	case category != "":
		entities = s.registry.ListByCategory(entity.Category(category))
	default:
		entities = s.registry.List()
	}

	// Both filters given: narrow the kind listing by category.
	if kind != "" && category != "" {
		filtered := entities[:0]
		for _, e := range entities {
			if e.Category == entity.Category(category) {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

// handleGetEntity returns a single entity by ID.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "id")
	if entityID == "" || len(entityID) > maxQueryParamLen {
		writeBadRequest(w, "invalid entity ID")
		return
	}

	e, err := s.registry.Get(entityID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, "failed to get entity")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// handleGetEntityHistory returns state history entries for an entity.
func (s *Server) handleGetEntityHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID := chi.URLParam(r, "id")
	if entityID == "" || len(entityID) > maxQueryParamLen {
		writeBadRequest(w, "invalid entity ID")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}

	if _, err := s.registry.Get(entityID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			writeNotFound(w, "entity not found")
			return
		}
		writeInternalError(w, "failed to get entity")
		return
	}

	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, serviceUnavailableKey, "state history unavailable")
		return
	}

	entries, err := s.history.GetHistory(ctx, entityID, limit)
	if err != nil {
		writeInternalError(w, "failed to load entity history")
		return
	}

	if claims := claimsFromContext(ctx); claims != nil {
		s.logger.Debug("entity history requested", "entity", entityID, "subject", claims.Subject)
	}

	if !since.IsZero() {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.CreatedAt.After(since) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id": entityID,
		"history":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}

// parseSinceParam parses the since parameter as RFC3339/RFC3339Nano.
func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return parsed.UTC(), nil
	}

	parsed, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.UTC(), nil
}
