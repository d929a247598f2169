package entity

import "errors"

// Domain errors for the entity package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, entity.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when an entity ID does not exist.
	ErrNotFound = errors.New("entity: not found")

	// ErrExists is returned when registering an entity with an ID that already exists.
	ErrExists = errors.New("entity: already exists")

	// ErrInvalidID is returned when an entity ID is empty.
	ErrInvalidID = errors.New("entity: invalid id")

	// ErrInvalidName is returned when an entity name is empty.
	ErrInvalidName = errors.New("entity: invalid name")

	// ErrInvalidKind is returned when a kind value is not recognised.
	ErrInvalidKind = errors.New("entity: invalid kind")

	// ErrInvalidCategory is returned when a category value is not recognised.
	ErrInvalidCategory = errors.New("entity: invalid category")
)
