package somfy

import "errors"

// Domain errors for the Somfy bridge.
var (
	// ErrRequestFailed is returned when a vendor API request fails.
	ErrRequestFailed = errors.New("somfy: request failed")

	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = errors.New("somfy: unauthorized")

	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("somfy: device not found")

	// ErrUnsupportedPreset is returned internally for preset names outside
	// the mapping table. The climate adapter logs it and drops the request.
	ErrUnsupportedPreset = errors.New("somfy: unsupported preset")

	// ErrAmbiguousPresetMapping is returned when the preset mapping table
	// cannot be inverted unambiguously.
	ErrAmbiguousPresetMapping = errors.New("somfy: ambiguous preset mapping")
)
