package devolo

import "errors"

// Domain errors for the devolo bridge.
var (
	// ErrGatewayUnreachable is returned when the gateway inventory or
	// websocket endpoint cannot be reached.
	ErrGatewayUnreachable = errors.New("devolo: gateway unreachable")
)
