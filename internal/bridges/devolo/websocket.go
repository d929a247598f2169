package devolo

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/emberhaus/ember-core/internal/dispatch"
)

// pushMessage is one gateway push frame.
//
// Element updates carry the element property UID and its new value.
// Out-of-band status updates carry kind "status" and the new status code.
type pushMessage struct {
	DeviceID string `json:"device_id"`
	Property string `json:"property"`
	Value    any    `json:"value"`
	Kind     string `json:"kind,omitempty"`
}

// statusProperty is the property marker on status dispatches.
const statusProperty = "Status"

// wsListener reads gateway push frames and feeds the dispatcher.
type wsListener struct {
	conn *websocket.Conn
	hc   *HomeControl

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// dialListener opens the websocket push channel on the gateway.
func dialListener(ctx context.Context, gatewayURL string, hc *HomeControl) (*wsListener, error) {
	wsURL, err := eventsURL(gatewayURL)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, errors.Join(ErrGatewayUnreachable, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return &wsListener{
		conn: conn,
		hc:   hc,
		done: make(chan struct{}),
	}, nil
}

// eventsURL converts the gateway base URL to the websocket events endpoint.
func eventsURL(gatewayURL string) (string, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return "", errors.Join(ErrGatewayUnreachable, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", ErrGatewayUnreachable
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/events"
	return u.String(), nil
}

// start launches the read loop.
func (l *wsListener) start() {
	l.wg.Add(1)
	go l.readLoop()
}

// readLoop decodes push frames until the connection closes.
func (l *wsListener) readLoop() {
	defer l.wg.Done()

	for {
		var msg pushMessage
		if err := l.conn.ReadJSON(&msg); err != nil {
			select {
			case <-l.done:
				// Expected: stop() closed the connection under us.
			default:
				l.hc.logger.Warn("push channel closed", "error", err)
			}
			return
		}

		l.handle(msg)
	}
}

// handle routes one push frame into the dispatcher.
//
// Status frames update the inventory first, so handlers that re-read
// device status observe the new value.
func (l *wsListener) handle(msg pushMessage) {
	if msg.DeviceID == "" {
		l.hc.logger.Debug("push frame without device id dropped")
		return
	}

	if msg.Kind == "status" {
		l.hc.SetDeviceStatus(msg.DeviceID, toStatusCode(msg.Value))
		l.hc.publisher.Dispatch(msg.DeviceID, dispatch.Message{
			Property: statusProperty,
			Value:    msg.Value,
			Kind:     "status",
		})
		return
	}

	l.hc.publisher.Dispatch(msg.DeviceID, dispatch.Message{
		Property: msg.Property,
		Value:    msg.Value,
	})
}

// toStatusCode normalises a status value from the wire.
// JSON numbers decode as float64; anything unrecognised reads as offline.
func toStatusCode(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case bool:
		if val {
			return StatusOnline
		}
		return StatusOffline
	default:
		return StatusOffline
	}
}

// stop closes the connection and waits for the read loop to exit.
func (l *wsListener) stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.done)
		err = l.conn.Close()
	})
	l.wg.Wait()
	return err
}
