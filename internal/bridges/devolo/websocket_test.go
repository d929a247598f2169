package devolo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emberhaus/ember-core/internal/entity"
)

// mockGateway serves the inventory endpoint and a websocket push channel.
type mockGateway struct {
	server *httptest.Server
	frames chan pushMessage
}

func newMockGateway(t *testing.T, devices []Device) *mockGateway {
	t.Helper()

	g := &mockGateway{frames: make(chan pushMessage, 16)}
	upgrader := websocket.Upgrader{}

	mux := http.NewServeMux()
	mux.HandleFunc("/devices", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(devices)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for frame := range g.frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	})

	g.server = httptest.NewServer(mux)
	t.Cleanup(func() {
		close(g.frames)
		g.server.Close()
	})
	return g
}

// waitForState polls the registry until the entity reaches the state.
func waitForState(t *testing.T, registry *entity.Registry, entityID, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e, err := registry.Get(entityID)
		if err == nil {
			if state, _ := e.State["state"].(string); state == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("entity %s never reached state %q", entityID, want)
}

func TestEventsURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "http to ws",
			in:   "http://gateway.local:14791",
			want: "ws://gateway.local:14791/events",
		},
		{
			name: "https to wss",
			in:   "https://gateway.local",
			want: "wss://gateway.local/events",
		},
		{
			name: "trailing slash trimmed",
			in:   "http://gateway.local/",
			want: "ws://gateway.local/events",
		},
		{
			name:    "unsupported scheme",
			in:      "ftp://gateway.local",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eventsURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("eventsURL() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("eventsURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("eventsURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "float online", in: float64(0), want: StatusOnline},
		{name: "float offline", in: float64(1), want: StatusOffline},
		{name: "bool true", in: true, want: StatusOnline},
		{name: "bool false", in: false, want: StatusOffline},
		{name: "garbage reads offline", in: "x", want: StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toStatusCode(tt.in); got != tt.want {
				t.Errorf("toStatusCode(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestConnectAndPush(t *testing.T) {
	gateway := newMockGateway(t, []Device{binarySensorDevice()})

	registry := entity.NewRegistry(nil, nil)
	hc, err := Connect(context.Background(), gateway.server.URL, "1469419635", nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	bridge, err := bindEntities(hc, registry, nil)
	if err != nil {
		t.Fatalf("bindEntities() error = %v", err)
	}
	t.Cleanup(bridge.Teardown)

	doorID := BinarySensorEntityID(doorElementUID)

	// Sensor fires over the websocket.
	gateway.frames <- pushMessage{
		DeviceID: "hdm:ZWave:1469419635",
		Property: doorElementUID,
		Value:    true,
	}
	waitForState(t, registry, doorID, entity.BinaryStateOn)

	// Device drops off the mesh.
	gateway.frames <- pushMessage{
		DeviceID: "hdm:ZWave:1469419635",
		Kind:     "status",
		Value:    float64(StatusOffline),
	}
	waitForState(t, registry, doorID, entity.BinaryStateUnavailable)

	device, ok := hc.Device("hdm:ZWave:1469419635")
	if !ok {
		t.Fatal("device missing from inventory")
	}
	if device.Online() {
		t.Error("inventory status still online after offline frame")
	}
}

func TestConnect_GatewayUnreachable(t *testing.T) {
	_, err := Connect(context.Background(), "http://127.0.0.1:59999", "gw", nil)
	if err == nil {
		t.Fatal("Connect() to dead gateway should error")
	}
}
