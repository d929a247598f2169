package somfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emberhaus/ember-core/internal/auth"
)

// Device categories reported by the vendor API.
const (
	CategoryHVAC           = "hvac"
	CategoryRollerShutter  = "roller_shutter"
	CategoryInteriorBlind  = "interior_blind"
	CategoryExteriorScreen = "exterior_screen"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// maxResponseBytes bounds vendor API responses (1MB).
	maxResponseBytes = 1 << 20
)

// Device is a vendor device as returned by the device inventory endpoint.
type Device struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Categories []string     `json:"categories"`
	States     []StateValue `json:"states"`
}

// StateValue is a single named state reported by a device.
type StateValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// HasCategory reports whether the device carries the given category.
func (d *Device) HasCategory(category string) bool {
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// StateFloat returns a numeric state value by name.
// Missing or non-numeric states return (0, false).
func (d *Device) StateFloat(name string) (float64, bool) {
	for _, s := range d.States {
		if s.Name != name {
			continue
		}
		switch v := s.Value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
		return 0, false
	}
	return 0, false
}

// StateString returns a string state value by name.
// Missing or non-string states return ("", false).
func (d *Device) StateString(name string) (string, bool) {
	for _, s := range d.States {
		if s.Name != name {
			continue
		}
		if v, ok := s.Value.(string); ok {
			return v, true
		}
		return "", false
	}
	return "", false
}

// Command is a vendor device command with named parameters.
type Command struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// Parameter is a single named command parameter.
type Parameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Client talks to the Somfy device REST API.
//
// Authentication uses an OAuth bearer access token. The token is itself
// a JWT; TokenExpiry exposes its exp claim so callers can schedule a
// refresh before the API starts rejecting requests.
//
// Thread Safety: the client is immutable after construction and safe
// for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Somfy API client.
//
// Parameters:
//   - baseURL: API base URL without trailing slash (e.g. "https://api.somfy.com/api/v1")
//   - accessToken: OAuth bearer token
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

// TokenExpiry returns the expiry time embedded in the access token.
func (c *Client) TokenExpiry() (time.Time, error) {
	return auth.TokenExpiry(c.accessToken)
}

// ListDevices retrieves the full device inventory.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - []Device: All devices on the account, with categories and states
//   - error: nil on success, otherwise a wrapped transport or decode error
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	body, err := c.get(ctx, "/device")
	if err != nil {
		return nil, err
	}

	var devices []Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("%w: decoding device list: %w", ErrRequestFailed, err)
	}
	return devices, nil
}

// ExecuteCommand sends a command to a device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Target device identifier
//   - cmd: Command name plus parameters
//
// Returns:
//   - error: nil on success, otherwise a wrapped transport error
func (c *Client) ExecuteCommand(ctx context.Context, deviceID string, cmd Command) error {
	if deviceID == "" {
		return ErrDeviceNotFound
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%w: encoding command: %w", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/device/"+deviceID+"/exec", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: command %q on %s: status %d", ErrRequestFailed, cmd.Name, deviceID, resp.StatusCode)
	}
	return nil
}

// get performs an authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDeviceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrRequestFailed, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
	}
	return body, nil
}
