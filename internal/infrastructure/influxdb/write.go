package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteClimateMetric writes a climate telemetry measurement.
//
// This is the primary method for recording thermostat readings on each
// coordinator refresh. The write is non-blocking; data is batched and
// sent asynchronously.
//
// Parameters:
//   - entityID: Unique identifier for the climate entity (e.g., "climate-living")
//   - currentTemp: Ambient temperature in Celsius
//   - targetTemp: Target temperature in Celsius
//   - humidity: Relative humidity percentage
//
// Example:
//
//	client.WriteClimateMetric("climate-living", 21.5, 19.0, 48.0)
func (c *Client) WriteClimateMetric(entityID string, currentTemp, targetTemp, humidity float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"climate",
		map[string]string{
			"entity_id": entityID,
		},
		map[string]interface{}{
			"current_temperature": currentTemp,
			"target_temperature":  targetTemp,
			"humidity":            humidity,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBatteryLevel writes a device battery level measurement.
//
// Parameters:
//   - entityID: Entity identifier
//   - percent: Battery level as a percentage (0-100)
func (c *Client) WriteBatteryLevel(entityID string, percent float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"battery",
		map[string]string{
			"entity_id": entityID,
		},
		map[string]interface{}{
			"percent": percent,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBinaryEvent writes a binary sensor state transition.
//
// Records on/off activity for door, window, and motion sensors so that
// dashboards can chart activity over time.
//
// Parameters:
//   - entityID: Entity identifier
//   - on: true for on, false for off
func (c *Client) WriteBinaryEvent(entityID string, on bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if on {
		value = 1
	}

	point := write.NewPoint(
		"binary_event",
		map[string]string{
			"entity_id": entityID,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
