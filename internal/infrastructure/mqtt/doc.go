// Package mqtt provides MQTT client connectivity for Ember Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Ember Core publishes canonical entity state onto MQTT so that wall
// panels, dashboards, and external automations can observe the home
// without touching the HTTP API:
//
//	Vendor bridges → Entity Registry → MQTT Broker → Subscribers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish canonical entity state (retained)
//	topic := mqtt.Topics{}.EntityState("climate-living")
//	client.PublishRetained(topic, []byte(`{"state":"heat"}`))
//
//	// Observe every entity in the home
//	err = client.Subscribe(mqtt.Topics{}.AllEntityStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
