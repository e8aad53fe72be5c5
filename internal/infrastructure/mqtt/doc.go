// Package mqtt publishes EduGate Core security events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS validation and payload limits
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// Topics live under a configurable prefix (default "edugate"):
//
//	edugate/system/status          retained online/offline status
//	edugate/security/<event_type>  login and authorization events
//
// # Security Considerations
//
//   - Use TLS outside local development (cfg.Broker.TLS=true)
//   - Event payloads never carry passwords or tokens
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().SecurityEvent("login_failed")
//	client.PublishJSON(topic, event)
package mqtt
