package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "edugate"

// Topics builds EduGate MQTT topic names under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "edugate"}
//	topics.SecurityEvent("login_failed")
//	// Returns: "edugate/security/login_failed"
type Topics struct {
	Prefix string
}

func (t Topics) base() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// SystemStatus is the retained online/offline status topic (also the LWT topic).
//
// Example: edugate/system/status
func (t Topics) SystemStatus() string {
	return t.base() + "/system/status"
}

// SecurityEvent is the topic for one class of security event.
//
// Example: edugate/security/access_denied
func (t Topics) SecurityEvent(eventType string) string {
	return t.base() + "/security/" + eventType
}

// AllSecurityEvents matches every security event topic.
//
// Pattern: edugate/security/+
func (t Topics) AllSecurityEvents() string {
	return t.base() + "/security/+"
}
