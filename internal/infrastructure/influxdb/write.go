package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementAuthDecisions = "auth_decisions"
	MeasurementLoginAttempts = "login_attempts"
)

// AuthDecision describes one pipeline evaluation.
type AuthDecision struct {
	Operation string
	Kind      string // query, mutation, unknown
	Outcome   string // allowed, denied
	Code      string // error code when denied
	Role      string // caller role, empty when anonymous
	Latency   time.Duration
}

// WriteAuthDecision records a pipeline decision. Non-blocking.
//
// Example:
//
//	client.WriteAuthDecision(influxdb.AuthDecision{
//	    Operation: "listAccounts", Kind: "query", Outcome: "denied", Code: "FORBIDDEN",
//	})
func (c *Client) WriteAuthDecision(d AuthDecision) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(authDecisionPoint(d, time.Now()))
}

// WriteLoginAttempt records a login outcome. Non-blocking.
// reason is the failure kind (not_found, inactive, bad_password, infrastructure) or empty.
func (c *Client) WriteLoginAttempt(success bool, reason string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(loginAttemptPoint(success, reason, time.Now()))
}

func authDecisionPoint(d AuthDecision, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(MeasurementAuthDecisions).
		AddField("count", 1).
		AddField("latency_us", d.Latency.Microseconds()).
		SetTime(ts)
	addTag(p, "operation", d.Operation)
	addTag(p, "kind", d.Kind)
	addTag(p, "outcome", d.Outcome)
	addTag(p, "code", d.Code)
	addTag(p, "role", d.Role)
	return p.SortTags()
}

func loginAttemptPoint(success bool, reason string, ts time.Time) *write.Point {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	p := write.NewPointWithMeasurement(MeasurementLoginAttempts).
		AddField("count", 1).
		SetTime(ts)
	addTag(p, "outcome", outcome)
	addTag(p, "reason", reason)
	return p.SortTags()
}

// addTag skips empty values, which line protocol cannot encode.
func addTag(p *write.Point, key, value string) {
	if value != "" {
		p.AddTag(key, value)
	}
}
