// Package influxdb records EduGate Core auth metrics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched non-blocking writes and health monitoring.
//
// Measurements:
//   - auth_decisions: one point per pipeline evaluation, tagged by
//     operation, kind, outcome, code and role
//   - login_attempts: one point per login, tagged by outcome and reason
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics are optional
//	}
//	defer client.Close()
//
//	client.WriteLoginAttempt(false, "bad_password")
//
// Tags never carry usernames, so series cardinality stays bounded.
package influxdb
