// Package events fans security events out of the auth pipeline.
//
// A Recorder implements auth.EventSink and forwards each event to up to
// three optional destinations:
//
//   - the SQLite audit trail, written asynchronously through a bounded queue
//   - MQTT security topics (denials, failed logins, infrastructure faults),
//     published from a second bounded queue
//   - InfluxDB measurements for decision and login metrics
//
// Recording never blocks the request: a full queue drops the entry and logs
// a warning, and InfluxDB writes are batched by the client.
//
//	rec := events.New(events.Deps{Audit: repo, Publisher: mqttClient, Metrics: influx, Logger: log})
//	defer rec.Close()
package events
