package events

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/edugate-core/internal/audit"
	"github.com/nerrad567/edugate-core/internal/auth"
	"github.com/nerrad567/edugate-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/edugate-core/internal/infrastructure/logging"
	"github.com/nerrad567/edugate-core/internal/infrastructure/mqtt"
)

// DefaultQueueSize is the capacity of the audit and publish queues when
// Deps.QueueSize is not positive. Entries beyond this are dropped to avoid
// back-pressure on requests.
const DefaultQueueSize = 256

// auditWriteTimeout bounds a single audit insert.
const auditWriteTimeout = 5 * time.Second

// Security event types published over MQTT.
const (
	TypeAccessDenied        = "access_denied"
	TypeLoginFailed         = "login_failed"
	TypeInfrastructureFault = "infrastructure_fault"
)

// AuditWriter persists audit entries. *audit.SQLiteRepository implements it.
type AuditWriter interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// Publisher sends JSON payloads to a topic. *mqtt.Client implements it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Metrics records decision and login counters. *influxdb.Client implements it.
type Metrics interface {
	WriteAuthDecision(d influxdb.AuthDecision)
	WriteLoginAttempt(success bool, reason string)
}

// Deps holds the Recorder's destinations. Every destination is optional.
type Deps struct {
	Audit     AuditWriter
	Publisher Publisher
	Topics    mqtt.Topics
	Metrics   Metrics
	Logger    *logging.Logger
	QueueSize int
}

// Recorder implements auth.EventSink.
//
// Thread Safety: all methods are safe for concurrent use.
type Recorder struct {
	audit     AuditWriter
	publisher Publisher
	topics    mqtt.Topics
	metrics   Metrics
	logger    *logging.Logger

	mu     sync.RWMutex // guards queue and outbox against send-after-close
	queue  chan *audit.AuditLog
	outbox chan outbound
	closed bool
	wg     sync.WaitGroup
}

// outbound is a security event waiting to be published.
type outbound struct {
	eventType string
	payload   securityEvent
}

var _ auth.EventSink = (*Recorder)(nil)

// New creates a Recorder and starts one goroutine per configured queue: the
// audit writer and the MQTT publisher. Call Close to flush both.
func New(deps Deps) *Recorder {
	r := &Recorder{
		audit:     deps.Audit,
		publisher: deps.Publisher,
		topics:    deps.Topics,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}

	size := deps.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	if r.audit != nil {
		r.queue = make(chan *audit.AuditLog, size)
		r.wg.Add(1)
		go r.drain()
	}
	if r.publisher != nil {
		r.outbox = make(chan outbound, size)
		r.wg.Add(1)
		go r.deliver()
	}
	return r
}

// LoginAttempted records a login outcome.
func (r *Recorder) LoginAttempted(ctx context.Context, e auth.LoginEvent) {
	entry := loginAuditEntry(e)
	r.Record(ctx, entry)

	if r.metrics != nil {
		r.metrics.WriteLoginAttempt(e.Success, e.Failure)
	}

	switch {
	case e.Success:
	case e.Failure == "infrastructure":
		r.publish(TypeInfrastructureFault, loginPayload(TypeInfrastructureFault, e))
	default:
		r.publish(TypeLoginFailed, loginPayload(TypeLoginFailed, e))
	}
}

// AccessDecided records a pipeline decision. Denials and allowed mutations
// go to the audit trail; every decision is counted.
func (r *Recorder) AccessDecided(ctx context.Context, e auth.DecisionEvent) {
	if !e.Allowed || e.Kind == auth.KindMutation {
		r.Record(ctx, decisionAuditEntry(e))
	}

	if r.metrics != nil {
		outcome := audit.OutcomeAllowed
		if !e.Allowed {
			outcome = audit.OutcomeDenied
		}
		r.metrics.WriteAuthDecision(influxdb.AuthDecision{
			Operation: e.Operation,
			Kind:      string(e.Kind),
			Outcome:   outcome,
			Code:      e.Code,
			Role:      string(e.Role),
			Latency:   e.Latency,
		})
	}

	if !e.Allowed {
		r.publish(TypeAccessDenied, decisionPayload(e))
	}
}

// Record enqueues an audit entry for asynchronous write (best-effort).
// If the queue is full or the recorder is closed the entry is dropped.
func (r *Recorder) Record(_ context.Context, entry *audit.AuditLog) {
	if r.queue == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"operation", entry.Operation,
		)
	}
}

// drain writes queued entries serially, which suits SQLite's single writer.
// It returns once the queue is closed and empty.
func (r *Recorder) drain() {
	defer r.wg.Done()
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := r.audit.Create(ctx, entry); err != nil {
			r.logger.Error("audit log write failed",
				"action", entry.Action,
				"operation", entry.Operation,
				"error", err,
			)
		}
		cancel()
	}
}

// deliver publishes queued security events. A slow broker stalls only this
// goroutine; once the outbox fills, new events are dropped.
func (r *Recorder) deliver() {
	defer r.wg.Done()
	for ev := range r.outbox {
		if err := r.publisher.PublishJSON(r.topics.SecurityEvent(ev.eventType), ev.payload); err != nil {
			r.logger.Debug("security event not published", "type", ev.eventType, "error", err)
		}
	}
}

// Close stops accepting events and waits for queued ones to be written and
// published. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		if r.queue != nil {
			close(r.queue)
		}
		if r.outbox != nil {
			close(r.outbox)
		}
	}
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

// publish enqueues a security event without waiting on the broker.
func (r *Recorder) publish(eventType string, payload securityEvent) {
	if r.outbox == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.outbox <- outbound{eventType: eventType, payload: payload}:
	default:
		r.logger.Warn("security event queue full, dropping event", "type", eventType)
	}
}
