// Package telemetry publishes job lifecycle and event-state transitions
// to an optional NATS subject as InfluxDB line-protocol messages, and
// exposes Prometheus counters/gauges for the same transitions. Neither
// surface is required for correctness: the scheduler and events packages
// never read telemetry state back, matching spec.md's non-goal of
// reconciling external observers into the control loop.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	influx "github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/nats-io/nats.go"

	"github.com/obsctl/obsctl/pkg/log"
)

// Publisher encodes job and event transitions as line-protocol points and
// publishes them on a fixed NATS subject. A Publisher with a nil conn is
// valid and every Publish call is then a no-op, matching nats.Connect's
// skip-if-unconfigured behavior.
type Publisher struct {
	conn    *nats.Conn
	subject string

	mu  sync.Mutex
	enc influx.Encoder
}

// Connect dials address and returns a Publisher bound to subject. An
// empty address disables telemetry entirely; Connect then returns a
// Publisher whose Publish calls are no-ops instead of an error, so
// callers never need to branch on whether telemetry is configured.
func Connect(address, subject string) (*Publisher, error) {
	if address == "" {
		log.Info("telemetry: no NATS address configured, publishing disabled")
		return &Publisher{subject: subject}, nil
	}

	nc, err := nats.Connect(address,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("telemetry: NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infof("telemetry: NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", address, err)
	}

	log.Infof("telemetry: NATS connected to %s", address)
	return &Publisher{conn: nc, subject: subject}, nil
}

// PublishJobTransition encodes a job's capture_status change as a single
// line-protocol point tagged by job id and verb.
func (p *Publisher) PublishJobTransition(jobID, cmd, status string, priority int, at time.Time) {
	p.publish("job_transition", map[string]string{
		"job_id": jobID,
		"cmd":    cmd,
	}, map[string]interface{}{
		"status":   status,
		"priority": int64(priority),
	}, at)
}

// PublishEventTransition encodes an event's state change, tagged by job
// id and event kind (e.g. "slew", "capture", "series").
func (p *Publisher) PublishEventTransition(jobID, kind, status string, at time.Time) {
	p.publish("event_transition", map[string]string{
		"job_id": jobID,
		"kind":   kind,
	}, map[string]interface{}{
		"status": status,
	}, at)
}

func (p *Publisher) publish(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if p == nil || p.conn == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.enc.Reset()
	p.enc.SetPrecision(influx.Nanosecond)
	p.enc.StartLine(measurement)
	for k, v := range tags {
		p.enc.AddTag(k, v)
	}
	for k, v := range fields {
		val, ok := influx.NewValue(v)
		if !ok {
			log.Warnf("telemetry: unsupported field value type for %s.%s", measurement, k)
			continue
		}
		p.enc.AddField(k, val)
	}
	p.enc.EndLine(at)

	if err := p.enc.Err(); err != nil {
		log.Warnf("telemetry: encode %s: %v", measurement, err)
		return
	}

	if err := p.conn.Publish(p.subject, p.enc.Bytes()); err != nil {
		log.Warnf("telemetry: publish %s: %v", measurement, err)
	}
}

// Close flushes and closes the underlying NATS connection, if any.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
