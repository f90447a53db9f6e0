package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveJobTransitionIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(Metrics.jobTransitions.WithLabelValues("finished"))
	Metrics.ObserveJobTransition("finished")
	after := testutil.ToFloat64(Metrics.jobTransitions.WithLabelValues("finished"))
	assert.Equal(t, before+1, after)
}

func TestObserveEventTransitionIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(Metrics.eventTransitions.WithLabelValues("slew", "running"))
	Metrics.ObserveEventTransition("slew", "running")
	after := testutil.ToFloat64(Metrics.eventTransitions.WithLabelValues("slew", "running"))
	assert.Equal(t, before+1, after)
}

func TestSetConnectionUpTogglesGauge(t *testing.T) {
	Metrics.SetConnectionUp(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(Metrics.connectionUp))

	Metrics.SetConnectionUp(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(Metrics.connectionUp))
}

func TestSetDeadLetterDepthSetsGaugeValue(t *testing.T) {
	Metrics.SetDeadLetterDepth(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(Metrics.deadLetterDepth))
}

func TestObserveSweepDurationDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Metrics.ObserveSweepDuration(250 * time.Millisecond)
	})
}
