package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithEmptyAddressDisablesPublishing(t *testing.T) {
	p, err := Connect("", "obsctl.telemetry")
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NotPanics(t, func() {
		p.PublishJobTransition("job-1", "STATIC 1 2", "finished", 3, time.Now())
		p.PublishEventTransition("job-1", "slew", "finished", time.Now())
		p.Close()
	})
}

func TestNilPublisherIsSafeToUse(t *testing.T) {
	var p *Publisher

	assert.NotPanics(t, func() {
		p.PublishJobTransition("job-1", "STATIC 1 2", "finished", 3, time.Now())
		p.PublishEventTransition("job-1", "slew", "finished", time.Now())
		p.Close()
	})
}

func TestConnectWithUnreachableAddressReturnsError(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "obsctl.telemetry")
	assert.Error(t, err)
}
