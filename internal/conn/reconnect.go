package conn

import (
	"context"
	"fmt"

	"github.com/obsctl/obsctl/pkg/log"
	"golang.org/x/time/rate"
)

// OpenRetrying dials host:port, retrying on failure until ctx is
// canceled. limiter paces the retry attempts so a daemon that is down
// for an extended period doesn't spin the caller in a tight loop; pass
// rate.NewLimiter(rate.Every(5*time.Second), 1) for the conventional
// one-attempt-per-five-seconds backoff.
func OpenRetrying(ctx context.Context, host string, port int, limiter *rate.Limiter) (*Connection, error) {
	for {
		c, err := Open(host, port)
		if err == nil {
			return c, nil
		}
		log.Warnf("conn: dial %s:%d failed, retrying: %v", host, port, err)

		if werr := limiter.Wait(ctx); werr != nil {
			return nil, fmt.Errorf("conn: giving up on %s:%d: %w", host, port, werr)
		}
	}
}
