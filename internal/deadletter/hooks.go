package deadletter

import (
	"context"
	"time"

	"github.com/obsctl/obsctl/pkg/log"
)

type ctxKey string

const beginKey ctxKey = "begin"

// hooks satisfies sqlhooks.Hooks, logging each query and its duration at
// debug level.
type hooks struct{}

func (h *hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("deadletter: query %s %q", query, args)
	return context.WithValue(ctx, beginKey, time.Now()), nil
}

func (h *hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(beginKey).(time.Time); ok {
		log.Debugf("deadletter: query took %s", time.Since(begin))
	}
	return ctx, nil
}
