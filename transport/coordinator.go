package transport

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// Refresher mints a new access credential from the persisted refresh credential.
// Implementations own every side effect of the outcome: updating the credential
// store on success, clearing it and signalling session invalidation on failure.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Coordinator defines a public type used by authkit APIs.
//
// Coordinator serializes refresh attempts: the first caller starts the flight,
// every caller that arrives while it is pending waits for the shared outcome.
// All methods are safe for concurrent use.
type Coordinator struct {
	group     singleflight.Group
	refresher Refresher
	log       zerolog.Logger
	waiting   atomic.Int64
}

// NewCoordinator builds a Coordinator over refresher.
func NewCoordinator(refresher Refresher, log zerolog.Logger) *Coordinator {
	return &Coordinator{refresher: refresher, log: log}
}

// Await returns a fresh access credential, joining the in-flight refresh when one
// exists. Every waiter is settled exactly once: with the credential, with the
// shared refresh error, or with ctx's error if the caller gives up first — in
// which case the flight itself keeps running for the remaining waiters.
func (c *Coordinator) Await(ctx context.Context) (string, error) {
	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	ch := c.group.DoChan(refreshFlightKey, func() (interface{}, error) {
		flightID := uuid.NewString()
		c.log.Debug().Str("flight_id", flightID).Msg("refresh flight started")
		// The flight must survive cancellation of the request that happened to
		// start it; waiters from other requests share its outcome.
		token, err := c.refresher.Refresh(context.WithoutCancel(ctx))
		if err != nil {
			c.log.Warn().Str("flight_id", flightID).Err(err).Msg("refresh flight failed")
			return nil, err
		}
		c.log.Debug().Str("flight_id", flightID).Msg("refresh flight succeeded")
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Waiting reports how many callers are currently blocked on a refresh outcome.
func (c *Coordinator) Waiting() int64 {
	return c.waiting.Load()
}
