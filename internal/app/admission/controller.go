package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/scrypt-tech/scrypttunes/internal/app/invoker"
	"github.com/scrypt-tech/scrypttunes/internal/app/ratelimit"
	"github.com/scrypt-tech/scrypttunes/internal/domain/track"
)

// Error is a typed admission denial.
type Error struct {
	Code       Code
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("request rejected: %s", e.Code)
}

// AsError extracts an admission denial from an error chain.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Receipt confirms a successful admission.
type Receipt struct {
	ID        string
	Requester string
	Track     track.Track
	QueuedAt  time.Time
}

// Queue is the playback queue the controller enqueues into.
type Queue interface {
	QueueTrack(ctx context.Context, trackID string) error
}

// Controller runs the admission chain and enqueues admitted tracks.
type Controller struct {
	chain *Chain
	queue Queue
	inv   *invoker.Invoker
	state *ratelimit.State
	now   func() time.Time
}

// NewController creates a Controller. now may be nil.
func NewController(chain *Chain, queue Queue, inv *invoker.Invoker, state *ratelimit.State, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		chain: chain,
		queue: queue,
		inv:   inv,
		state: state,
		now:   now,
	}
}

// Admit checks the track against the filter chain and, if accepted,
// enqueues it and records the requester's cooldown entry. Cooldown state is
// only touched after the track is actually queued, so a failed enqueue
// leaves no partial state behind.
func (c *Controller) Admit(ctx context.Context, t track.Track, requester track.Requester) (*Receipt, error) {
	if result := c.chain.Execute(ctx, t, requester); !result.Accepted {
		return nil, &Error{Code: result.Code, RetryAfter: result.RetryAfter}
	}

	ref := t.SourceURI
	if ref == "" {
		ref = t.ID
	}
	err := c.inv.Do(ctx, "queue track", func(ctx context.Context) error {
		return c.queue.QueueTrack(ctx, ref)
	})
	if err != nil {
		return nil, err
	}

	queuedAt := c.now()
	c.state.Record(requester.Key(), t.ID, queuedAt)

	zlog.Info().
		Str("user", requester.Key()).
		Str("track", t.ID).
		Str("title", t.Title).
		Msg("track admitted to queue")

	return &Receipt{
		ID:        uuid.New().String(),
		Requester: requester.Key(),
		Track:     t,
		QueuedAt:  queuedAt,
	}, nil
}
