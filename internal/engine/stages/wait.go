package stages

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Wait blocks the initialize point until every wait item of the Build is consumed.
// Items are awaited concurrently; a timed out item is a warning, not a failure.
func Wait(waiter Waiter) pipeline.Registration {
	return pipeline.Registration{
		Name:  "wait",
		Point: pipeline.PointInitialize,
		Tag:   Tag,
		Handler: pipeline.Async(func(ctx context.Context, p *pipeline.Payload) error {
			if len(p.Build.Wait) == 0 || waiter == nil {
				return nil
			}

			var g errgroup.Group
			for _, item := range p.Build.Wait {
				g.Go(func() error {
					return waitFor(ctx, waiter, p, item)
				})
			}
			return g.Wait()
		}),
	}
}

func waitFor(ctx context.Context, waiter Waiter, p *pipeline.Payload, item domain.WaitItem) error {
	res, err := waiter.Wait(ctx, item)
	if err != nil {
		return zerr.With(err, "target", item.Target)
	}

	var msg domain.Message
	switch {
	case res.Outcome == domain.WaitTimedOut:
		msg = domain.NewMessage(domain.CodeWaitTimeout,
			fmt.Sprintf("gave up waiting for %s after %s", item.Target, res.Elapsed.Round(time.Millisecond)))
	case res.AlreadyDone:
		msg = domain.NewMessage(domain.CodeWaitAlreadyDone, item.Target+" had already completed")
	default:
		msg = domain.NewMessage(domain.CodeWaitResolved,
			fmt.Sprintf("waited %s for %s (%s)", res.Elapsed.Round(time.Millisecond), item.Target, item.Mode))
	}
	return p.Report(msg)
}
