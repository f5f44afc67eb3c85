package videogen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storeclip/src/log"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 100
)

// StatusFetcher reads the current status of a generation job.
type StatusFetcher interface {
	GetVideoGenerationStatus(ctx context.Context, id string) (*StatusResponse, error)
}

// StatusFetcherFunc adapts a plain function to StatusFetcher.
type StatusFetcherFunc func(ctx context.Context, id string) (*StatusResponse, error)

func (f StatusFetcherFunc) GetVideoGenerationStatus(ctx context.Context, id string) (*StatusResponse, error) {
	return f(ctx, id)
}

// PollOptions controls one polling session. Zero values take the defaults.
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int

	// OnStatusUpdate is called once per successfully fetched status,
	// terminal ones included, before the poller decides what to do next.
	OnStatusUpdate func(status StatusResponse)

	// onAttempt follows OnStatusUpdate with the 1-based attempt number,
	// failed fetches included in the count.
	onAttempt func(attempt int, status StatusResponse)
}

func (o PollOptions) withDefaults() (PollOptions, error) {
	if o.Interval < 0 {
		return o, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidOptions, o.Interval)
	}
	if o.MaxAttempts < 0 {
		return o, fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidOptions, o.MaxAttempts)
	}
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o, nil
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithSleepFunc replaces the delay used between attempts.
func WithSleepFunc(fn SleepFunc) PollerOption {
	return func(p *Poller) {
		p.sleep = fn
	}
}

// Poller waits for generation jobs to reach a terminal state. It keeps no
// per-session state, so one Poller may serve any number of concurrent
// sessions.
type Poller struct {
	fetcher StatusFetcher
	sleep   SleepFunc
}

func NewPoller(fetcher StatusFetcher, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher: fetcher,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll fetches the status of jobID until it is COMPLETED, FAILED, or the
// attempt budget runs out.
//
// A FAILED status returns a *GenerationFailedError straight away. A fetch
// error is retried after the interval unless it happens on the last
// attempt, in which case it is returned as a *TransientFetchError.
// Exhausting the budget on non-terminal states returns ErrPollingTimeout.
// Cancelling ctx stops the loop at the next fetch or sleep.
func (p *Poller) Poll(ctx context.Context, jobID string, opts PollOptions) (*StatusResponse, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	logger := log.WithValues("job_id", jobID)

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		last := attempt == opts.MaxAttempts-1

		status, err := p.fetch(ctx, jobID, attempt)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if last {
				return nil, err
			}
			logger.Error(err, "status poll attempt failed", "attempt", attempt+1)
			if err := p.sleep(ctx, opts.Interval); err != nil {
				return nil, err
			}
			continue
		}

		if opts.OnStatusUpdate != nil {
			opts.OnStatusUpdate(*status)
		}
		if opts.onAttempt != nil {
			opts.onAttempt(attempt+1, *status)
		}

		switch status.Status {
		case StatusCompleted:
			logger.V(1).Info("video generation completed", "attempts", attempt+1)
			return status, nil
		case StatusFailed:
			return nil, &GenerationFailedError{
				JobID:   jobID,
				Message: status.ErrorMessage,
				Status:  status,
			}
		}

		if !last {
			if err := p.sleep(ctx, opts.Interval); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: job %s still not finished after %d attempts", ErrPollingTimeout, jobID, opts.MaxAttempts)
}

// Check fetches the status of jobID exactly once. FAILED still maps to a
// *GenerationFailedError, but unlike Poll with MaxAttempts 1 a non-terminal
// snapshot is returned as-is rather than as ErrPollingTimeout.
func (p *Poller) Check(ctx context.Context, jobID string) (*StatusResponse, error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}
	status, err := p.fetch(ctx, jobID, 0)
	if err != nil {
		return nil, err
	}
	if status.Status == StatusFailed {
		return nil, &GenerationFailedError{
			JobID:   jobID,
			Message: status.ErrorMessage,
			Status:  status,
		}
	}
	return status, nil
}

func (p *Poller) fetch(ctx context.Context, jobID string, attempt int) (*StatusResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status, err := p.fetcher.GetVideoGenerationStatus(ctx, jobID)
	if err == nil && status == nil {
		err = errors.New("empty status response")
	}
	if err != nil {
		return nil, &TransientFetchError{JobID: jobID, Attempt: attempt + 1, Err: err}
	}
	return status, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
