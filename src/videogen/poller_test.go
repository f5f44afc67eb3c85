package videogen_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeclip/src/videogen"
)

type fetchResult struct {
	status videogen.Status
	msg    string
	err    error
}

// scriptedFetcher replays results in order and repeats the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   int
}

func (f *scriptedFetcher) GetVideoGenerationStatus(ctx context.Context, id string) (*videogen.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++

	r := f.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return &videogen.StatusResponse{ID: id, Status: r.status, ErrorMessage: r.msg}, nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func statuses(ss ...videogen.Status) []fetchResult {
	out := make([]fetchResult, len(ss))
	for i, s := range ss {
		out[i] = fetchResult{status: s}
	}
	return out
}

func TestPollCompletes(t *testing.T) {
	fetcher := &scriptedFetcher{results: statuses(videogen.StatusPending, videogen.StatusRunning, videogen.StatusCompleted)}
	sleeper := &sleepRecorder{}
	poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(sleeper.Sleep))

	var seen []videogen.Status
	got, err := poller.Poll(context.Background(), "job-1", videogen.PollOptions{
		Interval:    10 * time.Millisecond,
		MaxAttempts: 3,
		OnStatusUpdate: func(s videogen.StatusResponse) {
			seen = append(seen, s.Status)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, videogen.StatusCompleted, got.Status)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, sleeper.delays)
	assert.Equal(t, []videogen.Status{videogen.StatusPending, videogen.StatusRunning, videogen.StatusCompleted}, seen)
}

func TestPollFailedStopsImmediately(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{status: videogen.StatusPending},
		{status: videogen.StatusFailed, msg: "not enough images"},
		{status: videogen.StatusCompleted},
	}}
	sleeper := &sleepRecorder{}
	poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(sleeper.Sleep))

	updates := 0
	got, err := poller.Poll(context.Background(), "job-2", videogen.PollOptions{
		Interval:       10 * time.Millisecond,
		MaxAttempts:    5,
		OnStatusUpdate: func(videogen.StatusResponse) { updates++ },
	})

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, videogen.ErrGenerationFailed)

	var failed *videogen.GenerationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "not enough images", failed.Message)
	assert.Equal(t, "video generation failed: not enough images", err.Error())

	assert.Equal(t, 2, fetcher.Calls())
	assert.Equal(t, 2, updates)
	assert.Len(t, sleeper.delays, 1)
}

func TestPollFailedWithoutMessage(t *testing.T) {
	fetcher := &scriptedFetcher{results: statuses(videogen.StatusFailed)}
	poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc((&sleepRecorder{}).Sleep))

	_, err := poller.Poll(context.Background(), "job-3", videogen.PollOptions{MaxAttempts: 3})

	require.Error(t, err)
	assert.Equal(t, "video generation failed: unknown error", err.Error())
}

func TestPollTimeout(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		results     []fetchResult
	}{
		{
			name:        "always pending",
			maxAttempts: 4,
			results:     statuses(videogen.StatusPending),
		},
		{
			name:        "pending then running",
			maxAttempts: 3,
			results:     statuses(videogen.StatusPending, videogen.StatusRunning),
		},
		{
			name:        "unknown states are not terminal",
			maxAttempts: 2,
			results:     statuses("QUEUED"),
		},
		{
			name:        "single attempt",
			maxAttempts: 1,
			results:     statuses(videogen.StatusRunning),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &scriptedFetcher{results: tt.results}
			sleeper := &sleepRecorder{}
			poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(sleeper.Sleep))

			_, err := poller.Poll(context.Background(), "job", videogen.PollOptions{
				Interval:    time.Millisecond,
				MaxAttempts: tt.maxAttempts,
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, videogen.ErrPollingTimeout)
			assert.Equal(t, tt.maxAttempts, fetcher.Calls())
			// no sleep after the last attempt
			assert.Len(t, sleeper.delays, tt.maxAttempts-1)
		})
	}
}

func TestPollRetriesTransientError(t *testing.T) {
	boom := errors.New("connection reset")
	fetcher := &scriptedFetcher{results: []fetchResult{
		{status: videogen.StatusPending},
		{err: boom},
		{status: videogen.StatusCompleted},
	}}
	sleeper := &sleepRecorder{}
	poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(sleeper.Sleep))

	updates := 0
	got, err := poller.Poll(context.Background(), "job-4", videogen.PollOptions{
		Interval:       20 * time.Millisecond,
		MaxAttempts:    5,
		OnStatusUpdate: func(videogen.StatusResponse) { updates++ },
	})

	require.NoError(t, err)
	assert.Equal(t, videogen.StatusCompleted, got.Status)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Equal(t, 2, updates, "failed fetches are not reported")
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 20 * time.Millisecond}, sleeper.delays)
}

func TestPollErrorOnLastAttempt(t *testing.T) {
	boom := errors.New("bad gateway")
	fetcher := &scriptedFetcher{results: []fetchResult{
		{status: videogen.StatusPending},
		{status: videogen.StatusRunning},
		{err: boom},
	}}
	sleeper := &sleepRecorder{}
	poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(sleeper.Sleep))

	_, err := poller.Poll(context.Background(), "job-5", videogen.PollOptions{
		Interval:    time.Millisecond,
		MaxAttempts: 3,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, videogen.ErrPollingTimeout)

	var fetchErr *videogen.TransientFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempt)
	assert.Equal(t, "job-5", fetchErr.JobID)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Len(t, sleeper.delays, 2)
}

func TestPollDefaultsAndValidation(t *testing.T) {
	t.Run("empty job id", func(t *testing.T) {
		fetcher := &scriptedFetcher{results: statuses(videogen.StatusCompleted)}
		_, err := videogen.NewPoller(fetcher).Poll(context.Background(), "", videogen.PollOptions{})
		assert.ErrorIs(t, err, videogen.ErrEmptyJobID)
		assert.Zero(t, fetcher.Calls())
	})

	t.Run("negative options", func(t *testing.T) {
		fetcher := &scriptedFetcher{results: statuses(videogen.StatusCompleted)}
		poller := videogen.NewPoller(fetcher)

		_, err := poller.Poll(context.Background(), "job", videogen.PollOptions{Interval: -time.Second})
		assert.ErrorIs(t, err, videogen.ErrInvalidOptions)

		_, err = poller.Poll(context.Background(), "job", videogen.PollOptions{MaxAttempts: -1})
		assert.ErrorIs(t, err, videogen.ErrInvalidOptions)
		assert.Zero(t, fetcher.Calls())
	})

	t.Run("zero options use defaults", func(t *testing.T) {
		fetcher := &scriptedFetcher{results: statuses(videogen.StatusPending)}
		sleeper := &sleepRecorder{}
		poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(sleeper.Sleep))

		_, err := poller.Poll(context.Background(), "job", videogen.PollOptions{})
		assert.ErrorIs(t, err, videogen.ErrPollingTimeout)
		assert.Equal(t, videogen.DefaultMaxAttempts, fetcher.Calls())
		require.NotEmpty(t, sleeper.delays)
		assert.Equal(t, videogen.DefaultInterval, sleeper.delays[0])
	})
}

func TestPollCancelledDuringSleep(t *testing.T) {
	fetcher := &scriptedFetcher{results: statuses(videogen.StatusPending)}
	ctx, cancel := context.WithCancel(context.Background())

	sleeps := 0
	poller := videogen.NewPoller(fetcher, videogen.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
		sleeps++
		if sleeps == 2 {
			cancel()
		}
		return ctx.Err()
	}))

	_, err := poller.Poll(ctx, "job", videogen.PollOptions{MaxAttempts: 10})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, fetcher.Calls())
}

func TestPollRealSleepHonoursContext(t *testing.T) {
	fetcher := &scriptedFetcher{results: statuses(videogen.StatusRunning)}
	poller := videogen.NewPoller(fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := poller.Poll(ctx, "job", videogen.PollOptions{Interval: time.Hour, MaxAttempts: 2})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestPollConcurrentSessions(t *testing.T) {
	poller := videogen.NewPoller(
		videogen.StatusFetcherFunc(func(ctx context.Context, id string) (*videogen.StatusResponse, error) {
			return &videogen.StatusResponse{ID: id, Status: videogen.StatusCompleted}, nil
		}),
	)

	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d"}
	got := make([]string, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := poller.Poll(context.Background(), id, videogen.PollOptions{MaxAttempts: 1})
			if err == nil {
				got[i] = res.ID
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, ids, got)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		result     fetchResult
		wantStatus videogen.Status
		wantErr    error
	}{
		{
			name:       "pending is returned",
			result:     fetchResult{status: videogen.StatusPending},
			wantStatus: videogen.StatusPending,
		},
		{
			name:       "completed is returned",
			result:     fetchResult{status: videogen.StatusCompleted},
			wantStatus: videogen.StatusCompleted,
		},
		{
			name:    "failed is an error",
			result:  fetchResult{status: videogen.StatusFailed, msg: "render crashed"},
			wantErr: videogen.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &scriptedFetcher{results: []fetchResult{tt.result}}
			got, err := videogen.NewPoller(fetcher).Check(context.Background(), "job")

			assert.Equal(t, 1, fetcher.Calls())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}

	t.Run("fetch error", func(t *testing.T) {
		boom := errors.New("timeout")
		fetcher := &scriptedFetcher{results: []fetchResult{{err: boom}}}
		_, err := videogen.NewPoller(fetcher).Check(context.Background(), "job")

		var fetchErr *videogen.TransientFetchError
		assert.ErrorAs(t, err, &fetchErr)
		assert.ErrorIs(t, err, boom)
	})
}

func TestStatusResponseKeepsPayload(t *testing.T) {
	var s videogen.StatusResponse
	body := `{"id":"g1","status":"COMPLETED","videoUrl":"https://cdn/v.mp4","durationSec":15}`
	require.NoError(t, s.UnmarshalJSON([]byte(body)))

	assert.Equal(t, "g1", s.ID)
	assert.Equal(t, videogen.StatusCompleted, s.Status)
	assert.Equal(t, "https://cdn/v.mp4", s.VideoURL)
	assert.JSONEq(t, body, string(s.Payload))
	assert.True(t, s.Status.IsTerminal())
	assert.False(t, videogen.StatusRunning.IsTerminal())
}
