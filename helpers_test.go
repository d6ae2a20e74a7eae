// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bassosimone/slogstub"
)

// newCapturingLogger returns a logger that captures all log records into
// the returned slice. The caller can inspect the slice after exercising
// the code under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

// fixedClock is a [Clock] that always reports the same instant.
type fixedClock struct {
	t time.Time
}

var _ Clock = fixedClock{}

func (c fixedClock) Now() time.Time { return c.t }

// fakeSleeper is a [Sleeper] that never actually sleeps, instead
// recording every requested duration so tests can assert on the
// backoff schedule without real wall-clock delay.
type fakeSleeper struct {
	mu        sync.Mutex
	durations []time.Duration
	err       error // returned by every call, if set
}

var _ Sleeper = &fakeSleeper{}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (s *fakeSleeper) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.durations))
	copy(out, s.durations)
	return out
}

// scriptedFetcher returns one entry of results per call, repeating the
// last entry once exhausted. Each entry is either a snapshot slice or an
// error, never both.
type scriptedFetcher struct {
	mu      sync.Mutex
	results [][]AdapterSnapshot
	errs    []error
	calls   int
}

var _ Fetcher = &scriptedFetcher{}

func (f *scriptedFetcher) Fetch(ctx context.Context) ([]AdapterSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return f.results[i], nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeApiListener is an [ApiListener] whose stream is driven entirely by
// the test: send notifications on notifyCh and close it to end the
// stream.
type fakeApiListener struct {
	notifyCh chan ApiNotification
	closed   bool
	mu       sync.Mutex
}

var _ ApiListener = &fakeApiListener{}

func newFakeApiListener() *fakeApiListener {
	return &fakeApiListener{notifyCh: make(chan ApiNotification)}
}

func (l *fakeApiListener) Stream(ctx context.Context) <-chan ApiNotification {
	return l.notifyCh
}

func (l *fakeApiListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeApiListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// scriptedHttpClient returns one entry of results per call to Request,
// repeating the last entry once exhausted, and records every request it
// saw.
type scriptedHttpClient struct {
	mu       sync.Mutex
	requests []*HttpRequest
	statuses []int
	errs     []error
}

var _ HttpClient = &scriptedHttpClient{}

func (c *scriptedHttpClient) Request(ctx context.Context, req *HttpRequest) (*HttpResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	status := 200
	if i < len(c.statuses) {
		status = c.statuses[i]
	} else if len(c.statuses) > 0 {
		status = c.statuses[len(c.statuses)-1]
	}
	return &HttpResponse{Status: status}, nil
}

func (c *scriptedHttpClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
