// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// HybridMonitor fuses API-driven change notifications with a polling
// fallback.
//
// Two trigger sources run concurrently: API notifications and a
// periodic tick of PollInterval. Any trigger causes a fetch + diff
// against the last snapshot — even a trigger with no resulting diff
// opens the debounce window, absorbing the lag between an OS
// notification and the address table actually updating.
//
// On the first error from the API stream (or its natural end), the
// monitor transitions one-way to polling-only: it never again awaits
// the API stream, and [HybridMonitor.IsPollingOnly] starts returning
// true. No reconnection is attempted.
type HybridMonitor struct {
	Fetcher      Fetcher
	Listener     ApiListener
	Clock        Clock
	Sleeper      Sleeper
	PollInterval time.Duration
	Debounce     *DebouncePolicy // optional; nil emits every non-empty diff directly
	Version      IpVersion
	Logger       SLogger

	pollingOnly atomic.Bool
}

// NewHybridMonitor returns a [*HybridMonitor] with sensible defaults.
func NewHybridMonitor(fetcher Fetcher, listener ApiListener, pollInterval time.Duration) *HybridMonitor {
	return &HybridMonitor{
		Fetcher:      fetcher,
		Listener:     listener,
		Clock:        SystemClock{},
		Sleeper:      SystemSleeper{},
		PollInterval: pollInterval,
		Version:      IpVersionBoth,
		Logger:       DefaultSLogger(),
	}
}

// IsPollingOnly reports whether the monitor has degraded to
// polling-only after an API stream failure or natural end.
func (m *HybridMonitor) IsPollingOnly() bool {
	return m.pollingOnly.Load()
}

// Run starts the monitor. The returned channel preserves diff-engine
// ordering within one cycle and never carries two overlapping debounce
// windows: a new window opens only after the previous one emits. On ctx
// done, in-flight work completes, any open window is drained (emitting
// a partial merged list if non-empty), the listener is released, and
// the channel closes.
func (m *HybridMonitor) Run(ctx context.Context) <-chan []IpChange {
	out := make(chan []IpChange)

	go func() {
		defer close(out)

		baseline, err := m.Fetcher.Fetch(ctx)
		if err != nil {
			m.logFetchError(err)
		}

		var debounceIn chan []IpChange
		var g errgroup.Group
		if m.Debounce != nil {
			debounceIn = make(chan []IpChange)
			debounceOut := m.Debounce.Run(ctx, debounceIn, m.Clock, m.Sleeper)
			g.Go(func() error {
				for merged := range debounceOut {
					select {
					case out <- merged:
					case <-ctx.Done():
					}
				}
				return nil
			})
		}

		fetchDiff := newFetchDiffPipeline(m.Fetcher, m.Clock, &baseline)

		notifications := m.Listener.Stream(ctx)
		ticker := time.NewTicker(m.PollInterval)
		defer ticker.Stop()

	driveLoop:
		for {
			select {
			case <-ctx.Done():
				break driveLoop

			case notif, ok := <-notifications:
				if !ok || notif.Err != nil {
					m.degrade(notif)
					notifications = nil // select never fires on a nil channel again
					continue
				}
				if !m.onTrigger(ctx, fetchDiff, debounceIn, out) {
					break driveLoop
				}

			case <-ticker.C:
				if !m.onTrigger(ctx, fetchDiff, debounceIn, out) {
					break driveLoop
				}
			}
		}

		if debounceIn != nil {
			close(debounceIn)
		}
		g.Wait()
		m.Listener.Close()
	}()

	return out
}

// degrade transitions the monitor to polling-only and logs a warning
// with the full source chain (or the natural-end reason).
func (m *HybridMonitor) degrade(notif ApiNotification) {
	m.pollingOnly.Store(true)
	if notif.Err != nil {
		m.Logger.Warn("apiDegraded", slog.Any("err", notif.Err), slog.Bool("stopped", notif.Err.Stopped))
	} else {
		m.Logger.Warn("apiDegraded", slog.String("reason", "stream ended"))
	}
}

// onTrigger performs one fetch+diff cycle in response to any trigger
// and feeds the result to the debouncer, or emits it directly when no
// debouncer is configured. Returns false if ctx is done and the caller
// should stop driving triggers.
func (m *HybridMonitor) onTrigger(
	ctx context.Context, fetchDiff Func[Unit, []IpChange], debounceIn chan []IpChange, out chan<- []IpChange,
) bool {
	rawChanges, err := fetchDiff.Call(ctx, Unit{})
	if err != nil {
		m.logFetchError(err)
		return true
	}
	changes := filterByVersion(rawChanges, m.Version)

	if debounceIn != nil {
		select {
		case debounceIn <- changes:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if len(changes) == 0 {
		return true
	}
	select {
	case out <- changes:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *HybridMonitor) logFetchError(err error) {
	m.Logger.Info("fetchError", slog.Any("err", err))
}
