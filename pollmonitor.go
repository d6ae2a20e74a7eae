// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// PollingMonitor drives a fetch -> diff -> (debounce) pipeline on a
// fixed interval.
//
// Suspension points: the interval sleep, the fetcher call, and the
// debounce window timer (all via [Sleeper]/[Fetcher]).
type PollingMonitor struct {
	Fetcher  Fetcher
	Clock    Clock
	Sleeper  Sleeper
	Interval time.Duration
	Debounce *DebouncePolicy // optional; nil means emit every non-empty diff directly
	Version  IpVersion       // defaults to IpVersionBoth via [NewPollingMonitor]
	Logger   SLogger
}

// NewPollingMonitor returns a [*PollingMonitor] with sensible defaults
// (both IP versions, discarding logger, production clock/sleeper).
func NewPollingMonitor(fetcher Fetcher, interval time.Duration) *PollingMonitor {
	return &PollingMonitor{
		Fetcher:  fetcher,
		Clock:    SystemClock{},
		Sleeper:  SystemSleeper{},
		Interval: interval,
		Version:  IpVersionBoth,
		Logger:   DefaultSLogger(),
	}
}

// Run starts the monitor and returns a channel of merged change lists.
// The channel closes once ctx is done and any open debounce window has
// been drained.
//
// Algorithm:
//  1. Initial fetch establishes the baseline snapshot; on error, nothing
//     is emitted and the fetch is retried after Interval.
//  2. On every subsequent tick: fetch, diff against the last successful
//     snapshot, filter by Version, feed the debouncer (or emit directly
//     when Debounce is nil), then update the baseline.
//  3. Fetch errors are logged and never advance the baseline; the next
//     tick retries.
func (m *PollingMonitor) Run(ctx context.Context) <-chan []IpChange {
	out := make(chan []IpChange)

	go func() {
		baseline, ok := m.establishBaseline(ctx)
		if !ok {
			close(out)
			return
		}

		fetchDiff := newFetchDiffPipeline(m.Fetcher, m.Clock, &baseline)

		var g errgroup.Group
		var debounceIn chan []IpChange
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

	pollLoop:
		for {
			if err := m.Sleeper.Sleep(ctx, m.Interval); err != nil {
				break pollLoop
			}
			rawChanges, err := fetchDiff.Call(ctx, Unit{})
			if err != nil {
				m.logFetchError(err)
				continue pollLoop
			}
			changes := filterByVersion(rawChanges, m.Version)

			if debounceIn != nil {
				select {
				case debounceIn <- changes:
				case <-ctx.Done():
					break pollLoop
				}
			} else if len(changes) > 0 {
				select {
				case out <- changes:
				case <-ctx.Done():
					break pollLoop
				}
			}

			select {
			case <-ctx.Done():
				break pollLoop
			default:
			}
		}

		if debounceIn != nil {
			close(debounceIn)
		}
		g.Wait()
		close(out)
	}()

	return out
}

func (m *PollingMonitor) establishBaseline(ctx context.Context) ([]AdapterSnapshot, bool) {
	for {
		snaps, err := m.Fetcher.Fetch(ctx)
		if err == nil {
			return snaps, true
		}
		m.logFetchError(err)
		if sleepErr := m.Sleeper.Sleep(ctx, m.Interval); sleepErr != nil {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}
	}
}

func (m *PollingMonitor) logFetchError(err error) {
	m.Logger.Info("fetchError", slog.Any("err", err))
}
