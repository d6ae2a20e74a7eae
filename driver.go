// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// errRunComplete is the cause [Run] records on its own shutdown signal
// when it returns without the caller's context ever being cancelled
// (e.g. a test harness stopping the monitor through some other means).
// It never overrides an externally-triggered cause, since a context
// keeps the cause of whichever cancellation reached it first.
var errRunComplete = errors.New("run: completed")

// snapshotCapturingFetcher wraps a [Fetcher], remembering the most
// recent successful result so the driver loop can persist "the
// snapshot as of the last delivered batch" without an extra fetch.
type snapshotCapturingFetcher struct {
	Fetcher Fetcher

	mu     sync.Mutex
	latest []AdapterSnapshot
}

var _ Fetcher = &snapshotCapturingFetcher{}

func (f *snapshotCapturingFetcher) Fetch(ctx context.Context) ([]AdapterSnapshot, error) {
	snaps, err := f.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.latest = snaps
	f.mu.Unlock()
	return snaps, nil
}

func (f *snapshotCapturingFetcher) Latest() []AdapterSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

// Dependencies are the external collaborators the driver loop wires
// together. Fetcher is required; Listener is optional (its absence
// forces polling-only operation regardless of cfg.PollOnly).
type Dependencies struct {
	Fetcher  Fetcher
	Listener ApiListener // optional
	Client   HttpClient
	Clock    Clock
	Sleeper  Sleeper
	Logger   SLogger
}

// noopWebhookSender implements [WebhookSender] for --dry-run: the full
// pipeline runs, but no request ever leaves the process.
type noopWebhookSender struct {
	Logger SLogger
}

var _ WebhookSender = noopWebhookSender{}

func (s noopWebhookSender) Send(ctx context.Context, changes []IpChange) error {
	for _, c := range changes {
		s.Logger.Info("dryRunChange",
			slog.String("adapter", c.Adapter),
			slog.String("address", c.Address.String()),
			slog.String("kind", c.Kind.String()),
		)
	}
	return nil
}

// Run is the composition root: it wires the fetcher (behind the
// validated filter chain), the hybrid-or-polling-only monitor, the
// webhook sender (or a dry-run no-op), and the state file together, and
// drives the pipeline until ctx is done. It returns the first webhook
// delivery error only in the sense that such errors are logged and
// iteration continues — Run itself returns nil on a clean shutdown and
// non-nil only if the state file can't be read at startup.
//
// Internally, a [ShutdownSignal] derived from ctx is what every stage
// actually selects on, so the recorded cause (external cancellation, or
// errRunComplete if Run returns on its own) is available for the final
// log line, and [OnDone] guarantees a Listener left unused by a
// poll_only-forced run still gets released.
func Run(ctx context.Context, cfg *ValidatedConfig, deps Dependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = DefaultSLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	shutdown := NewShutdownSignal(ctx)
	defer func() {
		shutdown.Trigger(errRunComplete)
		logger.Info("monitorStopped", slog.Any("cause", context.Cause(shutdown.Context())))
	}()

	// The polling-only monitor never touches deps.Listener, so without
	// this its registration would leak whenever the caller forces
	// poll_only with a Listener still configured.
	if deps.Listener != nil && cfg.PollOnly {
		stop := OnDone(shutdown.Context(), func() {
			if err := deps.Listener.Close(); err != nil {
				logger.Info("listenerCloseFailed", slog.Any("err", err))
			}
		})
		defer stop()
	}

	ctx = shutdown.Context()

	filtered := NewFilteredFetcher(deps.Fetcher, cfg.Chain)
	fetcher := &snapshotCapturingFetcher{Fetcher: filtered}

	var baselineOverride []AdapterSnapshot
	if cfg.StateFilePath != "" {
		doc, err := LoadState(cfg.StateFilePath)
		if err != nil {
			return err
		}
		if doc != nil {
			baselineOverride = doc.Adapters
		}
	}

	changes := startMonitor(ctx, cfg, deps, fetcher, logger)

	var sender WebhookSender
	if cfg.DryRun {
		sender = noopWebhookSender{Logger: logger}
	} else {
		hook := NewHttpWebhook(deps.Client, cfg.URL)
		hook.Method = cfg.Method
		hook.Headers = cfg.Headers
		hook.BodyTemplate = cfg.BodyTemplate
		hook.Retry = cfg.Retry
		hook.Logger = logger
		if deps.Sleeper != nil {
			hook.Sleeper = deps.Sleeper
		}
		sender = hook
	}

	logger.Info("monitorStarted", slog.Bool("pollOnly", cfg.PollOnly || deps.Listener == nil), slog.Bool("dryRun", cfg.DryRun))

	// A loaded state file's diff-on-startup is delivered as the first
	// batch, ahead of anything the live monitor produces.
	if baselineOverride != nil {
		initial, err := fetcher.Fetch(ctx)
		if err == nil {
			startupChanges := filterByVersion(Diff(baselineOverride, initial, clock.Now()), cfg.Version)
			if len(startupChanges) > 0 {
				deliverAndPersist(ctx, cfg, sender, logger, startupChanges, initial)
			}
		}
	}

	for batch := range changes {
		if len(batch) == 0 {
			continue
		}
		logger.Info("changesObserved", slog.Int("count", len(batch)))
		deliverAndPersist(ctx, cfg, sender, logger, batch, fetcher.Latest())
	}

	return nil
}

// startMonitor picks between the hybrid monitor (when an API listener is
// supplied and the caller hasn't forced polling-only) and the plain
// polling monitor, per spec.md §6's poll_only flag.
func startMonitor(
	ctx context.Context, cfg *ValidatedConfig, deps Dependencies, fetcher Fetcher, logger SLogger,
) <-chan []IpChange {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	sleeper := deps.Sleeper
	if sleeper == nil {
		sleeper = SystemSleeper{}
	}

	var debounce *DebouncePolicy
	if cfg.DebounceWindow > 0 {
		debounce = NewDebouncePolicy(cfg.DebounceWindow)
	}

	if deps.Listener != nil && !cfg.PollOnly {
		m := NewHybridMonitor(fetcher, deps.Listener, cfg.PollInterval)
		m.Clock = clock
		m.Sleeper = sleeper
		m.Debounce = debounce
		m.Version = cfg.Version
		m.Logger = logger
		return m.Run(ctx)
	}

	m := NewPollingMonitor(fetcher, cfg.PollInterval)
	m.Clock = clock
	m.Sleeper = sleeper
	m.Debounce = debounce
	m.Version = cfg.Version
	m.Logger = logger
	return m.Run(ctx)
}

// deliverAndPersist sends batch through sender, logging the outcome, and
// — on success, when a state file is configured — saves snapshot (or, if
// nil, skips the save: the caller didn't have a fresh snapshot handy).
func deliverAndPersist(
	ctx context.Context, cfg *ValidatedConfig, sender WebhookSender, logger SLogger,
	batch []IpChange, snapshot []AdapterSnapshot,
) {
	if err := sender.Send(ctx, batch); err != nil {
		logger.Info("webhookDeliveryFailed", slog.Any("err", err))
		return
	}
	if cfg.StateFilePath == "" || snapshot == nil {
		return
	}
	if err := EnsureStateDir(cfg.StateFilePath); err != nil {
		logger.Info("stateSaveFailed", slog.Any("err", err))
		return
	}
	if err := SaveState(cfg.StateFilePath, snapshot, nowUnix()); err != nil {
		logger.Info("stateSaveFailed", slog.Any("err", err))
	}
}

func nowUnix() int64 {
	return time.Now().Unix()
}
