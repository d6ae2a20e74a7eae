// SPDX-License-Identifier: GPL-3.0-or-later

// Package ipwatch provides the monitoring core for a long-running agent
// that watches a host's network interfaces for IP-address changes and
// delivers structured notifications to an external webhook.
//
// # Core Abstraction
//
// The package is built around a small set of contracts that the concrete
// platform layer (adapter enumeration, OS change notification) and the
// concrete transport layer (HTTP client) must satisfy:
//
//   - [Fetcher] enumerates the host's network adapters.
//   - [ApiListener] is a single-use stream of "something changed" events
//     driven by OS-native notification APIs.
//   - [Clock] and [Sleeper] abstract time for deterministic testing.
//   - [HttpClient] abstracts request/response transport.
//
// Everything else — diffing, filtering, debouncing, retrying, dispatching —
// is pure or depends only on these contracts, so it can be exercised with
// fakes in tests and swapped for real OS/network implementations in
// production.
//
// # Pipeline
//
//	Fetcher -> (FilterChain) -> Monitor -> []IpChange -> WebhookSender -> HttpClient
//
// [ApiListener] feeds [HybridMonitor] as a second, parallel trigger
// alongside its polling ticker. A single [context.Context] cancellation
// fans out to every stage via [Func] composition and channel selects; no
// component holds mutable state another component can observe.
//
// # Composition utilities
//
// [Func] and [Compose2] provide a small, type-safe way to chain
// single-input/single-output operations (both monitors' fetch -> diff
// step is built this way; version filtering and debouncing follow it
// outside the composition). Monitors
// and fetchers are generic over their dependencies (compile-time
// monomorphised) because their count is fixed per configuration; the
// [FilterChain] is a runtime-sized list of boxed predicates because the
// number of include/exclude rules is not known at compile time.
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled; set a logger field to
// a [*slog.Logger] to enable it. Every state transition (monitor started,
// API degraded, each change, each webhook attempt and outcome) is logged
// as a single structured event.
//
// # Concurrency
//
// Components are single-threaded cooperative tasks: each owns its state
// exclusively and communicates via channels. No component mutates shared
// state. Contracts injected into a component (Fetcher, ApiListener, Clock,
// Sleeper, HttpClient) must be safe for concurrent use, since the runtime
// may invoke them from more than one goroutine over the component's
// lifetime, but within the core itself ownership is exclusive and
// concurrency is structured via the monitor's own run loop.
package ipwatch
