// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"net/netip"
	"sort"
	"time"
)

// DefaultDebounceWindow is the window used when no explicit debounce
// configuration is supplied (spec default).
const DefaultDebounceWindow = 2 * time.Second

// DebouncePolicy merges a stream of per-cycle change lists into lists
// emitted on fixed-length window boundaries, collapsing same-pair
// mentions within one window by net effect.
type DebouncePolicy struct {
	Window time.Duration
}

// NewDebouncePolicy returns a [*DebouncePolicy] with the given window.
func NewDebouncePolicy(window time.Duration) *DebouncePolicy {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &DebouncePolicy{Window: window}
}

// pairKey identifies an (adapter, address) pair for net-effect merging.
type pairKey struct {
	adapter string
	address netip.Addr
}

// MergeChanges applies the net-effect rule to a slice of changes,
// stamping every surviving change with ts. Usable standalone by callers
// outside the streaming pipeline; used internally by [DebouncePolicy].
//
//   - Added then Removed, or Removed then Added, for the same pair: no
//     output for that pair (cancel).
//   - Added only (any multiplicity): a single Added.
//   - Removed only (any multiplicity): a single Removed.
//   - Mixed with non-zero net: a single change matching the net sign.
//
// Merging twice is equivalent to merging once: the output already holds
// at most one entry per pair, so a second pass leaves it unchanged.
func MergeChanges(changes []IpChange, ts time.Time) []IpChange {
	net := make(map[pairKey]int)
	order := make([]pairKey, 0, len(changes))
	for _, c := range changes {
		k := pairKey{adapter: c.Adapter, address: c.Address}
		if _, seen := net[k]; !seen {
			order = append(order, k)
		}
		if c.Kind == Added {
			net[k]++
		} else {
			net[k]--
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].adapter != order[j].adapter {
			return order[i].adapter < order[j].adapter
		}
		return order[i].address.String() < order[j].address.String()
	})

	var removed, added []IpChange
	for _, k := range order {
		switch {
		case net[k] > 0:
			added = append(added, IpChange{Adapter: k.adapter, Address: k.address, Timestamp: ts, Kind: Added})
		case net[k] < 0:
			removed = append(removed, IpChange{Adapter: k.adapter, Address: k.address, Timestamp: ts, Kind: Removed})
		}
	}
	return append(removed, added...)
}

// Run consumes in (one slice per monitor cycle, possibly empty — an
// empty slice still opens the window) and emits merged,
// non-empty change lists on window boundaries. The window starts when
// the first event of a quiet period arrives and is fixed-length: later
// arrivals within the window do not extend it. Emitted timestamps use
// the window-close instant. Run returns when ctx is done, first closing
// any open window and emitting its (possibly empty, in which case
// dropped) merged result.
func (p *DebouncePolicy) Run(
	ctx context.Context, in <-chan []IpChange, clock Clock, sleeper Sleeper,
) <-chan []IpChange {
	out := make(chan []IpChange)
	go func() {
		defer close(out)
		var pending []IpChange
		var windowOpen bool
		var windowDone chan struct{}

		closeWindow := func() {
			if !windowOpen {
				return
			}
			windowOpen = false
			windowDone = nil
			merged := MergeChanges(pending, clock.Now())
			pending = nil
			if len(merged) > 0 {
				select {
				case out <- merged:
				case <-ctx.Done():
				}
			}
		}

		openWindow := func() {
			windowOpen = true
			done := make(chan struct{})
			windowDone = done
			go func() {
				defer close(done)
				sleeper.Sleep(ctx, p.Window)
			}()
		}

		for {
			select {
			case <-ctx.Done():
				closeWindow()
				return
			case <-windowDone:
				closeWindow()
			case changes, ok := <-in:
				if !ok {
					closeWindow()
					return
				}
				pending = append(pending, changes...)
				if !windowOpen {
					openWindow()
				}
			}
		}
	}()
	return out
}
