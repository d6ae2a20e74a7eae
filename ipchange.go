// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"net/netip"
	"time"
)

// IpChangeKind distinguishes additions from removals.
type IpChangeKind int

const (
	// Added means the address appeared on the adapter.
	Added IpChangeKind = iota
	// Removed means the address disappeared from the adapter.
	Removed
)

// String returns "added" or "removed", matching the webhook body
// template's literal variable values.
func (k IpChangeKind) String() string {
	if k == Added {
		return "added"
	}
	return "removed"
}

// IpChange records a single address addition or removal observed on an
// adapter at a point in time.
//
// Invariant: Adapter must match a name observed in at least one of the
// snapshots the originating [Diff] call compared.
type IpChange struct {
	Adapter   string
	Address   netip.Addr
	Timestamp time.Time
	Kind      IpChangeKind
}

// filterByVersion drops changes whose address family is not included in
// v, preserving order.
func filterByVersion(changes []IpChange, v IpVersion) []IpChange {
	out := make([]IpChange, 0, len(changes))
	for _, c := range changes {
		if c.Address.Is4() && !v.IncludesV4() {
			continue
		}
		if !c.Address.Is4() && !v.IncludesV6() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterByVersion is the exported form of [filterByVersion], usable by
// callers that need to post-process a change list outside the monitor
// pipeline.
func FilterByVersion(changes []IpChange, v IpVersion) []IpChange {
	return filterByVersion(changes, v)
}
