// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"net/netip"
	"sort"
	"time"
)

// Diff computes the ordered list of [IpChange] between two snapshot
// lists, stamping every change with ts.
//
// Diff is pure and safe to call from any goroutine: it does not read or
// write any shared state, only its arguments.
//
// Semantics (spec order, preserved exactly):
//  1. Index both snapshot lists by adapter name, merging addresses for
//     duplicate names within a single list first.
//  2. For adapters present in both: emit Added for addresses in new\old,
//     Removed for addresses in old\new.
//  3. For adapters present only in new: emit Added for every address.
//  4. For adapters present only in old: emit Removed for every address.
//
// Ordering: by adapter name (stable ascending), then Removed before
// Added per adapter, then by address textual form. This makes output
// fully deterministic so tests can assert exact slices.
func Diff(old, new []AdapterSnapshot, ts time.Time) []IpChange {
	oldIndex := mergeSnapshotsByName(old)
	newIndex := mergeSnapshotsByName(new)

	names := make(map[string]struct{}, len(oldIndex)+len(newIndex))
	for name := range oldIndex {
		names[name] = struct{}{}
	}
	for name := range newIndex {
		names[name] = struct{}{}
	}
	sortedNames := make([]string, 0, len(names))
	for name := range names {
		sortedNames = append(sortedNames, name)
	}
	sort.Strings(sortedNames)

	var out []IpChange
	for _, name := range sortedNames {
		oldSnap, hasOld := oldIndex[name]
		newSnap, hasNew := newIndex[name]

		var removedAddrs, addedAddrs []netip.Addr
		switch {
		case hasOld && hasNew:
			removedAddrs = setDifference(oldSnap.IPv4, newSnap.IPv4)
			removedAddrs = append(removedAddrs, setDifference(oldSnap.IPv6, newSnap.IPv6)...)
			addedAddrs = setDifference(newSnap.IPv4, oldSnap.IPv4)
			addedAddrs = append(addedAddrs, setDifference(newSnap.IPv6, oldSnap.IPv6)...)
		case hasNew:
			addedAddrs = append(sortedAddrs(newSnap.IPv4), sortedAddrs(newSnap.IPv6)...)
		case hasOld:
			removedAddrs = append(sortedAddrs(oldSnap.IPv4), sortedAddrs(oldSnap.IPv6)...)
		}

		sortAddrsTextual(removedAddrs)
		sortAddrsTextual(addedAddrs)

		for _, a := range removedAddrs {
			out = append(out, IpChange{Adapter: name, Address: a, Timestamp: ts, Kind: Removed})
		}
		for _, a := range addedAddrs {
			out = append(out, IpChange{Adapter: name, Address: a, Timestamp: ts, Kind: Added})
		}
	}
	return out
}

// setDifference returns the addresses in a that are not in b, unsorted.
func setDifference(a, b map[netip.Addr]struct{}) []netip.Addr {
	var out []netip.Addr
	for addr := range a {
		if _, ok := b[addr]; !ok {
			out = append(out, addr)
		}
	}
	return out
}

func sortAddrsTextual(addrs []netip.Addr) {
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})
}
