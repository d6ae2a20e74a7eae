// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"fmt"
	"net/netip"
	"sort"
)

// AdapterKind classifies a network adapter.
//
// [AdapterKindOther] preserves the OS-specific type code for diagnostics
// and for matching against a [KindFilter] that targets an unrecognized
// kind.
type AdapterKind struct {
	// name is the recognized kind, or "" when this value wraps an
	// OS-specific code via [AdapterKindOther].
	name string

	// other is the OS-specific type code. Only meaningful when name == "".
	other uint32
}

// Recognized adapter kinds.
var (
	AdapterKindEthernet = AdapterKind{name: "ethernet"}
	AdapterKindWireless = AdapterKind{name: "wireless"}
	AdapterKindLoopback = AdapterKind{name: "loopback"}
	AdapterKindVirtual  = AdapterKind{name: "virtual"}
)

// AdapterKindOther wraps an OS-specific adapter type code not covered by
// one of the recognized kinds.
func AdapterKindOther(code uint32) AdapterKind {
	return AdapterKind{other: code}
}

// String returns a diagnostic representation of the kind.
func (k AdapterKind) String() string {
	if k.name != "" {
		return k.name
	}
	return fmt.Sprintf("other(%d)", k.other)
}

// Equal reports whether two kinds are the same, including matching
// OS-specific codes for [AdapterKindOther] values.
func (k AdapterKind) Equal(other AdapterKind) bool {
	return k.name == other.name && (k.name != "" || k.other == other.other)
}

// IpVersion selects which address families a consumer is interested in.
type IpVersion struct {
	v4 bool
	v6 bool
}

// Recognized IP version selectors.
var (
	IpVersionV4   = IpVersion{v4: true}
	IpVersionV6   = IpVersion{v6: true}
	IpVersionBoth = IpVersion{v4: true, v6: true}
)

// IncludesV4 reports whether IPv4 addresses are selected.
func (v IpVersion) IncludesV4() bool { return v.v4 }

// IncludesV6 reports whether IPv6 addresses are selected.
func (v IpVersion) IncludesV6() bool { return v.v6 }

// AdapterSnapshot is an immutable point-in-time record of one adapter's
// addresses.
//
// Equality is structural and order-insensitive over addresses: two
// snapshots with the same name, kind, and address sets are equal
// regardless of the order addresses were observed in.
//
// Snapshots are produced by a [Fetcher] and must never be mutated after
// construction; treat the returned value as read-only.
type AdapterSnapshot struct {
	Name string
	Kind AdapterKind
	IPv4 map[netip.Addr]struct{}
	IPv6 map[netip.Addr]struct{}
}

// NewAdapterSnapshot builds an [AdapterSnapshot] from an address list,
// partitioning addresses into the IPv4/IPv6 sets by their native form.
func NewAdapterSnapshot(name string, kind AdapterKind, addrs ...netip.Addr) AdapterSnapshot {
	s := AdapterSnapshot{
		Name: name,
		Kind: kind,
		IPv4: make(map[netip.Addr]struct{}),
		IPv6: make(map[netip.Addr]struct{}),
	}
	for _, a := range addrs {
		a = a.Unmap()
		if a.Is4() {
			s.IPv4[a] = struct{}{}
		} else {
			s.IPv6[a] = struct{}{}
		}
	}
	return s
}

// sortedAddrs returns the addresses of the given set, sorted by textual
// form for deterministic iteration.
func sortedAddrs(set map[netip.Addr]struct{}) []netip.Addr {
	out := make([]netip.Addr, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// mergeSnapshotsByName merges snapshots that share the same adapter name,
// unioning their address sets. This implements the invariant that adapter
// names are unique keys within a snapshot list: if the OS produces
// duplicate names, addresses are merged before diffing.
func mergeSnapshotsByName(snapshots []AdapterSnapshot) map[string]AdapterSnapshot {
	index := make(map[string]AdapterSnapshot, len(snapshots))
	for _, s := range snapshots {
		existing, ok := index[s.Name]
		if !ok {
			index[s.Name] = AdapterSnapshot{
				Name: s.Name,
				Kind: s.Kind,
				IPv4: copyAddrSet(s.IPv4),
				IPv6: copyAddrSet(s.IPv6),
			}
			continue
		}
		for a := range s.IPv4 {
			existing.IPv4[a] = struct{}{}
		}
		for a := range s.IPv6 {
			existing.IPv6[a] = struct{}{}
		}
		index[s.Name] = existing
	}
	return index
}

func copyAddrSet(in map[netip.Addr]struct{}) map[netip.Addr]struct{} {
	out := make(map[netip.Addr]struct{}, len(in))
	for a := range in {
		out[a] = struct{}{}
	}
	return out
}
