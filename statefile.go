// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
)

// StateDocument is the on-disk shape persisted between runs: the last
// known adapter snapshot set and when it was saved.
type StateDocument struct {
	Adapters []AdapterSnapshot `json:"adapters"`
	SavedAt  int64             `json:"saved_at"`
}

// adapterSnapshotWire is the JSON-friendly projection of
// [AdapterSnapshot]: netip.Addr sets don't round-trip as map keys, so
// addresses are flattened to string slices for encoding.
type adapterSnapshotWire struct {
	Name string          `json:"name"`
	Kind adapterKindWire `json:"kind"`
	IPv4 []string        `json:"ipv4"`
	IPv6 []string        `json:"ipv6"`
}

type adapterKindWire struct {
	Name  string `json:"name,omitempty"`
	Other uint32 `json:"other,omitempty"`
}

// LoadState reads and decodes the state file at path. A missing file is
// not an error: it returns (nil, nil), meaning "no prior state".
func LoadState(path string) (*StateDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("statefile: read %s: %w", path, err)
	}

	var wire struct {
		Adapters []adapterSnapshotWire `json:"adapters"`
		SavedAt  int64                 `json:"saved_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("statefile: decode %s: %w", path, err)
	}

	doc := &StateDocument{SavedAt: wire.SavedAt}
	for _, w := range wire.Adapters {
		doc.Adapters = append(doc.Adapters, snapshotFromWire(w))
	}
	return doc, nil
}

// SaveState JSON-encodes snapshots and writes them to path atomically:
// the document is written to path+".tmp" and then renamed into place, so
// a crash mid-write never corrupts the previously saved state.
func SaveState(path string, snapshots []AdapterSnapshot, savedAt int64) error {
	wire := struct {
		Adapters []adapterSnapshotWire `json:"adapters"`
		SavedAt  int64                 `json:"saved_at"`
	}{SavedAt: savedAt}
	for _, s := range snapshots {
		wire.Adapters = append(wire.Adapters, snapshotToWire(s))
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("statefile: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("statefile: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("statefile: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// EnsureStateDir creates the parent directory of path if it does not
// already exist, so a first run with a fresh --state-file path doesn't
// fail on ENOENT.
func EnsureStateDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func snapshotToWire(s AdapterSnapshot) adapterSnapshotWire {
	w := adapterSnapshotWire{Name: s.Name, Kind: kindToWire(s.Kind)}
	for addr := range s.IPv4 {
		w.IPv4 = append(w.IPv4, addr.String())
	}
	for addr := range s.IPv6 {
		w.IPv6 = append(w.IPv6, addr.String())
	}
	return w
}

func snapshotFromWire(w adapterSnapshotWire) AdapterSnapshot {
	addrs := make([]netip.Addr, 0, len(w.IPv4)+len(w.IPv6))
	for _, s := range w.IPv4 {
		if a, err := netip.ParseAddr(s); err == nil {
			addrs = append(addrs, a)
		}
	}
	for _, s := range w.IPv6 {
		if a, err := netip.ParseAddr(s); err == nil {
			addrs = append(addrs, a)
		}
	}
	return NewAdapterSnapshot(w.Name, kindFromWire(w.Kind), addrs...)
}

func kindToWire(k AdapterKind) adapterKindWire {
	switch k {
	case AdapterKindEthernet:
		return adapterKindWire{Name: "ethernet"}
	case AdapterKindWireless:
		return adapterKindWire{Name: "wireless"}
	case AdapterKindLoopback:
		return adapterKindWire{Name: "loopback"}
	case AdapterKindVirtual:
		return adapterKindWire{Name: "virtual"}
	default:
		return adapterKindWire{Other: k.other}
	}
}

func kindFromWire(w adapterKindWire) AdapterKind {
	switch w.Name {
	case "ethernet":
		return AdapterKindEthernet
	case "wireless":
		return AdapterKindWireless
	case "loopback":
		return AdapterKindLoopback
	case "virtual":
		return AdapterKindVirtual
	default:
		return AdapterKindOther(w.Other)
	}
}
