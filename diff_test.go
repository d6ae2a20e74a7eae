// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiffSoundness(t *testing.T) {
	snaps := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "192.168.1.10")),
	}
	assert.Empty(t, Diff(snaps, snaps, time.Now()))
}

func TestDiffSingleAddition(t *testing.T) {
	old := []AdapterSnapshot{}
	new := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "192.168.1.10")),
	}
	ts := time.Now()

	changes := Diff(old, new, ts)

	assert.Equal(t, []IpChange{
		{Adapter: "eth0", Address: addr(t, "192.168.1.10"), Timestamp: ts, Kind: Added},
	}, changes)
}

func TestDiffSingleRemoval(t *testing.T) {
	old := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "192.168.1.10")),
	}
	new := []AdapterSnapshot{}
	ts := time.Now()

	changes := Diff(old, new, ts)

	assert.Equal(t, []IpChange{
		{Adapter: "eth0", Address: addr(t, "192.168.1.10"), Timestamp: ts, Kind: Removed},
	}, changes)
}

func TestDiffReplacementOrdersRemovedBeforeAdded(t *testing.T) {
	old := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1")),
	}
	new := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.2")),
	}
	ts := time.Now()

	changes := Diff(old, new, ts)

	assert.Equal(t, []IpChange{
		{Adapter: "eth0", Address: addr(t, "10.0.0.1"), Timestamp: ts, Kind: Removed},
		{Adapter: "eth0", Address: addr(t, "10.0.0.2"), Timestamp: ts, Kind: Added},
	}, changes)
}

func TestDiffPartition(t *testing.T) {
	old := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1"), addr(t, "10.0.0.2")),
		NewAdapterSnapshot("wlan0", AdapterKindWireless, addr(t, "192.168.0.5")),
	}
	new := []AdapterSnapshot{
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.2"), addr(t, "10.0.0.3")),
	}
	ts := time.Now()

	changes := Diff(old, new, ts)

	var addedAddrs, removedAddrs []string
	for _, c := range changes {
		switch c.Kind {
		case Added:
			addedAddrs = append(addedAddrs, c.Adapter+"/"+c.Address.String())
		case Removed:
			removedAddrs = append(removedAddrs, c.Adapter+"/"+c.Address.String())
		}
	}

	assert.ElementsMatch(t, []string{"eth0/10.0.0.3"}, addedAddrs)
	assert.ElementsMatch(t, []string{"eth0/10.0.0.1", "wlan0/192.168.0.5"}, removedAddrs)
}

func TestDiffOrdersByAdapterNameAscending(t *testing.T) {
	old := []AdapterSnapshot{}
	new := []AdapterSnapshot{
		NewAdapterSnapshot("wlan0", AdapterKindWireless, addr(t, "192.168.0.5")),
		NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1")),
	}

	changes := Diff(old, new, time.Now())

	require := assert.New(t)
	require.Len(changes, 2)
	require.Equal("eth0", changes[0].Adapter)
	require.Equal("wlan0", changes[1].Adapter)
}
