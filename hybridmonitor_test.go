// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHybridMonitorApiDegradation implements scenario 4: the listener's
// stream yields a stopped error; subsequent changes still arrive via
// polling, and IsPollingOnly becomes true and stays true.
func TestHybridMonitorApiDegradation(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: [][]AdapterSnapshot{
			{},
			{NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1"))},
		},
	}
	listener := newFakeApiListener()

	m := NewHybridMonitor(fetcher, listener, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := m.Run(ctx)

	assert.False(t, m.IsPollingOnly())

	go func() {
		listener.notifyCh <- ApiNotification{Err: &ApiError{Stopped: true}}
	}()

	select {
	case batch := <-out:
		require.Len(t, batch, 1)
		assert.Equal(t, Added, batch[0].Kind)
	case <-time.After(900 * time.Millisecond):
		t.Fatal("timed out waiting for polling-driven emission after degradation")
	}

	assert.Eventually(t, m.IsPollingOnly, time.Second, 5*time.Millisecond)
}

// TestHybridMonitorTerminationNeverAwaitsApiAgain verifies the monitor
// never selects on the API channel again after it closes, by closing
// the notification channel (simulating stream end) and confirming
// polling continues to drive emissions afterward.
func TestHybridMonitorTerminationNeverAwaitsApiAgain(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: [][]AdapterSnapshot{
			{},
			{NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1"))},
		},
	}
	listener := newFakeApiListener()
	m := NewHybridMonitor(fetcher, listener, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := m.Run(ctx)
	close(listener.notifyCh)

	select {
	case <-out:
	case <-time.After(900 * time.Millisecond):
		t.Fatal("timed out waiting for polling-driven emission after stream end")
	}
	assert.True(t, m.IsPollingOnly())
}

func TestHybridMonitorShutdownClosesListenerAndChannel(t *testing.T) {
	fetcher := &scriptedFetcher{results: [][]AdapterSnapshot{{}}}
	listener := newFakeApiListener()
	m := NewHybridMonitor(fetcher, listener, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	out := m.Run(ctx)
	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("monitor did not shut down in time")
	}
	assert.True(t, listener.isClosed())
}
