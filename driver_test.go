// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDryRunDeliversNoRequestsAndLogsChanges(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: [][]AdapterSnapshot{
			{},
			{NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1"))},
		},
	}
	client := &scriptedHttpClient{}
	logger, records := newCapturingLogger()

	cfg, err := ValidateConfig(RawConfig{URL: "https://example.com/hook", DryRun: true})
	require.NoError(t, err)
	cfg.PollInterval = time.Millisecond
	cfg.DebounceWindow = 0

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = Run(ctx, cfg, Dependencies{
		Fetcher: fetcher,
		Client:  client,
		Clock:   fixedClock{t: time.Now()},
		Sleeper: SystemSleeper{},
		Logger:  logger,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, client.requestCount())

	found := false
	for _, r := range *records {
		if r.Message == "dryRunChange" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunDeliversChangesViaWebhook(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: [][]AdapterSnapshot{
			{},
			{NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1"))},
		},
	}
	client := &scriptedHttpClient{statuses: []int{200}}

	cfg, err := ValidateConfig(RawConfig{URL: "https://example.com/hook"})
	require.NoError(t, err)
	cfg.PollInterval = time.Millisecond
	cfg.DebounceWindow = 0

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = Run(ctx, cfg, Dependencies{
		Fetcher: fetcher,
		Client:  client,
		Clock:   fixedClock{t: time.Now()},
		Sleeper: SystemSleeper{},
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, client.requestCount(), 1)
}

func TestRunPersistsStateFileAfterDelivery(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	fetcher := &scriptedFetcher{
		results: [][]AdapterSnapshot{
			{},
			{NewAdapterSnapshot("eth0", AdapterKindEthernet, addr(t, "10.0.0.1"))},
		},
	}
	client := &scriptedHttpClient{statuses: []int{200}}

	cfg, err := ValidateConfig(RawConfig{URL: "https://example.com/hook", StateFilePath: statePath})
	require.NoError(t, err)
	cfg.PollInterval = time.Millisecond
	cfg.DebounceWindow = 0

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = Run(ctx, cfg, Dependencies{
		Fetcher: fetcher,
		Client:  client,
		Clock:   fixedClock{t: time.Now()},
		Sleeper: SystemSleeper{},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		doc, err := LoadState(statePath)
		return err == nil && doc != nil
	}, time.Second, 10*time.Millisecond)
}

func TestRunLoadStateErrorIsSurfaced(t *testing.T) {
	// A directory at the state path makes LoadState's ReadFile fail with
	// something other than "not exist".
	dir := t.TempDir()

	fetcher := &scriptedFetcher{results: [][]AdapterSnapshot{{}}}
	cfg, err := ValidateConfig(RawConfig{URL: "https://example.com/hook", StateFilePath: dir})
	require.NoError(t, err)

	err = Run(context.Background(), cfg, Dependencies{
		Fetcher: fetcher,
		Client:  &scriptedHttpClient{},
		Clock:   fixedClock{t: time.Now()},
		Sleeper: SystemSleeper{},
	})
	assert.Error(t, err)
}
