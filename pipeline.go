// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import "context"

// newFetchDiffPipeline composes a fetch step and a diff step into a
// single [Func], the same way the teacher composes multi-stage network
// operations with [Compose2]: the fetch stage's output flows directly
// into the diff stage's input, and an error from either stage short
// circuits the pipeline.
//
// The diff stage closes over baseline and advances it to the freshly
// fetched snapshot on every successful call — the monitors that drive
// this pipeline hold no other copy of "the last known state".
func newFetchDiffPipeline(fetcher Fetcher, clock Clock, baseline *[]AdapterSnapshot) Func[Unit, []IpChange] {
	fetchStep := FuncAdapter[Unit, []AdapterSnapshot](func(ctx context.Context, _ Unit) ([]AdapterSnapshot, error) {
		return fetcher.Fetch(ctx)
	})
	diffStep := FuncAdapter[[]AdapterSnapshot, []IpChange](func(_ context.Context, snaps []AdapterSnapshot) ([]IpChange, error) {
		changes := Diff(*baseline, snaps, clock.Now())
		*baseline = snaps
		return changes, nil
	})
	return Compose2[Unit, []AdapterSnapshot, []IpChange](fetchStep, diffStep)
}
