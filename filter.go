// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"context"
	"regexp"
)

// AdapterPredicate matches an [AdapterSnapshot] against some criterion.
//
// Implementations are held as a runtime-sized list inside [FilterChain],
// so this is a boxed interface rather than a generic parameter: the
// number of include/exclude rules a caller configures is not known at
// compile time.
type AdapterPredicate interface {
	Matches(s *AdapterSnapshot) bool
}

// NameRegexFilter matches an adapter whose name matches a regular
// expression.
type NameRegexFilter struct {
	re *regexp.Regexp
}

// NewNameRegexFilter compiles pattern and returns a [*NameRegexFilter].
func NewNameRegexFilter(pattern string) (*NameRegexFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &NameRegexFilter{re: re}, nil
}

var _ AdapterPredicate = &NameRegexFilter{}

// Matches implements [AdapterPredicate].
func (f *NameRegexFilter) Matches(s *AdapterSnapshot) bool {
	return f.re.MatchString(s.Name)
}

// KindFilter matches an adapter whose kind equals a target kind.
type KindFilter struct {
	Kind AdapterKind
}

// NewKindFilter returns a [*KindFilter] for the given kind.
func NewKindFilter(kind AdapterKind) *KindFilter {
	return &KindFilter{Kind: kind}
}

var _ AdapterPredicate = &KindFilter{}

// Matches implements [AdapterPredicate].
func (f *KindFilter) Matches(s *AdapterSnapshot) bool {
	return f.Kind.Equal(s.Kind)
}

// FilterChain composes an ordered include list and an ordered exclude
// list into a single admission decision.
//
// Evaluation, applied at the fetcher boundary:
//  1. If Includes is non-empty, the adapter must match at least one
//     include (OR).
//  2. The adapter must match zero excludes (AND across excludes).
//  3. An empty chain admits every adapter.
//
// This OR-of-includes, AND-of-excludes shape replaces a prior
// composite-AND semantics that made multiple include rules mutually
// exclusive — the new form matches "any of these, but none of those".
type FilterChain struct {
	Includes []AdapterPredicate
	Excludes []AdapterPredicate
}

// Matches implements [AdapterPredicate].
func (c *FilterChain) Matches(s *AdapterSnapshot) bool {
	if len(c.Includes) > 0 {
		included := false
		for _, p := range c.Includes {
			if p.Matches(s) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, p := range c.Excludes {
		if p.Matches(s) {
			return false
		}
	}
	return true
}

var _ AdapterPredicate = &FilterChain{}

// FilteredFetcher decorates a [Fetcher], applying a [FilterChain] to each
// result and forwarding only the survivors.
type FilteredFetcher struct {
	Fetcher Fetcher
	Chain   *FilterChain
}

// NewFilteredFetcher returns a [*FilteredFetcher] wrapping fetcher with
// chain.
func NewFilteredFetcher(fetcher Fetcher, chain *FilterChain) *FilteredFetcher {
	return &FilteredFetcher{Fetcher: fetcher, Chain: chain}
}

var _ Fetcher = &FilteredFetcher{}

// Fetch implements [Fetcher].
func (f *FilteredFetcher) Fetch(ctx context.Context) ([]AdapterSnapshot, error) {
	all, err := f.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AdapterSnapshot, 0, len(all))
	for i := range all {
		if f.Chain.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}
