// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/aymerick/raymond"
)

// Sentinel errors returned by [ValidateConfig], one per class of
// configuration failure. [Run] does not map them to process exit codes.
var (
	ErrMissingRequired = errors.New("config: missing required field")
	ErrInvalidURL      = errors.New("config: invalid url")
	ErrInvalidRegex    = errors.New("config: invalid regex")
	ErrInvalidTemplate = errors.New("config: invalid body template")
)

// templateVariables is the closed set of variables a body template may
// reference; anything else fails validation.
var templateVariables = map[string]struct{}{
	"adapter":   {},
	"address":   {},
	"kind":      {},
	"timestamp": {},
}

var templateVarPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RawConfig is the caller-assembled, unvalidated input to
// [ValidateConfig]. Zero values mean "use the default".
type RawConfig struct {
	Version IpVersion

	URL     string
	Method  string
	Headers http.Header

	// BodyTemplate is Handlebars source; empty means no body.
	BodyTemplate string

	IncludeNames []string // regex patterns, OR'd
	ExcludeNames []string // regex patterns, AND'd
	ExcludeKinds []AdapterKind

	// IncludeLoopback opts out of the implicit loopback exclude that
	// is otherwise added per spec.
	IncludeLoopback bool

	PollInterval time.Duration
	PollOnly     bool

	Retry RetryPolicy // zero value means "use DefaultRetryPolicy"

	DebounceWindow time.Duration

	StateFilePath string
	DryRun        bool
}

// ValidatedConfig is the core's sole configuration input: every field is
// already parsed, compiled, and defaulted. Loading it from CLI flags or
// a TOML file is the surrounding driver's concern, not the core's.
type ValidatedConfig struct {
	Version IpVersion

	URL     string
	Method  string
	Headers http.Header

	BodyTemplate *raymond.Template

	Chain *FilterChain

	PollInterval time.Duration
	PollOnly     bool

	Retry RetryPolicy

	DebounceWindow time.Duration

	StateFilePath string
	DryRun        bool
}

// ValidateConfig turns a [RawConfig] into a [*ValidatedConfig], compiling
// regexes, parsing the body template, checking the URL, applying the
// default loopback exclude, and filling in every default from spec.md §6.
func ValidateConfig(raw RawConfig) (*ValidatedConfig, error) {
	if raw.URL == "" {
		return nil, fmt.Errorf("%w: url", ErrMissingRequired)
	}
	parsed, err := url.Parse(raw.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw.URL)
	}

	tmpl, err := compileBodyTemplate(raw.BodyTemplate)
	if err != nil {
		return nil, err
	}

	chain, err := buildFilterChain(raw)
	if err != nil {
		return nil, err
	}

	method := raw.Method
	if method == "" {
		method = http.MethodPost
	}

	headers := raw.Headers
	if headers == nil {
		headers = make(http.Header)
	}

	pollInterval := raw.PollInterval
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}

	retry := raw.Retry
	if (retry == RetryPolicy{}) {
		retry = DefaultRetryPolicy()
	} else if err := retry.Validate(); err != nil {
		return nil, err
	}

	debounce := raw.DebounceWindow
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}

	version := raw.Version
	if !version.IncludesV4() && !version.IncludesV6() {
		version = IpVersionBoth
	}

	return &ValidatedConfig{
		Version:        version,
		URL:            raw.URL,
		Method:         method,
		Headers:        headers,
		BodyTemplate:   tmpl,
		Chain:          chain,
		PollInterval:   pollInterval,
		PollOnly:       raw.PollOnly,
		Retry:          retry,
		DebounceWindow: debounce,
		StateFilePath:  raw.StateFilePath,
		DryRun:         raw.DryRun,
	}, nil
}

// compileBodyTemplate parses the Handlebars source (if any) and rejects
// any plain {{name}} reference outside the closed set of template
// variables. Only that plain form is checked: block helpers and dotted
// paths are not inspected.
func compileBodyTemplate(src string) (*raymond.Template, error) {
	if src == "" {
		return nil, nil
	}
	for _, m := range templateVarPattern.FindAllStringSubmatch(src, -1) {
		if _, ok := templateVariables[m[1]]; !ok {
			return nil, fmt.Errorf("%w: unknown variable %q", ErrInvalidTemplate, m[1])
		}
	}
	tmpl, err := raymond.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return tmpl, nil
}

// buildFilterChain compiles the include/exclude regexes and applies the
// default-loopback-exclude policy: unless the caller opts in to loopback
// explicitly, an implicit KindFilter(Loopback) exclude is added.
func buildFilterChain(raw RawConfig) (*FilterChain, error) {
	chain := &FilterChain{}

	for _, pattern := range raw.IncludeNames {
		f, err := NewNameRegexFilter(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
		}
		chain.Includes = append(chain.Includes, f)
	}
	for _, pattern := range raw.ExcludeNames {
		f, err := NewNameRegexFilter(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
		}
		chain.Excludes = append(chain.Excludes, f)
	}
	for _, kind := range raw.ExcludeKinds {
		chain.Excludes = append(chain.Excludes, NewKindFilter(kind))
	}

	if !raw.IncludeLoopback {
		chain.Excludes = append(chain.Excludes, NewKindFilter(AdapterKindLoopback))
	}

	return chain, nil
}
