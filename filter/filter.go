// Package filter selects messages by regex match against their header or
// body text. Include patterns and exclude patterns are mutually exclusive
// modes: an include set admits only matching messages, an exclude set
// drops matching ones.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// Options captures the filtering configuration.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

type pattern struct {
	re   *regexp.Regexp
	hits atomic.Int64
}

// Filter holds the compiled patterns and per-pattern hit counters.
type Filter struct {
	includeMode   bool
	excludeMode   bool
	includeHeader []*pattern
	includeBody   []*pattern
	excludeHeader []*pattern
	excludeBody   []*pattern
}

// New compiles the options into a Filter.
func New(opts Options) (*Filter, error) {
	includeHeader, err := compile(opts.IncludeHeader)
	if err != nil {
		return nil, fmt.Errorf("compile include-header pattern: %w", err)
	}
	includeBody, err := compile(opts.IncludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile include-body pattern: %w", err)
	}
	excludeHeader, err := compile(opts.ExcludeHeader)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-header pattern: %w", err)
	}
	excludeBody, err := compile(opts.ExcludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-body pattern: %w", err)
	}

	includeActive := len(includeHeader) > 0 || len(includeBody) > 0
	excludeActive := len(excludeHeader) > 0 || len(excludeBody) > 0
	if includeActive && excludeActive {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{
		includeMode:   includeActive,
		excludeMode:   excludeActive,
		includeHeader: includeHeader,
		includeBody:   includeBody,
		excludeHeader: excludeHeader,
		excludeBody:   excludeBody,
	}, nil
}

// Allows reports whether a message with the given header and body text
// passes the filter.
func (f *Filter) Allows(header, body string) bool {
	if f.includeMode {
		return matchAny(f.includeHeader, header) || matchAny(f.includeBody, body)
	}
	if f.excludeMode {
		return !(matchAny(f.excludeHeader, header) || matchAny(f.excludeBody, body))
	}
	return true
}

// Hits returns pattern → match count for all configured patterns.
func (f *Filter) Hits() map[string]int64 {
	out := make(map[string]int64)
	for _, group := range [][]*pattern{f.includeHeader, f.includeBody, f.excludeHeader, f.excludeBody} {
		for _, p := range group {
			out[p.re.String()] = p.hits.Load()
		}
	}
	return out
}

func compile(patterns []string) ([]*pattern, error) {
	compiled := make([]*pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", raw, err)
		}
		compiled = append(compiled, &pattern{re: re})
	}
	return compiled, nil
}

func matchAny(patterns []*pattern, text string) bool {
	if text == "" {
		return false
	}
	matched := false
	for _, p := range patterns {
		if p.re.MatchString(text) {
			p.hits.Add(1)
			matched = true
		}
	}
	return matched
}
