// Package script evaluates Risor filter expressions against comparison
// hits. A filter sees the hit through the globals a, b, set_index and
// distance and keeps the hit when it evaluates to a truthy value. The set
// index is not called set because Risor resolves builtins before globals.
package script

import (
	"context"
	"fmt"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"
	"github.com/risor-io/risor/parser"
	"github.com/rs/zerolog"

	"github.com/jward/scimodom/internal/bedtools"
)

// Filter is a parsed filter expression.
type Filter struct {
	source string
	logger zerolog.Logger
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithLogger routes the script's log calls to l.
func WithLogger(l zerolog.Logger) FilterOption {
	return func(f *Filter) {
		f.logger = l
	}
}

// Compile parses source so syntax errors surface before any tool runs.
func Compile(ctx context.Context, source string, opts ...FilterOption) (*Filter, error) {
	if _, err := parser.Parse(ctx, source); err != nil {
		return nil, fmt.Errorf("script: parse filter: %w", err)
	}
	f := &Filter{source: source, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Source returns the filter expression.
func (f *Filter) Source() string { return f.source }

// Match evaluates the filter for one hit.
func (f *Filter) Match(ctx context.Context, hit bedtools.Hit) (bool, error) {
	var opts []risor.Option
	for name, val := range f.globals(hit) {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, f.source, opts...)
	if err != nil {
		return false, fmt.Errorf("script: filter: %w", err)
	}
	if errObj, ok := result.(*object.Error); ok {
		return false, fmt.Errorf("script: filter: %w", errObj.Value())
	}
	return result.IsTruthy(), nil
}

func (f *Filter) globals(hit bedtools.Hit) map[string]any {
	return map[string]any{
		"a":         intervalObject(hit.Primary),
		"b":         intervalObject(hit.Secondary),
		"set_index": object.NewInt(int64(hit.Set)),
		"distance":  object.NewInt(hit.Distance),
		"log":       mustProxy(&logObject{logger: f.logger}),
	}
}

// intervalObject exposes an interval as a Risor map, or nil when absent.
func intervalObject(iv *bedtools.Interval) object.Object {
	if iv == nil {
		return object.Nil
	}
	extra := make([]object.Object, len(iv.Extra))
	for i, e := range iv.Extra {
		extra[i] = object.NewString(e)
	}
	return object.NewMap(map[string]object.Object{
		"chrom":  object.NewString(iv.Chrom),
		"start":  object.NewInt(iv.Start),
		"end":    object.NewInt(iv.End),
		"name":   object.NewString(iv.Name),
		"score":  object.NewInt(int64(iv.Score)),
		"strand": object.NewString(string(iv.Strand)),
		"extra":  object.NewList(extra),
	})
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("script: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Info/Warn/Error methods for filter scripts.
type logObject struct {
	logger zerolog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info().Str("source", "filter").Msg(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn().Str("source", "filter").Msg(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error().Str("source", "filter").Msg(msg)
}
