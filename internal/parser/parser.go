// Package parser turns line streams from internal/source into typed
// records: free-form text logs, IIS W3C extended logs and MassTransit
// JSON lines.
//
// Parsers are lazy and pull one line at a time. A line that cannot be
// parsed is skipped with a debug log; only upstream read errors and
// cancellation end a stream with an error.
package parser

import (
	"context"
	"iter"
	"log/slog"

	"logsift/internal/logging"
	"logsift/internal/record"
	"logsift/internal/source"
)

// Enricher fills derived IIS columns. lookup.Registry implements it.
type Enricher interface {
	EnrichIIS(ctx context.Context, e *record.IISEntry)
}

// Parser holds the shared dependencies of the format parsers.
type Parser struct {
	logger *slog.Logger
	enrich Enricher
}

// Option configures a Parser.
type Option func(*Parser)

// WithEnricher sets the IIS enrichment hook.
func WithEnricher(e Enricher) Option {
	return func(p *Parser) { p.enrich = e }
}

// New creates a Parser.
func New(logger *slog.Logger, opts ...Option) *Parser {
	p := &Parser{logger: logging.Default(logger).With("component", "parser")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lines is the input of every parser.
type Lines = iter.Seq2[source.Line, error]
