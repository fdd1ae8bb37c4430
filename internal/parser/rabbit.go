package parser

import (
	"iter"
	"time"

	"logsift/internal/rabbit"
	"logsift/internal/record"
)

// RabbitJSON parses a JSON-lines dump with one MassTransit envelope per
// line, using the same field extraction as paired-file reconstruction.
// Entries without a sentTime carry a zero Timestamp.
func (p *Parser) RabbitJSON(lines Lines) iter.Seq2[*record.RabbitEntry, error] {
	return func(yield func(*record.RabbitEntry, error) bool) {
		for line, err := range lines {
			if err != nil {
				yield(nil, err)
				return
			}
			env, err := rabbit.ParseEnvelope([]byte(line.Text))
			if err != nil {
				p.logger.Debug("skipping malformed json line", "file", line.Path, "line", line.Number, "error", err)
				continue
			}
			e := &record.RabbitEntry{File: line.Path}
			env.Fill(e)
			rabbit.Finish(e, time.Time{})
			if !yield(e, nil) {
				return
			}
		}
	}
}
