package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"logsift/internal/record"
)

const (
	formatTable   = "table"
	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

// printer handles table, JSON or msgpack output.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case formatTable, formatJSON, formatMsgpack:
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json, or msgpack)", format)
	}
	return &printer{format: format, w: w}, nil
}

// printerFromCmd writes to the command's output in the --output format.
func printerFromCmd(cmd *cobra.Command) (*printer, error) {
	return newPrinter(cmd.OutOrStdout(), outputFormat(cmd))
}

// structured reports whether v should be encoded instead of tabulated.
func (p *printer) structured() bool {
	return p.format != formatTable
}

// encode writes v as indented JSON or as one msgpack value.
func (p *printer) encode(v any) error {
	if p.format == formatMsgpack {
		return msgpack.NewEncoder(p.w).Encode(v)
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows using tabwriter. header is the first row; a nil
// header is omitted.
func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	if header != nil {
		writeRow(tw, header)
	}
	for _, row := range rows {
		writeRow(tw, row)
	}
	_ = tw.Flush()
}

// kv prints a key-value detail view.
func (p *printer) kv(pairs [][2]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, pair := range pairs {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", pair[0], pair[1])
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, cols []string) {
	_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
}

// recordWriter streams records of one kind. Table output is aligned per
// batch; structured output writes one compact value per record.
type recordWriter[R any] struct {
	fields  []record.Field[R]
	tw      *tabwriter.Writer
	json    *json.Encoder
	msgpack *msgpack.Encoder
	batch   int // rows per aligned block; 1 flushes every row
	pending int
}

// newRecordWriter selects columns from schema. An empty columns list uses
// defaults.
func newRecordWriter[R any](p *printer, schema *record.Schema[R], columns []string, batch int) (*recordWriter[R], error) {
	if len(columns) == 0 {
		columns = defaultColumns[schema.Kind()]
	}
	rw := &recordWriter[R]{batch: max(batch, 1)}
	for _, name := range columns {
		f, ok := schema.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown column %q for %s records", name, schema.Kind())
		}
		rw.fields = append(rw.fields, f)
	}

	switch p.format {
	case formatJSON:
		rw.json = json.NewEncoder(p.w)
	case formatMsgpack:
		rw.msgpack = msgpack.NewEncoder(p.w)
	default:
		rw.tw = tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		header := make([]string, len(rw.fields))
		for i, f := range rw.fields {
			header[i] = f.Name
		}
		writeRow(rw.tw, header)
	}
	return rw, nil
}

var defaultColumns = map[record.Kind][]string{
	record.KindLog:    {"Timestamp", "Level", "Source", "Message"},
	record.KindIIS:    {"Timestamp", "Method", "URIStem", "Status", "TimeTaken", "ClientIP", "Country", "Browser"},
	record.KindRabbit: {"Timestamp", "Level", "MessageID", "MessageType", "Node", "Message"},
}

func (rw *recordWriter[R]) write(r R) error {
	switch {
	case rw.json != nil:
		return rw.json.Encode(fieldValues(rw.fields, r))
	case rw.msgpack != nil:
		return rw.msgpack.Encode(fieldValues(rw.fields, r))
	}
	row := make([]string, len(rw.fields))
	for i, f := range rw.fields {
		s, ok := f.String(r)
		if !ok {
			s = "-"
		}
		row[i] = oneLine(s)
	}
	writeRow(rw.tw, row)
	rw.pending++
	if rw.pending >= rw.batch {
		return rw.flush()
	}
	return nil
}

func (rw *recordWriter[R]) flush() error {
	rw.pending = 0
	if rw.tw == nil {
		return nil
	}
	return rw.tw.Flush()
}

// fieldValues renders the selected fields with their native types.
// Missing values are omitted.
func fieldValues[R any](fields []record.Field[R], r R) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f.Type {
		case record.FieldNumber:
			if n, ok := f.Number(r); ok {
				out[f.Name] = n
			}
		case record.FieldTime:
			if t, ok := f.Time(r); ok {
				out[f.Name] = t
			}
		default:
			if s, ok := f.String(r); ok {
				out[f.Name] = s
			}
		}
	}
	return out
}

// oneLine keeps table cells on a single row.
func oneLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i] + " …"
	}
	return strings.ReplaceAll(s, "\t", " ")
}
