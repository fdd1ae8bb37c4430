// Package record defines the parsed log entry kinds that flow through
// filter pipelines, and the per-kind field schemas used to address them.
//
// Records are immutable once a parser or reconstructor hands them off.
// Absent values are represented by empty strings and zero times; schema
// accessors report them as missing so that no predicate matches them.
package record

import "time"

// Kind identifies a record schema.
type Kind int

const (
	KindLog Kind = iota
	KindIIS
	KindRabbit
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindIIS:
		return "iis"
	case KindRabbit:
		return "rabbit"
	default:
		return "unknown"
	}
}

// ParseKind maps a kind name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "log", "text":
		return KindLog, true
	case "iis", "w3c":
		return KindIIS, true
	case "rabbit", "rabbitmq", "masstransit":
		return KindRabbit, true
	default:
		return 0, false
	}
}

// LogEntry is a generic line-oriented log record.
type LogEntry struct {
	Timestamp  time.Time
	Level      Level
	Source     string
	Message    string
	StackTrace string
	File       string
	Line       int
}

// IISEntry is one request line of an IIS W3C extended log.
// Numeric fields are -1 when the log had "-" or lacked the column.
type IISEntry struct {
	Timestamp   time.Time
	ServerIP    string
	Method      string
	URIStem     string
	URIQuery    string
	ServerPort  int
	UserName    string
	ClientIP    string
	UserAgent   string
	Referer     string
	Status      int
	SubStatus   int
	Win32Status int
	TimeTaken   int

	// Enrichment, filled by lookup tables when configured.
	Browser string
	OS      string
	Country string
	City    string

	File string
	Line int
}

// RabbitEntry is a RabbitMQ / MassTransit message, either reconstructed
// from paired files or read from a JSON-lines dump.
type RabbitEntry struct {
	MessageID      string
	Timestamp      time.Time
	SentTime       time.Time
	Level          Level
	Node           string
	MessageType    string
	Message        string
	ProcessUID     string
	UserName       string
	FaultMessage   string
	FaultTimestamp time.Time
	StackTrace     string
	File           string
}

// EffectiveStackTrace returns the fault stack trace, or "" when the
// message carried none.
func (e *RabbitEntry) EffectiveStackTrace() string {
	if e == nil {
		return ""
	}
	return e.StackTrace
}

// HasFault reports whether any MassTransit fault information is present.
func (e *RabbitEntry) HasFault() bool {
	return e.FaultMessage != "" || e.StackTrace != "" || !e.FaultTimestamp.IsZero()
}
