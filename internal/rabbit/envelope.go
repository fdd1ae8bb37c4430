package rabbit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/theory/jsonpath"

	"logsift/internal/record"
)

// Key paths into a MassTransit envelope and its headers file.
var (
	pathMessageID    = jsonpath.MustParse("$.messageId")
	pathMessageType  = jsonpath.MustParse("$.messageType[0]")
	pathSentTime     = jsonpath.MustParse("$.sentTime")
	pathProcessUID   = jsonpath.MustParse("$.message.processUId")
	pathUserName     = jsonpath.MustParse("$.headers.Context.userContext.UserName")
	pathMachineName  = jsonpath.MustParse("$.host.machineName")
	pathFaultMessage = jsonpath.MustParse("$.headers['MT-Fault-Message']")
	pathFaultStack   = jsonpath.MustParse("$.headers['MT-Fault-StackTrace']")
	pathFaultTime    = jsonpath.MustParse("$.headers['MT-Fault-Timestamp']")
	pathLevel        = jsonpath.MustParse("$.message.level")

	// Tried in order for the human-readable message text.
	messageTextPaths = []*jsonpath.Path{
		jsonpath.MustParse("$.message.message"),
		jsonpath.MustParse("$.message.Message"),
		jsonpath.MustParse("$.message.text"),
		jsonpath.MustParse("$.message.description"),
	}
)

// unifiedKeys must all be present at the top level for a main file to
// carry a full envelope on its own.
var unifiedKeys = []string{"message", "sentTime", "headers"}

// Envelope is a decoded JSON document with typed key-path accessors.
type Envelope struct {
	doc any
}

// ParseEnvelope decodes data. The top level must be a JSON object.
func ParseEnvelope(data []byte) (*Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedJSON)
	}
	return &Envelope{doc: doc}, nil
}

// Has reports whether key exists at the top level.
func (e *Envelope) Has(key string) bool {
	m, _ := e.doc.(map[string]any)
	_, ok := m[key]
	return ok
}

// IsUnified reports whether the document carries message, sentTime and
// headers together.
func (e *Envelope) IsUnified() bool {
	for _, k := range unifiedKeys {
		if !e.Has(k) {
			return false
		}
	}
	return true
}

// String returns the first node selected by p rendered as text, or "".
// Objects and arrays are rendered as compact JSON.
func (e *Envelope) String(p *jsonpath.Path) string {
	nodes := p.Select(e.doc)
	if len(nodes) == 0 {
		return ""
	}
	switch v := nodes[0].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Time parses the node selected by p as a timestamp. Missing or
// unparseable values yield the zero time.
func (e *Envelope) Time(p *jsonpath.Path) time.Time {
	return parseTime(e.String(p))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05.9999999Z07:00",
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Fill copies every envelope field the entry does not already have.
// Fault headers present in the envelope set them unconditionally.
func (e *Envelope) Fill(entry *record.RabbitEntry) {
	setIfEmpty(&entry.MessageID, e.String(pathMessageID))
	setIfEmpty(&entry.MessageType, e.String(pathMessageType))
	setIfEmpty(&entry.ProcessUID, e.String(pathProcessUID))
	setIfEmpty(&entry.UserName, e.String(pathUserName))
	setIfEmpty(&entry.Node, e.String(pathMachineName))
	if entry.SentTime.IsZero() {
		entry.SentTime = e.Time(pathSentTime)
	}
	if entry.Message == "" {
		for _, p := range messageTextPaths {
			if s := e.String(p); s != "" {
				entry.Message = s
				break
			}
		}
	}
	if entry.Level == record.LevelUnknown {
		if l, ok := record.ParseLevel(e.String(pathLevel)); ok {
			entry.Level = l
		}
	}
	e.FillFault(entry)
}

// FillFault copies the MT-Fault-* headers, overriding existing values.
func (e *Envelope) FillFault(entry *record.RabbitEntry) {
	if s := e.String(pathFaultMessage); s != "" {
		entry.FaultMessage = s
	}
	if s := e.String(pathFaultStack); s != "" {
		entry.StackTrace = s
	}
	if t := e.Time(pathFaultTime); !t.IsZero() {
		entry.FaultTimestamp = t
	}
}

// Finish derives the fields that depend on everything else: the level
// defaults to error for faulted messages and info otherwise, and the
// timestamp falls back from SentTime to fallback.
func Finish(entry *record.RabbitEntry, fallback time.Time) {
	if entry.Level == record.LevelUnknown {
		if entry.HasFault() {
			entry.Level = record.LevelError
		} else {
			entry.Level = record.LevelInfo
		}
	}
	if entry.Timestamp.IsZero() {
		if !entry.SentTime.IsZero() {
			entry.Timestamp = entry.SentTime
		} else {
			entry.Timestamp = fallback
		}
	}
	if entry.Message == "" && entry.FaultMessage != "" {
		entry.Message = entry.FaultMessage
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
