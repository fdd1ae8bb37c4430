// Package rabbit reads RabbitMQ / MassTransit messages that were dumped
// to disk, one message per file, optionally with a separate headers file.
//
// File naming:
//
//	msg-<id>                          main file (".json" suffix optional)
//	msg-<id>-headers+properties.json  headers and properties
//
// Other files in the directory are ignored. Each message id resolves to a
// PairedFile whose Status says what can be reconstructed from it.
package rabbit

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	headersPattern = regexp.MustCompile(`^msg-(.+)-headers\+properties\.json$`)
	mainPattern    = regexp.MustCompile(`^msg-(.+?)(\.json)?$`)
)

const headersSuffix = "-headers+properties.json"

// fileRole classifies a file name.
type fileRole int

const (
	roleNone fileRole = iota
	roleMain
	roleHeaders
)

// classify returns the role and message id encoded in a base name.
func classify(name string) (fileRole, string) {
	if m := headersPattern.FindStringSubmatch(name); m != nil {
		return roleHeaders, m[1]
	}
	if m := mainPattern.FindStringSubmatch(name); m != nil {
		return roleMain, m[1]
	}
	return roleNone, ""
}

// Status is the reconstruction state of one message id.
type Status int

const (
	// StatusPartial: only one of the two files exists.
	StatusPartial Status = iota
	// StatusComplete: main and headers files both exist.
	StatusComplete
	// StatusUnifiedJSON: a lone main file that carries the full envelope.
	StatusUnifiedJSON
	// StatusFailed: the main file could not be read or parsed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPartial:
		return "partial"
	case StatusComplete:
		return "complete"
	case StatusUnifiedJSON:
		return "unified"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PairedFile groups the files of one message id.
type PairedFile struct {
	MessageID   string `json:"message_id"`
	MainPath    string `json:"main_path,omitempty"`
	HeadersPath string `json:"headers_path,omitempty"`
	Status      Status `json:"status"`
	Err         error  `json:"-"`
}

// MainOnly reports a partial message with no headers file.
func (p PairedFile) MainOnly() bool { return p.MainPath != "" && p.HeadersPath == "" }

// HeadersOnly reports a partial message with no main file.
func (p PairedFile) HeadersOnly() bool { return p.MainPath == "" && p.HeadersPath != "" }

// Describe renders the status with its partial qualifier.
func (p PairedFile) Describe() string {
	switch {
	case p.Status == StatusPartial && p.MainOnly():
		return "partial (main only)"
	case p.Status == StatusPartial && p.HeadersOnly():
		return "partial (headers only)"
	default:
		return p.Status.String()
	}
}

// headersPathFor returns the headers file path paired with a main file.
func headersPathFor(dir, id string) string {
	return filepath.Join(dir, "msg-"+id+headersSuffix)
}

// mainCandidates returns the possible main file paths for id.
func mainCandidates(dir, id string) []string {
	base := filepath.Join(dir, "msg-"+id)
	return []string{base, base + ".json"}
}

// isMessageFile reports whether name follows either naming pattern.
func isMessageFile(name string) bool {
	role, _ := classify(name)
	return role != roleNone && !strings.HasPrefix(name, ".")
}
