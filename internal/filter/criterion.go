package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"logsift/internal/strategy"
)

// Criterion is one user-specified condition.
type Criterion struct {
	Field    string         `json:"field"`
	Operator string         `json:"operator"`
	Value    strategy.Value `json:"value"`
}

func (c Criterion) String() string {
	return c.Field + " " + c.Operator + " " + c.Value.Display()
}

// Mode selects how criteria combine.
type Mode int

const (
	ModeAnd Mode = iota
	ModeOr
)

func (m Mode) String() string {
	if m == ModeOr {
		return "or"
	}
	return "and"
}

// ParseMode accepts "and"/"all" and "or"/"any", case-insensitively.
// An empty string means AND.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and", "all", "&&":
		return ModeAnd, nil
	case "or", "any", "||":
		return ModeOr, nil
	default:
		return ModeAnd, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
