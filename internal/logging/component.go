package logging

import (
	"context"
	"log/slog"
	"sync"
)

// componentKey is the attribute every component scopes its logger with.
const componentKey = "component"

// levelTable is shared by a ComponentFilterHandler and all handlers
// derived from it through WithAttrs/WithGroup.
type levelTable struct {
	mu       sync.RWMutex
	def      slog.Level
	override map[string]slog.Level
}

func (t *levelTable) level(component string) slog.Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if l, ok := t.override[component]; ok {
		return l
	}
	return t.def
}

// floor is the lowest level any component currently accepts.
func (t *levelTable) floor() slog.Level {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lowest := t.def
	for _, l := range t.override {
		lowest = min(lowest, l)
	}
	return lowest
}

// ComponentFilterHandler applies a minimum level per "component"
// attribute, falling back to a default level. Levels can change at
// runtime; changes apply to every logger derived from the handler.
type ComponentFilterHandler struct {
	next      slog.Handler
	levels    *levelTable
	component string // from WithAttrs, if any
}

// NewComponentFilterHandler wraps next. next should accept every level;
// filtering happens here.
func NewComponentFilterHandler(next slog.Handler, defaultLevel slog.Level) *ComponentFilterHandler {
	return &ComponentFilterHandler{
		next:   next,
		levels: &levelTable{def: defaultLevel, override: make(map[string]slog.Level)},
	}
}

// SetLevel sets the minimum level for one component.
func (h *ComponentFilterHandler) SetLevel(component string, level slog.Level) {
	h.levels.mu.Lock()
	h.levels.override[component] = level
	h.levels.mu.Unlock()
}

// ClearLevel reverts a component to the default level.
func (h *ComponentFilterHandler) ClearLevel(component string) {
	h.levels.mu.Lock()
	delete(h.levels.override, component)
	h.levels.mu.Unlock()
}

// Level returns the effective minimum level for component.
func (h *ComponentFilterHandler) Level(component string) slog.Level {
	return h.levels.level(component)
}

// DefaultLevel returns the level used for components without an override.
func (h *ComponentFilterHandler) DefaultLevel() slog.Level {
	h.levels.mu.RLock()
	defer h.levels.mu.RUnlock()
	return h.levels.def
}

// SetDefaultLevel changes the level used for components without an
// override.
func (h *ComponentFilterHandler) SetDefaultLevel(level slog.Level) {
	h.levels.mu.Lock()
	h.levels.def = level
	h.levels.mu.Unlock()
}

func (h *ComponentFilterHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.component != "" {
		return level >= h.levels.level(h.component)
	}
	// The component may still arrive as a record attribute.
	return level >= h.levels.floor()
}

func (h *ComponentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == componentKey {
			component = a.Value.String()
			return false
		}
		return true
	})
	if r.Level < h.levels.level(component) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *ComponentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == componentKey {
			clone.component = a.Value.String()
		}
	}
	clone.next = h.next.WithAttrs(attrs)
	return &clone
}

func (h *ComponentFilterHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}
