package strategy

import (
	"logsift/internal/record"
)

// Registry maps (field, operator) pairs of one record kind to strategies.
// It is built once at wiring time from a schema and is read-only after;
// no mutex is needed.
type Registry[R any] struct {
	schema *record.Schema[R]
}

// NewRegistry builds a registry over schema.
func NewRegistry[R any](schema *record.Schema[R]) *Registry[R] {
	return &Registry[R]{schema: schema}
}

// NewLogRegistry returns the registry for generic log entries.
func NewLogRegistry() *Registry[*record.LogEntry] {
	return NewRegistry(record.LogSchema())
}

// NewIISRegistry returns the registry for IIS W3C entries.
func NewIISRegistry() *Registry[*record.IISEntry] {
	return NewRegistry(record.IISSchema())
}

// NewRabbitRegistry returns the registry for RabbitMQ entries.
func NewRabbitRegistry() *Registry[*record.RabbitEntry] {
	return NewRegistry(record.RabbitSchema())
}

// Kind returns the record kind this registry serves.
func (r *Registry[R]) Kind() record.Kind {
	return r.schema.Kind()
}

// CreateStrategy returns a fresh strategy for the pair. Callers that run
// independent pipelines get independent instances.
func (r *Registry[R]) CreateStrategy(field, op string) (Strategy[R], error) {
	f, ok := r.schema.Lookup(field)
	if !ok {
		return nil, &UnsupportedError{Field: field, Operator: op, Err: ErrUnsupportedField}
	}
	return New(f, op)
}

// IsFieldSupported reports whether field exists in the schema.
func (r *Registry[R]) IsFieldSupported(field string) bool {
	_, ok := r.schema.Lookup(field)
	return ok
}

// IsOperatorSupported reports whether field supports op (aliases allowed).
func (r *Registry[R]) IsOperatorSupported(field, op string) bool {
	f, ok := r.schema.Lookup(field)
	if !ok {
		return false
	}
	return supportsOperator(f.Type, CanonicalOperator(op))
}

// Fields returns the canonical field names in schema order.
func (r *Registry[R]) Fields() []string {
	fields := r.schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Operators returns the operators field supports, or nil if the field is
// unknown.
func (r *Registry[R]) Operators(field string) []string {
	f, ok := r.schema.Lookup(field)
	if !ok {
		return nil
	}
	return OperatorsFor(f.Type)
}

// FieldType returns the type of field.
func (r *Registry[R]) FieldType(field string) (record.FieldType, bool) {
	f, ok := r.schema.Lookup(field)
	if !ok {
		return 0, false
	}
	return f.Type, true
}

// Field returns the schema field for name.
func (r *Registry[R]) Field(name string) (record.Field[R], bool) {
	return r.schema.Lookup(name)
}

// Register is not supported: registries are fixed per record kind.
func (r *Registry[R]) Register(record.Field[R]) error {
	return ErrRegistrySealed
}

// Unregister is not supported: registries are fixed per record kind.
func (r *Registry[R]) Unregister(string) error {
	return ErrRegistrySealed
}
