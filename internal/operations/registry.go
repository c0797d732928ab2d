package operations

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/primaai/agent-gateway/pkg/models"
)

type entry struct {
	op     Operation
	def    models.FunctionDefinition
	schema *jsonschema.Schema
}

// Registry maps operation names to their definitions and handlers. It is
// built once and only read afterwards, so it is safe for concurrent use.
type Registry struct {
	order   []string
	entries map[string]entry
}

// NewRegistry registers ops in order and compiles each parameter schema.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{entries: make(map[string]entry, len(ops))}

	for _, op := range ops {
		def := op.Definition()
		if def.Name == "" {
			return nil, fmt.Errorf("register operation: empty name")
		}
		if _, dup := r.entries[def.Name]; dup {
			return nil, fmt.Errorf("register operation %s: already registered", def.Name)
		}
		raw, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("register operation %s: encode schema: %w", def.Name, err)
		}
		schema, err := jsonschema.NewCompiler().Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("register operation %s: compile schema: %w", def.Name, err)
		}
		r.order = append(r.order, def.Name)
		r.entries[def.Name] = entry{op: op, def: def, schema: schema}
	}
	return r, nil
}

// Default registers the five booking operations against b. It panics if a
// built-in schema fails to compile.
func Default(b Backend) *Registry {
	r, err := NewRegistry(
		NewSearchVenues(b),
		NewCheckAvailability(b),
		NewCreateBooking(b),
		NewGetAnalytics(b),
		NewGetUserInfo(b),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the operation registered under name.
func (r *Registry) Get(name string) (Operation, bool) {
	e, ok := r.entries[name]
	return e.op, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Definitions returns every definition in registration order.
func (r *Registry) Definitions() []models.FunctionDefinition {
	out := make([]models.FunctionDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].def)
	}
	return out
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
