// Package registry keeps named record types and builds them from YAML
// definitions. Definitions may reference each other, and themselves,
// through record fields; only extends imposes a build order.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matchboxjs/matchbox-model/core/model"
	"github.com/matchboxjs/matchbox-model/core/schema"
	"github.com/matchboxjs/matchbox-model/ports"
)

// Registry holds built types by name. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*model.Type

	// sources records the definition file of loaded types
	sources map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		types:   make(map[string]*model.Type),
		sources: make(map[string]string),
	}
}

// Register adds a type built in code.
func (r *Registry) Register(t *model.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.TypeName()]; exists {
		return &ConflictError{Conflicts: []Conflict{{Type: t.TypeName(), Sources: []string{r.sources[t.TypeName()], ""}}}}
	}
	r.types[t.TypeName()] = t
	return nil
}

// Unregister removes a type. Types built from it keep working.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; !exists {
		return fmt.Errorf("type %q not registered", name)
	}
	delete(r.types, name)
	delete(r.sources, name)
	return nil
}

// Get returns a registered type by name.
func (r *Registry) Get(name string) (*model.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// Source returns the file the named type was loaded from, if any.
func (r *Registry) Source(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// List returns all registered types sorted by name.
func (r *Registry) List() []*model.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*model.Type, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].TypeName() < types[j].TypeName()
	})
	return types
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Options configure the types Load builds.
type Options struct {
	// Storages are attached to every root type under their map key.
	Storages map[string]ports.Storage

	// IDs generates keys for keyed records stored without one.
	IDs ports.IDGenerator

	// Strict forces strict field handling on every type.
	Strict bool

	// Logger is handed to every type.
	Logger zerolog.Logger
}

// Load builds and registers the given definitions as one batch. Either
// every definition is registered or none is.
func (r *Registry) Load(defs []schema.Definition, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]schema.Definition, len(defs))
	var conflicts []Conflict
	for _, def := range defs {
		if err := schema.Validate(def); err != nil {
			return fmt.Errorf("%s: %w", sourceOf(def), err)
		}
		if prev, dup := batch[def.Type]; dup {
			conflicts = append(conflicts, Conflict{Type: def.Type, Sources: []string{prev.Source, def.Source}})
			continue
		}
		if _, exists := r.types[def.Type]; exists {
			conflicts = append(conflicts, Conflict{Type: def.Type, Sources: []string{r.sources[def.Type], def.Source}})
			continue
		}
		batch[def.Type] = def
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	order, err := buildOrder(batch, r.types)
	if err != nil {
		return err
	}

	built := make(map[string]*model.Type, len(order))
	resolve := func(name string) (schema.RecordType, error) {
		if _, ok := batch[name]; ok {
			return &typeRef{name: name, built: built}, nil
		}
		if t, ok := r.types[name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown record type %q", name)
	}

	for _, name := range order {
		t, err := build(batch[name], built, r.types, resolve, opts)
		if err != nil {
			return err
		}
		built[name] = t
	}

	for name, t := range built {
		r.types[name] = t
		r.sources[name] = batch[name].Source
	}
	opts.Logger.Debug().Int("types", len(built)).Msg("type definitions loaded")
	return nil
}

// LoadDir parses every definition under dir and loads them.
func (r *Registry) LoadDir(dir string, opts Options) error {
	defs, err := schema.ParseDir(dir)
	if err != nil {
		return err
	}
	return r.Load(defs, opts)
}

func build(def schema.Definition, built, existing map[string]*model.Type, resolve schema.TypeResolver, opts Options) (*model.Type, error) {
	var b *model.Builder
	if def.Extends != "" {
		parent, ok := built[def.Extends]
		if !ok {
			parent = existing[def.Extends]
		}
		b = parent.Extend(def.Type)
		if def.Strict || opts.Strict {
			b.Strict(true)
		}
	} else {
		b = model.Define(def.Type).Strict(def.Strict || opts.Strict)
		for name, st := range opts.Storages {
			b.Storage(name, st)
		}
		if opts.IDs != nil {
			b.IDs(opts.IDs)
		}
	}
	b.Logger(opts.Logger.With().Str("type", def.Type).Logger())

	for _, f := range def.Fields {
		p, err := f.Property(resolve)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sourceOf(def), err)
		}
		b.Field(f.Name, p)
	}
	names := make([]string, 0, len(def.Slices))
	for name := range def.Slices {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.Slice(name, def.Slices[name])
	}
	if def.Key != "" {
		b.Key(def.Key)
	}

	t, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sourceOf(def), err)
	}
	return t, nil
}

// buildOrder sorts the batch so every type comes after the type it
// extends. Parents outside the batch must already be registered.
func buildOrder(batch map[string]schema.Definition, existing map[string]*model.Type) ([]string, error) {
	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(batch))
	order := make([]string, 0, len(batch))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: extends cycle %s", schema.ErrInvalidDefinition, strings.Join(append(path, name), " -> "))
		}
		state[name] = visiting
		def := batch[name]
		if parent := def.Extends; parent != "" {
			if _, inBatch := batch[parent]; inBatch {
				if err := visit(parent, append(path, name)); err != nil {
					return err
				}
			} else if _, ok := existing[parent]; !ok {
				return fmt.Errorf("%s: %w: extends unknown type %q", sourceOf(def), schema.ErrInvalidDefinition, parent)
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func sourceOf(def schema.Definition) string {
	if def.Source != "" {
		return def.Source
	}
	return def.Type
}

// typeRef stands in for a type of the same batch, which may not be built
// yet when a record field points to it. It resolves on use.
type typeRef struct {
	name  string
	built map[string]*model.Type
}

func (t *typeRef) TypeName() string { return t.name }

func (t *typeRef) target() *model.Type {
	target, ok := t.built[t.name]
	if !ok {
		panic(fmt.Sprintf("registry: record type %q used before it was built", t.name))
	}
	return target
}

func (t *typeRef) New() schema.Instance { return t.target().New() }

func (t *typeRef) IsInstance(v any) bool { return t.target().IsInstance(v) }

// Conflict is a type name claimed twice.
type Conflict struct {
	Type    string
	Sources []string
}

func (c Conflict) String() string {
	var srcs []string
	for _, s := range c.Sources {
		if s == "" {
			s = "<code>"
		}
		srcs = append(srcs, s)
	}
	return fmt.Sprintf("type %q defined by %s", c.Type, strings.Join(srcs, " and "))
}

// ConflictError represents one or more duplicate type names.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.String())
	}
	return fmt.Sprintf("type conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
