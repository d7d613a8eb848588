package lucindex

import (
	"slices"
	"sync"

	"github.com/grob/lucindex/engine"
)

// Fields is the set of field definitions of an index. Names that were never
// registered resolve to an unstored ParsedTextField, created on first use
// and kept.
type Fields struct {
	mu       sync.RWMutex
	fields   map[string]*Field
	fallback map[string]*Field
}

func NewFields(fields ...*Field) (*Fields, error) {
	fs := &Fields{
		fields:   make(map[string]*Field),
		fallback: make(map[string]*Field),
	}
	for _, f := range fields {
		if err := fs.Register(f); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Register adds a field definition. Names must be unique.
func (fs *Fields) Register(f *Field) error {
	if f == nil || f.name == "" {
		return argErrf("field needs a name")
	}
	if err := validName(f.name); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, dup := fs.fields[f.name]; dup {
		return argErrf("field %q is already registered", f.name)
	}
	fs.fields[f.name] = f
	delete(fs.fallback, f.name)
	return nil
}

func validName(name string) error {
	switch name {
	case "MUST", "MUST_NOT", "SHOULD":
		return argErrf("%q is reserved for condition maps", name)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			return argErrf("field name %q contains a NUL byte", name)
		}
	}
	return nil
}

// Lookup returns a registered field.
func (fs *Fields) Lookup(name string) (*Field, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	f, ok := fs.fields[name]
	return f, ok
}

// Field returns the definition for name, falling back to a parsed text field.
func (fs *Fields) Field(name string) *Field {
	fs.mu.RLock()
	f := fs.fields[name]
	if f == nil {
		f = fs.fallback[name]
	}
	fs.mu.RUnlock()
	if f != nil {
		return f
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f := fs.fields[name]; f != nil {
		return f
	}
	if f := fs.fallback[name]; f != nil {
		return f
	}
	f = ParsedTextField(name, false)
	fs.fallback[name] = f
	return f
}

// Len returns the number of registered fields.
func (fs *Fields) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.fields)
}

// Names returns the registered field names in sorted order.
func (fs *Fields) Names() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	names := make([]string, 0, len(fs.fields))
	for name := range fs.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Document converts rec into an engine document. Nil values are skipped.
func (fs *Fields) Document(rec Record) (*engine.Document, error) {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	slices.Sort(names)

	doc := engine.NewDocument()
	for _, name := range names {
		if err := validName(name); err != nil {
			return nil, err
		}
		values := []any{rec[name]}
		if vs, ok := rec[name].([]any); ok {
			values = vs
		}
		f := fs.Field(name)
		for _, v := range values {
			ef, err := f.ToStorage(v)
			if err != nil {
				return nil, err
			}
			if ef != nil {
				doc.Add(ef)
			}
		}
	}
	return doc, nil
}

// Record converts stored engine fields back into a record. Repeated fields
// become []any.
func (fs *Fields) Record(doc engine.StoredDocument) Record {
	rec := make(Record, len(doc))
	for _, sf := range doc {
		v, ok := fs.Field(sf.Name).ToApplication(sf)
		if !ok {
			continue
		}
		switch prev := rec[sf.Name].(type) {
		case nil:
			rec[sf.Name] = v
		case []any:
			rec[sf.Name] = append(prev, v)
		default:
			rec[sf.Name] = []any{prev, v}
		}
	}
	return rec
}
