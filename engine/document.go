package engine

import (
	"fmt"
	"strconv"
)

// FieldKind selects how a field value is indexed and stored.
type FieldKind uint8

const (
	// KindString is indexed as a single untokenized term.
	KindString FieldKind = iota + 1
	// KindText is tokenized by the writer's Analyzer.
	KindText
	KindInt
	KindLong
	KindDouble
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindDouble:
		return "double"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Field is one engine-native field of a Document. Value holds a string for
// KindString/KindText, int32 for KindInt, int64 for KindLong and float64 for
// KindDouble.
type Field struct {
	Name   string
	Kind   FieldKind
	Stored bool
	Value  any
}

func NewStringField(name, value string, stored bool) *Field {
	return &Field{Name: name, Kind: KindString, Stored: stored, Value: value}
}

func NewTextField(name, value string, stored bool) *Field {
	return &Field{Name: name, Kind: KindText, Stored: stored, Value: value}
}

func NewIntField(name string, value int32, stored bool) *Field {
	return &Field{Name: name, Kind: KindInt, Stored: stored, Value: value}
}

func NewLongField(name string, value int64, stored bool) *Field {
	return &Field{Name: name, Kind: KindLong, Stored: stored, Value: value}
}

func NewDoubleField(name string, value float64, stored bool) *Field {
	return &Field{Name: name, Kind: KindDouble, Stored: stored, Value: value}
}

func (f *Field) validate() error {
	if err := validateFieldName(f.Name); err != nil {
		return err
	}
	var ok bool
	switch f.Kind {
	case KindString, KindText:
		_, ok = f.Value.(string)
	case KindInt:
		_, ok = f.Value.(int32)
	case KindLong:
		_, ok = f.Value.(int64)
	case KindDouble:
		_, ok = f.Value.(float64)
	}
	if !ok {
		return fmt.Errorf("field %s: %T value is invalid for %v field", f.Name, f.Value, f.Kind)
	}
	return nil
}

// terms returns the postings terms contributed by the field.
func (f *Field) terms(analyzer Analyzer) [][]byte {
	switch f.Kind {
	case KindString:
		return [][]byte{[]byte(f.Value.(string))}
	case KindText:
		tokens := analyzer.Tokens(f.Name, f.Value.(string))
		terms := make([][]byte, 0, len(tokens))
		for _, tok := range tokens {
			terms = append(terms, []byte(tok))
		}
		return terms
	case KindInt:
		return [][]byte{EncodeInt32(f.Value.(int32))}
	case KindLong:
		return [][]byte{EncodeInt64(f.Value.(int64))}
	case KindDouble:
		return [][]byte{EncodeFloat64(f.Value.(float64))}
	default:
		panic(fmt.Errorf("unknown field kind %v", f.Kind))
	}
}

// Document is an ordered list of fields; a name may repeat.
type Document struct {
	Fields []*Field
}

func NewDocument(fields ...*Field) *Document {
	return &Document{Fields: fields}
}

func (d *Document) Add(f *Field) {
	d.Fields = append(d.Fields, f)
}

// Get returns the first field with the given name, or nil.
func (d *Document) Get(name string) *Field {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// StoredField is a field value read back from a read view.
type StoredField struct {
	Name   string
	Kind   FieldKind
	Stored bool
	Value  any
}

// StoredDocument holds the stored fields of one document, in indexing order.
type StoredDocument []StoredField

// Get returns the first stored field with the given name.
func (d StoredDocument) Get(name string) (StoredField, bool) {
	for _, f := range d {
		if f.Name == name {
			return f, true
		}
	}
	return StoredField{}, false
}
