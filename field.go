package lucindex

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grob/lucindex/engine"
)

// Kind is the type of a field. It decides how values are indexed, queried
// and read back.
type Kind int

const (
	// KindText is tokenized by the analyzer and queried with wildcards.
	KindText Kind = iota + 1
	// KindString is indexed verbatim and matched exactly.
	KindString
	KindInt
	KindLong
	KindDouble
	// KindDate is indexed as epoch milliseconds, truncated to a Resolution.
	KindDate
)

var kindNames = map[Kind]string{
	KindText:   "text",
	KindString: "string",
	KindInt:    "int",
	KindLong:   "long",
	KindDouble: "double",
	KindDate:   "date",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if s == name {
			return k, nil
		}
	}
	switch s {
	case "integer":
		return KindInt, nil
	case "float":
		return KindDouble, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Field defines one named attribute of a record. Fields are immutable;
// changing the kind of a field after data has been indexed yields
// meaningless query results.
type Field struct {
	name       string
	kind       Kind
	stored     bool
	parsed     bool
	resolution Resolution
	loc        *time.Location
}

func newField(name string, kind Kind, stored bool) *Field {
	return &Field{name: name, kind: kind, stored: stored, loc: time.UTC}
}

// TextField is tokenized; queries are wildcard matches on the lower-cased
// value (be* finds Bernd).
func TextField(name string, stored bool) *Field {
	return newField(name, KindText, stored)
}

// ParsedTextField is a TextField whose query values are parsed with
// engine.QueryParser instead.
func ParsedTextField(name string, stored bool) *Field {
	f := newField(name, KindText, stored)
	f.parsed = true
	return f
}

func StringField(name string, stored bool) *Field {
	return newField(name, KindString, stored)
}

func IntField(name string, stored bool) *Field {
	return newField(name, KindInt, stored)
}

func LongField(name string, stored bool) *Field {
	return newField(name, KindLong, stored)
}

func DoubleField(name string, stored bool) *Field {
	return newField(name, KindDouble, stored)
}

func DateField(name string, stored bool, res Resolution) *Field {
	f := newField(name, KindDate, stored)
	f.resolution = res
	return f
}

// In returns a copy of a date field that truncates and reports times in loc
// instead of UTC.
func (f *Field) In(loc *time.Location) *Field {
	c := *f
	c.loc = loc
	return &c
}

func (f *Field) Name() string           { return f.name }
func (f *Field) Kind() Kind             { return f.kind }
func (f *Field) Stored() bool           { return f.stored }
func (f *Field) Parsed() bool           { return f.parsed }
func (f *Field) Resolution() Resolution { return f.resolution }

func (f *Field) String() string {
	var buf strings.Builder
	buf.WriteString(f.name)
	buf.WriteByte(':')
	buf.WriteString(f.kind.String())
	if f.kind == KindDate {
		buf.WriteByte('/')
		buf.WriteString(f.resolution.String())
	}
	if f.parsed {
		buf.WriteString(",parsed")
	}
	if f.stored {
		buf.WriteString(",stored")
	}
	return buf.String()
}

func (f *Field) codec() *kindCodec {
	c := codecs[f.kind]
	if c == nil {
		panic(fmt.Errorf("field %s: unknown kind %v", f.name, f.kind))
	}
	return c
}

// ToStorage converts value into the engine field to index. It returns nil
// for nil values, which are not indexed.
func (f *Field) ToStorage(value any) (*engine.Field, error) {
	if value == nil {
		return nil, nil
	}
	ef, err := f.codec().toEngine(f, value)
	if err != nil {
		return nil, &FieldEncodingError{Field: f.name, Kind: f.kind, Value: value, Err: err}
	}
	return ef, nil
}

// EncodeForQuery returns the indexed term bytes value would be stored under.
// Numeric and date terms sort in value order.
func (f *Field) EncodeForQuery(value any) ([]byte, error) {
	if value == nil {
		return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: value, Err: errNilValue}
	}
	term, err := f.codec().term(f, unwrapValue(value))
	if err != nil {
		return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: value, Err: err}
	}
	return term, nil
}

// Term returns the term identifying records by value, as used by update and
// remove.
func (f *Field) Term(value any) (engine.Term, error) {
	b, err := f.EncodeForQuery(value)
	if err != nil {
		return engine.Term{}, err
	}
	return engine.Term{Field: f.name, Bytes: b}, nil
}

// Query builds the query matching value: an exact or wildcard match for
// scalars, or an inclusive range for Range values and {"min", "max"} maps
// on numeric and date fields. A nil value yields a nil query.
func (f *Field) Query(value any, analyzer engine.Analyzer) (engine.Query, error) {
	if value == nil {
		return nil, nil
	}
	c := f.codec()
	value = unwrapValue(value)
	if r, ok := rangeOf(value); ok {
		if !c.ranged {
			return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: value, Err: errNoRanges}
		}
		if r.Min == nil && r.Max == nil {
			return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: value, Err: errEmptyRange}
		}
		var lo, hi []byte
		var err error
		if r.Min != nil {
			if lo, err = c.term(f, r.Min); err != nil {
				return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: r.Min, Err: err}
			}
		}
		if r.Max != nil {
			if hi, err = c.term(f, r.Max); err != nil {
				return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: r.Max, Err: err}
			}
		}
		return engine.NewTermRangeQuery(f.name, lo, hi, true, true), nil
	}
	q, err := c.query(f, value, analyzer)
	if err != nil {
		return nil, &QueryTypeError{Field: f.name, Kind: f.kind, Value: value, Err: err}
	}
	return q, nil
}

// ToApplication converts a stored engine value back. ok is false for fields
// that were not stored.
func (f *Field) ToApplication(sf engine.StoredField) (value any, ok bool) {
	if !sf.Stored {
		return nil, false
	}
	return f.codec().decode(f, sf), true
}
