package lucindex

import (
	"errors"
	"strings"
	"time"

	"github.com/grob/lucindex/engine"
)

var (
	errNilValue   = errors.New("nil value")
	errNoRanges   = errors.New("range queries are only supported on numeric and date fields")
	errEmptyRange = errors.New("range needs min or max")
)

// kindCodec implements the encode/query/decode contract of one field kind.
type kindCodec struct {
	toEngine func(f *Field, v any) (*engine.Field, error)
	// term encodes a single value the way it is indexed.
	term func(f *Field, v any) ([]byte, error)
	// query builds the leaf query for a single non-range value.
	query  func(f *Field, v any, a engine.Analyzer) (engine.Query, error)
	ranged bool
	decode func(f *Field, sf engine.StoredField) any
}

var codecs map[Kind]*kindCodec

// termQuery looks up the codec table, so the table is filled in init.
func init() {
	codecs = map[Kind]*kindCodec{
		KindText: {
			toEngine: func(f *Field, v any) (*engine.Field, error) {
				s, err := ensureString(v)
				if err != nil {
					return nil, err
				}
				return engine.NewTextField(f.name, s, f.stored), nil
			},
			term: func(f *Field, v any) ([]byte, error) {
				s, err := ensureString(v)
				if err != nil {
					return nil, err
				}
				return []byte(strings.ToLower(s)), nil
			},
			query: func(f *Field, v any, a engine.Analyzer) (engine.Query, error) {
				s, err := ensureString(v)
				if err != nil {
					return nil, err
				}
				if f.parsed {
					return engine.NewQueryParser(f.name, a).Parse(s)
				}
				return engine.NewWildcardQuery(engine.NewTerm(f.name, strings.ToLower(s))), nil
			},
			decode: decodeString,
		},
		KindString: {
			toEngine: func(f *Field, v any) (*engine.Field, error) {
				s, err := ensureString(v)
				if err != nil {
					return nil, err
				}
				return engine.NewStringField(f.name, s, f.stored), nil
			},
			term: func(f *Field, v any) ([]byte, error) {
				s, err := ensureString(v)
				if err != nil {
					return nil, err
				}
				return []byte(s), nil
			},
			query:  termQuery,
			decode: decodeString,
		},
		KindInt: {
			toEngine: func(f *Field, v any) (*engine.Field, error) {
				n, err := toInt32(v)
				if err != nil {
					return nil, err
				}
				return engine.NewIntField(f.name, n, f.stored), nil
			},
			term: func(f *Field, v any) ([]byte, error) {
				n, err := toInt32(v)
				if err != nil {
					return nil, err
				}
				return engine.EncodeInt32(n), nil
			},
			query:  termQuery,
			ranged: true,
			decode: func(f *Field, sf engine.StoredField) any {
				if n, ok := sf.Value.(int32); ok {
					return int(n)
				}
				return sf.Value
			},
		},
		KindLong: {
			toEngine: func(f *Field, v any) (*engine.Field, error) {
				n, err := toInt64(v)
				if err != nil {
					return nil, err
				}
				return engine.NewLongField(f.name, n, f.stored), nil
			},
			term: func(f *Field, v any) ([]byte, error) {
				n, err := toInt64(v)
				if err != nil {
					return nil, err
				}
				return engine.EncodeInt64(n), nil
			},
			query:  termQuery,
			ranged: true,
			decode: func(f *Field, sf engine.StoredField) any {
				return sf.Value
			},
		},
		KindDouble: {
			toEngine: func(f *Field, v any) (*engine.Field, error) {
				d, err := toFloat64(v)
				if err != nil {
					return nil, err
				}
				return engine.NewDoubleField(f.name, d, f.stored), nil
			},
			term: func(f *Field, v any) ([]byte, error) {
				d, err := toFloat64(v)
				if err != nil {
					return nil, err
				}
				return engine.EncodeFloat64(d), nil
			},
			query:  termQuery,
			ranged: true,
			decode: func(f *Field, sf engine.StoredField) any {
				return sf.Value
			},
		},
		KindDate: {
			toEngine: func(f *Field, v any) (*engine.Field, error) {
				ms, err := f.dateMillis(v)
				if err != nil {
					return nil, err
				}
				return engine.NewLongField(f.name, ms, f.stored), nil
			},
			term: func(f *Field, v any) ([]byte, error) {
				ms, err := f.dateMillis(v)
				if err != nil {
					return nil, err
				}
				return engine.EncodeInt64(ms), nil
			},
			query:  termQuery,
			ranged: true,
			decode: func(f *Field, sf engine.StoredField) any {
				if ms, ok := sf.Value.(int64); ok {
					return time.UnixMilli(ms).In(f.loc)
				}
				return sf.Value
			},
		},
	}
}

func termQuery(f *Field, v any, _ engine.Analyzer) (engine.Query, error) {
	b, err := f.codec().term(f, v)
	if err != nil {
		return nil, err
	}
	return engine.NewTermQuery(engine.Term{Field: f.name, Bytes: b}), nil
}

func decodeString(f *Field, sf engine.StoredField) any {
	return sf.Value
}

func (f *Field) dateMillis(v any) (int64, error) {
	t, err := parseDate(v, f.loc)
	if err != nil {
		return 0, err
	}
	return f.resolution.Truncate(t).UnixMilli(), nil
}
