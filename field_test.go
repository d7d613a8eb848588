package lucindex

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/grob/lucindex/engine"
)

func TestField_ToStorage(t *testing.T) {
	tests := []struct {
		field *Field
		value any
		kind  engine.FieldKind
		e     any
	}{
		{TextField("name", true), "Bernd", engine.KindText, "Bernd"},
		{StringField("code", false), "AB-1", engine.KindString, "AB-1"},
		{IntField("id", true), 42, engine.KindInt, int32(42)},
		{IntField("id", true), "42", engine.KindInt, int32(42)},
		{LongField("n", true), int64(1) << 40, engine.KindLong, int64(1) << 40},
		{DoubleField("price", true), 1.5, engine.KindDouble, 1.5},
		{DoubleField("price", true), 3, engine.KindDouble, 3.0},
		{DateField("born", true, ResolutionDay), "2024-03-05T13:14:15Z", engine.KindLong, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).UnixMilli()},
	}
	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			ef := must(tt.field.ToStorage(tt.value))
			deepEqual(t, ef.Name, tt.field.Name())
			deepEqual(t, ef.Kind, tt.kind)
			deepEqual(t, ef.Value, tt.e)
			deepEqual(t, ef.Stored, tt.field.Stored())
		})
	}
}

func TestField_ToStorage_nil(t *testing.T) {
	ef, err := IntField("id", true).ToStorage(nil)
	if ef != nil || err != nil {
		t.Errorf("** got %v, %v, wanted nil, nil", ef, err)
	}
}

func TestField_ToStorage_errors(t *testing.T) {
	tests := []struct {
		field *Field
		value any
	}{
		{IntField("id", true), "abc"},
		{IntField("id", true), int64(1) << 40},
		{IntField("id", true), 1.5},
		{DoubleField("price", true), "cheap"},
		{DateField("born", true, ResolutionDay), "yesterday"},
		{TextField("name", true), struct{}{}},
	}
	for _, tt := range tests {
		_, err := tt.field.ToStorage(tt.value)
		var fe *FieldEncodingError
		if !errors.As(err, &fe) {
			t.Errorf("** %v(%v): got %v, wanted FieldEncodingError", tt.field, tt.value, err)
			continue
		}
		deepEqual(t, fe.Field, tt.field.Name())
	}
}

func TestField_EncodeForQuery(t *testing.T) {
	deepEqual(t, must(TextField("name", true).EncodeForQuery("Bernd")), []byte("bernd"))
	deepEqual(t, must(StringField("code", true).EncodeForQuery("Bernd")), []byte("Bernd"))
	deepEqual(t, must(IntField("id", true).EncodeForQuery(7)), engine.EncodeInt32(7))
	deepEqual(t, must(IntField("id", true).EncodeForQuery(map[string]any{"value": 7})), engine.EncodeInt32(7))
	deepEqual(t, must(LongField("n", true).EncodeForQuery(7)), engine.EncodeInt64(7))
	deepEqual(t, must(DoubleField("price", true).EncodeForQuery(-0.0)), engine.EncodeFloat64(0))

	_, err := IntField("id", true).EncodeForQuery(nil)
	var qe *QueryTypeError
	if !errors.As(err, &qe) {
		t.Errorf("** got %v, wanted QueryTypeError", err)
	}
}

func TestField_EncodeForQuery_sortable(t *testing.T) {
	ints := []any{-1 << 31, -5, -1, 0, 1, 5, 1<<31 - 1}
	doubles := []any{-1e300, -2.5, -1e-300, 0.0, 1e-300, 2.5, 1e300}
	dates := []any{"1969-12-31", "1970-01-01", "2000-02-29", "2024-03-05"}
	for _, c := range []struct {
		field  *Field
		values []any
	}{
		{IntField("i", false), ints},
		{LongField("l", false), ints},
		{DoubleField("d", false), doubles},
		{DateField("t", false, ResolutionDay), dates},
	} {
		var prev []byte
		for _, v := range c.values {
			b := must(c.field.EncodeForQuery(v))
			if prev != nil && bytes.Compare(prev, b) >= 0 {
				t.Errorf("** %v: encoding of %v does not sort after its predecessor", c.field, v)
			}
			prev = b
		}
	}
}

func TestField_Query(t *testing.T) {
	a := engine.NewStandardAnalyzer()

	q := must(TextField("name", true).Query("Be*", a))
	deepEqual[engine.Query](t, q, engine.NewWildcardQuery(engine.NewTerm("name", "be*")))

	q = must(StringField("code", true).Query("Be*", a))
	deepEqual[engine.Query](t, q, engine.NewTermQuery(engine.NewTerm("code", "Be*")))

	q = must(IntField("id", true).Query(Range{Min: 1, Max: 3}, a))
	deepEqual[engine.Query](t, q, engine.NewTermRangeQuery("id", engine.EncodeInt32(1), engine.EncodeInt32(3), true, true))

	q = must(IntField("id", true).Query(map[string]any{"min": 2}, a))
	deepEqual[engine.Query](t, q, engine.NewTermRangeQuery("id", engine.EncodeInt32(2), nil, true, true))

	q = must(ParsedTextField("body", false).Query("foo bar", a))
	deepEqual(t, q.String(), "body:foo body:bar")

	q = must(IntField("id", true).Query(nil, a))
	if q != nil {
		t.Errorf("** got %v for nil value, wanted nil", q)
	}
}

func TestField_Query_errors(t *testing.T) {
	a := engine.NewStandardAnalyzer()
	tests := []struct {
		field *Field
		value any
		err   error
	}{
		{TextField("name", true), Range{Min: "a", Max: "b"}, errNoRanges},
		{StringField("code", true), map[string]any{"min": "a"}, errNoRanges},
		{IntField("id", true), Range{}, errEmptyRange},
		{IntField("id", true), Range{Min: "x"}, errNotNumeric},
	}
	for _, tt := range tests {
		_, err := tt.field.Query(tt.value, a)
		var qe *QueryTypeError
		if !errors.As(err, &qe) {
			t.Errorf("** %v(%v): got %v, wanted QueryTypeError", tt.field, tt.value, err)
			continue
		}
		isErr(t, err, tt.err)
	}
}

func TestField_ToApplication(t *testing.T) {
	sf := func(kind engine.FieldKind, v any) engine.StoredField {
		return engine.StoredField{Name: "f", Kind: kind, Stored: true, Value: v}
	}
	v, _ := IntField("f", true).ToApplication(sf(engine.KindInt, int32(7)))
	deepEqual[any](t, v, 7)
	v, _ = LongField("f", true).ToApplication(sf(engine.KindLong, int64(7)))
	deepEqual[any](t, v, int64(7))
	v, _ = DoubleField("f", true).ToApplication(sf(engine.KindDouble, 0.25))
	deepEqual[any](t, v, 0.25)
	v, _ = TextField("f", true).ToApplication(sf(engine.KindText, "Bernd"))
	deepEqual[any](t, v, "Bernd")

	ms := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).UnixMilli()
	v, _ = DateField("f", true, ResolutionDay).ToApplication(sf(engine.KindLong, ms))
	if tm, ok := v.(time.Time); !ok || !tm.Equal(time.UnixMilli(ms)) {
		t.Errorf("** got %v, wanted 2024-03-05", v)
	}

	_, ok := IntField("f", false).ToApplication(engine.StoredField{Name: "f", Kind: engine.KindInt, Value: int32(1)})
	if ok {
		t.Errorf("** unstored field decoded")
	}
}

func TestField_dateRoundTrip(t *testing.T) {
	f := DateField("born", true, ResolutionMinute)
	in := time.Date(2024, 3, 5, 13, 14, 15, 999_000_000, time.UTC)
	ef := must(f.ToStorage(in))
	out, _ := f.ToApplication(engine.StoredField{Name: ef.Name, Kind: ef.Kind, Stored: true, Value: ef.Value})
	deepEqual[any](t, out, time.Date(2024, 3, 5, 13, 14, 0, 0, time.UTC))
}

func TestField_In(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	f := DateField("born", true, ResolutionDay).In(loc)
	ef := must(f.ToStorage("2024-03-05T23:30:00Z"))
	// 23:30 UTC is already March 6th at +02:00
	deepEqual[any](t, ef.Value, time.Date(2024, 3, 6, 0, 0, 0, 0, loc).UnixMilli())
}

func TestResolution_Truncate(t *testing.T) {
	in := time.Date(2024, 7, 15, 13, 14, 15, 123_456_789, time.UTC)
	tests := []struct {
		res Resolution
		e   time.Time
	}{
		{ResolutionMillisecond, time.Date(2024, 7, 15, 13, 14, 15, 123_000_000, time.UTC)},
		{ResolutionSecond, time.Date(2024, 7, 15, 13, 14, 15, 0, time.UTC)},
		{ResolutionMinute, time.Date(2024, 7, 15, 13, 14, 0, 0, time.UTC)},
		{ResolutionHour, time.Date(2024, 7, 15, 13, 0, 0, 0, time.UTC)},
		{ResolutionDay, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)},
		{ResolutionMonth, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ResolutionYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			deepEqual(t, tt.res.Truncate(in), tt.e)
		})
	}
}

func TestParseResolution(t *testing.T) {
	deepEqual(t, must(ParseResolution("Day")), ResolutionDay)
	deepEqual(t, must(ParseResolution("")), ResolutionMillisecond)
	if _, err := ParseResolution("fortnight"); err == nil {
		t.Errorf("** fortnight accepted")
	}
}

func TestParseKind(t *testing.T) {
	deepEqual(t, must(ParseKind("integer")), KindInt)
	deepEqual(t, must(ParseKind(" Date ")), KindDate)
	if _, err := ParseKind("blob"); err == nil {
		t.Errorf("** blob accepted")
	}
}

func TestParseDate(t *testing.T) {
	e := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, v := range []any{"2024-03-05", "2024-03-05T00:00:00Z", e.UnixMilli(), "1709596800000", e} {
		tm, err := parseDate(v, time.UTC)
		if err != nil {
			t.Errorf("** %v: %v", v, err)
		} else if !tm.Equal(e) {
			t.Errorf("** %v: got %v, wanted %v", v, tm, e)
		}
	}
	deepEqual(t, must(parseDate("2024", time.UTC)), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}
