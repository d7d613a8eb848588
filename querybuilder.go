package lucindex

import (
	"reflect"
	"slices"

	"github.com/grob/lucindex/engine"
)

// QueryBuilder assembles field conditions into one query.
//
// A single Should condition is returned as is. A Must or Not condition, or
// a second condition, turns the query into a BooleanQuery owned by the
// builder, with earlier conditions kept as Should clauses.
type QueryBuilder struct {
	fields   *Fields
	analyzer engine.Analyzer
	query    engine.Query
	root     *engine.BooleanQuery
}

func NewQueryBuilder(fields *Fields, analyzer engine.Analyzer) *QueryBuilder {
	if analyzer == nil {
		analyzer = engine.NewStandardAnalyzer()
	}
	return &QueryBuilder{fields: fields, analyzer: analyzer}
}

// Should adds a condition at least one of which has to match. value may
// be a slice, adding one condition per element.
func (qb *QueryBuilder) Should(name string, value any) error {
	return qb.convertAndAdd(name, value, engine.Should)
}

// Must adds a condition that has to match.
func (qb *QueryBuilder) Must(name string, value any) error {
	return qb.convertAndAdd(name, value, engine.Must)
}

// Not adds a condition that must not match.
func (qb *QueryBuilder) Not(name string, value any) error {
	return qb.convertAndAdd(name, value, engine.MustNot)
}

func (qb *QueryBuilder) convertAndAdd(name string, value any, occur engine.Occur) error {
	if qb.fields == nil || qb.fields.Len() == 0 {
		return argErrf("no fields registered")
	}
	if value == nil {
		return argErrf("%s: a query value is required", name)
	}
	if _, ok := value.(engine.Query); ok {
		return argErrf("%s: got a query where a field value was expected, use AddCondition", name)
	}
	if elems, ok := sliceElems(value); ok {
		for _, elem := range elems {
			if err := qb.convertAndAdd(name, elem, occur); err != nil {
				return err
			}
		}
		return nil
	}
	q, err := qb.fields.Field(name).Query(value, qb.analyzer)
	if err != nil {
		return err
	}
	if q == nil {
		return nil
	}
	return qb.AddCondition(q, occur)
}

// sliceElems returns the elements of slice and array values other than
// []byte.
func sliceElems(value any) ([]any, bool) {
	if _, ok := value.([]byte); ok {
		return nil, false
	}
	if vs, ok := value.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

// AddCondition adds a prebuilt query.
func (qb *QueryBuilder) AddCondition(q engine.Query, occur engine.Occur) error {
	if q == nil {
		return argErrf("nil query")
	}
	if !slices.Contains([]engine.Occur{engine.Should, engine.Must, engine.MustNot}, occur) {
		return argErrf("invalid occur %v", occur)
	}
	if qb.query == nil && occur == engine.Should {
		qb.query = q
		return nil
	}
	if qb.root == nil {
		root := engine.NewBooleanQuery()
		if qb.query != nil {
			root.Add(qb.query, engine.Should)
		}
		qb.root = root
		qb.query = root
	}
	qb.root.Add(q, occur)
	return nil
}

// Query returns the assembled query, or nil if no condition was added.
func (qb *QueryBuilder) Query() engine.Query {
	return qb.query
}

func (qb *QueryBuilder) Reset() {
	qb.query = nil
	qb.root = nil
}
