package lucindex

import (
	"slices"

	"github.com/grob/lucindex/engine"
)

// CreateQuery builds a BooleanQuery from a condition map. Top-level entries
// are Should clauses; the entries of the "MUST", "MUST_NOT" and "SHOULD"
// sub-maps get the respective occurrence. Values are scalars, slices (one
// clause per element), {"value": x} maps, or ranges (Range or {"min", "max"}
// maps):
//
//	{"text": "test", "id": {"min": 1, "max": 10}, "MUST_NOT": {"id": 5}}
func CreateQuery(fields *Fields, analyzer engine.Analyzer, conditions map[string]any) (*engine.BooleanQuery, error) {
	if analyzer == nil {
		analyzer = engine.NewStandardAnalyzer()
	}
	bq := engine.NewBooleanQuery()
	if err := addConditions(bq, fields, analyzer, conditions, engine.Should); err != nil {
		return nil, err
	}
	for _, sub := range []struct {
		key   string
		occur engine.Occur
	}{
		{"SHOULD", engine.Should},
		{"MUST", engine.Must},
		{"MUST_NOT", engine.MustNot},
	} {
		v, found := conditions[sub.key]
		if !found || v == nil {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, argErrf("%s must be a map of field conditions, got %T", sub.key, v)
		}
		if err := addConditions(bq, fields, analyzer, m, sub.occur); err != nil {
			return nil, err
		}
	}
	return bq, nil
}

func addConditions(bq *engine.BooleanQuery, fields *Fields, analyzer engine.Analyzer, conditions map[string]any, occur engine.Occur) error {
	names := make([]string, 0, len(conditions))
	for name := range conditions {
		switch name {
		case "MUST", "MUST_NOT", "SHOULD":
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		values := []any{conditions[name]}
		if elems, ok := sliceElems(conditions[name]); ok {
			values = elems
		}
		f := fields.Field(name)
		for _, v := range values {
			q, err := f.Query(v, analyzer)
			if err != nil {
				return err
			}
			if q != nil {
				bq.Add(q, occur)
			}
		}
	}
	return nil
}
