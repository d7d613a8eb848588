package engine

import (
	"errors"
	"reflect"
	"testing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isErr(t testing.TB, err, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Errorf("** got error %v, wanted %v", err, target)
	}
}

// eachDir runs f against a Bolt directory and a memory directory.
func eachDir(t *testing.T, f func(t *testing.T, dir *Directory)) {
	t.Run("bolt", func(t *testing.T) {
		dir := must(OpenDirectory(t.TempDir(), DirectoryOptions{IsTesting: true}))
		t.Cleanup(func() { dir.Close() })
		f(t, dir)
	})
	t.Run("mem", func(t *testing.T) {
		dir := NewMemDirectory(DirectoryOptions{})
		t.Cleanup(func() { dir.Close() })
		f(t, dir)
	})
}

func person(id int32, name string) *Document {
	return NewDocument(
		NewIntField("id", id, true),
		NewTextField("name", name, true),
	)
}

func index(t testing.TB, dir *Directory, docs ...*Document) {
	t.Helper()
	w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
	ensure(w.AddDocuments(docs...))
	ensure(w.Close())
}

// searchIDs returns the stored "id" values of all hits, in hit order.
func searchIDs(t testing.TB, dir *Directory, q Query) []int32 {
	t.Helper()
	r := must(OpenReader(dir))
	defer r.Close()
	td := must(r.Search(q, 0))
	ids := []int32{}
	for _, sd := range td.ScoreDocs {
		doc := must(r.Document(sd.Doc))
		f, ok := doc.Get("id")
		if !ok {
			t.Fatalf("doc %d has no id", sd.Doc)
		}
		ids = append(ids, f.Value.(int32))
	}
	return ids
}
