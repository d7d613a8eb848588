package engine

import (
	"strings"
	"testing"
)

func TestWriter_AddAndSearch(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		index(t, dir, person(1, "bernd"), person(2, "tom"), person(3, "Bernhard Tom"))

		deepEqual(t, searchIDs(t, dir, NewTermQuery(NewTerm("name", "tom"))), []int32{2, 3})
		deepEqual(t, searchIDs(t, dir, NewWildcardQuery(NewTerm("name", "ber*"))), []int32{1, 3})
		deepEqual(t, searchIDs(t, dir, NewPrefixQuery(NewTerm("name", "bern"))), []int32{1, 3})
		deepEqual(t, searchIDs(t, dir, NewWildcardQuery(NewTerm("name", "t?m"))), []int32{2, 3})
		deepEqual(t, searchIDs(t, dir, NewTermQuery(Term{Field: "id", Bytes: EncodeInt32(2)})), []int32{2})
		deepEqual(t, searchIDs(t, dir, NewTermQuery(NewTerm("name", "nobody"))), []int32{})
	})
}

func TestWriter_RangeBoundaries(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		index(t, dir, person(-5, "a"), person(1, "b"), person(2, "c"), person(3, "d"), person(10, "e"))

		rng := func(lo, hi int32, incLo, incHi bool) []int32 {
			return searchIDs(t, dir, NewTermRangeQuery("id", EncodeInt32(lo), EncodeInt32(hi), incLo, incHi))
		}
		deepEqual(t, rng(1, 3, true, true), []int32{1, 2, 3})
		deepEqual(t, rng(1, 3, false, false), []int32{2})
		deepEqual(t, rng(-10, 0, true, true), []int32{-5})
		deepEqual(t, rng(4, 9, true, true), []int32{})
		deepEqual(t, searchIDs(t, dir, NewTermRangeQuery("id", EncodeInt32(3), nil, true, false)), []int32{3, 10})
	})
}

func TestWriter_UpdateAndDelete(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		index(t, dir, person(1, "bernd"), person(2, "tom"), person(3, "anna"))

		w := must(OpenWriter(dir, NewStandardAnalyzer(), Append))
		ensure(w.UpdateDocument(Term{Field: "id", Bytes: EncodeInt32(1)}, person(1, "berndi")))
		ensure(w.DeleteDocuments(NewTerm("name", "tom")))
		ensure(w.DeleteDocuments(NewTerm("name", "missing")))
		ensure(w.Commit())

		r := must(OpenReader(dir))
		deepEqual(t, r.NumDocs(), 2)
		r.Close()
		deepEqual(t, searchIDs(t, dir, NewTermQuery(NewTerm("name", "bernd"))), []int32{})
		deepEqual(t, searchIDs(t, dir, NewTermQuery(NewTerm("name", "berndi"))), []int32{1})

		ensure(w.DeleteByQuery(NewWildcardQuery(NewTerm("name", "*n*"))))
		ensure(w.Close())
		deepEqual(t, searchIDs(t, dir, MatchAllDocsQuery{}), []int32{})
	})
}

func TestWriter_DeleteAllAndCreate(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		index(t, dir, person(1, "bernd"), person(2, "tom"))

		w := must(OpenWriter(dir, NewStandardAnalyzer(), Append))
		ensure(w.DeleteAll())
		ensure(w.AddDocument(person(3, "anna")))
		ensure(w.Close())
		deepEqual(t, searchIDs(t, dir, MatchAllDocsQuery{}), []int32{3})
		deepEqual(t, searchIDs(t, dir, NewTermQuery(NewTerm("name", "tom"))), []int32{})

		w = must(OpenWriter(dir, NewStandardAnalyzer(), Create))
		ensure(w.Close())
		deepEqual(t, searchIDs(t, dir, MatchAllDocsQuery{}), []int32{})
	})
}

func TestWriter_DeleteByQuerySeesEarlierOps(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
		ensure(w.AddDocument(person(1, "bernd")))
		ensure(w.DeleteByQuery(NewTermQuery(NewTerm("name", "bernd"))))
		ensure(w.AddDocument(person(2, "bernd")))
		ensure(w.Close())
		deepEqual(t, searchIDs(t, dir, MatchAllDocsQuery{}), []int32{2})
	})
}

func TestWriter_Rollback(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
		ensure(w.AddDocument(person(1, "bernd")))
		w.Rollback()
		ensure(w.AddDocument(person(2, "tom")))
		ensure(w.Close())
		deepEqual(t, searchIDs(t, dir, MatchAllDocsQuery{}), []int32{2})
	})
}

func TestWriter_Locking(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
		_, err := OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend)
		isErr(t, err, ErrLocked)
		ensure(w.Close())
		isErr(t, w.AddDocument(person(1, "x")), ErrClosed)

		w = must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
		ensure(w.Close())
	})
}

func TestWriter_AppendRequiresIndex(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		_, err := OpenWriter(dir, NewStandardAnalyzer(), Append)
		isErr(t, err, ErrNotFound)
		w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
		ensure(w.Close())
	})
}

func TestWriter_InvalidField(t *testing.T) {
	dir := NewMemDirectory(DirectoryOptions{})
	w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
	defer w.Close()
	if err := w.AddDocument(NewDocument(&Field{Name: "id", Kind: KindInt, Value: "one"})); err == nil {
		t.Errorf("** AddDocument accepted a string value for an int field")
	}
	if err := w.AddDocument(NewDocument(NewStringField("", "x", true))); err == nil {
		t.Errorf("** AddDocument accepted an empty field name")
	}
}

func TestWriter_CompressedStoredFields(t *testing.T) {
	dir := must(OpenDirectory(t.TempDir(), DirectoryOptions{IsTesting: true, Compression: true}))
	defer dir.Close()
	long := strings.Repeat("lorem ipsum dolor ", 100)
	index(t, dir, NewDocument(NewIntField("id", 1, true), NewTextField("body", long, true), NewStringField("key", "k", false)))

	r := must(OpenReader(dir))
	defer r.Close()
	td := must(r.Search(NewTermQuery(NewTerm("body", "dolor")), 10))
	deepEqual(t, td.TotalHits, 1)
	doc := must(r.Document(td.ScoreDocs[0].Doc))
	body, _ := doc.Get("body")
	deepEqual(t, body.Value, any(long))
	_, found := doc.Get("key")
	deepEqual(t, found, false)
}

func TestWriter_CloseWithoutChangesKeepsGeneration(t *testing.T) {
	eachDir(t, func(t *testing.T, dir *Directory) {
		w := must(OpenWriter(dir, NewStandardAnalyzer(), CreateOrAppend))
		ensure(w.Close())
		exists := must(dir.Exists())
		deepEqual(t, exists, true)
		gen := must(currentGeneration(dir))

		w = must(OpenWriter(dir, NewStandardAnalyzer(), Append))
		ensure(w.Close())
		deepEqual(t, must(currentGeneration(dir)), gen)

		w = must(OpenWriter(dir, NewStandardAnalyzer(), Append))
		ensure(w.AddDocument(person(1, "bernd")))
		ensure(w.Commit())
		ensure(w.Close())
		deepEqual(t, must(currentGeneration(dir)), gen+1)
	})
}
