package lucindex

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/grob/lucindex/engine"
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

func testFields() []*Field {
	return []*Field{
		IntField("id", true),
		TextField("name", true),
		StringField("code", true),
		DoubleField("price", true),
		DateField("born", true, ResolutionDay),
	}
}

func testOptions() Options {
	return Options{
		Fields:      testFields(),
		IdleTimeout: 20 * time.Millisecond,
		IsTesting:   true,
		LockTimeout: 50 * time.Millisecond,
		Logger:      slog.New(slog.DiscardHandler),
	}
}

func openMem(t testing.TB, opt Options) *Handle {
	t.Helper()
	h := must(OpenMemory(opt))
	t.Cleanup(func() { h.Shutdown(context.Background()) })
	return h
}

// eachHandle runs f against a Bolt-backed and a memory handle.
func eachHandle(t *testing.T, f func(t *testing.T, h *Handle)) {
	t.Run("bolt", func(t *testing.T) {
		h := must(Open(t.TempDir(), testOptions()))
		t.Cleanup(func() { h.Shutdown(context.Background()) })
		f(t, h)
	})
	t.Run("mem", func(t *testing.T) {
		f(t, openMem(t, testOptions()))
	})
}

func drain(t testing.TB, h *Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func size(t testing.TB, h *Handle) int {
	t.Helper()
	return must(h.Size())
}

// queryIDs runs q and returns the "id" of every hit in hit order.
func queryIDs(t testing.TB, h *Handle, q engine.Query) []int {
	t.Helper()
	res := must(h.Query(q, 0))
	ids := []int{}
	for i := range res.Len() {
		id, ok := res.Get(i)["id"].(int)
		if !ok {
			t.Fatalf("hit %d has no id: %v", i, res.Get(i))
		}
		ids = append(ids, id)
	}
	return ids
}

func buildQuery(t testing.TB, h *Handle, build func(qb *QueryBuilder) error) engine.Query {
	t.Helper()
	qb := h.QueryBuilder()
	if err := build(qb); err != nil {
		t.Fatalf("building query: %v", err)
	}
	return qb.Query()
}
