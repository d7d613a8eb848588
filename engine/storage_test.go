package engine

import (
	"fmt"
	"testing"
	"time"

	"go.etcd.io/bbolt"
)

func eachStore(t *testing.T, f func(t *testing.T, store kvStore)) {
	t.Run("bolt", func(t *testing.T) {
		bdb := must(bbolt.Open(t.TempDir()+"/store.bolt", 0o666, &bbolt.Options{NoSync: true}))
		store := newBoltStore(bdb)
		t.Cleanup(func() { store.Close() })
		f(t, store)
	})
	t.Run("mem", func(t *testing.T) {
		store := newMemStore()
		t.Cleanup(func() { store.Close() })
		f(t, store)
	})
}

func TestStorage_Isolation(t *testing.T) {
	eachStore(t, func(t *testing.T, store kvStore) {
		wtx := must(store.BeginTx(true))
		b := must(wtx.CreateBucket("b"))
		ensure(b.Put([]byte("k1"), []byte("v1")))
		ensure(wtx.Commit())

		rtx := must(store.BeginTx(false))
		defer rtx.Rollback()

		wtx = must(store.BeginTx(true))
		b = wtx.Bucket("b")
		ensure(b.Put([]byte("k2"), []byte("v2")))
		ensure(b.Delete([]byte("k1")))
		ensure(wtx.Commit())

		deepEqual(t, string(rtx.Bucket("b").Get([]byte("k1"))), "v1")
		deepEqual(t, rtx.Bucket("b").Get([]byte("k2")) == nil, true)

		rtx2 := must(store.BeginTx(false))
		defer rtx2.Rollback()
		deepEqual(t, rtx2.Bucket("b").Get([]byte("k1")) == nil, true)
		deepEqual(t, string(rtx2.Bucket("b").Get([]byte("k2"))), "v2")
	})
}

func TestStorage_RollbackDiscards(t *testing.T) {
	eachStore(t, func(t *testing.T, store kvStore) {
		wtx := must(store.BeginTx(true))
		ensure(must(wtx.CreateBucket("b")).Put([]byte("k"), []byte("v")))
		ensure(wtx.Rollback())
		ensure(wtx.Rollback())

		rtx := must(store.BeginTx(false))
		defer rtx.Rollback()
		deepEqual(t, rtx.Bucket("b") == nil, true)
	})
}

func TestStorage_Cursor(t *testing.T) {
	eachStore(t, func(t *testing.T, store kvStore) {
		wtx := must(store.BeginTx(true))
		b := must(wtx.CreateBucket("b"))
		for _, k := range []string{"c", "a", "e", "b"} {
			ensure(b.Put([]byte(k), []byte(k+k)))
		}
		ensure(wtx.Commit())

		rtx := must(store.BeginTx(false))
		defer rtx.Rollback()
		deepEqual(t, rtx.Bucket("b").KeyCount(), 4)
		c := rtx.Bucket("b").Cursor()
		var keys []string
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		deepEqual(t, keys, []string{"a", "b", "c", "e"})

		k, v := c.Seek([]byte("d"))
		deepEqual(t, string(k), "e")
		deepEqual(t, string(v), "ee")
		k, _ = c.Next()
		deepEqual(t, k == nil, true)
		k, _ = c.Last()
		deepEqual(t, string(k), "e")
		k, _ = c.Prev()
		deepEqual(t, string(k), "c")
	})
}

func TestStorage_DeleteBucket(t *testing.T) {
	eachStore(t, func(t *testing.T, store kvStore) {
		wtx := must(store.BeginTx(true))
		defer wtx.Rollback()
		isErr(t, wtx.DeleteBucket("missing"), errBucketNotFound)
		must(wtx.CreateBucket("b"))
		ensure(wtx.DeleteBucket("b"))
		deepEqual(t, wtx.Bucket("b") == nil, true)
	})
}

func TestStorage_CursorInWriteTx(t *testing.T) {
	eachStore(t, func(t *testing.T, store kvStore) {
		wtx := must(store.BeginTx(true))
		defer wtx.Rollback()
		b := must(wtx.CreateBucket("b"))
		for _, k := range []string{"a", "b", "c"} {
			ensure(b.Put([]byte(k), []byte(k)))
		}
		c := b.Cursor()
		var keys []string
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
			ensure(b.Delete(k))
		}
		deepEqual(t, keys, []string{"a", "b", "c"})
		deepEqual(t, b.KeyCount(), 0)
	})
}

// Each commit touches one key of a large bucket; its cost must not depend
// on the bucket size.
func TestMemStore_CommitCostIndependentOfBucketSize(t *testing.T) {
	const commits = 2000
	fill := func(n int) kvStore {
		store := newMemStore()
		wtx := must(store.BeginTx(true))
		b := must(wtx.CreateBucket("b"))
		for i := range n {
			ensure(b.Put([]byte(fmt.Sprintf("k%08d", i)), []byte("v")))
		}
		ensure(wtx.Commit())
		return store
	}
	run := func(store kvStore) time.Duration {
		start := time.Now()
		for i := range commits {
			wtx := must(store.BeginTx(true))
			ensure(wtx.Bucket("b").Put([]byte(fmt.Sprintf("x%08d", i)), []byte("v")))
			ensure(wtx.Commit())
		}
		return time.Since(start)
	}

	small, large := fill(1000), fill(100000)
	defer small.Close()
	defer large.Close()
	smallTime, largeTime := run(small), run(large)
	if largeTime > 10*smallTime+100*time.Millisecond {
		t.Errorf("** %d commits took %v on a 100000-key bucket, %v on a 1000-key bucket", commits, largeTime, smallTime)
	}

	rtx := must(large.BeginTx(false))
	defer rtx.Rollback()
	deepEqual(t, rtx.Bucket("b").KeyCount(), 100000+commits)
}
