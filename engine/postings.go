package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	bucketMeta     = "meta"
	bucketDocs     = "docs"
	bucketPostings = "postings"
)

var (
	metaKeyVersion = []byte("version")
	metaKeyNextDoc = []byte("nextdoc")
	metaKeyGen     = []byte("gen")
	metaKeyLive    = []byte("live")
)

func docKey(id uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, id)
}

func loadBitmap(data []byte) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if len(data) == 0 {
		return bm, nil
	}
	// storage slices die with the transaction
	if err := bm.UnmarshalBinary(bytes.Clone(data)); err != nil {
		return nil, dataErrf(data, 0, err, "invalid bitmap")
	}
	return bm, nil
}

// meta is the per-commit index state kept in the meta bucket.
type meta struct {
	Version Version
	NextDoc uint32
	Gen     uint64
	Live    *roaring.Bitmap
}

func loadMeta(tx kvTx) (*meta, error) {
	m := &meta{Live: roaring.New()}
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return m, nil
	}
	if raw := b.Get(metaKeyVersion); raw != nil {
		v, n := binary.Uvarint(raw)
		if n <= 0 {
			return nil, dataErrf(raw, 0, nil, "invalid version")
		}
		m.Version = Version(v)
		if m.Version > LatestVersion {
			return nil, fmt.Errorf("index format %d: %w", v, ErrUnsupportedVersion)
		}
	}
	if raw := b.Get(metaKeyNextDoc); raw != nil {
		v, n := binary.Uvarint(raw)
		if n <= 0 {
			return nil, dataErrf(raw, 0, nil, "invalid nextdoc")
		}
		m.NextDoc = uint32(v)
	}
	if raw := b.Get(metaKeyGen); raw != nil {
		v, n := binary.Uvarint(raw)
		if n <= 0 {
			return nil, dataErrf(raw, 0, nil, "invalid generation")
		}
		m.Gen = v
	}
	var err error
	m.Live, err = loadBitmap(b.Get(metaKeyLive))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *meta) save(b kvBucket) error {
	live, err := m.Live.ToBytes()
	if err != nil {
		return err
	}
	for _, kv := range []struct {
		key, value []byte
	}{
		{metaKeyVersion, appendUvarint(nil, uint64(m.Version))},
		{metaKeyNextDoc, appendUvarint(nil, uint64(m.NextDoc))},
		{metaKeyGen, appendUvarint(nil, m.Gen)},
		{metaKeyLive, live},
	} {
		if err := b.Put(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// postingsCache buffers postings bitmaps modified by a writer commit.
type postingsCache struct {
	bucket kvBucket
	items  map[string]*roaring.Bitmap
	dirty  map[string]bool
}

func newPostingsCache(b kvBucket) *postingsCache {
	return &postingsCache{
		bucket: b,
		items:  make(map[string]*roaring.Bitmap),
		dirty:  make(map[string]bool),
	}
}

func (pc *postingsCache) get(key []byte) (*roaring.Bitmap, error) {
	if bm := pc.items[string(key)]; bm != nil {
		return bm, nil
	}
	bm, err := loadBitmap(pc.bucket.Get(key))
	if err != nil {
		return nil, err
	}
	pc.items[string(key)] = bm
	return bm, nil
}

func (pc *postingsCache) add(key []byte, id uint32) error {
	bm, err := pc.get(key)
	if err != nil {
		return err
	}
	bm.Add(id)
	pc.dirty[string(key)] = true
	return nil
}

func (pc *postingsCache) remove(key []byte, id uint32) error {
	bm, err := pc.get(key)
	if err != nil {
		return err
	}
	bm.Remove(id)
	pc.dirty[string(key)] = true
	return nil
}

// reset forgets all cached bitmaps, after the postings bucket was recreated.
func (pc *postingsCache) reset(b kvBucket) {
	pc.bucket = b
	clear(pc.items)
	clear(pc.dirty)
}

// flush writes dirty bitmaps back, deleting empty ones.
func (pc *postingsCache) flush() error {
	for key := range pc.dirty {
		bm := pc.items[key]
		var err error
		if bm.IsEmpty() {
			err = pc.bucket.Delete([]byte(key))
		} else {
			var data []byte
			bm.RunOptimize()
			data, err = bm.ToBytes()
			if err == nil {
				err = pc.bucket.Put([]byte(key), data)
			}
		}
		if err != nil {
			return fmt.Errorf("postings %s: %w", hexstr([]byte(key)), err)
		}
	}
	clear(pc.dirty)
	return nil
}
