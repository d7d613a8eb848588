package engine

// IndexStats describes the contents of one commit.
type IndexStats struct {
	Generation uint64
	LiveDocs   int
	NextDoc    uint32

	// StoredDocs counts the rows of the docs bucket, DocsSize their bytes.
	StoredDocs int
	DocsSize   int

	// Terms counts posting lists; FieldTerms breaks them down per field.
	Terms        int
	FieldTerms   map[string]int
	PostingsSize int
}

// Stats scans the docs and postings buckets. It takes time proportional to
// the index size.
func (r *Reader) Stats() (IndexStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return IndexStats{}, ErrClosed
	}
	st := IndexStats{
		Generation: r.meta.Gen,
		LiveDocs:   int(r.meta.Live.GetCardinality()),
		NextDoc:    r.meta.NextDoc,
		FieldTerms: make(map[string]int),
	}
	if b := r.tx.Bucket(bucketDocs); b != nil {
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			st.StoredDocs++
			st.DocsSize += len(v)
		}
	}
	if b := r.tx.Bucket(bucketPostings); b != nil {
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			field, _, ok := splitPostingKey(k)
			if !ok {
				return st, dataErrf(k, 0, nil, "posting key without field separator")
			}
			st.Terms++
			st.FieldTerms[field]++
			st.PostingsSize += len(v)
		}
	}
	return st, nil
}
