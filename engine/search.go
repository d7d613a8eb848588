package engine

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// ScoreDoc is one search hit.
type ScoreDoc struct {
	Doc   uint32
	Score float32
}

// TopDocs holds the first hits of a search, ordered by descending score and
// ascending document id, and the total number of matches.
type TopDocs struct {
	TotalHits int
	ScoreDocs []ScoreDoc
}

// searcher evaluates queries within one storage transaction.
type searcher struct {
	postings kvBucket
	live     *roaring.Bitmap
	logger   *slog.Logger
}

func newSearcher(tx kvTx, live *roaring.Bitmap, logger *slog.Logger) *searcher {
	return &searcher{
		postings: tx.Bucket(bucketPostings),
		live:     live,
		logger:   logger,
	}
}

func (s *searcher) termDocs(field string, term []byte) (*roaring.Bitmap, error) {
	if s.postings == nil {
		return roaring.New(), nil
	}
	return loadBitmap(s.postings.Get(postingKey(field, term)))
}

// rangeDocs returns the union of the postings of all terms in r accepted by
// match (nil accepts all).
func (s *searcher) rangeDocs(r termRange, match func(term []byte) bool) (*roaring.Bitmap, error) {
	result := roaring.New()
	if s.postings == nil {
		return result, nil
	}
	var err error
	r.scan(s.postings.Cursor(), s.logger, func(term, value []byte) bool {
		if match != nil && !match(term) {
			return true
		}
		var bm *roaring.Bitmap
		bm, err = loadBitmap(value)
		if err != nil {
			return false
		}
		result.Or(bm)
		return true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *searcher) matches(q Query) (*hits, error) {
	h, err := q.execute(s)
	if err != nil {
		return nil, err
	}
	h.docs.And(s.live)
	return h, nil
}

func (s *searcher) search(q Query, limit int) (*TopDocs, error) {
	h, err := s.matches(q)
	if err != nil {
		return nil, err
	}
	total := int(h.docs.GetCardinality())
	all := make([]ScoreDoc, 0, total)
	it := h.docs.Iterator()
	for it.HasNext() {
		id := it.Next()
		all = append(all, ScoreDoc{Doc: id, Score: h.score(id)})
	}
	slices.SortStableFunc(all, func(a, b ScoreDoc) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Doc, b.Doc)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return &TopDocs{TotalHits: total, ScoreDocs: all}, nil
}
