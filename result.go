package lucindex

import (
	"encoding/json"
	"time"

	"github.com/grob/lucindex/engine"
)

// Result holds the records of one search. Records are decoded when the
// result is built, and the read view is released right after, so a Result
// needs no closing.
type Result struct {
	QueryTime time.Duration
	TotalHits int
	records   []Record
	scores    []float32
}

func newResult(view *ReadView, td *engine.TopDocs, took time.Duration) (*Result, error) {
	r := &Result{
		QueryTime: took,
		TotalHits: td.TotalHits,
		records:   make([]Record, len(td.ScoreDocs)),
		scores:    make([]float32, len(td.ScoreDocs)),
	}
	for i, sd := range td.ScoreDocs {
		rec, err := view.Record(sd.Doc)
		if err != nil {
			return nil, err
		}
		r.records[i] = rec
		r.scores[i] = sd.Score
	}
	return r, nil
}

// Size returns the total number of matches, which may exceed Len.
func (r *Result) Size() int {
	return r.TotalHits
}

// Len returns the number of records held.
func (r *Result) Len() int {
	return len(r.records)
}

// Get returns the i-th record. Fields that are not stored are absent.
// It panics if i is out of range.
func (r *Result) Get(i int) Record {
	return r.records[i]
}

func (r *Result) Score(i int) float32 {
	return r.scores[i]
}

type SerializedResult struct {
	QueryTime int64                `json:"querytime"`
	Documents []SerializedDocument `json:"documents"`
}

type SerializedDocument struct {
	Data  Record  `json:"data"`
	Score float32 `json:"score"`
}

// Serialize returns a plain representation with the query time in
// milliseconds.
func (r *Result) Serialize() *SerializedResult {
	s := &SerializedResult{
		QueryTime: r.QueryTime.Milliseconds(),
		Documents: make([]SerializedDocument, len(r.records)),
	}
	for i := range r.records {
		s.Documents[i] = SerializedDocument{Data: r.records[i], Score: r.scores[i]}
	}
	return s
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Serialize())
}
