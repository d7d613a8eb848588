package engine

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
)

// Query is a condition tree evaluated against a read view. The set of query
// types is closed: leaves are TermQuery, PrefixQuery, WildcardQuery,
// TermRangeQuery and MatchAllDocsQuery; BooleanQuery combines them.
type Query interface {
	String() string
	execute(s *searcher) (*hits, error)
}

// hits is a set of matching documents with their scores. A nil scores map
// means every document scores 1.
type hits struct {
	docs   *roaring.Bitmap
	scores map[uint32]float32
}

func (h *hits) score(id uint32) float32 {
	if h.scores == nil {
		return 1
	}
	return h.scores[id]
}

type TermQuery struct {
	Term Term
}

func NewTermQuery(t Term) *TermQuery {
	return &TermQuery{Term: t}
}

func (q *TermQuery) String() string {
	return q.Term.String()
}

func (q *TermQuery) execute(s *searcher) (*hits, error) {
	docs, err := s.termDocs(q.Term.Field, q.Term.Bytes)
	if err != nil {
		return nil, err
	}
	return &hits{docs: docs}, nil
}

// PrefixQuery matches documents having a term that starts with Prefix.Bytes.
type PrefixQuery struct {
	Prefix Term
}

func NewPrefixQuery(prefix Term) *PrefixQuery {
	return &PrefixQuery{Prefix: prefix}
}

func (q *PrefixQuery) String() string {
	return q.Prefix.String() + "*"
}

func (q *PrefixQuery) execute(s *searcher) (*hits, error) {
	docs, err := s.rangeDocs(termRange{Field: q.Prefix.Field, Prefix: q.Prefix.Bytes}, nil)
	if err != nil {
		return nil, err
	}
	return &hits{docs: docs}, nil
}

// WildcardQuery matches terms against a pattern where * stands for any
// sequence of characters and ? for exactly one character.
type WildcardQuery struct {
	Term Term
}

func NewWildcardQuery(t Term) *WildcardQuery {
	return &WildcardQuery{Term: t}
}

func (q *WildcardQuery) String() string {
	return q.Term.String()
}

func (q *WildcardQuery) execute(s *searcher) (*hits, error) {
	pattern := q.Term.Bytes
	i := bytes.IndexAny(pattern, "*?")
	if i < 0 {
		docs, err := s.termDocs(q.Term.Field, pattern)
		if err != nil {
			return nil, err
		}
		return &hits{docs: docs}, nil
	}
	docs, err := s.rangeDocs(termRange{Field: q.Term.Field, Prefix: pattern[:i]}, func(term []byte) bool {
		return wildcardMatch(pattern, term)
	})
	if err != nil {
		return nil, err
	}
	return &hits{docs: docs}, nil
}

func wildcardMatch(pattern, s []byte) bool {
	var px, sx int
	star, backtrack := -1, 0
	for sx < len(s) {
		if px < len(pattern) {
			switch pattern[px] {
			case '*':
				star, backtrack = px, sx
				px++
				continue
			case '?':
				_, n := utf8.DecodeRune(s[sx:])
				px++
				sx += n
				continue
			default:
				if pattern[px] == s[sx] {
					px++
					sx++
					continue
				}
			}
		}
		if star < 0 {
			return false
		}
		_, n := utf8.DecodeRune(s[backtrack:])
		backtrack += n
		px, sx = star+1, backtrack
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}

// TermRangeQuery matches terms between Lower and Upper in byte order. Nil
// bounds are open.
type TermRangeQuery struct {
	Field        string
	Lower        []byte
	Upper        []byte
	IncludeLower bool
	IncludeUpper bool
}

func NewTermRangeQuery(field string, lower, upper []byte, includeLower, includeUpper bool) *TermRangeQuery {
	return &TermRangeQuery{
		Field:        field,
		Lower:        lower,
		Upper:        upper,
		IncludeLower: includeLower,
		IncludeUpper: includeUpper,
	}
}

func (q *TermRangeQuery) String() string {
	var buf strings.Builder
	buf.WriteString(q.Field)
	buf.WriteByte(':')
	if q.IncludeLower {
		buf.WriteByte('[')
	} else {
		buf.WriteByte('{')
	}
	if q.Lower == nil {
		buf.WriteByte('*')
	} else {
		buf.WriteString(termString(q.Lower))
	}
	buf.WriteString(" TO ")
	if q.Upper == nil {
		buf.WriteByte('*')
	} else {
		buf.WriteString(termString(q.Upper))
	}
	if q.IncludeUpper {
		buf.WriteByte(']')
	} else {
		buf.WriteByte('}')
	}
	return buf.String()
}

func (q *TermRangeQuery) execute(s *searcher) (*hits, error) {
	docs, err := s.rangeDocs(termRange{
		Field:    q.Field,
		Lower:    q.Lower,
		Upper:    q.Upper,
		LowerInc: q.IncludeLower,
		UpperInc: q.IncludeUpper,
	}, nil)
	if err != nil {
		return nil, err
	}
	return &hits{docs: docs}, nil
}

type MatchAllDocsQuery struct{}

func (MatchAllDocsQuery) String() string {
	return "*:*"
}

func (MatchAllDocsQuery) execute(s *searcher) (*hits, error) {
	return &hits{docs: s.live.Clone()}, nil
}

type Occur int

const (
	Should Occur = iota
	Must
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Should:
		return "SHOULD"
	case Must:
		return "MUST"
	case MustNot:
		return "MUST_NOT"
	default:
		return fmt.Sprintf("occur(%d)", int(o))
	}
}

type BooleanClause struct {
	Query Query
	Occur Occur
}

// BooleanQuery matches documents that match all Must clauses and none of the
// MustNot clauses. Without Must clauses at least one Should clause has to
// match; without Must and Should clauses every live document is a candidate.
// The score is the sum of the scores of the matching Should and Must clauses.
type BooleanQuery struct {
	Clauses []BooleanClause
}

func NewBooleanQuery() *BooleanQuery {
	return &BooleanQuery{}
}

func (q *BooleanQuery) Add(sub Query, occur Occur) {
	q.Clauses = append(q.Clauses, BooleanClause{Query: sub, Occur: occur})
}

func (q *BooleanQuery) String() string {
	var buf strings.Builder
	for i, c := range q.Clauses {
		if i > 0 {
			buf.WriteByte(' ')
		}
		switch c.Occur {
		case Must:
			buf.WriteByte('+')
		case MustNot:
			buf.WriteByte('-')
		}
		if _, ok := c.Query.(*BooleanQuery); ok {
			buf.WriteByte('(')
			buf.WriteString(c.Query.String())
			buf.WriteByte(')')
		} else {
			buf.WriteString(c.Query.String())
		}
	}
	return buf.String()
}

func (q *BooleanQuery) execute(s *searcher) (*hits, error) {
	var must, should, mustNot []*hits
	for _, c := range q.Clauses {
		h, err := c.Query.execute(s)
		if err != nil {
			return nil, err
		}
		switch c.Occur {
		case Must:
			must = append(must, h)
		case MustNot:
			mustNot = append(mustNot, h)
		default:
			should = append(should, h)
		}
	}

	var docs *roaring.Bitmap
	switch {
	case len(must) > 0:
		docs = must[0].docs.Clone()
		for _, h := range must[1:] {
			docs.And(h.docs)
		}
	case len(should) > 0:
		bms := make([]*roaring.Bitmap, len(should))
		for i, h := range should {
			bms[i] = h.docs
		}
		docs = roaring.FastOr(bms...)
	case len(mustNot) > 0:
		docs = s.live.Clone()
	default:
		docs = roaring.New()
	}
	for _, h := range mustNot {
		docs.AndNot(h.docs)
	}

	scores := make(map[uint32]float32, docs.GetCardinality())
	scoring := slices.Concat(must, should)
	it := docs.Iterator()
	for it.HasNext() {
		id := it.Next()
		var sum float32
		for _, h := range scoring {
			if h.docs.Contains(id) {
				sum += h.score(id)
			}
		}
		if len(scoring) == 0 {
			sum = 1
		}
		scores[id] = sum
	}
	return &hits{docs: docs, scores: scores}, nil
}
