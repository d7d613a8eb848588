package engine

import (
	"bytes"
	"context"
	"log/slog"
)

const debugLogTermScans = false

// termRange is a range of terms within one field. Nil bounds are open.
type termRange struct {
	Field    string
	Lower    []byte
	Upper    []byte
	LowerInc bool
	UpperInc bool
	// Prefix, if set, restricts the terms to those starting with it.
	Prefix []byte
}

// scan calls fn for every postings key in the range, in term order, until fn
// returns false.
func (r *termRange) scan(cur kvCursor, logger *slog.Logger, fn func(term, value []byte) bool) {
	prefix := fieldPrefix(r.Field)
	seek := append(prefix[:len(prefix):len(prefix)], r.Prefix...)
	if r.Lower != nil && bytes.Compare(r.Lower, seek[len(prefix):]) > 0 {
		seek = append(prefix[:len(prefix):len(prefix)], r.Lower...)
	}

	k, v := cur.Seek(seek)
	if debugLogTermScans {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "term scan seek", hexAttr("seek", seek), hexAttr("key", k))
	}
	for ; k != nil; k, v = cur.Next() {
		if !bytes.HasPrefix(k, prefix) {
			return
		}
		term := k[len(prefix):]
		if r.Prefix != nil && !bytes.HasPrefix(term, r.Prefix) {
			return
		}
		if r.Lower != nil {
			c := bytes.Compare(term, r.Lower)
			if c < 0 || (c == 0 && !r.LowerInc) {
				continue
			}
		}
		if r.Upper != nil {
			c := bytes.Compare(term, r.Upper)
			if c > 0 || (c == 0 && !r.UpperInc) {
				return
			}
		}
		if !fn(term, v) {
			return
		}
	}
}
