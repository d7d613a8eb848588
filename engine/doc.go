/*
Package engine is a small embedded full-text index on top of a key-value store
(Bolt on disk, or memory).

A Directory holds one index. A single Writer buffers mutations and applies
them on Commit, one storage write transaction per commit. A Reader is a
snapshot of the last commit, backed by a storage read transaction, and
evaluates Query trees against it.

# Buckets

**meta**: format version, next document id, commit generation, and the
bitmap of live document ids.

**docs**: document id (4 bytes, big-endian) to document value.

**postings**: field name, 0x00, term bytes to a Roaring bitmap of the
document ids containing the term.

## Document values

Value header (flags, data size, index size), then the stored fields encoded
with MsgPack and optionally compressed with S2, then the postings keys the
document was indexed under. The keys make deletes independent of the
analyzer.

## Terms

Text fields are split into terms by an Analyzer; string fields are indexed
as a single term. Numeric terms are big-endian with the sign bit flipped
behind a tag byte (0x60 for 32-bit, 0x20 for 64-bit), so byte order equals
numeric order and TermRangeQuery works on them directly. Doubles are mapped
onto int64 by flipping the non-sign bits of negative values.
*/
package engine
