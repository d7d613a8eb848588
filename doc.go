/*
Package lucindex is a convenience layer over a small inverted-index search
engine (package engine). It maps records (field name to value) to index
documents through typed field definitions, builds queries from field
conditions, and coordinates writes.

# Writes

Each Handle owns a coordinator: a FIFO queue of mutation jobs and one worker
goroutine that runs them against a lazily opened index writer. The writer is
committed after every job and closed after IdleTimeout without new jobs, so
a burst of jobs opens and closes the writer once. Closing the writer marks
the cached read view as stale. Mutation methods return a *Job that can be
waited on; failures are also logged, and never stop the worker.

The Sync variants (AddSync, UpdateSync, RemoveSync) run on the caller's
goroutine and return once the change is visible.

# Reads

AcquireReadView hands out a reference to a cached reader, reopening it if
the writer was closed since. While the writer is open nothing is cached and
each view is a new reader of the last commit. Every view must be released
exactly once; Shutdown closes the storage only after the last release.
Query acquires a view, decodes the hits into a Result, and releases it.

# Fields

Field kinds and their index encodings:

	text    tokenized by the analyzer; queries are lower-cased wildcard terms
	string  indexed verbatim; exact match
	int     32-bit, sortable big-endian term; ranges
	long    64-bit, sortable big-endian term; ranges
	double  sortable 64-bit transform of the IEEE bits; ranges
	date    epoch milliseconds truncated to a resolution, indexed as long

Fields that are not registered are queried as parsed text and not stored.

# Queries

QueryBuilder combines conditions with Should, Must and Not. A single Should
condition stays a plain query; anything more becomes a BooleanQuery. Ranges
are inclusive on both ends:

	qb := h.QueryBuilder()
	qb.Should("name", "be*")
	qb.Must("id", lucindex.Range{Min: 1, Max: 10})
	res, err := h.Query(qb.Query(), 0)

CreateQuery does the same from a condition map with optional "SHOULD",
"MUST" and "MUST_NOT" sub-maps.
*/
package lucindex
