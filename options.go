package lucindex

import (
	"log/slog"
	"time"

	"github.com/grob/lucindex/engine"
)

const (
	DefaultIdleTimeout = 30 * time.Millisecond
	DefaultLimit       = 50
)

type Options struct {
	// Analyzer tokenizes text fields and parsed queries. Defaults to
	// engine.StandardAnalyzer.
	Analyzer engine.Analyzer
	// Version is the index format version name; "" means the latest.
	Version string
	// ForceCreate empties an existing index on open.
	ForceCreate bool
	// Fields are registered before the handle is returned.
	Fields []*Field
	Logger *slog.Logger

	// IdleTimeout is how long the writer stays open after the last job.
	IdleTimeout time.Duration
	// DefaultLimit caps Query results when no limit is given.
	DefaultLimit int

	// IsTesting trades durability for speed (no fsync, small mmap).
	IsTesting bool
	// MmapSize overrides the initial Bolt mmap size, see engine.DirectoryOptions.
	MmapSize int
	// Compression enables compression of stored fields.
	Compression bool
	// LockTimeout is how long to wait for another process' file lock.
	LockTimeout time.Duration
}

func (opt *Options) withDefaults() Options {
	o := *opt
	if o.Analyzer == nil {
		o.Analyzer = engine.NewStandardAnalyzer()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	return o
}

func (opt *Options) directoryOptions() engine.DirectoryOptions {
	return engine.DirectoryOptions{
		Timeout:     opt.LockTimeout,
		IsTesting:   opt.IsTesting,
		MmapSize:    opt.MmapSize,
		Compression: opt.Compression,
		Logger:      opt.Logger,
	}
}
