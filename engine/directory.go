package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// Version identifies the on-disk index format.
type Version int

const (
	Version1      Version = 1
	LatestVersion         = Version1
)

func (v Version) String() string {
	return "v" + strconv.Itoa(int(v))
}

// ResolveVersion parses a version name: "", "latest" and "current" mean
// LatestVersion; otherwise "1" or "v1".
func ResolveVersion(name string) (Version, error) {
	switch s := strings.ToLower(strings.TrimSpace(name)); s {
	case "", "latest", "current":
		return LatestVersion, nil
	default:
		n, err := strconv.Atoi(strings.TrimPrefix(s, "v"))
		if err != nil || n < 1 || Version(n) > LatestVersion {
			return 0, fmt.Errorf("%q: %w", name, ErrUnsupportedVersion)
		}
		return Version(n), nil
	}
}

const indexFileName = "index.bolt"

type DirectoryOptions struct {
	// Timeout is how long to wait for another process' file lock.
	// Zero means 1 second.
	Timeout time.Duration
	// IsTesting trades durability for speed and uses a small mmap.
	IsTesting bool
	NoSync    bool
	// MmapSize overrides the initial mmap size. Bolt cannot grow the mmap
	// while read transactions are open, and read views hold one for their
	// whole lifetime, so this should cover the expected index size.
	MmapSize int
	// Compression enables s2 compression of stored fields.
	Compression bool
	Logger      *slog.Logger
}

// Directory is the storage an index lives in: a Bolt file or memory.
type Directory struct {
	path        string
	store       kvStore
	logger      *slog.Logger
	compression bool

	writeLocked atomic.Bool
	closed      atomic.Bool
}

// OpenDirectory opens (creating if needed) the index stored under path.
func OpenDirectory(path string, opt DirectoryOptions) (*Directory, error) {
	if err := os.MkdirAll(path, 0o777); err != nil {
		return nil, err
	}

	bopt := *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if bopt.Timeout == 0 {
		bopt.Timeout = time.Second
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.NoSync = opt.NoSync
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	file := filepath.Join(path, indexFileName)
	bdb, err := bbolt.Open(file, 0o666, &bopt)
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%s: %w", file, ErrLocked)
	} else if err != nil {
		return nil, err
	}

	dir := newDirectory(path, newBoltStore(bdb), opt)
	if err := dir.checkVersion(); err != nil {
		bdb.Close()
		return nil, err
	}
	return dir, nil
}

// NewMemDirectory returns an empty transient in-memory directory.
func NewMemDirectory(opt DirectoryOptions) *Directory {
	return newDirectory("", newMemStore(), opt)
}

func newDirectory(path string, store kvStore, opt DirectoryOptions) *Directory {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		path:        path,
		store:       store,
		logger:      logger,
		compression: opt.Compression,
	}
}

func (dir *Directory) checkVersion() error {
	tx, err := dir.store.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	_, err = loadMeta(tx)
	return err
}

// Path returns the file system location, or "" for memory directories.
func (dir *Directory) Path() string {
	return dir.path
}

func (dir *Directory) String() string {
	if dir.path == "" {
		return "memory"
	}
	return dir.path
}

// Exists reports whether an index has ever been committed to dir.
func (dir *Directory) Exists() (bool, error) {
	tx, err := dir.beginRead()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	return tx.Bucket(bucketMeta) != nil, nil
}

// exists is Exists with errors treated as absence; a failing store fails
// the commit that follows anyway.
func (dir *Directory) exists() bool {
	ok, err := dir.Exists()
	return err == nil && ok
}

func (dir *Directory) beginRead() (kvTx, error) {
	if dir.closed.Load() {
		return nil, ErrClosed
	}
	return dir.store.BeginTx(false)
}

// Close closes the underlying storage. Open readers must be closed first.
func (dir *Directory) Close() error {
	if !dir.closed.CompareAndSwap(false, true) {
		return nil
	}
	return dir.store.Close()
}
