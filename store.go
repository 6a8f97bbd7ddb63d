package artree

import (
	"errors"
	"fmt"

	"github.com/AfshinJalili/artree/internal/snapfile"
)

// Store persists Tree[[]byte] snapshots in a directory. The directory is
// locked for as long as the Store is open.
type Store struct {
	dir *snapfile.Dir
	cfg config
}

func OpenStore(path string, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	dir, err := snapfile.Open(path, snapfileOptions(cfg))
	if err != nil {
		if errors.Is(err, snapfile.ErrLocked) {
			return nil, ErrLocked
		}
		return nil, err
	}
	return &Store{dir: dir, cfg: cfg}, nil
}

func snapfileOptions(cfg config) snapfile.Options {
	return snapfile.Options{
		DirMode:              cfg.DirMode,
		FileMode:             cfg.FileMode,
		SeqWidth:             cfg.SeqWidth,
		CompressionThreshold: cfg.CompressionThreshold,
		Sync:                 cfg.SnapshotSync,
		LockTimeout:          cfg.LockTimeout,
		Keep:                 cfg.SnapshotKeep,
	}
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.dir.Close()
}

// Save writes a snapshot of t and returns its path. Entries are copied out
// under one shared hold, the file is written without holding the tree lock.
// A closed tree returns ErrClosed and leaves the directory untouched.
func (s *Store) Save(t *Tree[[]byte]) (string, error) {
	if s == nil || t == nil {
		return "", ErrClosed
	}
	snap, err := t.snapshot()
	if err != nil {
		return "", err
	}
	path, count, err := s.dir.Save(func(fn func(key, value []byte) bool) {
		snap.Walk(nil, fn)
	})
	if err != nil {
		return "", err
	}
	logf(s.cfg.Logger, "artree: saved %d keys to %s", count, path)
	return path, nil
}

// Latest returns the path of the newest snapshot. ok is false when the
// directory holds none.
func (s *Store) Latest() (path string, ok bool, err error) {
	path, err = s.dir.Latest()
	if errors.Is(err, snapfile.ErrNone) {
		return "", false, nil
	}
	return path, err == nil, err
}

// Load inserts the entries of the newest snapshot into t. Nothing is applied
// when the snapshot is damaged. With no snapshot present Load returns 0, nil.
func (s *Store) Load(t *Tree[[]byte]) (int, error) {
	return s.load(t, false)
}

// Repair is Load, but applies the intact prefix of a damaged snapshot.
func (s *Store) Repair(t *Tree[[]byte]) (int, error) {
	return s.load(t, true)
}

func (s *Store) load(t *Tree[[]byte], repair bool) (int, error) {
	if s == nil || t == nil {
		return 0, ErrClosed
	}
	path, ok, err := s.Latest()
	if err != nil || !ok {
		return 0, err
	}
	batch := t.NewBatch()
	info, err := snapfile.Read(path, repair, func(key, value []byte) error {
		return batch.Put(key, value)
	})
	if err != nil {
		batch.Discard()
		if errors.Is(err, snapfile.ErrCorrupt) {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return 0, err
	}
	if info.Truncated {
		logf(s.cfg.Logger, "artree: repaired %s, kept %d keys", path, info.Records)
	}
	if _, err := batch.Commit(); err != nil {
		return 0, err
	}
	logf(s.cfg.Logger, "artree: loaded %d keys from %s", info.Records, path)
	return info.Records, nil
}

// ReadFile streams the entries of a snapshot file in key order without
// taking the directory lock.
func ReadFile(path string, fn func(key, value []byte) bool) error {
	errStop := errors.New("stop")
	_, err := snapfile.Read(path, false, func(key, value []byte) error {
		if !fn(key, value) {
			return errStop
		}
		return nil
	})
	if errors.Is(err, errStop) {
		return nil
	}
	if errors.Is(err, snapfile.ErrCorrupt) {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return err
}
