// Package snapfile reads and writes numbered snapshot files in a locked
// directory. A snapshot is a sequence of records followed by a trailer that
// carries the record count; values may be snappy compressed.
package snapfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AfshinJalili/artree/internal/codec"
	"github.com/AfshinJalili/artree/internal/file"
	"github.com/AfshinJalili/artree/internal/record"
)

var (
	ErrCorrupt = errors.New("snapfile: corrupt snapshot")
	ErrLocked  = errors.New("snapfile: directory locked")
	ErrNone    = errors.New("snapfile: no snapshot")
)

type Options struct {
	DirMode              fs.FileMode
	FileMode             fs.FileMode
	SeqWidth             int
	CompressionThreshold int
	Sync                 bool
	LockTimeout          time.Duration

	// Keep is how many snapshots survive a successful save.
	Keep int
}

func (o Options) withDefaults() Options {
	if o.DirMode == 0 {
		o.DirMode = 0o755
	}
	if o.FileMode == 0 {
		o.FileMode = 0o644
	}
	if o.SeqWidth <= 0 {
		o.SeqWidth = 9
	}
	if o.CompressionThreshold <= 0 {
		o.CompressionThreshold = 256
	}
	if o.Keep <= 0 {
		o.Keep = 1
	}
	return o
}

// Source feeds entries to a writer in key order until fn returns false.
type Source func(fn func(key, value []byte) bool)

// Info describes a snapshot file that was read.
type Info struct {
	Records   int
	Bytes     int64
	Truncated bool
}

type Dir struct {
	path string
	opts Options
	lock *file.Lock
}

// Open creates path if needed, takes the directory lock and removes temp
// files left by an interrupted save.
func Open(path string, opts Options) (*Dir, error) {
	opts = opts.withDefaults()
	if path == "" {
		return nil, fmt.Errorf("snapfile: path required")
	}
	if err := os.MkdirAll(path, opts.DirMode); err != nil {
		return nil, err
	}
	lock, err := file.AcquireLock(filepath.Join(path, file.LockName), opts.LockTimeout)
	if err != nil {
		if errors.Is(err, file.ErrLockHeld) {
			return nil, ErrLocked
		}
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() && file.IsTemp(e.Name()) {
			_ = os.Remove(filepath.Join(path, e.Name()))
		}
	}
	return &Dir{path: path, opts: opts, lock: lock}, nil
}

func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) Close() error {
	if d == nil {
		return nil
	}
	return d.lock.Release()
}

// Seqs lists snapshot sequence numbers in ascending order.
func (d *Dir) Seqs() ([]uint64, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if seq, ok := file.ParseSeq(e.Name()); ok {
			seqs = append(seqs, seq)
		}
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

// Latest returns the path of the newest snapshot, or ErrNone.
func (d *Dir) Latest() (string, error) {
	seqs, err := d.Seqs()
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "", ErrNone
	}
	return d.name(seqs[len(seqs)-1]), nil
}

func (d *Dir) name(seq uint64) string {
	return filepath.Join(d.path, file.SnapshotName(seq, d.opts.SeqWidth))
}

// Save writes the entries of src as the next snapshot and prunes old ones.
// The file only appears under its final name once fully written.
func (d *Dir) Save(src Source) (string, int, error) {
	seqs, err := d.Seqs()
	if err != nil {
		return "", 0, err
	}
	var seq uint64 = 1
	if len(seqs) > 0 {
		seq = seqs[len(seqs)-1] + 1
	}
	tmp := filepath.Join(d.path, file.TempName(seq, d.opts.SeqWidth))
	final := d.name(seq)

	count, err := d.write(tmp, src)
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", 0, err
	}
	if d.opts.Sync {
		if err := file.FsyncDir(d.path); err != nil {
			return "", 0, err
		}
	}
	seqs = append(seqs, seq)
	if extra := len(seqs) - d.opts.Keep; extra > 0 {
		for _, old := range seqs[:extra] {
			_ = os.Remove(d.name(old))
		}
	}
	return final, count, nil
}

func (d *Dir) write(path string, src Source) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, d.opts.FileMode)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriterSize(f, 64<<10)
	var (
		count int
		buf   []byte
		werr  error
	)
	src(func(key, value []byte) bool {
		packed, c := codec.Pack(d.opts.CompressionThreshold, value)
		rec := record.Record{Key: key, Value: packed, Codec: uint8(c)}
		if c != codec.None {
			rec.Flags = record.FlagCompressed
		}
		buf = record.Append(buf[:0], rec)
		if _, werr = w.Write(buf); werr != nil {
			return false
		}
		count++
		return true
	})
	if werr == nil {
		_, werr = w.Write(record.Encode(record.Trailer(uint64(count))))
	}
	if werr == nil {
		werr = w.Flush()
	}
	if werr == nil && d.opts.Sync {
		werr = f.Sync()
	}
	if err := f.Close(); werr == nil {
		werr = err
	}
	return count, werr
}

// Read decodes the snapshot at path and hands each entry to fn. A damaged or
// cut short file yields ErrCorrupt after the intact prefix was delivered,
// unless repair is set, in which case Read stops there and reports Truncated.
func Read(path string, repair bool, fn func(key, value []byte) error) (Info, error) {
	var info Info
	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReaderSize(f, 64<<10)
	for {
		rec, n, err := record.DecodeFrom(r)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, record.ErrCorrupt) {
				return info, err
			}
			info.Truncated = true
			if repair {
				return info, nil
			}
			return info, fmt.Errorf("%w: %s after %d records: %v", ErrCorrupt, filepath.Base(path), info.Records, err)
		}
		info.Bytes += int64(n)
		if rec.Flags&record.FlagTrailer != 0 {
			want, err := record.TrailerCount(rec)
			if err == nil && want != uint64(info.Records) {
				err = fmt.Errorf("trailer counts %d records, read %d", want, info.Records)
			}
			if err != nil {
				info.Truncated = true
				if repair {
					return info, nil
				}
				return info, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
			}
			return info, nil
		}
		value := rec.Value
		if rec.Flags&record.FlagCompressed != 0 {
			value, err = codec.Decode(codec.CompressionType(rec.Codec), rec.Value)
			if err != nil {
				info.Truncated = true
				if repair {
					return info, nil
				}
				return info, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
			}
		}
		if err := fn(rec.Key, value); err != nil {
			return info, err
		}
		info.Records++
	}
}
