package artree

import (
	"io/fs"
	"time"
)

type Option func(*config)

type config struct {
	ThreadSafe bool

	MaxKeySize int
	IterBatch  int

	// Snapshot files.
	DirMode              fs.FileMode
	FileMode             fs.FileMode
	SeqWidth             int
	CompressionThreshold int
	SnapshotSync         bool
	SnapshotKeep         int
	LockTimeout          time.Duration

	Logger Logger
}

func defaultConfig() config {
	return config{
		ThreadSafe:           true,
		MaxKeySize:           1024,
		IterBatch:            64,
		DirMode:              0o755,
		FileMode:             0o644,
		SeqWidth:             9,
		CompressionThreshold: 256,
		SnapshotSync:         true,
		SnapshotKeep:         2,
		LockTimeout:          0,
		Logger:               noopLogger{},
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.MaxKeySize <= 0 {
		cfg.MaxKeySize = 1024
	}
	if cfg.IterBatch <= 0 {
		cfg.IterBatch = 64
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	if cfg.SeqWidth <= 0 {
		cfg.SeqWidth = 9
	}
	if cfg.CompressionThreshold <= 0 {
		cfg.CompressionThreshold = 256
	}
	if cfg.SnapshotKeep <= 0 {
		cfg.SnapshotKeep = 1
	}
	if cfg.LockTimeout < 0 {
		cfg.LockTimeout = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return cfg
}

func WithThreadSafe(v bool) Option           { return func(c *config) { c.ThreadSafe = v } }
func WithMaxKeySize(v int) Option            { return func(c *config) { c.MaxKeySize = v } }
func WithIterBatch(v int) Option             { return func(c *config) { c.IterBatch = v } }
func WithDirMode(v fs.FileMode) Option       { return func(c *config) { c.DirMode = v } }
func WithFileMode(v fs.FileMode) Option      { return func(c *config) { c.FileMode = v } }
func WithSeqWidth(v int) Option              { return func(c *config) { c.SeqWidth = v } }
func WithCompressionThreshold(v int) Option  { return func(c *config) { c.CompressionThreshold = v } }
func WithSnapshotSync(v bool) Option         { return func(c *config) { c.SnapshotSync = v } }
func WithSnapshotKeep(v int) Option          { return func(c *config) { c.SnapshotKeep = v } }
func WithLockTimeout(v time.Duration) Option { return func(c *config) { c.LockTimeout = v } }
func WithLogger(v Logger) Option             { return func(c *config) { c.Logger = v } }
