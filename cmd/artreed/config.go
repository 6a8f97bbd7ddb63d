package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/AfshinJalili/artree"
	"gopkg.in/yaml.v3"
)

type serverConfig struct {
	addr       string
	dir        string
	maxKey     int
	iterBatch  int
	sync       bool
	keep       int
	compress   int
	logLevel   string
	configFile string
}

// fileConfig is the YAML shape of -config. Absent fields keep their value.
type fileConfig struct {
	Addr                 *string `yaml:"addr"`
	Dir                  *string `yaml:"dir"`
	MaxKeySize           *int    `yaml:"max_key_size"`
	IterBatch            *int    `yaml:"iter_batch"`
	Sync                 *bool   `yaml:"sync"`
	Keep                 *int    `yaml:"keep"`
	CompressionThreshold *int    `yaml:"compression_threshold"`
	LogLevel             *string `yaml:"log_level"`
}

func addFlags(fs *flag.FlagSet, cfg *serverConfig) {
	fs.StringVar(&cfg.addr, "addr", "127.0.0.1:6380", "listen address")
	fs.StringVar(&cfg.dir, "dir", "", "snapshot directory (empty keeps everything in memory)")
	fs.IntVar(&cfg.maxKey, "max-key", 1024, "max key size in bytes")
	fs.IntVar(&cfg.iterBatch, "iter-batch", 64, "entries copied per scan refill")
	fs.BoolVar(&cfg.sync, "sync", true, "fsync snapshot files")
	fs.IntVar(&cfg.keep, "keep", 2, "snapshots kept in -dir")
	fs.IntVar(&cfg.compress, "compression-threshold", 256, "compress values at least this large")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.configFile, "config", "", "YAML config file")
}

func (c *serverConfig) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if fc.Addr != nil {
		c.addr = *fc.Addr
	}
	if fc.Dir != nil {
		c.dir = *fc.Dir
	}
	if fc.MaxKeySize != nil {
		c.maxKey = *fc.MaxKeySize
	}
	if fc.IterBatch != nil {
		c.iterBatch = *fc.IterBatch
	}
	if fc.Sync != nil {
		c.sync = *fc.Sync
	}
	if fc.Keep != nil {
		c.keep = *fc.Keep
	}
	if fc.CompressionThreshold != nil {
		c.compress = *fc.CompressionThreshold
	}
	if fc.LogLevel != nil {
		c.logLevel = *fc.LogLevel
	}
	return nil
}

func (c *serverConfig) options() []artree.Option {
	return []artree.Option{
		artree.WithMaxKeySize(c.maxKey),
		artree.WithIterBatch(c.iterBatch),
		artree.WithSnapshotSync(c.sync),
		artree.WithSnapshotKeep(c.keep),
		artree.WithCompressionThreshold(c.compress),
	}
}
