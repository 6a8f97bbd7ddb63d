package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tidwall/redcon"
)

// Set via goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "artreed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, showVersion, err := parseArgs(args)
	if err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("artreed %s (%s, %s)\n", version, commit, date)
		return nil
	}
	logger, err := newLogger(cfg.logLevel)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.close()

	rs := redcon.NewServer(cfg.addr, srv.handle, srv.accept, srv.closed)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		sig := <-sigs
		logger.Info("shutting down", "signal", sig.String())
		_ = rs.Close()
	}()

	logger.Info("artreed listening", "addr", cfg.addr, "dir", cfg.dir, "version", version)
	if err := rs.ListenAndServe(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	_, err = srv.save()
	return err
}

// parseArgs applies defaults, then the -config file, then the command line.
func parseArgs(args []string) (*serverConfig, bool, error) {
	cfg := &serverConfig{}
	fs := flag.NewFlagSet("artreed", flag.ContinueOnError)
	addFlags(fs, cfg)
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if fs.NArg() > 0 {
		return nil, false, fmt.Errorf("unknown arguments: %v", fs.Args())
	}
	if cfg.configFile != "" {
		if err := cfg.overlay(cfg.configFile); err != nil {
			return nil, false, err
		}
		if err := fs.Parse(args); err != nil {
			return nil, false, err
		}
	}
	return cfg, *showVersion, nil
}
