package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"memkv/internal/bootstrap"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: benchmark [-config file] [-keys seq|uuid] [-verify] [iterations] [m|h|s]\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "memkv.yaml", "path to YAML config")
	keys := flag.String("keys", "", "key mode: seq or uuid (overrides config)")
	verify := flag.Bool("verify", false, "read every key back after the run")
	flag.Usage = usage
	flag.Parse()

	cfg, err := bootstrap.InitConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if _, err := bootstrap.InitLogger(cfg.Logger, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	bench := cfg.Bench
	if *keys != "" {
		bench.Keys = *keys
	}
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil || n < 0 {
			usage()
			os.Exit(2)
		}
		bench.Iterations = n
	}
	if flag.NArg() > 1 {
		bench.Backend = flag.Arg(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b, err := newBackend(bench.Backend, cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create backend: %v\n", err)
		os.Exit(2)
	}

	res, err := run(ctx, b.kv, bench, os.Stdout)
	if err != nil {
		slog.Error("benchmark failed", "backend", bench.Backend, "err", err)
		os.Exit(1)
	}

	if *verify {
		if err := verifyKeys(b.kv, bench); err != nil {
			slog.Error("verification failed", "err", err)
			os.Exit(1)
		}
	}

	printResult(os.Stdout, bench, res, b)
}
