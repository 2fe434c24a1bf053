package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"memkv/internal/bootstrap"
	"memkv/internal/repl"
	"memkv/pkg/store"
)

func main() {
	configPath := flag.String("config", "memkv.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := bootstrap.InitConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := bootstrap.InitLogger(cfg.Logger, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(cfg.Store, store.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create store", "err", err)
		os.Exit(1)
	}

	fmt.Println("memkv shell. Type 'help' for commands or 'exit' to quit.")
	if err := repl.New(s, os.Stdout).Run(os.Stdin); err != nil {
		slog.Error("input error", "err", err)
		os.Exit(1)
	}
}
