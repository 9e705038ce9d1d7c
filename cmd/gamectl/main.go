// Copyright 2026 © The GAME SDK Authors
// SPDX-License-Identifier: Apache-2.0

// gamectl is a small helper CLI: it validates agent manifests and checks
// connectivity and credentials against a GAME API endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/virtuals-io/game-go/pkg/api"
	"github.com/virtuals-io/game-go/pkg/config"
	"github.com/virtuals-io/game-go/pkg/manifest"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "validate":
		runValidate(os.Args[2:])
	case "ping":
		runPing(ctx, os.Args[2:])
	case "version":
		fmt.Printf("gamectl %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fatal(fmt.Errorf("unknown command %q", os.Args[1]))
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: gamectl validate <manifest.yaml|manifest.json>")
	}
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	m, err := manifest.Load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "agent\t%s\n", m.Name)
	fmt.Fprintf(w, "goal\t%s\n", m.Goal)
	for _, worker := range m.Workers {
		fmt.Fprintf(w, "worker\t%s\t%d function(s)\n", worker.ID, len(worker.Functions))
		for _, fn := range worker.Functions {
			fmt.Fprintf(w, "\t- %s\t%s\n", fn.Name, fn.Description)
		}
	}
	w.Flush()
	fmt.Println("manifest is valid")
}

// runPing registers a short-lived probe agent to verify the endpoint and
// API key work end to end.
func runPing(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a config file")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: gamectl ping [-config file] [-timeout d]")
		fmt.Fprintln(os.Stderr, "requires GAME_API_KEY in the environment or config")
	}
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if cfg.API.Key == "" {
		fatal(fmt.Errorf("no API key configured (set GAME_API_KEY)"))
	}

	client, err := api.New(cfg.API.Key,
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(*timeout),
	)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	id, err := client.CreateAgent(ctx, "gamectl-ping", "connectivity probe", "verify credentials")
	if err != nil {
		fatal(err)
	}
	fmt.Printf("ok: %s responded in %s (probe agent %s)\n",
		cfg.API.BaseURL, time.Since(start).Round(time.Millisecond), id)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `gamectl - GAME SDK helper

usage:
  gamectl validate <manifest>   check an agent manifest
  gamectl ping [flags]          verify endpoint and credentials
  gamectl version               print version
  gamectl help                  show this help`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "gamectl: %v\n", err)
	os.Exit(1)
}
