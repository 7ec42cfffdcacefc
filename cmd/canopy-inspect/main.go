// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// canopy-inspect is a terminal UI for watching a live Canopy tree
// stream. It connects to a service (Unix socket, TCP, or WebSocket),
// mirrors the tree from the snapshot and update stream, and renders it
// as a navigable outline with a node detail pane. Selected nodes can
// be clicked, exercising the service's action relay path.
//
// With --dump, or when stdout is not a terminal, it instead prints the
// first snapshot as JSON and exits, for scripts and golden tests.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/canopy-a11y/canopy/client"
	"github.com/canopy-a11y/canopy/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketPath string
	var tcpAddress string
	var webSocketURL string
	var dump bool
	var connectTimeout time.Duration

	flagSet := pflag.NewFlagSet("canopy-inspect", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", defaultSocketPath(), "unix socket path of the tree service")
	flagSet.StringVar(&tcpAddress, "tcp", "", "host:port of a TCP tree service (overrides --socket)")
	flagSet.StringVar(&webSocketURL, "url", "", "ws:// or wss:// URL of a WebSocket tree service (overrides --tcp and --socket)")
	flagSet.BoolVar(&dump, "dump", false, "print the current tree as JSON and exit (implied when stdout is not a terminal)")
	flagSet.DurationVar(&connectTimeout, "timeout", 10*time.Second, "connect and first-snapshot timeout for --dump")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if *showVersion {
		fmt.Printf("canopy-inspect %s\n", version.Info())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if dump || !term.IsTerminal(int(os.Stdout.Fd())) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return runDump(ctx, webSocketURL, tcpAddress, socketPath, os.Stdout)
	}

	c, target, err := dial(context.Background(), webSocketURL, tcpAddress, socketPath)
	if err != nil {
		return err
	}
	source := newStreamSource(c)

	model := NewModel(source, target)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	source.stop()
	return err
}

// dial connects using the most specific of the three address flags.
func dial(ctx context.Context, webSocketURL, tcpAddress, socketPath string) (*client.Client, string, error) {
	switch {
	case webSocketURL != "":
		c, err := client.DialWebSocket(ctx, webSocketURL)
		return c, webSocketURL, err
	case tcpAddress != "":
		c, err := client.Dial(ctx, "tcp", tcpAddress)
		return c, tcpAddress, err
	default:
		c, err := client.Dial(ctx, "unix", socketPath)
		return c, socketPath, err
	}
}

func defaultSocketPath() string {
	return fmt.Sprintf("%s/canopy-mock.sock", os.TempDir())
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Canopy tree inspector — watch a live accessibility tree stream.

Connects to a Canopy service and renders the tree as an outline that
follows updates in real time. The left pane lists nodes (arrows or j/k
to move, / to filter); the right pane shows the selected node's detail.
Press "a" to send a click action to the selected node, "q" to quit.

Usage:
  canopy-inspect [flags]

Flags:
%s`, flagSet.FlagUsages())
}
