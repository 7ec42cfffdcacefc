// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/canopy-a11y/canopy/client"
)

// runDump connects, waits for the first snapshot, and writes it as
// indented JSON. The service sends the snapshot immediately on
// registration, so this returns quickly or not at all; the caller
// bounds it with a context deadline.
func runDump(ctx context.Context, webSocketURL, tcpAddress, socketPath string, out io.Writer) error {
	c, _, err := dial(ctx, webSocketURL, tcpAddress, socketPath)
	if err != nil {
		return err
	}
	defer c.Close()

	for {
		event, err := c.Next(ctx)
		if err != nil {
			return fmt.Errorf("waiting for snapshot: %w", err)
		}
		if event.Kind != client.EventSnapshot {
			continue
		}
		encoded, err := json.MarshalIndent(event.Update, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", encoded)
		return err
	}
}
