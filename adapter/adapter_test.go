// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/canopy-a11y/canopy/lib/codec"
	"github.com/canopy-a11y/canopy/lib/testutil"
	"github.com/canopy-a11y/canopy/schema"
	"github.com/canopy-a11y/canopy/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticTree is the initial state used across these tests: a window
// containing one clickable button.
func staticTree() schema.TreeUpdate {
	return schema.TreeUpdate{
		Tree: &schema.TreeInfo{Root: 1, AppName: "canopy-test"},
		Nodes: []schema.Node{
			{ID: 1, Role: schema.RoleWindow, Children: []schema.NodeID{2}},
			{ID: 2, Role: schema.RoleButton, Label: "OK", Actions: []schema.Action{schema.ActionClick}},
		},
		Focus: 2,
	}
}

// relabelButton is the incremental update the tests apply: it rewrites
// the button node with a new label.
func relabelButton(label string) schema.TreeUpdate {
	return schema.TreeUpdate{
		Nodes: []schema.Node{
			{ID: 2, Role: schema.RoleButton, Label: label, Actions: []schema.Action{schema.ActionClick}},
		},
	}
}

func nodeLabel(update schema.TreeUpdate, id schema.NodeID) string {
	for _, node := range update.Nodes {
		if node.ID == id {
			return node.Label
		}
	}
	return ""
}

// startAdapter runs an adapter behind a Unix socket listener and
// returns the handle plus the socket path clients should dial.
func startAdapter(t *testing.T, factory TreeFactory, handler ActionHandler, opts ...Option) (*Adapter, string) {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "tree.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listening on %s: %v", socketPath, err)
	}
	options := append([]Option{WithLogger(discardLogger())}, opts...)
	a := New(NewListenerAcceptor(listener), factory, handler, options...)
	t.Cleanup(func() { a.Close() })
	return a, socketPath
}

// testClient is a minimal framed-protocol client for driving the
// adapter from the outside.
type testClient struct {
	t    *testing.T
	conn net.Conn
}

func dialAdapter(t *testing.T, socketPath string) *testClient {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dialing %s: %v", socketPath, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) readFrame() wire.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	frame, err := wire.ReadFrame(c.conn)
	if err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}
	return frame
}

func (c *testClient) readUpdate() (wire.FrameType, schema.TreeUpdate) {
	c.t.Helper()
	frame := c.readFrame()
	var update schema.TreeUpdate
	if err := codec.Unmarshal(frame.Payload, &update); err != nil {
		c.t.Fatalf("decoding %v payload: %v", frame.Type, err)
	}
	return frame.Type, update
}

func (c *testClient) sendFrame(frameType wire.FrameType, payload []byte) {
	c.t.Helper()
	if err := wire.WriteFrame(c.conn, frameType, payload, wire.CompressionNone); err != nil {
		c.t.Fatalf("writing %v frame: %v", frameType, err)
	}
}

func (c *testClient) sendAction(request schema.ActionRequest) {
	c.t.Helper()
	payload, err := codec.Marshal(&request)
	if err != nil {
		c.t.Fatalf("encoding action request: %v", err)
	}
	c.sendFrame(wire.FrameAction, payload)
}

// expectEOF asserts that the server closes the connection without
// sending another frame.
func (c *testClient) expectEOF() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := wire.ReadFrame(c.conn); err != io.EOF {
		c.t.Fatalf("expected connection close, got err=%v", err)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %s waiting for %s", timeout, description)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSnapshotOnConnect(t *testing.T) {
	var factoryCalls atomic.Int32
	factory := func() schema.TreeUpdate {
		factoryCalls.Add(1)
		return staticTree()
	}
	_, socketPath := startAdapter(t, factory, nil)

	client := dialAdapter(t, socketPath)
	frameType, snapshot := client.readUpdate()
	if frameType != wire.FrameSnapshot {
		t.Fatalf("first frame type = %v, want %v", frameType, wire.FrameSnapshot)
	}
	if snapshot.Tree == nil || snapshot.Tree.Root != 1 {
		t.Fatalf("snapshot tree info = %+v, want root 1", snapshot.Tree)
	}
	if len(snapshot.Nodes) != 2 {
		t.Fatalf("snapshot has %d nodes, want 2", len(snapshot.Nodes))
	}
	if snapshot.Focus != 2 {
		t.Errorf("snapshot focus = %d, want 2", snapshot.Focus)
	}
	if got := factoryCalls.Load(); got != 1 {
		t.Fatalf("tree factory ran %d times, want 1", got)
	}

	// A second client gets its own snapshot from the already-built
	// tree; the factory must not run again.
	second := dialAdapter(t, socketPath)
	frameType, snapshot = second.readUpdate()
	if frameType != wire.FrameSnapshot {
		t.Fatalf("second client's first frame type = %v, want %v", frameType, wire.FrameSnapshot)
	}
	if len(snapshot.Nodes) != 2 {
		t.Fatalf("second snapshot has %d nodes, want 2", len(snapshot.Nodes))
	}
	if got := factoryCalls.Load(); got != 1 {
		t.Fatalf("tree factory ran %d times after second connect, want 1", got)
	}
}

func TestUpdateFansOutIdenticalBytes(t *testing.T) {
	a, socketPath := startAdapter(t, staticTree, nil)

	first := dialAdapter(t, socketPath)
	second := dialAdapter(t, socketPath)
	first.readUpdate()
	second.readUpdate()

	a.Update(relabelButton("Cancel"))

	frameA := first.readFrame()
	frameB := second.readFrame()
	if frameA.Type != wire.FrameUpdate {
		t.Fatalf("frame type = %v, want %v", frameA.Type, wire.FrameUpdate)
	}
	if !bytes.Equal(frameA.Payload, frameB.Payload) {
		t.Error("fan-out delivered different bytes to two clients")
	}

	var state schema.TreeUpdate
	if err := codec.Unmarshal(frameA.Payload, &state); err != nil {
		t.Fatalf("decoding update payload: %v", err)
	}
	// Update deliveries carry the full post-update state, not the
	// increment the application supplied.
	if len(state.Nodes) != 2 {
		t.Fatalf("update payload has %d nodes, want full state with 2", len(state.Nodes))
	}
	if got := nodeLabel(state, 2); got != "Cancel" {
		t.Errorf("button label = %q, want %q", got, "Cancel")
	}
	if state.Tree == nil || state.Tree.Root != 1 {
		t.Errorf("update payload tree info = %+v, want root 1", state.Tree)
	}
}

func TestUpdatesArriveInOrder(t *testing.T) {
	a, socketPath := startAdapter(t, staticTree, nil)
	client := dialAdapter(t, socketPath)
	client.readUpdate()

	labels := []string{"one", "two", "three", "four", "five"}
	for _, label := range labels {
		a.Update(relabelButton(label))
	}
	for _, want := range labels {
		_, state := client.readUpdate()
		if got := nodeLabel(state, 2); got != want {
			t.Fatalf("out-of-order update: got label %q, want %q", got, want)
		}
	}
}

func TestUpdateBeforeFirstClientForcesTree(t *testing.T) {
	var factoryCalls atomic.Int32
	factory := func() schema.TreeUpdate {
		factoryCalls.Add(1)
		return staticTree()
	}
	a, socketPath := startAdapter(t, factory, nil)

	// No clients yet: the update must still land in the tree, and
	// landing it forces the factory.
	a.Update(relabelButton("merged"))
	waitUntil(t, 5*time.Second, "first update forcing the tree", func() bool {
		return factoryCalls.Load() == 1
	})

	client := dialAdapter(t, socketPath)
	frameType, snapshot := client.readUpdate()
	if frameType != wire.FrameSnapshot {
		t.Fatalf("frame type = %v, want %v", frameType, wire.FrameSnapshot)
	}
	if got := nodeLabel(snapshot, 2); got != "merged" {
		t.Errorf("snapshot label = %q, want %q (update applied before connect)", got, "merged")
	}
	if got := factoryCalls.Load(); got != 1 {
		t.Errorf("tree factory ran %d times, want 1", got)
	}
}

func TestUpdateIfActiveSuppressedWhileIdle(t *testing.T) {
	var treeFactoryCalls, updateFactoryCalls atomic.Int32
	factory := func() schema.TreeUpdate {
		treeFactoryCalls.Add(1)
		return staticTree()
	}
	a, socketPath := startAdapter(t, factory, nil)

	a.UpdateIfActive(func() schema.TreeUpdate {
		updateFactoryCalls.Add(1)
		return relabelButton("never")
	})
	if got := updateFactoryCalls.Load(); got != 0 {
		t.Fatalf("update factory ran %d times with no clients, want 0", got)
	}
	if got := treeFactoryCalls.Load(); got != 0 {
		t.Fatalf("tree factory ran %d times with no clients, want 0", got)
	}

	client := dialAdapter(t, socketPath)
	client.readUpdate()

	a.UpdateIfActive(func() schema.TreeUpdate {
		updateFactoryCalls.Add(1)
		return relabelButton("pressed")
	})
	if got := updateFactoryCalls.Load(); got != 1 {
		t.Fatalf("update factory ran %d times with a client connected, want 1", got)
	}

	// The delivery carries the increment itself, not full state.
	frameType, delta := client.readUpdate()
	if frameType != wire.FrameUpdate {
		t.Fatalf("frame type = %v, want %v", frameType, wire.FrameUpdate)
	}
	if len(delta.Nodes) != 1 || delta.Tree != nil {
		t.Fatalf("conditional update payload = %+v, want just the changed node", delta)
	}
	if got := nodeLabel(delta, 2); got != "pressed" {
		t.Errorf("delta label = %q, want %q", got, "pressed")
	}

	// Once the client departs, suppression kicks back in.
	client.conn.Close()
	waitUntil(t, 5*time.Second, "client deregistration", func() bool { return !a.Active() })
	a.UpdateIfActive(func() schema.TreeUpdate {
		updateFactoryCalls.Add(1)
		return relabelButton("never again")
	})
	if got := updateFactoryCalls.Load(); got != 1 {
		t.Fatalf("update factory ran %d times after disconnect, want 1", got)
	}
}

func TestActionRelay(t *testing.T) {
	actions := make(chan schema.ActionRequest, 8)
	handler := ActionHandlerFunc(func(request schema.ActionRequest) {
		actions <- request
	})
	_, socketPath := startAdapter(t, staticTree, handler)
	client := dialAdapter(t, socketPath)
	client.readUpdate()

	client.sendAction(schema.ActionRequest{Action: schema.ActionClick, Target: 2})
	got := testutil.RequireReceive(t, actions, 5*time.Second, "relayed click")
	if got.Action != schema.ActionClick || got.Target != 2 {
		t.Fatalf("relayed request = %+v, want click on node 2", got)
	}

	// Requests with data survive the trip intact.
	sent := schema.ActionRequest{
		Action: schema.ActionSetValue,
		Target: 2,
		Data:   &schema.ActionData{Value: "new text"},
	}
	client.sendAction(sent)
	got = testutil.RequireReceive(t, actions, 5*time.Second, "relayed setValue")
	if got.Action != schema.ActionSetValue || got.Data == nil || got.Data.Value != "new text" {
		t.Fatalf("relayed request = %+v, want %+v", got, sent)
	}
}

func TestMalformedActionDiscarded(t *testing.T) {
	actions := make(chan schema.ActionRequest, 8)
	handler := ActionHandlerFunc(func(request schema.ActionRequest) {
		actions <- request
	})
	_, socketPath := startAdapter(t, staticTree, handler)
	client := dialAdapter(t, socketPath)
	client.readUpdate()

	// Undecodable bytes.
	client.sendFrame(wire.FrameAction, []byte{0xff, 0x00, 0x01})
	// Decodable but structurally empty: no action name, no target.
	empty, err := codec.Marshal(&schema.ActionRequest{})
	if err != nil {
		t.Fatalf("encoding empty request: %v", err)
	}
	client.sendFrame(wire.FrameAction, empty)

	// A valid probe afterwards must be the first thing the handler
	// sees: the malformed requests produced zero invocations and the
	// session survived them.
	client.sendAction(schema.ActionRequest{Action: schema.ActionFocus, Target: 2})
	got := testutil.RequireReceive(t, actions, 5*time.Second, "probe action")
	if got.Action != schema.ActionFocus {
		t.Fatalf("handler saw %+v before the probe; malformed requests leaked through", got)
	}
}

func TestGoodbyeDisconnects(t *testing.T) {
	a, socketPath := startAdapter(t, staticTree, nil)
	client := dialAdapter(t, socketPath)
	client.readUpdate()
	if !a.Active() {
		t.Fatal("adapter reports no clients while one is connected")
	}

	client.sendFrame(wire.FrameGoodbye, nil)
	waitUntil(t, 5*time.Second, "goodbye deregistration", func() bool { return !a.Active() })
}

func TestDisconnectDuringFanOut(t *testing.T) {
	a, socketPath := startAdapter(t, staticTree, nil)
	first := dialAdapter(t, socketPath)
	second := dialAdapter(t, socketPath)
	first.readUpdate()
	second.readUpdate()

	// Kill one client, then fan out. The dead session is pruned and
	// the survivor still gets the update.
	first.conn.Close()
	a.Update(relabelButton("survivor"))
	_, state := second.readUpdate()
	if got := nodeLabel(state, 2); got != "survivor" {
		t.Fatalf("surviving client got label %q, want %q", got, "survivor")
	}

	second.conn.Close()
	waitUntil(t, 5*time.Second, "both clients deregistered", func() bool { return !a.Active() })
}

func TestFactoryFailureIsSticky(t *testing.T) {
	var factoryCalls atomic.Int32
	factory := func() schema.TreeUpdate {
		factoryCalls.Add(1)
		// No tree info, no root: unusable.
		return schema.TreeUpdate{}
	}
	a, socketPath := startAdapter(t, factory, nil)

	client := dialAdapter(t, socketPath)
	client.expectEOF()
	if got := factoryCalls.Load(); got != 1 {
		t.Fatalf("tree factory ran %d times, want 1", got)
	}

	// The failure is permanent: later connections are refused without
	// another factory run, and the adapter itself stays up.
	second := dialAdapter(t, socketPath)
	second.expectEOF()
	if got := factoryCalls.Load(); got != 1 {
		t.Fatalf("tree factory retried after failure: %d runs", got)
	}

	a.Update(relabelButton("dropped"))
	if err := a.Close(); err != nil {
		t.Fatalf("Close after factory failure: %v", err)
	}
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	a, socketPath := startAdapter(t, staticTree, nil)
	client := dialAdapter(t, socketPath)
	client.readUpdate()

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	client.expectEOF()
	if a.Active() {
		t.Error("Active() = true after Close")
	}

	// Second close, concurrent close, and post-close operations are
	// all harmless no-ops.
	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	testutil.RequireClosed(t, done, 5*time.Second, "concurrent Close returning")

	a.Update(relabelButton("ignored"))
	a.UpdateIfActive(func() schema.TreeUpdate {
		t.Error("update factory ran after Close")
		return schema.TreeUpdate{}
	})
}

func TestCloseRefusesNewConnections(t *testing.T) {
	a, socketPath := startAdapter(t, staticTree, nil)
	client := dialAdapter(t, socketPath)
	client.readUpdate()
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := net.Dial("unix", socketPath); err == nil {
		t.Error("dial succeeded after Close; listener should be gone")
	}
}
