// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// Package fdpass sends open file descriptors between processes over
// Unix domain sockets using SCM_RIGHTS ancillary messages.
//
// Canopy's descriptor-passing acceptor receives each new client as a
// one-byte control datagram carrying one descriptor; the descriptor
// is then adopted as an ordinary net.Conn. This package wraps the
// ancillary-data plumbing so the acceptor deals only in *os.File and
// net.Conn values.
//
// [Pair] creates the connected datagram sockets the control messages
// travel on. [StreamPair] and [DatagramPair] create the plain
// socketpairs whose ends are handed across: one side stays with the
// broker or client, the other is sent through a [Socket].
package fdpass

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Socket is one end of a connected datagram pair that carries file
// descriptors. Safe for one sender and one receiver goroutine; Close
// unblocks a pending Recv.
type Socket struct {
	conn *net.UnixConn
}

// Pair returns two connected descriptor-passing sockets. Descriptors
// sent on one end arrive on the other. Both ends are close-on-exec.
func Pair() (*Socket, *Socket, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("fdpass: socketpair: %w", err)
	}

	first, err := adoptUnixConn(fds[0])
	if err != nil {
		unix.Close(fds[1])
		return nil, nil, err
	}
	second, err := adoptUnixConn(fds[1])
	if err != nil {
		first.Close()
		return nil, nil, err
	}
	return &Socket{conn: first}, &Socket{conn: second}, nil
}

// Send transmits one open descriptor plus a one-byte control note.
// The descriptor is duplicated by the kernel; the caller retains
// ownership of file and may close it immediately after Send returns.
func (s *Socket) Send(file *os.File, note byte) error {
	rights := unix.UnixRights(int(file.Fd()))
	if _, _, err := s.conn.WriteMsgUnix([]byte{note}, rights, nil); err != nil {
		return fmt.Errorf("fdpass: send descriptor: %w", err)
	}
	return nil
}

// Recv blocks until a descriptor arrives and returns it as an
// *os.File along with the sender's control note. The returned file is
// owned by the caller and marked close-on-exec. Recv returns an error
// wrapping net.ErrClosed after Close.
func (s *Socket) Recv() (*os.File, byte, error) {
	control := make([]byte, 1)
	ancillary := make([]byte, unix.CmsgSpace(4))

	n, ancillaryLength, _, _, err := s.conn.ReadMsgUnix(control, ancillary)
	if err != nil {
		return nil, 0, fmt.Errorf("fdpass: receive descriptor: %w", err)
	}
	if n < 1 {
		return nil, 0, fmt.Errorf("fdpass: control datagram carried no note byte")
	}

	messages, err := unix.ParseSocketControlMessage(ancillary[:ancillaryLength])
	if err != nil {
		return nil, 0, fmt.Errorf("fdpass: parse control message: %w", err)
	}

	var received []int
	for _, message := range messages {
		fds, err := unix.ParseUnixRights(&message)
		if err != nil {
			continue
		}
		received = append(received, fds...)
	}
	if len(received) == 0 {
		return nil, 0, fmt.Errorf("fdpass: datagram carried no descriptor")
	}

	// Exactly one descriptor per registration datagram; anything
	// extra is a protocol violation from the peer and is discarded.
	for _, fd := range received[1:] {
		unix.Close(fd)
	}
	unix.CloseOnExec(received[0])
	return os.NewFile(uintptr(received[0]), "fdpass"), control[0], nil
}

// Close closes the socket, unblocking any pending Recv.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// File returns a duplicate of the socket's descriptor, for handing
// this end itself to another process.
func (s *Socket) File() (*os.File, error) {
	file, err := s.conn.File()
	if err != nil {
		return nil, fmt.Errorf("fdpass: dup socket: %w", err)
	}
	return file, nil
}

// StreamPair returns both ends of a connected Unix stream socketpair.
// The typical flow sends one end's descriptor through a Socket and
// keeps the other as the local half of the new connection.
func StreamPair() (*net.UnixConn, *net.UnixConn, error) {
	return connPair(unix.SOCK_STREAM)
}

// DatagramPair returns both ends of a connected Unix datagram
// socketpair, used for the sessionless action-request channel where
// each datagram is one complete message.
func DatagramPair() (*net.UnixConn, *net.UnixConn, error) {
	return connPair(unix.SOCK_DGRAM)
}

func connPair(socketType int) (*net.UnixConn, *net.UnixConn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, socketType|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("fdpass: socketpair: %w", err)
	}

	first, err := adoptUnixConn(fds[0])
	if err != nil {
		unix.Close(fds[1])
		return nil, nil, err
	}
	second, err := adoptUnixConn(fds[1])
	if err != nil {
		first.Close()
		return nil, nil, err
	}
	return first, second, nil
}

// AdoptConn wraps a received stream descriptor as a net.Conn. The
// file is consumed: its descriptor is duplicated into the runtime
// network poller and the original is closed.
func AdoptConn(file *os.File) (net.Conn, error) {
	defer file.Close()
	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("fdpass: adopt descriptor as conn: %w", err)
	}
	return conn, nil
}

// adoptUnixConn wraps a raw socket descriptor as a *net.UnixConn
// registered with the runtime poller, consuming the descriptor.
func adoptUnixConn(fd int) (*net.UnixConn, error) {
	file := os.NewFile(uintptr(fd), "fdpass")
	defer file.Close()

	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("fdpass: adopt socket: %w", err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("fdpass: socketpair produced %T, expected *net.UnixConn", conn)
	}
	return unixConn, nil
}
