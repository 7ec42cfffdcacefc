// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/canopy-a11y/canopy/lib/codec"
	"github.com/canopy-a11y/canopy/lib/fdpass"
	"github.com/canopy-a11y/canopy/schema"
)

// maxActionDatagramLength bounds one sessionless action request on the
// datagram socket. Oversize datagrams are truncated by the kernel and
// then fail to decode, which discards them.
const maxActionDatagramLength = 64 * 1024

// registrationStream is the note byte accompanying each descriptor on
// the registration socket. The value is part of the pairing protocol
// but currently carries no information.
const registrationStream byte = 0x01

// PairAcceptor accepts clients over a pre-connected socket pair, the
// shape used when a platform broker sits between clients and the
// application: the broker passes one file descriptor per new client
// over the registration socket (each becoming a raw unframed stream
// session) and forwards sessionless action requests as single
// datagrams on the action socket.
type PairAcceptor struct {
	registration *fdpass.Socket
	actions      *net.UnixConn
}

// PairPeer is the broker side of a PairAcceptor. Both sides come from
// [NewPairAcceptor]; the peer is typically handed to another process
// via [fdpass.Socket.File].
type PairPeer struct {
	// Registration carries one descriptor per new client.
	Registration *fdpass.Socket
	// Actions carries one encoded action request per datagram.
	Actions *net.UnixConn
}

// NewPairAcceptor creates the acceptor and its broker peer, wired
// together by a pair of connected sockets.
func NewPairAcceptor() (*PairAcceptor, *PairPeer, error) {
	registrationLocal, registrationPeer, err := fdpass.Pair()
	if err != nil {
		return nil, nil, fmt.Errorf("adapter: registration socket: %w", err)
	}
	actionLocal, actionPeer, err := fdpass.DatagramPair()
	if err != nil {
		registrationLocal.Close()
		registrationPeer.Close()
		return nil, nil, fmt.Errorf("adapter: action socket: %w", err)
	}
	acceptor := &PairAcceptor{registration: registrationLocal, actions: actionLocal}
	peer := &PairPeer{Registration: registrationPeer, Actions: actionPeer}
	return acceptor, peer, nil
}

// serve runs both pumps until their sockets close. The stop channel
// is not needed here: shutdown closes the sockets, and the sink
// rejects deliveries once the adapter is draining.
func (a *PairAcceptor) serve(sink acceptorSink, _ <-chan struct{}) {
	var wait sync.WaitGroup
	wait.Add(2)

	// Goroutine: registration socket → worker transports.
	go func() {
		defer wait.Done()
		for {
			file, _, err := a.registration.Recv()
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					sink.logger.Warn("registration socket failed", "error", err)
				}
				return
			}
			conn, err := fdpass.AdoptConn(file)
			if err != nil {
				sink.logger.Warn("rejecting passed descriptor", "error", err)
				continue
			}
			tr := newRawStreamTransport(conn)
			if !sink.adoptTransport(tr) {
				tr.close()
				return
			}
		}
	}()

	// Goroutine: action datagrams → worker requests.
	go func() {
		defer wait.Done()
		buffer := make([]byte, maxActionDatagramLength)
		for {
			n, err := a.actions.Read(buffer)
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					sink.logger.Warn("action socket failed", "error", err)
				}
				return
			}
			if n == 0 {
				continue
			}
			payload := make([]byte, n)
			copy(payload, buffer[:n])
			if !sink.dispatchRequest(payload) {
				return
			}
		}
	}()

	wait.Wait()
}

func (a *PairAcceptor) shutdown() {
	a.registration.Close()
	a.actions.Close()
}

// Connect registers a new client from the peer side: it creates a
// connected stream pair, passes one end over the registration socket,
// and returns the other end for the client to read. The returned
// connection carries consecutive unframed payloads; anything the
// client writes before closing is treated as one action request.
func (p *PairPeer) Connect() (net.Conn, error) {
	local, remote, err := fdpass.StreamPair()
	if err != nil {
		return nil, fmt.Errorf("adapter: client stream: %w", err)
	}
	remoteFile, err := remote.File()
	remote.Close()
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("adapter: client stream: %w", err)
	}
	err = p.Registration.Send(remoteFile, registrationStream)
	remoteFile.Close()
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("adapter: registering client: %w", err)
	}
	return local, nil
}

// SendAction encodes one action request and sends it as a single
// datagram on the action socket.
func (p *PairPeer) SendAction(request schema.ActionRequest) error {
	payload, err := codec.Marshal(&request)
	if err != nil {
		return fmt.Errorf("adapter: encoding action request: %w", err)
	}
	if len(payload) > maxActionDatagramLength {
		return fmt.Errorf("adapter: action request exceeds %d bytes", maxActionDatagramLength)
	}
	if _, err := p.Actions.Write(payload); err != nil {
		return fmt.Errorf("adapter: sending action request: %w", err)
	}
	return nil
}

func (p *PairPeer) Close() error {
	err := p.Registration.Close()
	if closeErr := p.Actions.Close(); err == nil {
		err = closeErr
	}
	return err
}
