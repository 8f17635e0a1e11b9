// Package rendezvous negotiates direct peer-to-peer chat endpoints between
// two sessions. The broker is a stateless relay: each message carries
// everything needed to route it, and nothing is tracked between messages.
//
// The requester address handed out is the one the server observed for the
// target's own connection, which works on a shared network but is not
// NAT-safe. Known limitation.
package rendezvous

import (
	"errors"
	"net"

	"github.com/ghostnet/ghostserver/logger"
	"github.com/ghostnet/ghostserver/protocol"
	"github.com/ghostnet/ghostserver/session"
)

var (
	ErrTargetNotFound = errors.New("peer not available")
	ErrSelfTarget     = errors.New("cannot open a channel to yourself")
)

// Broker resolves pseudonyms through the session registry and relays the
// four-message P2P handshake.
type Broker struct {
	registry *session.Registry
}

func NewBroker(registry *session.Registry) *Broker {
	return &Broker{registry: registry}
}

// HandleInit processes REQ_P2P_INIT from the requester: resolve the target
// and forward REQ_P2P_START carrying the requester's pseudonym. Errors go
// back to the requester; no third party hears about them.
func (b *Broker) HandleInit(requester *session.Session, payload []byte) error {
	target := string(payload)
	if target == requester.Pseudonym() {
		return ErrSelfTarget
	}
	targetSession, ok := b.registry.Lookup(target)
	if !ok {
		return ErrTargetNotFound
	}
	return targetSession.Send(protocol.ReqP2PStart, []byte(requester.Pseudonym()))
}

// HandleReady processes RESP_P2P_READY from the target: the target has a
// listener up, so tell the requester where to dial. A requester that
// disconnected meanwhile is silently dropped; there is no retry.
func (b *Broker) HandleReady(target *session.Session, payload []byte) error {
	requester, port, err := protocol.DecodeP2PReady(payload)
	if err != nil {
		return err
	}

	requesterSession, ok := b.registry.Lookup(requester)
	if !ok {
		logger.Log.Debugw("p2p requester gone, dropping ready",
			"requester", requester, "target", target.Pseudonym())
		return nil
	}

	host, _, err := net.SplitHostPort(target.RemoteAddr().String())
	if err != nil {
		host = target.RemoteAddr().String()
	}
	connect, err := protocol.EncodeP2PConnect(host, port)
	if err != nil {
		return err
	}
	return requesterSession.Send(protocol.RespP2PConnect, connect)
}
