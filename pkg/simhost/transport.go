package simhost

import (
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pair"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// pairSocket wraps a mangos PAIR socket. Send is safe for concurrent use.
type pairSocket struct {
	sock mangos.Socket
}

func newPairSocket() (*pairSocket, error) {
	sock, err := pair.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("create pair socket: %w", err)
	}
	return &pairSocket{sock: sock}, nil
}

func (s *pairSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

func (s *pairSocket) Dial(addr string) error {
	return s.sock.Dial(addr)
}

func (s *pairSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *pairSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (s *pairSocket) SendMessage(m *Message) error {
	b, err := encodeMessage(m)
	if err != nil {
		return err
	}
	return s.sock.Send(b)
}

func (s *pairSocket) RecvMessage() (*Message, error) {
	b, err := s.sock.Recv()
	if err != nil {
		return nil, err
	}
	return decodeMessage(b)
}

func (s *pairSocket) Close() error {
	return s.sock.Close()
}
