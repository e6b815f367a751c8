// Package trigger waits for the external start signal: a JSON datagram
// {"state": 1, "url": "..."} sent over UDP by the camera bridge.
package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/kataras/golog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StateStart is the state value that starts a recording.
const StateStart = 1

const maxDatagram = 64 * 1024

// ErrMalformed is returned by Decode for datagrams that are not a trigger
// message.
var ErrMalformed = errors.New("trigger: malformed datagram")

// Event is a decoded trigger message.
type Event struct {
	State int      `json:"state"`
	URL   string   `json:"url"`
	From  net.Addr `json:"-"`
}

// Fires reports whether the event starts a recording.
func (e Event) Fires() bool {
	return e.State == StateStart && e.URL != ""
}

// state accepts a JSON number or a numeric string.
type state int

func (s *state) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("state %q: %w", b, err)
	}
	*s = state(n)
	return nil
}

// Decode parses one datagram.
func Decode(b []byte) (Event, error) {
	var msg struct {
		State *state `json:"state"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(b, &msg); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if msg.State == nil {
		return Event{}, fmt.Errorf("%w: no state", ErrMalformed)
	}
	return Event{State: int(*msg.State), URL: msg.URL}, nil
}

// Listener receives trigger datagrams on a UDP address.
type Listener struct {
	// Addr is the local address, e.g. ":7755".
	Addr string
	// OnListen, if set, is called with the bound address before the
	// first read.
	OnListen func(addr net.Addr)

	Logger *golog.Logger
}

// Wait binds Addr and blocks until a datagram fires or ctx ends. The
// socket is closed before Wait returns, so each Wait fires at most once.
func (l *Listener) Wait(ctx context.Context) (Event, error) {
	logger := l.Logger
	if logger == nil {
		logger = golog.Default
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", l.Addr)
	if err != nil {
		return Event{}, fmt.Errorf("trigger: listen %s: %w", l.Addr, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	logger.Infof("waiting for trigger addr=%s", conn.LocalAddr())
	if l.OnListen != nil {
		l.OnListen(conn.LocalAddr())
	}

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, fmt.Errorf("trigger: read: %w", err)
		}

		ev, err := Decode(buf[:n])
		if err != nil {
			logger.Debugf("ignoring datagram from=%s: %v", from, err)
			continue
		}
		ev.From = from
		if !ev.Fires() {
			logger.Debugf("ignoring trigger from=%s state=%d url=%q", from, ev.State, ev.URL)
			continue
		}

		logger.Infof("trigger fired from=%s url=%s", from, ev.URL)
		return ev, nil
	}
}
