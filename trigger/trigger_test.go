package trigger

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/kataras/golog"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      Event
		wantErr   bool
		wantFires bool
	}{
		{"start", `{"state":1,"url":"http://10.5.5.9/live"}`, Event{State: 1, URL: "http://10.5.5.9/live"}, false, true},
		{"string state", `{"state":"1","url":"rtsp://cam"}`, Event{State: 1, URL: "rtsp://cam"}, false, true},
		{"stop", `{"state":0,"url":"rtsp://cam"}`, Event{State: 0, URL: "rtsp://cam"}, false, false},
		{"no url", `{"state":1}`, Event{State: 1}, false, false},
		{"no state", `{"url":"rtsp://cam"}`, Event{}, true, false},
		{"bad state", `{"state":"on","url":"rtsp://cam"}`, Event{}, true, false},
		{"not json", `hello`, Event{}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("error %v is not ErrMalformed", err)
				}
				return
			}
			if got.State != tt.want.State || got.URL != tt.want.URL {
				t.Errorf("Decode = %+v, want %+v", got, tt.want)
			}
			if got.Fires() != tt.wantFires {
				t.Errorf("Fires = %v, want %v", got.Fires(), tt.wantFires)
			}
		})
	}
}

func debugLogger() (*golog.Logger, *bytes.Buffer) {
	var out bytes.Buffer
	l := golog.New()
	l.SetOutput(&out)
	l.SetLevel("debug")
	return l, &out
}

func TestWaitFiresOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger, out := debugLogger()
	bound := make(chan net.Addr, 1)
	l := &Listener{Addr: "127.0.0.1:0", Logger: logger, OnListen: func(a net.Addr) { bound <- a }}

	type result struct {
		ev  Event
		err error
	}
	done := make(chan result, 1)
	go func() {
		ev, err := l.Wait(ctx)
		done <- result{ev, err}
	}()

	addr := <-bound
	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	for _, msg := range []string{
		`garbage`,
		`{"state":0,"url":"rtsp://cam"}`,
		`{"state":"1","url":"rtsp://cam/1"}`,
		`{"state":1,"url":"rtsp://cam/2"}`,
	} {
		if _, err := conn.Write([]byte(msg)); err != nil {
			t.Fatal(err)
		}
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("Wait: %v", r.err)
	}
	if r.ev.URL != "rtsp://cam/1" {
		t.Errorf("fired on %q, want the first start message", r.ev.URL)
	}
	if r.ev.From == nil {
		t.Error("event has no sender")
	}
	if !bytes.Contains(out.Bytes(), []byte("ignoring datagram")) {
		t.Errorf("malformed datagram not logged at debug:\n%s", out.String())
	}

	// The socket is closed once Wait returns, so the address can be bound again.
	again, err := net.ListenPacket("udp", addr.String())
	if err != nil {
		t.Fatalf("socket still bound after Wait: %v", err)
	}
	again.Close()
}

func TestWaitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{Addr: "127.0.0.1:0", Logger: golog.New(), OnListen: func(net.Addr) { cancel() }}
	l.Logger.SetOutput(&bytes.Buffer{})

	if _, err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestWaitListenError(t *testing.T) {
	l := &Listener{Addr: "not-an-address"}
	if _, err := l.Wait(context.Background()); err == nil {
		t.Error("Wait on a bad address succeeded")
	}
}
