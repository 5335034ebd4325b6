package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/vanshika/chronos/internal/logging"
)

type fakeConn struct {
	msgs    []*nats.Msg
	err     error
	drained bool
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	pub := newNATSPublisher(conn, "chronos.events.", logging.Discard())

	ev := New(TypeViewSwitched)
	ev.View = "network"
	if err := pub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(conn.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conn.msgs))
	}
	msg := conn.msgs[0]
	if msg.Subject != "chronos.events.view.switched" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.Header.Get(nats.MsgIdHdr) != ev.ID {
		t.Fatalf("expected dedup header %q, got %q", ev.ID, msg.Header.Get(nats.MsgIdHdr))
	}
	var decoded Event
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.View != "network" || decoded.Type != TypeViewSwitched {
		t.Fatalf("unexpected payload %+v", decoded)
	}

	if err := pub.Close(); err != nil || !conn.drained {
		t.Fatal("close should drain the connection")
	}
}

func TestNATSPublisher_Errors(t *testing.T) {
	boom := errors.New("boom")
	pub := newNATSPublisher(&fakeConn{err: boom}, "", logging.Discard())
	if pub.Subject(TypeDataLoaded) != TypeDataLoaded {
		t.Fatalf("empty prefix should publish on the bare type")
	}
	if err := pub.Publish(context.Background(), New(TypeDataLoaded)); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, New(TypeDataLoaded)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryPublisher(t *testing.T) {
	var m Memory
	_ = m.Publish(context.Background(), New(TypeDataLoaded))
	_ = m.Publish(context.Background(), New(TypePlaybackCompleted))
	types := m.Types()
	if len(types) != 2 || types[1] != TypePlaybackCompleted {
		t.Fatalf("unexpected types %v", types)
	}
	if err := (Nop{}).Publish(context.Background(), New(TypeDataEmpty)); err != nil {
		t.Fatal(err)
	}
}
