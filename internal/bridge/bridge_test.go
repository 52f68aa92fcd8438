package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/iotgw/iotgwd/internal/config"
	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/message"
)

type fakeConn struct {
	kind      message.Kind
	name      string
	rx        connector.RXCallback
	sent      []message.Message
	sendErr   error
	startErr  error
	started   bool
	stopped   bool
}

func (f *fakeConn) Kind() message.Kind              { return f.kind }
func (f *fakeConn) Name() string                    { return f.name }
func (f *fakeConn) SetRXCallback(cb connector.RXCallback) { f.rx = cb }
func (f *fakeConn) Start(ctx context.Context) error {
	f.started = true
	return f.startErr
}
func (f *fakeConn) Send(ctx context.Context, msg message.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}
func (f *fakeConn) Poll(ctx context.Context) error { return nil }
func (f *fakeConn) Stop(ctx context.Context) error { f.stopped = true; return nil }
func (f *fakeConn) Close() error                   { return nil }

func TestPrepareResolvesIdentityTransform(t *testing.T) {
	src := &fakeConn{kind: message.KindMQTT, name: "src"}
	dst := &fakeConn{kind: message.KindMQTT, name: "dst"}
	opened := map[string]connector.Runtime{"src": src, "dst": dst}

	rt, err := Prepare("b1", config.Bridge{From: "src", To: "dst"}, opened, "ingest")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if rt.Name != "b1" {
		t.Errorf("rt.Name = %q, want b1", rt.Name)
	}
}

func TestPrepareUnknownConnectorIsConfigError(t *testing.T) {
	opened := map[string]connector.Runtime{}
	_, err := Prepare("b1", config.Bridge{From: "missing", To: "missing"}, opened, "ingest")
	if err == nil {
		t.Fatal("expected Prepare() to fail for an unknown connector")
	}
}

func TestPrepareNoDefaultTransformIsUnsupportedPair(t *testing.T) {
	src := &fakeConn{kind: message.KindSPI, name: "src"}
	dst := &fakeConn{kind: message.KindUART, name: "dst"}
	opened := map[string]connector.Runtime{"src": src, "dst": dst}

	_, err := Prepare("b1", config.Bridge{From: "src", To: "dst"}, opened, "ingest")
	if err == nil {
		t.Fatal("expected Prepare() to reject an unsupported source/destination pair")
	}
}

func TestStartRollsBackDestinationIfSourceFails(t *testing.T) {
	src := &fakeConn{kind: message.KindMQTT, name: "src", startErr: errors.New("boom")}
	dst := &fakeConn{kind: message.KindMQTT, name: "dst"}
	opened := map[string]connector.Runtime{"src": src, "dst": dst}

	rt, err := Prepare("b1", config.Bridge{From: "src", To: "dst"}, opened, "ingest")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if err := rt.Start(context.Background()); err == nil {
		t.Fatal("expected Start() to fail when the source fails to start")
	}
	if !dst.started {
		t.Error("expected destination to have been started before rollback")
	}
	if !dst.stopped {
		t.Error("expected destination to be stopped (rolled back) after source failure")
	}
}

func TestDispatchForwardsTransformedMessage(t *testing.T) {
	src := &fakeConn{kind: message.KindMQTT, name: "src"}
	dst := &fakeConn{kind: message.KindMQTT, name: "dst"}
	opened := map[string]connector.Runtime{"src": src, "dst": dst}

	rt, err := Prepare("b1", config.Bridge{From: "src", To: "dst"}, opened, "ingest")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	in := message.Message{Kind: message.KindMQTT, Payload: message.Payload{Data: []byte("hi")}}
	src.rx(in)

	if len(dst.sent) != 1 {
		t.Fatalf("expected 1 message forwarded, got %d", len(dst.sent))
	}
	if string(dst.sent[0].Payload.Data) != "hi" {
		t.Errorf("forwarded payload = %q, want hi", dst.sent[0].Payload.Data)
	}
}

func TestDispatchDropsMessageOnSendError(t *testing.T) {
	src := &fakeConn{kind: message.KindMQTT, name: "src"}
	dst := &fakeConn{kind: message.KindMQTT, name: "dst", sendErr: errors.New("send failed")}
	opened := map[string]connector.Runtime{"src": src, "dst": dst}

	rt, err := Prepare("b1", config.Bridge{From: "src", To: "dst"}, opened, "ingest")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// dispatch must not panic on a send failure; the message is just dropped.
	src.rx(message.Message{Kind: message.KindMQTT})
	if len(dst.sent) != 0 {
		t.Errorf("expected no messages forwarded on send error, got %d", len(dst.sent))
	}
}
