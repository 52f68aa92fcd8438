package connector

import (
	"context"
	"testing"

	"github.com/iotgw/iotgwd/internal/message"
)

type fakeRuntime struct {
	kind message.Kind
	name string
}

func (f *fakeRuntime) Kind() message.Kind                { return f.kind }
func (f *fakeRuntime) Name() string                      { return f.name }
func (f *fakeRuntime) Start(ctx context.Context) error   { return nil }
func (f *fakeRuntime) SetRXCallback(cb RXCallback)       {}
func (f *fakeRuntime) Send(ctx context.Context, m message.Message) error { return nil }
func (f *fakeRuntime) Poll(ctx context.Context) error    { return nil }
func (f *fakeRuntime) Stop(ctx context.Context) error    { return nil }
func (f *fakeRuntime) Close() error                      { return nil }

func TestRegisterAndLookup(t *testing.T) {
	Register(Entry{
		Type: "test_fake_kind_a",
		Kind: message.KindMQTT,
		Parse: func(raw map[string]any) (any, error) { return raw, nil },
		Open: func(name string, cfg any) (Runtime, error) {
			return &fakeRuntime{kind: message.KindMQTT, name: name}, nil
		},
	})

	entry, ok := Lookup("test_fake_kind_a")
	if !ok {
		t.Fatal("Lookup() did not find registered entry")
	}
	if entry.Kind != message.KindMQTT {
		t.Errorf("entry.Kind = %v, want %v", entry.Kind, message.KindMQTT)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register(Entry{Type: "test_fake_kind_b", Kind: message.KindUART})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected Register() to panic on a duplicate type")
		}
	}()
	Register(Entry{Type: "test_fake_kind_b", Kind: message.KindUART})
}

func TestHasDriver(t *testing.T) {
	Register(Entry{
		Type: "test_fake_kind_c",
		Kind: message.KindSPI,
		Open: func(name string, cfg any) (Runtime, error) { return nil, nil },
	})
	Register(Entry{
		Type: "test_fake_kind_d",
		Kind: message.KindI2C,
		Open: nil,
	})

	if !HasDriver(message.KindSPI) {
		t.Error("HasDriver() = false for a kind with a registered Opener")
	}
	if HasDriver(message.KindI2C) {
		t.Error("HasDriver() = true for a kind whose only entry has a nil Opener")
	}
}
