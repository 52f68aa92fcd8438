package supervisor

import (
	"context"
	"testing"

	"github.com/iotgw/iotgwd/internal/config"
	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/message"
)

type stubRuntime struct {
	kind message.Kind
	name string
}

func (s *stubRuntime) Kind() message.Kind                { return s.kind }
func (s *stubRuntime) Name() string                      { return s.name }
func (s *stubRuntime) Start(ctx context.Context) error   { return nil }
func (s *stubRuntime) SetRXCallback(connector.RXCallback) {}
func (s *stubRuntime) Send(ctx context.Context, m message.Message) error { return nil }
func (s *stubRuntime) Poll(ctx context.Context) error     { return nil }
func (s *stubRuntime) Stop(ctx context.Context) error     { return nil }
func (s *stubRuntime) Close() error                       { return nil }

func init() {
	connector.Register(connector.Entry{
		Type:  "supervisor_test_stub",
		Kind:  message.KindMQTT,
		Parse: func(raw map[string]any) (any, error) { return raw, nil },
		Open: func(name string, cfg any) (connector.Runtime, error) {
			return &stubRuntime{kind: message.KindMQTT, name: name}, nil
		},
	})
}

func TestOpenConnectorsOpensEachEntry(t *testing.T) {
	cfg := &config.Config{
		Connectors: map[string]config.Connector{
			"broker": {Type: "supervisor_test_stub"},
		},
	}
	opened, err := openConnectors(cfg)
	if err != nil {
		t.Fatalf("openConnectors() error = %v", err)
	}
	if _, ok := opened["broker"]; !ok {
		t.Error("expected connector \"broker\" to be opened")
	}
}

func TestOpenConnectorsRejectsUnknownType(t *testing.T) {
	cfg := &config.Config{
		Connectors: map[string]config.Connector{
			"mystery": {Type: "does_not_exist"},
		},
	}
	if _, err := openConnectors(cfg); err == nil {
		t.Error("expected openConnectors to reject an unknown connector type")
	}
}

func TestPrepareGenerationLeavesNothingOnConfigError(t *testing.T) {
	sup := New(Options{ConfigPath: "/nonexistent/gateway.yaml"})
	_, _, _, _, _, err := sup.prepareGeneration()
	if err == nil {
		t.Fatal("expected prepareGeneration to fail for a missing config file")
	}
	sup.mu.Lock()
	defer sup.mu.Unlock()
	if sup.bridges != nil || sup.opened != nil {
		t.Error("expected a failed prepareGeneration to leave the supervisor's installed state untouched")
	}
}

func TestOpenConnectorsSkipsOpenerlessEntries(t *testing.T) {
	connector.Register(connector.Entry{
		Type:  "supervisor_test_no_opener",
		Kind:  message.KindI2C,
		Parse: func(raw map[string]any) (any, error) { return raw, nil },
		Open:  nil,
	})

	cfg := &config.Config{
		Connectors: map[string]config.Connector{
			"sensor": {Type: "supervisor_test_no_opener"},
		},
	}
	opened, err := openConnectors(cfg)
	if err != nil {
		t.Fatalf("openConnectors() error = %v", err)
	}
	if _, ok := opened["sensor"]; ok {
		t.Error("expected an Openerless entry to be skipped, not opened")
	}
}
