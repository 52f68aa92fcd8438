// Package connector defines the uniform lifecycle and I/O contract every
// protocol driver implements (open/start/set_rx_callback/send/poll/stop/
// close), plus the registry mapping a config "type" string to a kind tag,
// a parser, and a driver constructor.
package connector

import (
	"context"
	"fmt"

	"github.com/iotgw/iotgwd/internal/message"
)

// RXCallback is invoked by a connector runtime when it has a new inbound
// message to deliver. The Message's Payload is only valid for the
// duration of the call; a caller that wants to retain it must clone it
// (message.Payload.Clone) before returning.
type RXCallback func(msg message.Message)

// Runtime is the live, resource-owning counterpart of a connector
// config. Exactly one Runtime exists per active connector between Start
// and Stop, and it is owned exclusively by the bridge that started it.
type Runtime interface {
	// Kind reports the protocol kind this runtime was opened for.
	Kind() message.Kind

	// Name reports the stable connector name from config.
	Name() string

	// Start begins background activity (connect, bind, spawn poll
	// thread). Safe to call exactly once per runtime.
	Start(ctx context.Context) error

	// SetRXCallback registers the single RX sink. Setting twice
	// replaces the previous callback.
	SetRXCallback(cb RXCallback)

	// Send enqueues or synchronously transmits an outbound message.
	// Returns ErrKindMismatch if msg.Kind does not match this runtime.
	Send(ctx context.Context, msg message.Message) error

	// Poll performs a non-blocking advance of internal I/O for drivers
	// that do not run their own background thread. Drivers with a
	// dedicated goroutine may implement this as a no-op.
	Poll(ctx context.Context) error

	// Stop requests shutdown of background activity and blocks until
	// any worker has joined (bounded by the driver's join deadline).
	Stop(ctx context.Context) error

	// Close releases all resources. Idempotent.
	Close() error
}

// Opener constructs a Runtime from a parsed connector config. Config is
// the driver-specific parameter record produced by the registry's
// Parser for this type.
type Opener func(name string, cfg any) (Runtime, error)

// Parser turns a raw YAML/JSON params subtree into the driver-specific
// typed config record the matching Opener expects.
type Parser func(rawParams map[string]any) (any, error)

// Entry is one row of the static connector registry: a config "type"
// string, the kind tag it maps to, a parser for its params subtree, and
// (if a driver exists for this kind) an Opener. Entries with a nil
// Opener are accepted by config loading but cannot be opened — the
// supervisor rejects any bridge naming them as an endpoint with
// ErrUnsupportedPair before preparing it.
type Entry struct {
	Type   string
	Kind   message.Kind
	Parse  Parser
	Open   Opener
}

// registry is the static table of known connector types. Populated by
// each driver package's init() via Register, and by RegisterOpaqueKind
// for kinds with no driver.
var registry = map[string]Entry{}

// Register adds an entry to the connector registry. Panics on a
// duplicate type string — the registry is a closed, compile-time-fixed
// set (spec §9, "Driver polymorphism").
func Register(e Entry) {
	if _, exists := registry[e.Type]; exists {
		panic(fmt.Sprintf("connector: duplicate registration for type %q", e.Type))
	}
	registry[e.Type] = e
}

// Lookup finds a registry entry by its config "type" string.
func Lookup(typ string) (Entry, bool) {
	e, ok := registry[typ]
	return e, ok
}

// HasDriver reports whether a kind has at least one registered Opener —
// used by the supervisor to detect unsupported pairs before preparing a
// bridge.
func HasDriver(kind message.Kind) bool {
	for _, e := range registry {
		if e.Kind == kind && e.Open != nil {
			return true
		}
	}
	return false
}

// All returns every registered entry, for diagnostics/listing commands.
func All() []Entry {
	out := make([]Entry, 0, len(registry))
	for _, e := range registry {
		out = append(out, e)
	}
	return out
}
