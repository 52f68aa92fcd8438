package connector

import "errors"

// Sentinel errors a driver returns from Send/Open/Start so the bridge
// orchestrator (internal/bridge) and supervisor can classify failures
// without string matching, per spec §7.
var (
	// ErrKindMismatch is returned by Send when the message's Kind does
	// not match the driver. Indicates a programming bug upstream.
	ErrKindMismatch = errors.New("connector: message kind does not match driver")

	// ErrDeviceConfig is returned by a driver's parser or opener for an
	// invalid config, and by Start when opening the device or applying
	// its parameters (mode, speed, read timeout, …) fails.
	ErrDeviceConfig = errors.New("connector: device configuration failed")

	// ErrConnect is returned by Start when a broker or remote peer is
	// unreachable, a TLS handshake fails, or authentication is
	// rejected.
	ErrConnect = errors.New("connector: connect failed")

	// ErrSend is returned by Send on a transient publish/write failure.
	ErrSend = errors.New("connector: send failed")

	// ErrUnknownConnector is returned when a bridge config names a
	// connector that does not exist in the config's connector map.
	ErrUnknownConnector = errors.New("connector: unknown connector name")

	// ErrUnsupportedPair is returned when no driver is registered for
	// one of the two endpoints of a bridge.
	ErrUnsupportedPair = errors.New("connector: unsupported source/destination pair")
)
