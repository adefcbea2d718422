package gatt

import (
	"errors"
	"fmt"
)

// Capability errors, returned before any transport call is attempted.
var (
	ErrNotReadable = errors.New("characteristic is not readable")
	ErrNotWritable = errors.New("characteristic is not writable")
)

// ErrUnknownUUID is returned when a UUID has no handle mapping from the
// last discovery pass.
var ErrUnknownUUID = errors.New("uuid not present in handle map")

// TransportError wraps a failed transport operation with the attribute
// it targeted.
type TransportError struct {
	Op     string // "connect", "disconnect", "discover", "read", "write"
	Handle uint16 // zero when the operation is not handle-addressed
	UUID   string // empty when unknown
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Handle != 0 && e.UUID != "":
		return fmt.Sprintf("%s handle 0x%04x (%s): %v", e.Op, e.Handle, e.UUID, e.Err)
	case e.Handle != 0:
		return fmt.Sprintf("%s handle 0x%04x: %v", e.Op, e.Handle, e.Err)
	case e.UUID != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.UUID, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError marks a malformed inbound event: a payload shorter than
// the framing header, or an event on a handle outside the handle map.
// Routing logs these and drops the event; the type exists so tests and
// diagnostics can name the condition.
type ProtocolError struct {
	Reason string
	Handle uint16
	Length int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s (handle 0x%04x, %d bytes)", e.Reason, e.Handle, e.Length)
}
