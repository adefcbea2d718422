// Package gatt reconstructs a peripheral's attribute table from the
// limited metadata a transport exposes: characteristic declarations
// only, never descriptors. Descriptor handles are inferred from gaps in
// the handle numbering, and Client Characteristic Configuration
// descriptors found that way are subscribed as a side effect of
// discovery.
package gatt

import "context"

// ServiceInfo is one primary service as reported by the transport.
// Start/End bound an open interval: attributes strictly between them
// belong to the service.
type ServiceInfo struct {
	UUID  string
	Start uint16
	End   uint16
}

// CharacteristicInfo is one characteristic declaration as reported by
// the transport. Declarations carry no descriptor information.
type CharacteristicInfo struct {
	UUID        string
	Properties  Properties
	Handle      uint16
	ValueHandle uint16
}

// NotifyHandler receives unsolicited server pushes. The transport may
// invoke it from its own goroutine.
type NotifyHandler func(handle uint16, data []byte)

// Transport is the GATT client contract this package consumes. All
// reads and writes are blocking; no per-call timeout is imposed, so a
// stalled transport call blocks its caller.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error

	// DiscoverPrimary returns every primary service on the peripheral.
	DiscoverPrimary() ([]ServiceInfo, error)

	// DiscoverCharacteristics returns every characteristic declaration
	// on the connection, across all services.
	DiscoverCharacteristics() ([]CharacteristicInfo, error)

	ReadHandle(handle uint16) ([]byte, error)
	WriteHandle(handle uint16, data []byte) error

	// ReadUUID reads the first attribute whose UUID matches.
	ReadUUID(uuid string) ([]byte, error)

	SetNotificationHandler(h NotifyHandler)
	SetIndicationHandler(h NotifyHandler)
}
