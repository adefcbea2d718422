// Package lock implements the client side of the lock peripheral
// protocol: the known characteristic profile, payload framing,
// notification routing, fragmented log reassembly and the connection
// session that ties them to a gatt.Transport.
package lock

import (
	"fmt"

	"github.com/srg/blelock/internal/gatt"
)

// Short-form UUIDs of the lock profile.
const (
	ServiceUUID = "F001"
	UnlockUUID  = "F002"
	StatusUUID  = "F003"
	LogUUID     = "F004"
)

// Kind identifies one of the lock's characteristics. The zero value is
// KindUnknown; routing treats anything unknown as droppable noise.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnlock
	KindStatus
	KindLog
)

func (k Kind) String() string {
	switch k {
	case KindUnlock:
		return "unlock"
	case KindStatus:
		return "status"
	case KindLog:
		return "log"
	default:
		return "unknown"
	}
}

// UUID returns the short-form UUID for the kind, empty for KindUnknown.
func (k Kind) UUID() string {
	switch k {
	case KindUnlock:
		return UnlockUUID
	case KindStatus:
		return StatusUUID
	case KindLog:
		return LogUUID
	default:
		return ""
	}
}

// KindForUUID maps a UUID in any accepted form to its Kind.
func KindForUUID(uuid string) Kind {
	switch gatt.UUID16(uuid) {
	case UnlockUUID:
		return KindUnlock
	case StatusUUID:
		return KindStatus
	case LogUUID:
		return KindLog
	default:
		return KindUnknown
	}
}

// IsKnownUUID reports whether the UUID belongs to the lock profile,
// service UUID included.
func IsKnownUUID(uuid string) bool {
	short := gatt.UUID16(uuid)
	return short == ServiceUUID || KindForUUID(short) != KindUnknown
}

// ErrKindNotPresent is returned when an operation targets a kind the
// connected peripheral does not expose.
type ErrKindNotPresent struct {
	Kind Kind
}

func (e *ErrKindNotPresent) Error() string {
	return fmt.Sprintf("peripheral does not expose the %s characteristic (%s)", e.Kind, e.Kind.UUID())
}
