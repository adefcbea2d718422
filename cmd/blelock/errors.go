package main

import (
	"errors"

	"github.com/srg/blelock/internal/gatt"
	"github.com/srg/blelock/internal/gatt/goble"
	"github.com/srg/blelock/internal/lock"
)

// FormatUserError turns internal errors into messages fit for a
// terminal user. Anything unrecognized falls through unchanged.
func FormatUserError(err error) string {
	var kindErr *lock.ErrKindNotPresent
	switch {
	case errors.Is(err, goble.ErrBluetoothOff):
		return "Bluetooth is turned off. Turn it on and try again."
	case errors.Is(err, goble.ErrNotConnected):
		return "The lock is not connected. It may have gone out of range."
	case errors.Is(err, goble.ErrAlreadyConnected):
		return "Already connected to this lock."
	case errors.Is(err, gatt.ErrNotReadable):
		return "That characteristic does not allow reads."
	case errors.Is(err, gatt.ErrNotWritable):
		return "That characteristic does not allow writes."
	case errors.As(err, &kindErr):
		return "This peripheral does not look like a lock: " + kindErr.Error()
	default:
		return err.Error()
	}
}
