package gatt

import "strings"

// sigBaseSuffix is the tail of the Bluetooth SIG 128-bit base UUID into
// which 16-bit UUIDs are folded.
const sigBaseSuffix = "-0000-1000-8000-00805f9b34fb"

// UUID16 condenses a UUID to its 16-bit short form, uppercase. 128-bit
// UUIDs in the SIG base format yield characters 4..8; short inputs are
// returned uppercased unchanged. The short form is the canonical key
// for handle/UUID maps in this module.
func UUID16(uuid string) string {
	u := strings.TrimPrefix(strings.ToLower(uuid), "0x")
	if len(u) == 4 {
		return strings.ToUpper(u)
	}
	u = strings.ReplaceAll(u, "-", "")
	if len(u) == 32 {
		return strings.ToUpper(u[4:8])
	}
	return strings.ToUpper(uuid)
}

// UUID128 expands a 16-bit short form into the SIG base 128-bit UUID.
// Inputs that are not 4 characters long are returned unchanged.
func UUID128(uuid string) string {
	if len(uuid) != 4 {
		return uuid
	}
	return "0000" + strings.ToLower(uuid) + sigBaseSuffix
}
