// Package bledb maps BLE UUIDs to human-readable names. The table is
// hand-maintained: the lock profile plus the standard attributes a lock
// peripheral is expected to carry.
package bledb

import "strings"

var serviceNames = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180f": "Battery Service",
	"f001": "Lock Service",
}

var characteristicNames = map[string]string{
	"2a00": "Device Name",
	"2a01": "Appearance",
	"2a05": "Service Changed",
	"2a19": "Battery Level",
	"2a29": "Manufacturer Name String",
	"f002": "Unlock",
	"f003": "Lock Status",
	"f004": "Lock Log",
}

var descriptorNames = map[string]string{
	"2900": "Characteristic Extended Properties",
	"2901": "Characteristic User Descriptor",
	"2902": "Client Characteristic Configuration",
	"2903": "Server Characteristic Configuration",
	"2904": "Characteristic Presentation Format",
	"2905": "Characteristic Aggregate Format",
	"2906": "Valid Range",
}

// bluetoothBaseSuffix is the SIG base UUID with the 16-bit slot zeroed.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID lowercases a UUID, strips braces, the 0x prefix and
// dashes, and folds SIG-base 128-bit UUIDs down to their 16-bit form.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.Trim(u, "{}")
	u = strings.TrimPrefix(u, "0x")
	u = strings.ReplaceAll(u, "-", "")
	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, bluetoothBaseSuffix) {
		return u[4:8]
	}
	return u
}

// LookupService returns the service name, empty when unknown.
func LookupService(uuid string) string {
	return serviceNames[NormalizeUUID(uuid)]
}

// LookupCharacteristic returns the characteristic name, empty when
// unknown.
func LookupCharacteristic(uuid string) string {
	return characteristicNames[NormalizeUUID(uuid)]
}

// LookupDescriptor returns the descriptor name, empty when unknown.
func LookupDescriptor(uuid string) string {
	return descriptorNames[NormalizeUUID(uuid)]
}
