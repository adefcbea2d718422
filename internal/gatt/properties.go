package gatt

import "strings"

// Properties is the characteristic property bitmask from the
// characteristic declaration.
type Properties uint8

const (
	PropBroadcast            Properties = 0x01
	PropRead                 Properties = 0x02
	PropWriteWithoutResponse Properties = 0x04
	PropWrite                Properties = 0x08
	PropNotify               Properties = 0x10
	PropIndicate             Properties = 0x20
)

// CCCD subscription bits, packed little-endian uint16 on the wire.
const (
	CCCDNotifySubscribe   uint16 = 0x0001
	CCCDIndicateSubscribe uint16 = 0x0002
)

func (p Properties) Has(bit Properties) bool { return p&bit != 0 }

func (p Properties) CanRead() bool     { return p.Has(PropRead) }
func (p Properties) CanWrite() bool    { return p.Has(PropWrite) }
func (p Properties) CanNotify() bool   { return p.Has(PropNotify) }
func (p Properties) CanIndicate() bool { return p.Has(PropIndicate) }

// String renders the set bits in declaration order, pipe-separated.
func (p Properties) String() string {
	var names []string
	for _, b := range []struct {
		bit  Properties
		name string
	}{
		{PropBroadcast, "BROADCAST"},
		{PropRead, "READ"},
		{PropWriteWithoutResponse, "WRITE_WO_REPLY"},
		{PropWrite, "WRITE"},
		{PropNotify, "NOTIFY"},
		{PropIndicate, "INDICATE"},
	} {
		if p.Has(b.bit) {
			names = append(names, b.name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}
