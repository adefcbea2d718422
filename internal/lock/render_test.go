package lock_test

import (
	"testing"

	"github.com/srg/blelock/internal/gatt"
	"github.com/srg/blelock/internal/lock"
	"github.com/srg/blelock/internal/testutils"
)

// TestRenderServices verifies the attribute tree rendering, friendly
// names and value formatting included
func TestRenderServices(t *testing.T) {
	services := []*gatt.Service{
		{
			UUID:  "F001",
			Start: 10,
			End:   19,
			Characteristics: []*gatt.Characteristic{
				{
					UUID:        "F002",
					Handle:      11,
					ValueHandle: 12,
					Properties:  gatt.PropWrite,
				},
				{
					UUID:        "F003",
					Handle:      13,
					ValueHandle: 14,
					Properties:  gatt.PropRead | gatt.PropNotify,
					Value:       []byte("LOCKED"),
					Descriptors: []*gatt.Descriptor{
						{Handle: 15, Value: []byte{0x01, 0x00}, Subscribed: true},
					},
				},
			},
		},
	}

	expected := `Service F001 (Lock Service)  handles 0x000a..0x0013
  Characteristic F002 (Unlock)  decl 0x000b  value 0x000c  [WRITE]
  Characteristic F003 (Lock Status)  decl 0x000d  value 0x000e  [READ|NOTIFY]
    value: "LOCKED"
    Descriptor 0x000f  value: 01 00  subscribed
`

	testutils.NewTextAsserter(t).
		WithOptions(testutils.WithIgnoreTrailingWhitespace(true)).
		Assert(lock.RenderServices(services), expected)
}

func TestRenderServicesUnknownUUID(t *testing.T) {
	services := []*gatt.Service{
		{
			UUID:  "AB12",
			Start: 1,
			End:   3,
			Characteristics: []*gatt.Characteristic{
				{UUID: "CD34", Handle: 2, ValueHandle: 3, Properties: gatt.PropRead, Value: []byte{0xde, 0xad}},
			},
		},
	}

	expected := `Service AB12  handles 0x0001..0x0003
  Characteristic CD34  decl 0x0002  value 0x0003  [READ]
    value: de ad
`

	testutils.NewTextAsserter(t).Assert(lock.RenderServices(services), expected)
}
