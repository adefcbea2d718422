package lock

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/srg/blelock/internal/bledb"
	"github.com/srg/blelock/internal/gatt"
)

// RenderServices formats discovered services as an indented tree, one
// attribute per line, with friendly names where the profile database
// knows the UUID.
func RenderServices(services []*gatt.Service) string {
	var b strings.Builder
	for _, svc := range services {
		fmt.Fprintf(&b, "Service %s%s  handles 0x%04x..0x%04x\n",
			svc.UUID, friendly(bledb.LookupService(svc.UUID)), svc.Start, svc.End)
		for _, c := range svc.Characteristics {
			fmt.Fprintf(&b, "  Characteristic %s%s  decl 0x%04x  value 0x%04x  [%s]\n",
				c.UUID, friendly(bledb.LookupCharacteristic(c.UUID)), c.Handle, c.ValueHandle, c.Properties)
			if c.Value != nil {
				fmt.Fprintf(&b, "    value: %s\n", renderValue(c.Value))
			}
			for _, d := range c.Descriptors {
				sub := ""
				if d.Subscribed {
					sub = "  subscribed"
				}
				fmt.Fprintf(&b, "    Descriptor 0x%04x  value: %s%s\n", d.Handle, renderValue(d.Value), sub)
			}
		}
	}
	return b.String()
}

func friendly(name string) string {
	if name == "" {
		return ""
	}
	return " (" + name + ")"
}

// renderValue shows printable payloads as text, everything else as hex.
func renderValue(data []byte) string {
	if len(data) == 0 {
		return "<empty>"
	}
	printable := true
	for _, r := range string(data) {
		if r == unicode.ReplacementChar || (!unicode.IsPrint(r) && r != '\n') {
			printable = false
			break
		}
	}
	if printable {
		return fmt.Sprintf("%q", string(data))
	}
	return fmt.Sprintf("% x", data)
}
