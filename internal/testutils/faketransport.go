// Package testutils provides the scripted fake transport and assertion
// helpers the package tests are built on.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/blelock/internal/gatt"
)

// HandleWrite records one WriteHandle call.
type HandleWrite struct {
	Handle uint16
	Data   []byte
}

// FakeTransport is a scripted, synchronous gatt.Transport. Attribute
// values live in a handle-indexed map; writes update the map and are
// recorded for assertions. Notifications are injected with Notify and
// Indicate and run the registered handlers inline, mimicking a
// transport callback thread.
type FakeTransport struct {
	mu sync.Mutex

	services []gatt.ServiceInfo
	chars    []gatt.CharacteristicInfo
	values   map[uint16][]byte
	uuids    map[string]uint16 // short UUID -> first matching value handle

	FailReads  map[uint16]error
	FailWrites map[uint16]error

	Writes    []HandleWrite
	ReadCalls []uint16

	connected   bool
	Disconnects int
	notify      gatt.NotifyHandler
	indicate    gatt.NotifyHandler
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		values:     make(map[uint16][]byte),
		uuids:      make(map[string]uint16),
		FailReads:  make(map[uint16]error),
		FailWrites: make(map[uint16]error),
	}
}

// AddService registers a primary service with its open handle range.
func (f *FakeTransport) AddService(uuid string, start, end uint16) *FakeTransport {
	f.services = append(f.services, gatt.ServiceInfo{UUID: uuid, Start: start, End: end})
	return f
}

// AddCharacteristic registers a declaration and seeds the value table.
func (f *FakeTransport) AddCharacteristic(uuid string, props gatt.Properties, handle, valueHandle uint16, value []byte) *FakeTransport {
	f.chars = append(f.chars, gatt.CharacteristicInfo{
		UUID:        uuid,
		Properties:  props,
		Handle:      handle,
		ValueHandle: valueHandle,
	})
	f.values[valueHandle] = value
	short := gatt.UUID16(uuid)
	if _, ok := f.uuids[short]; !ok {
		f.uuids[short] = valueHandle
	}
	return f
}

// SetHandleValue seeds a raw attribute value, e.g. a descriptor.
func (f *FakeTransport) SetHandleValue(handle uint16, value []byte) *FakeTransport {
	f.values[handle] = value
	return f
}

// HandleValue returns the current attribute value.
func (f *FakeTransport) HandleValue(handle uint16) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[handle]
}

// WritesTo filters the write log by handle.
func (f *FakeTransport) WritesTo(handle uint16) []HandleWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []HandleWrite
	for _, w := range f.Writes {
		if w.Handle == handle {
			out = append(out, w)
		}
	}
	return out
}

// ReadsOf counts ReadHandle calls for one handle.
func (f *FakeTransport) ReadsOf(handle uint16) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.ReadCalls {
		if h == handle {
			n++
		}
	}
	return n
}

func (f *FakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *FakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.Disconnects++
	return nil
}

func (f *FakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeTransport) DiscoverPrimary() ([]gatt.ServiceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gatt.ServiceInfo, len(f.services))
	copy(out, f.services)
	return out, nil
}

func (f *FakeTransport) DiscoverCharacteristics() ([]gatt.CharacteristicInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gatt.CharacteristicInfo, len(f.chars))
	copy(out, f.chars)
	return out, nil
}

func (f *FakeTransport) ReadHandle(handle uint16) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls = append(f.ReadCalls, handle)
	if err, ok := f.FailReads[handle]; ok {
		return nil, err
	}
	value, ok := f.values[handle]
	if !ok {
		return nil, fmt.Errorf("no attribute at handle 0x%04x", handle)
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (f *FakeTransport) WriteHandle(handle uint16, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	f.Writes = append(f.Writes, HandleWrite{Handle: handle, Data: stored})
	if err, ok := f.FailWrites[handle]; ok {
		return err
	}
	f.values[handle] = stored
	return nil
}

func (f *FakeTransport) ReadUUID(uuid string) ([]byte, error) {
	f.mu.Lock()
	handle, ok := f.uuids[gatt.UUID16(uuid)]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no attribute with uuid %s", uuid)
	}
	return f.ReadHandle(handle)
}

func (f *FakeTransport) SetNotificationHandler(h gatt.NotifyHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notify = h
}

func (f *FakeTransport) SetIndicationHandler(h gatt.NotifyHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indicate = h
}

// Notify delivers an unsolicited notification through the registered
// handler, synchronously.
func (f *FakeTransport) Notify(handle uint16, data []byte) {
	f.mu.Lock()
	h := f.notify
	f.mu.Unlock()
	if h != nil {
		h(handle, data)
	}
}

// Indicate delivers an unsolicited indication.
func (f *FakeTransport) Indicate(handle uint16, data []byte) {
	f.mu.Lock()
	h := f.indicate
	f.mu.Unlock()
	if h != nil {
		h(handle, data)
	}
}
