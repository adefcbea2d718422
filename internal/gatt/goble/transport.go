// Package goble adapts a go-ble client to the gatt.Transport contract.
//
// The adapter deliberately reports characteristic declarations only,
// even though go-ble's profile discovery also returns descriptors: the
// gatt package reconstructs descriptors from handle contiguity, and
// feeding it pre-resolved descriptors would bypass that path. The
// descriptor objects go-ble discovered are kept internally so that
// handle-addressed reads and writes can be routed to real attributes.
package goble

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/sirupsen/logrus"

	"github.com/srg/blelock/internal/gatt"
)

// DefaultConnectTimeout bounds the dial plus profile discovery.
const DefaultConnectTimeout = 30 * time.Second

// DeviceFactory creates ble.Device instances (can be overridden in tests)
var DeviceFactory = func() (ble.Device, error) {
	return darwin.NewDevice()
}

// Transport is a gatt.Transport backed by a go-ble client.
type Transport struct {
	mu             sync.Mutex
	logger         *logrus.Logger
	address        string
	connectTimeout time.Duration

	client  ble.Client
	profile *ble.Profile

	chars map[uint16]*ble.Characteristic // value handle -> characteristic
	descs map[uint16]*ble.Descriptor     // descriptor handle -> descriptor
	cccds map[uint16]*ble.Characteristic // CCCD handle -> owning characteristic

	// cccdValues mirrors CCCD state locally. CoreBluetooth hides CCCD
	// contents from clients, so reads of a CCCD handle are answered
	// from this mirror.
	cccdValues map[uint16][]byte

	notify   gatt.NotifyHandler
	indicate gatt.NotifyHandler
}

func NewTransport(address string, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		logger:         logger,
		address:        address,
		connectTimeout: DefaultConnectTimeout,
		chars:          make(map[uint16]*ble.Characteristic),
		descs:          make(map[uint16]*ble.Descriptor),
		cccds:          make(map[uint16]*ble.Characteristic),
		cccdValues:     make(map[uint16][]byte),
	}
}

// SetConnectTimeout overrides the dial timeout. Must be called before
// Connect.
func (t *Transport) SetConnectTimeout(d time.Duration) {
	t.connectTimeout = d
}

// Connect dials the peripheral and runs go-ble profile discovery,
// indexing every attribute by handle for later addressing.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return ErrAlreadyConnected
	}

	dev, err := DeviceFactory()
	if err != nil {
		return fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ble.SetDefaultDevice(dev)

	dialCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	t.logger.WithField("address", t.address).Debug("Dialing BLE device...")
	client, err := ble.Dial(dialCtx, ble.NewAddr(t.address))
	if err != nil {
		return fmt.Errorf("failed to connect to %q: %w", t.address, NormalizeError(err))
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			t.logger.WithError(cancelErr).Warn("Failed to cancel connection after discovery failure")
		}
		return fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	t.client = client
	t.profile = profile
	t.indexProfile(profile)

	t.logger.WithFields(logrus.Fields{
		"address":  t.address,
		"services": len(profile.Services),
	}).Info("BLE device connected")
	return nil
}

func (t *Transport) indexProfile(profile *ble.Profile) {
	t.chars = make(map[uint16]*ble.Characteristic)
	t.descs = make(map[uint16]*ble.Descriptor)
	t.cccds = make(map[uint16]*ble.Characteristic)

	cccdUUID := ble.UUID16(0x2902)
	for _, svc := range profile.Services {
		for _, c := range svc.Characteristics {
			t.chars[c.VHandle] = c
			for _, d := range c.Descriptors {
				t.descs[d.Handle] = d
				if d.UUID.Equal(cccdUUID) {
					t.cccds[d.Handle] = c
				}
			}
			if c.CCCD != nil {
				t.descs[c.CCCD.Handle] = c.CCCD
				t.cccds[c.CCCD.Handle] = c
			}
		}
	}
	for h := range t.cccds {
		if _, ok := t.cccdValues[h]; !ok {
			t.cccdValues[h] = []byte{0x00, 0x00}
		}
	}
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.profile = nil
	t.mu.Unlock()

	if client == nil {
		return nil
	}
	return NormalizeError(client.CancelConnection())
}

func (t *Transport) DiscoverPrimary() ([]gatt.ServiceInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.profile == nil {
		return nil, ErrNotConnected
	}

	out := make([]gatt.ServiceInfo, 0, len(t.profile.Services))
	for _, svc := range t.profile.Services {
		out = append(out, gatt.ServiceInfo{
			UUID:  svc.UUID.String(),
			Start: svc.Handle,
			End:   svc.EndHandle,
		})
	}
	return out, nil
}

func (t *Transport) DiscoverCharacteristics() ([]gatt.CharacteristicInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.profile == nil {
		return nil, ErrNotConnected
	}

	var out []gatt.CharacteristicInfo
	for _, svc := range t.profile.Services {
		for _, c := range svc.Characteristics {
			out = append(out, gatt.CharacteristicInfo{
				UUID:        c.UUID.String(),
				Properties:  gatt.Properties(c.Property),
				Handle:      c.Handle,
				ValueHandle: c.VHandle,
			})
		}
	}
	return out, nil
}

// ReadHandle reads a characteristic value, a discovered descriptor or,
// as a fallback, a synthesized descriptor addressed by bare handle.
// CCCD handles are answered from the local mirror.
func (t *Transport) ReadHandle(handle uint16) ([]byte, error) {
	t.mu.Lock()
	client := t.client
	char := t.chars[handle]
	desc := t.descs[handle]
	cccdValue, isCCCD := t.cccdValues[handle]
	t.mu.Unlock()

	if client == nil {
		return nil, ErrNotConnected
	}
	if isCCCD {
		out := make([]byte, len(cccdValue))
		copy(out, cccdValue)
		return out, nil
	}
	if char != nil {
		data, err := client.ReadCharacteristic(char)
		return data, NormalizeError(err)
	}
	if desc == nil {
		desc = &ble.Descriptor{Handle: handle}
	}
	data, err := client.ReadDescriptor(desc)
	return data, NormalizeError(err)
}

// WriteHandle writes a characteristic value or descriptor. Writes to a
// CCCD handle are translated into go-ble subscribe/unsubscribe calls,
// because go-ble owns the CCCD when callbacks are involved; the written
// value is mirrored locally so a confirmation read observes it.
func (t *Transport) WriteHandle(handle uint16, data []byte) error {
	t.mu.Lock()
	client := t.client
	char := t.chars[handle]
	desc := t.descs[handle]
	owner, isCCCD := t.cccds[handle]
	t.mu.Unlock()

	if client == nil {
		return ErrNotConnected
	}
	if isCCCD {
		return t.writeCCCD(client, owner, handle, data)
	}
	if char != nil {
		noRsp := char.Property&ble.CharWrite == 0
		return NormalizeError(client.WriteCharacteristic(char, data, noRsp))
	}
	if desc == nil {
		desc = &ble.Descriptor{Handle: handle}
	}
	return NormalizeError(client.WriteDescriptor(desc, data))
}

func (t *Transport) writeCCCD(client ble.Client, owner *ble.Characteristic, handle uint16, data []byte) error {
	if len(data) != 2 {
		return fmt.Errorf("CCCD write to handle 0x%04x must be 2 bytes, got %d", handle, len(data))
	}
	bits := binary.LittleEndian.Uint16(data)

	valueHandle := owner.VHandle
	if bits&gatt.CCCDNotifySubscribe != 0 {
		err := client.Subscribe(owner, false, func(payload []byte) {
			t.dispatch(false, valueHandle, payload)
		})
		if err != nil {
			return NormalizeError(err)
		}
	}
	if bits&gatt.CCCDIndicateSubscribe != 0 {
		err := client.Subscribe(owner, true, func(payload []byte) {
			t.dispatch(true, valueHandle, payload)
		})
		if err != nil {
			return NormalizeError(err)
		}
	}
	if bits == 0 {
		// Best-effort teardown of both modes; go-ble errors when a mode
		// was never subscribed, which is not a failure here.
		if err := client.Unsubscribe(owner, false); err != nil {
			t.logger.WithField("handle", handle).WithError(err).Debug("Notify unsubscribe")
		}
		if err := client.Unsubscribe(owner, true); err != nil {
			t.logger.WithField("handle", handle).WithError(err).Debug("Indicate unsubscribe")
		}
	}

	t.mu.Lock()
	t.cccdValues[handle] = []byte{data[0], data[1]}
	t.mu.Unlock()
	return nil
}

func (t *Transport) dispatch(indication bool, valueHandle uint16, data []byte) {
	t.mu.Lock()
	h := t.notify
	if indication {
		h = t.indicate
	}
	t.mu.Unlock()
	if h != nil {
		h(valueHandle, data)
	}
}

// ReadUUID reads the first characteristic whose UUID matches, walking
// services in discovery order.
func (t *Transport) ReadUUID(uuid string) ([]byte, error) {
	t.mu.Lock()
	client := t.client
	profile := t.profile
	t.mu.Unlock()

	if client == nil || profile == nil {
		return nil, ErrNotConnected
	}

	want := gatt.UUID16(uuid)
	for _, svc := range profile.Services {
		for _, c := range svc.Characteristics {
			if gatt.UUID16(c.UUID.String()) == want {
				data, err := client.ReadCharacteristic(c)
				return data, NormalizeError(err)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", gatt.ErrUnknownUUID, uuid)
}

func (t *Transport) SetNotificationHandler(h gatt.NotifyHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify = h
}

func (t *Transport) SetIndicationHandler(h gatt.NotifyHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indicate = h
}
