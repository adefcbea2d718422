package gatt

import (
	"encoding/binary"
	"time"

	"github.com/sirupsen/logrus"
)

// cccdSettleDelay gives a slow peripheral time to latch a CCCD write
// before the confirmation read.
const cccdSettleDelay = 10 * time.Millisecond

// CCCDManager drives Client Characteristic Configuration Descriptor
// subscription state. Transport failures are absorbed at this boundary:
// they are logged and the descriptor keeps its last known state; nothing
// propagates to the caller.
type CCCDManager struct {
	transport Transport
	logger    *logrus.Logger
}

func NewCCCDManager(t Transport, logger *logrus.Logger) *CCCDManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &CCCDManager{transport: t, logger: logger}
}

// MaybeSubscribe runs the subscribe flow when the descriptor looks like
// a CCCD: the parent advertises NOTIFY or INDICATE and the raw value is
// exactly two bytes.
func (m *CCCDManager) MaybeSubscribe(d *Descriptor, parent Properties) {
	if !parent.CanNotify() && !parent.CanIndicate() {
		return
	}
	if len(d.Value) != 2 {
		return
	}
	m.Subscribe(d, parent)
}

// Subscribe enables notifications and/or indications according to the
// parent characteristic's properties. It writes only when the current
// two-byte value reads as zero; a non-zero value means the peripheral
// is already configured and the call performs no write.
func (m *CCCDManager) Subscribe(d *Descriptor, parent Properties) {
	if len(d.Value) == 2 && binary.LittleEndian.Uint16(d.Value) != 0 {
		d.Subscribed = true
		return
	}

	var target uint16
	if parent.CanNotify() {
		target |= CCCDNotifySubscribe
	}
	if parent.CanIndicate() {
		target |= CCCDIndicateSubscribe
	}
	if target == 0 {
		return
	}

	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, target)
	if err := m.transport.WriteHandle(d.Handle, buf); err != nil {
		m.logger.WithField("handle", d.Handle).WithError(err).Error("Subscribing to the characteristic failed")
		return
	}

	time.Sleep(cccdSettleDelay)

	value, err := m.transport.ReadHandle(d.Handle)
	if err != nil {
		m.logger.WithField("handle", d.Handle).WithError(err).Error("CCCD confirmation read failed after subscribe")
		return
	}
	d.Value = value
	d.Subscribed = len(value) == 2 && binary.LittleEndian.Uint16(value) != 0
}

// Unsubscribe writes a zero CCCD value, but only when the cached value
// is non-zero; a second call in a row observes zero and performs no
// write.
func (m *CCCDManager) Unsubscribe(d *Descriptor) {
	if len(d.Value) != 2 || binary.LittleEndian.Uint16(d.Value) == 0 {
		return
	}

	if err := m.transport.WriteHandle(d.Handle, []byte{0x00, 0x00}); err != nil {
		m.logger.WithField("handle", d.Handle).WithError(err).Error("Unsubscribing from the characteristic failed")
		return
	}

	time.Sleep(cccdSettleDelay)

	value, err := m.transport.ReadHandle(d.Handle)
	if err != nil {
		m.logger.WithField("handle", d.Handle).WithError(err).Error("CCCD confirmation read failed after unsubscribe")
		return
	}
	d.Value = value
	d.Subscribed = len(value) == 2 && binary.LittleEndian.Uint16(value) != 0
}

// UnsubscribeAll clears every descriptor's CCCD, one at a time,
// best-effort, continuing past individual failures. Runs on connection
// teardown.
func (m *CCCDManager) UnsubscribeAll(services map[string]*Service) {
	for _, svc := range services {
		for _, char := range svc.Characteristics {
			for _, d := range char.Descriptors {
				m.Unsubscribe(d)
			}
		}
	}
}
