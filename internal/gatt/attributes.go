package gatt

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Service is one primary service reconstructed by a discovery pass.
// Characteristics are kept in ascending declaration-handle order.
type Service struct {
	UUID            string // short form
	Start           uint16
	End             uint16
	Characteristics []*Characteristic
}

// Characteristic holds one declaration plus everything inferred around
// it. Value is cached at discovery time and only present when the READ
// property is set.
type Characteristic struct {
	UUID        string // short form
	Handle      uint16 // declaration handle
	ValueHandle uint16
	Properties  Properties
	Value       []byte
	Descriptors []*Descriptor
}

// Descriptor is an attribute inferred from handle-gap analysis. The
// transport never declares descriptors, so the handle is the only
// identity it has; the raw value is read once at construction.
type Descriptor struct {
	Handle     uint16
	Value      []byte
	Subscribed bool
}

func (c *Characteristic) CanRead() bool  { return c.Properties.CanRead() }
func (c *Characteristic) CanWrite() bool { return c.Properties.CanWrite() }

// ReadValue fetches the current value and refreshes the cache. A
// characteristic without the READ property fails with ErrNotReadable
// before any transport call.
func (c *Characteristic) ReadValue(t Transport) ([]byte, error) {
	if !c.CanRead() {
		return nil, fmt.Errorf("characteristic %s: %w", c.UUID, ErrNotReadable)
	}
	data, err := t.ReadHandle(c.ValueHandle)
	if err != nil {
		return nil, &TransportError{Op: "read", Handle: c.ValueHandle, UUID: c.UUID, Err: err}
	}
	c.Value = data
	return data, nil
}

// WriteValue writes to the characteristic's value handle. A
// characteristic without the WRITE property fails with ErrNotWritable.
func (c *Characteristic) WriteValue(t Transport, data []byte) error {
	if !c.CanWrite() {
		return fmt.Errorf("characteristic %s: %w", c.UUID, ErrNotWritable)
	}
	if err := t.WriteHandle(c.ValueHandle, data); err != nil {
		return &TransportError{Op: "write", Handle: c.ValueHandle, UUID: c.UUID, Err: err}
	}
	return nil
}

func newCharacteristic(t Transport, logger *logrus.Logger, info CharacteristicInfo) *Characteristic {
	c := &Characteristic{
		UUID:        UUID16(info.UUID),
		Handle:      info.Handle,
		ValueHandle: info.ValueHandle,
		Properties:  info.Properties,
	}
	if c.CanRead() {
		data, err := t.ReadHandle(c.ValueHandle)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"uuid":   c.UUID,
				"handle": c.ValueHandle,
			}).WithError(err).Warn("Failed to read characteristic value during discovery")
		} else {
			c.Value = data
		}
	}
	return c
}

func newDescriptor(t Transport, logger *logrus.Logger, handle uint16) *Descriptor {
	d := &Descriptor{Handle: handle}
	data, err := t.ReadHandle(handle)
	if err != nil {
		logger.WithField("handle", handle).WithError(err).Warn("Failed to read inferred descriptor")
	} else {
		d.Value = data
	}
	return d
}

// BuildServiceTable reconstructs one service's attribute table from the
// unordered declaration list of the whole connection.
//
// The transport reports only characteristic declarations, so descriptor
// existence is inferred from contiguity: walking declarations in
// ascending handle order, every handle between the last known attribute
// and the next declaration must be a descriptor of the most recently
// accepted characteristic. Handles preceding the first accepted
// characteristic have no owner; they are skipped rather than
// misattributed and surface in the unexplained list.
//
// Inferred descriptors that look like a CCCD are subscribed through the
// manager as a construction side effect.
//
// Unexplained handles are a diagnostic, not an error: they are returned,
// and each one is read best-effort for visibility.
func BuildServiceTable(t Transport, logger *logrus.Logger, svc ServiceInfo, decls []CharacteristicInfo, cccd *CCCDManager) (*Service, []uint16) {
	if logger == nil {
		logger = logrus.New()
	}

	service := &Service{UUID: UUID16(svc.UUID), Start: svc.Start, End: svc.End}

	inRange := make([]CharacteristicInfo, 0, len(decls))
	for _, d := range decls {
		if d.Handle > svc.Start && d.Handle < svc.End {
			inRange = append(inRange, d)
		}
	}
	sort.Slice(inRange, func(i, j int) bool { return inRange[i].Handle < inRange[j].Handle })

	known := map[uint16]struct{}{svc.Start: {}}
	maxKnown := svc.Start
	addKnown := func(h uint16) {
		known[h] = struct{}{}
		if h > maxKnown {
			maxKnown = h
		}
	}

	inferDescriptor := func(owner *Characteristic, handle uint16) {
		d := newDescriptor(t, logger, handle)
		if cccd != nil {
			cccd.MaybeSubscribe(d, owner.Properties)
		}
		owner.Descriptors = append(owner.Descriptors, d)
		addKnown(handle)
	}

	next := svc.Start + 1
	for _, info := range inRange {
		addKnown(info.Handle)
		addKnown(info.ValueHandle)

		for {
			if _, ok := known[next]; ok {
				break
			}
			if n := len(service.Characteristics); n > 0 {
				inferDescriptor(service.Characteristics[n-1], next)
				next++
			} else {
				// No owner yet for the gap; jump past it. The skipped
				// handles show up as unexplained below.
				next = maxKnown
			}
		}

		service.Characteristics = append(service.Characteristics, newCharacteristic(t, logger, info))
		next = maxKnown + 1
	}

	// Whatever remains before the end of the range hangs off the last
	// accepted characteristic.
	if n := len(service.Characteristics); n > 0 {
		for ; next < svc.End; next++ {
			inferDescriptor(service.Characteristics[n-1], next)
		}
	}

	var unexplained []uint16
	for h := svc.Start + 1; h < svc.End; h++ {
		if _, ok := known[h]; !ok {
			unexplained = append(unexplained, h)
		}
	}
	for _, h := range unexplained {
		if data, err := t.ReadHandle(h); err != nil {
			logger.WithFields(logrus.Fields{
				"service": service.UUID,
				"handle":  h,
			}).WithError(err).Warn("Unexplained handle could not be read")
		} else {
			logger.WithFields(logrus.Fields{
				"service": service.UUID,
				"handle":  h,
				"value":   fmt.Sprintf("% x", data),
			}).Warn("Unexplained handle in service range")
		}
	}

	return service, unexplained
}
