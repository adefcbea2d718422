// Package scanner discovers BLE peripherals and filters them down to
// candidates worth connecting to, the lock service being the usual
// filter.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cornelk/hashmap"
	blelib "github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/blelock/internal/gatt/goble"
	"github.com/srg/blelock/internal/lock"
	"github.com/srg/blelock/internal/ringchan"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// DeviceEventType marks if the device was newly discovered or updated
type DeviceEventType int

const (
	EventNew DeviceEventType = iota
	EventUpdated
)

type DeviceEvent struct {
	Type       DeviceEventType
	DeviceInfo *DeviceInfo
}

// ScanningDevice is the slice of ble.Device the scanner needs.
type ScanningDevice interface {
	Scan(ctx context.Context, allowDup bool, handler func(blelib.Advertisement)) error
}

type bleScanningDevice struct {
	dev blelib.Device
}

func (s *bleScanningDevice) Scan(ctx context.Context, allowDup bool, handler func(blelib.Advertisement)) error {
	return s.dev.Scan(ctx, allowDup, func(adv blelib.Advertisement) {
		handler(adv)
	})
}

// DeviceFactory creates the scanning device. A variable so tests can
// substitute a scripted device.
var DeviceFactory = func() (ScanningDevice, error) {
	dev, err := goble.DeviceFactory()
	if err != nil {
		return nil, err
	}
	return &bleScanningDevice{dev: dev}, nil
}

// Scanner handles BLE device discovery
type Scanner struct {
	devices *hashmap.Map[string, *DeviceInfo]
	events  *ringchan.RingChannel[DeviceEvent]
	logger  *logrus.Logger

	scanOptions *ScanOptions
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration
	DuplicateFilter bool
	ServiceUUIDs    []blelib.UUID
	AllowList       []string
	BlockList       []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration:        10 * time.Second,
		DuplicateFilter: true,
	}
}

// LockScanOptions returns options filtered to peripherals advertising
// the lock service.
func LockScanOptions() *ScanOptions {
	opts := DefaultScanOptions()
	opts.ServiceUUIDs = []blelib.UUID{blelib.MustParse(lock.ServiceUUID)}
	return opts
}

// NewScanner creates a new BLE scanner
func NewScanner(logger *logrus.Logger) (*Scanner, error) {
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		events: ringchan.New[DeviceEvent](100),
		logger: logger,
	}, nil
}

// Scan performs BLE discovery with provided options
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) (map[string]*DeviceInfo, error) {
	s.devices = hashmap.New[string, *DeviceInfo]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {}
	}

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan...")
	progressCallback("Scanning")

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}

	scanCtx := ctx
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s.scanOptions = opts
	defer func() {
		s.scanOptions = nil
	}()
	err = dev.Scan(scanCtx, opts.DuplicateFilter, s.handleAdvertisement)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	s.logger.WithField("device_count", s.devices.Len()).Info("BLE scan completed")
	progressCallback("Processing results")

	devices := make(map[string]*DeviceInfo, s.devices.Len())
	s.devices.Range(func(key string, value *DeviceInfo) bool {
		devices[key] = value
		return true
	})

	return devices, nil
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(adv blelib.Advertisement) {
	deviceID := adv.Addr().String()

	dev, existing := s.devices.Get(deviceID)
	if !existing {
		if !s.shouldIncludeDevice(adv, s.scanOptions) {
			return
		}
		dev, existing = s.devices.GetOrInsert(deviceID, NewDeviceInfo(adv))
	}

	event := DeviceEvent{
		DeviceInfo: dev,
	}

	if existing {
		dev.Update(adv)
		event.Type = EventUpdated
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  dev.Name,
			"address": dev.Address,
			"rssi":    dev.RSSI,
		}).Info("Discovered new device")
		event.Type = EventNew
	}

	s.events.Send(event)
}

// shouldIncludeDevice applies allow/block/service filters
func (s *Scanner) shouldIncludeDevice(adv blelib.Advertisement, opts *ScanOptions) bool {
	addr := adv.Addr().String()

	for _, blocked := range opts.BlockList {
		if addr == blocked {
			return false
		}
	}

	if len(opts.AllowList) > 0 {
		allowed := false
		for _, a := range opts.AllowList {
			if addr == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if len(opts.ServiceUUIDs) > 0 {
		hasRequired := false
		for _, required := range opts.ServiceUUIDs {
			for _, advUUID := range adv.Services() {
				if required.Equal(advUUID) {
					hasRequired = true
					break
				}
			}
			if hasRequired {
				break
			}
		}
		if !hasRequired {
			return false
		}
	}

	return true
}

// Events returns a read-only channel of device events
func (s *Scanner) Events() <-chan DeviceEvent {
	return s.events.C()
}
