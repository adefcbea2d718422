package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/srg/blelock/internal/gatt"
	"github.com/srg/blelock/internal/groutine"
)

// Session is one connection to a lock peripheral. It owns the
// discovered attribute tables, the handle and UUID maps derived from
// them, and the routing of inbound events to listeners.
//
// A single mutex serializes discovery rebuilds against event dispatch:
// the transport may deliver notifications from its own goroutine, and
// dispatch must never observe a half-rebuilt handle map.
type Session struct {
	mu        sync.Mutex
	logger    *logrus.Logger
	transport gatt.Transport
	cccd      *gatt.CCCDManager

	services    map[string]*gatt.Service        // short UUID -> service
	uuidMap     map[string]*gatt.Characteristic // short UUID -> first matching characteristic
	unexplained []uint16

	status *Registry
	logs   *Registry
	reasm  *Reassembler
	router *Router

	deliver  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
	started  bool
}

func NewSession(t gatt.Transport, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Session{
		logger:    logger,
		transport: t,
		cccd:      gatt.NewCCCDManager(t, logger),
		services:  make(map[string]*gatt.Service),
		uuidMap:   make(map[string]*gatt.Characteristic),
		status:    NewRegistry(),
		logs:      NewRegistry(),
		deliver:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	s.reasm = NewReassembler(func(text string) { s.logs.Notify(text) })
	s.router = NewRouter(logger, s.status, s.reasm)
	t.SetNotificationHandler(s.dataReceived)
	t.SetIndicationHandler(s.dataReceived)
	return s
}

// dataReceived is the transport callback for notifications and
// indications. It runs on the transport's goroutine.
func (s *Session) dataReceived(handle uint16, data []byte) {
	s.mu.Lock()
	s.router.OnEvent(handle, data)
	s.mu.Unlock()

	select {
	case s.deliver <- struct{}{}:
	default:
	}
}

// Connect dials the peripheral, runs a discovery pass and starts the
// liveness loop that keeps the session alive for unsolicited events.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.transport.Connect(ctx); err != nil {
		return &gatt.TransportError{Op: "connect", Err: err}
	}
	if err := s.QueryPeripheral(); err != nil {
		return err
	}

	s.started = true
	groutine.Go(ctx, "lock-session-liveness", s.run)
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.loopDone)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			s.logger.WithError(ctx.Err()).Debug("Session context cancelled")
			return
		case <-s.deliver:
			s.logger.Debug("Event delivered")
		}
	}
}

// QueryPeripheral runs a full discovery pass and rebuilds the attribute
// tables, the UUID map and the router's handle map wholesale. Safe to
// call again on a live session; dispatch is blocked for the duration.
func (s *Session) QueryPeripheral() error {
	primaries, err := s.transport.DiscoverPrimary()
	if err != nil {
		return &gatt.TransportError{Op: "discover", Err: err}
	}
	decls, err := s.transport.DiscoverCharacteristics()
	if err != nil {
		return &gatt.TransportError{Op: "discover", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.services = make(map[string]*gatt.Service, len(primaries))
	s.uuidMap = make(map[string]*gatt.Characteristic)
	s.unexplained = nil
	handleMap := make(map[uint16]string)

	for _, p := range primaries {
		svc, unexplained := gatt.BuildServiceTable(s.transport, s.logger, p, decls, s.cccd)
		s.services[svc.UUID] = svc
		s.unexplained = append(s.unexplained, unexplained...)
		handleMap[svc.Start] = svc.UUID
		for _, c := range svc.Characteristics {
			handleMap[c.ValueHandle] = c.UUID
			if _, ok := s.uuidMap[c.UUID]; !ok {
				s.uuidMap[c.UUID] = c
			}
		}
	}
	s.router.SetHandleMap(handleMap)

	s.logger.WithFields(logrus.Fields{
		"services":    len(s.services),
		"unexplained": len(s.unexplained),
	}).Info("Peripheral attribute table rebuilt")
	return nil
}

// characteristic returns the discovered characteristic for a lock kind.
func (s *Session) characteristic(k Kind) (*gatt.Characteristic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.uuidMap[k.UUID()]
	if !ok {
		return nil, &ErrKindNotPresent{Kind: k}
	}
	return c, nil
}

// WriteSecret sends the unlock secret to the Unlock characteristic.
// The outcome arrives asynchronously as a status notification.
func (s *Session) WriteSecret(secret []byte) error {
	c, err := s.characteristic(KindUnlock)
	if err != nil {
		return err
	}
	return c.WriteValue(s.transport, secret)
}

// readText reads a characteristic by UUID and strips the framing
// header.
func (s *Session) readText(k Kind) (string, error) {
	data, err := s.transport.ReadUUID(k.UUID())
	if err != nil {
		return "", &gatt.TransportError{Op: "read", UUID: k.UUID(), Err: err}
	}
	if len(data) < headerLen {
		return "", &gatt.ProtocolError{Reason: fmt.Sprintf("%s payload shorter than header", k), Length: len(data)}
	}
	return string(data[headerLen:]), nil
}

// ReadStatus reads the current lock status text directly.
func (s *Session) ReadStatus() (string, error) {
	return s.readText(KindStatus)
}

// ReadLogFragment reads whatever single fragment the Log characteristic
// currently holds. Full log retrieval goes through indications and the
// reassembler; this is a point-in-time peek.
func (s *Session) ReadLogFragment() (string, error) {
	return s.readText(KindLog)
}

// OnStatus registers a status listener and returns its removal token.
func (s *Session) OnStatus(l Listener) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Add(l)
}

// OnLog registers a listener for fully reassembled log transmissions.
func (s *Session) OnLog(l Listener) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs.Add(l)
}

func (s *Session) RemoveStatusListener(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Remove(id)
}

func (s *Session) RemoveLogListener(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs.Remove(id)
}

// Services returns the discovered services sorted by start handle.
func (s *Session) Services() []*gatt.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*gatt.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Unexplained returns the handles the last discovery pass could not
// attribute to any characteristic.
func (s *Session) Unexplained() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint16, len(s.unexplained))
	copy(out, s.unexplained)
	return out
}

// Disconnect clears every CCCD subscription best-effort, drops the
// connection and stops the liveness loop. Safe to call more than once.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	s.cccd.UnsubscribeAll(s.services)
	s.mu.Unlock()

	err := s.transport.Disconnect()

	s.stopOnce.Do(func() { close(s.stop) })
	if s.started {
		<-s.loopDone
	}

	if err != nil {
		return &gatt.TransportError{Op: "disconnect", Err: err}
	}
	return nil
}
