package lock

import (
	"github.com/sirupsen/logrus"
)

// headerLen is the opaque framing header every lock payload starts
// with. The header bytes are discarded; only the text after them is
// dispatched.
const headerLen = 3

// Router dispatches inbound notification and indication events by
// handle. The handle map is rebuilt wholesale after every discovery
// pass, so routing always reflects the peripheral's current attribute
// layout.
//
// Malformed or unroutable events are logged and dropped; the router
// never fails.
type Router struct {
	logger  *logrus.Logger
	handles map[uint16]string // value handle -> short UUID
	status  *Registry
	logs    *Reassembler
}

func NewRouter(logger *logrus.Logger, status *Registry, logs *Reassembler) *Router {
	if logger == nil {
		logger = logrus.New()
	}
	return &Router{
		logger:  logger,
		handles: make(map[uint16]string),
		status:  status,
		logs:    logs,
	}
}

// SetHandleMap replaces the routing table.
func (r *Router) SetHandleMap(handles map[uint16]string) {
	r.handles = handles
}

// OnEvent routes one inbound event. Unknown handles are dropped at
// debug level; payloads shorter than the framing header are dropped
// with a warning.
func (r *Router) OnEvent(handle uint16, data []byte) {
	uuid, ok := r.handles[handle]
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"handle": handle,
			"length": len(data),
		}).Debug("Dropping event from unmapped handle")
		return
	}

	kind := KindForUUID(uuid)
	switch kind {
	case KindStatus, KindLog:
	default:
		r.logger.WithFields(logrus.Fields{
			"handle": handle,
			"uuid":   uuid,
		}).Warn("Unexpected event source")
		return
	}

	if len(data) < headerLen {
		r.logger.WithFields(logrus.Fields{
			"handle": handle,
			"uuid":   uuid,
			"length": len(data),
		}).Warn("Dropping truncated event payload")
		return
	}
	text := string(data[headerLen:])

	switch kind {
	case KindStatus:
		r.status.Notify(text)
	case KindLog:
		r.logs.Append(text)
	}
}
