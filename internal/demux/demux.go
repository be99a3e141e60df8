// Package demux routes file-broadcast payloads to a handler keyed by
// service id, the layer sitting directly atop the link frame parser.
package demux

import (
	"encoding/hex"
	"strconv"

	"github.com/sat-broadcast/satrecv/internal/logging"
	"github.com/sat-broadcast/satrecv/internal/metrics"
	"github.com/sat-broadcast/satrecv/internal/wire"
)

// maxDump bounds the hex dump logged for an unrouted service id.
const maxDump = 64

// Handler processes one payload for a given service id.
type Handler func(payload []byte)

// Demux dispatches frame payloads synchronously, in frame-arrival order.
type Demux struct {
	handlers map[wire.ServiceId]Handler
}

// New constructs an empty Demux.
func New() *Demux {
	return &Demux{handlers: make(map[wire.ServiceId]Handler)}
}

// Register binds a handler to a service id, replacing any previous one.
func (d *Demux) Register(id wire.ServiceId, h Handler) {
	d.handlers[id] = h
}

// Dispatch routes one frame's payload. Unknown service ids are counted and
// logged at debug level with a bounded hex dump; they never stop the
// pipeline.
func (d *Demux) Dispatch(f wire.Frame) {
	h, ok := d.handlers[f.ServiceID]
	if !ok {
		metrics.IncServiceUnknown(strconv.Itoa(int(f.ServiceID)))
		n := len(f.Payload)
		if n > maxDump {
			n = maxDump
		}
		logging.L().Debug("unknown service id",
			"service_id", f.ServiceID, "payload_len", len(f.Payload),
			"dump", hex.EncodeToString(f.Payload[:n]))
		return
	}
	h(f.Payload)
}
