package conn

import (
	"net"
	"time"

	"github.com/obsctl/obsctl/internal/state"
	"github.com/obsctl/obsctl/internal/wire"
	"github.com/obsctl/obsctl/pkg/log"
)

const (
	readReadiness  = 1 * time.Millisecond
	pendingTimeout = 10 * time.Second
)

// worker owns the socket and the live state.State exclusively. No other
// goroutine may touch either; callers interact only through the task and
// snapshot channels.
type worker struct {
	sock  net.Conn
	state *state.State

	tasks     <-chan task
	snapshots chan<- *state.State
	done      chan struct{}

	chunker      wire.Chunker
	pendingSince time.Time
	hasPending   bool
}

func (w *worker) run() {
	defer func() {
		w.sock.Close()
		close(w.done)
	}()

	buf := make([]byte, 64*1024)
	for {
		if err := w.sock.SetReadDeadline(time.Now().Add(readReadiness)); err != nil {
			log.Errorf("conn: set read deadline: %v", err)
			return
		}

		n, err := w.sock.Read(buf)
		if n > 0 {
			w.ingest(buf[:n])
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// No data ready within the readiness window; fall through
				// to drain whatever tasks are queued.
			} else {
				log.Warnf("conn: socket error, worker terminating: %v", err)
				return
			}
		}

		if w.hasPending && time.Since(w.pendingSince) > pendingTimeout {
			log.Warn("conn: discarding residual buffer, element never closed within timeout")
			w.chunker = wire.Chunker{}
			w.hasPending = false
		}

		if w.drainOneTask() == stopRequested {
			return
		}
	}
}

func (w *worker) ingest(data []byte) {
	elems, pending := w.chunker.Feed(data)
	if pending && !w.hasPending {
		w.pendingSince = time.Now()
	}
	w.hasPending = pending

	for _, e := range elems {
		w.apply(e)
	}
}

func (w *worker) apply(elem string) {
	dec, err := wire.Decode(elem)
	if err != nil {
		log.Warnf("conn: discarding unparsable element: %v", err)
		return
	}

	switch dec.Kind {
	case wire.KindDef:
		w.state.DefineVector(dec.Vector)
	case wire.KindSet:
		w.applySet(dec.Vector)
	case wire.KindDel:
		w.state.DeleteProperty(dec.DelDevice, dec.DelName)
	case wire.KindMessage:
		log.Errorf("conn: device message [%s] %s", dec.MsgDevice, dec.MsgText)
	case wire.KindIgnored:
	}
}

// applySet updates an existing vector in place by element name, preserving
// order, then re-validates switch-rule invariants, per spec section 4.2
// step 3.
func (w *worker) applySet(update *state.Vector) {
	cur := w.state.Vector(update.Device, update.Name)
	if cur == nil {
		log.Warnf("conn: set for unknown vector %s/%s, ignoring", update.Device, update.Name)
		return
	}

	cur.State = update.State
	cur.Message = update.Message
	cur.Stamp = update.Stamp

	switch cur.Kind {
	case state.KindNumber:
		for _, name := range update.ElementNames() {
			el, _ := update.Number(name)
			if existing, ok := cur.Number(name); ok {
				existing.Value = el.Value
				cur.SetNumber(existing)
			}
		}
	case state.KindText:
		for _, name := range update.ElementNames() {
			el, _ := update.Text(name)
			if existing, ok := cur.Text(name); ok {
				existing.Value = el.Value
				cur.SetText(existing)
			}
		}
	case state.KindSwitch:
		for _, name := range update.ElementNames() {
			el, _ := update.Switch(name)
			if existing, ok := cur.Switch(name); ok {
				existing.Value = el.Value
				cur.SetSwitch(existing)
			}
		}
	case state.KindBlob:
		for _, name := range update.ElementNames() {
			el, _ := update.Blob(name)
			if existing, ok := cur.Blob(name); ok {
				existing.Format = el.Format
				existing.Size = el.Size
				existing.Bytes = el.Bytes
				cur.SetBlob(existing)
			}
		}
	}

	if err := cur.EnforceSwitchRule(); err != nil {
		log.Warnf("conn: %v", err)
	}
}

type drainResult int

const (
	drainedIdle drainResult = iota
	stopRequested
)

// drainOneTask drains exactly one queued task per loop iteration, keeping
// the worker cooperative.
func (w *worker) drainOneTask() drainResult {
	select {
	case t := <-w.tasks:
		switch t.kind {
		case taskGetState:
			snap := w.state.Snapshot()
			select {
			case w.snapshots <- snap:
			default:
				// Response queue full: drop the oldest by reading then
				// re-pushing, keeping only the freshest view available.
				select {
				case <-w.snapshots:
				default:
				}
				w.snapshots <- snap
			}
		case taskSend:
			if _, err := w.sock.Write([]byte(t.xml)); err != nil {
				log.Warnf("conn: write failed: %v", err)
			}
		case taskStop:
			return stopRequested
		}
	default:
	}
	return drainedIdle
}
