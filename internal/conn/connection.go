// Package conn implements the Connection: a client that maintains a live
// mirror of a remote device tree by consuming the wire protocol, serving
// point-in-time state snapshots to callers, and writing back property
// mutations with optional synchronous confirmation.
//
// The Connection owns a private background worker that exclusively holds
// the socket and the live state.State. All client interaction goes
// through two channels — a task queue and a response queue — so the
// State is never touched across goroutines without explicit message
// passing, per spec section 4.2 and the worker-thread redesign note in
// section 9.
package conn

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/obsctl/obsctl/internal/state"
	"github.com/obsctl/obsctl/internal/wire"
	"github.com/obsctl/obsctl/pkg/log"
)

var (
	ErrUnknownDevice   = errors.New("conn: unknown device")
	ErrUnknownProperty = errors.New("conn: unknown property")
	ErrSetTimeout      = errors.New("conn: set-value timeout")
	ErrNotConnected    = errors.New("conn: connection closed")
)

type taskKind int

const (
	taskGetState taskKind = iota
	taskSend
	taskStop
)

type task struct {
	kind taskKind
	xml  string
}

// BlobMode controls how a device forwards image blobs to the client, per
// spec section 4.2 set_camera_recv.
type BlobMode string

const (
	BlobAlso  BlobMode = "Also"
	BlobOnly  BlobMode = "Only"
	BlobNever BlobMode = "Never"
)

// Connection is the client-facing handle. All fields are only touched by
// the owning goroutine that calls its methods; the worker goroutine never
// reaches into a Connection's fields directly.
type Connection struct {
	tasks     chan task
	snapshots chan *state.State

	mu    sync.Mutex
	alive bool
	done  chan struct{}
}

// Open dials host:port, starts the background worker, and sends the
// initial getProperties handshake. It returns immediately; the mirror
// populates asynchronously as the daemon responds.
func Open(host string, port int) (*Connection, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	sock, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("conn: dial %s: %w", addr, err)
	}

	c := &Connection{
		tasks:     make(chan task, 64),
		snapshots: make(chan *state.State, 16),
		alive:     true,
		done:      make(chan struct{}),
	}

	w := &worker{
		sock:      sock,
		state:     state.New(),
		tasks:     c.tasks,
		snapshots: c.snapshots,
		done:      c.done,
	}
	go w.run()

	c.tasks <- task{kind: taskSend, xml: wire.EncodeGetProperties()}
	return c, nil
}

func (c *Connection) isAlive() bool {
	select {
	case <-c.done:
		c.mu.Lock()
		c.alive = false
		c.mu.Unlock()
		return false
	default:
		return true
	}
}

// State returns the newest available snapshot, draining any stale
// snapshots that have queued up in the response channel. Fails with
// ErrNotConnected if the worker is no longer alive.
func (c *Connection) State() (*state.State, error) {
	if !c.isAlive() {
		return nil, ErrNotConnected
	}

	select {
	case c.tasks <- task{kind: taskGetState}:
	case <-c.done:
		return nil, ErrNotConnected
	}

	var latest *state.State
	select {
	case latest = <-c.snapshots:
	case <-c.done:
		return nil, ErrNotConnected
	}
	for {
		select {
		case s := <-c.snapshots:
			latest = s
		default:
			return latest, nil
		}
	}
}

// SetValueOpts configures a SetValue call.
type SetValueOpts struct {
	Block   bool
	Timeout time.Duration
}

// DefaultSetValueOpts matches spec section 4.2: block=true, timeout=10s.
func DefaultSetValueOpts() SetValueOpts {
	return SetValueOpts{Block: true, Timeout: 10 * time.Second}
}

// SetValue looks up the named property vector in the current snapshot,
// builds and sends a mutation element, and — when opts.Block — polls
// fresh snapshots until is_set matches for every requested element or the
// timeout elapses.
func (c *Connection) SetValue(device, property string, values map[string]interface{}, opts SetValueOpts) error {
	snap, err := c.State()
	if err != nil {
		return err
	}
	d := snap.Device(device)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}
	v := d.Properties[property]
	if v == nil {
		return fmt.Errorf("%w: %s/%s", ErrUnknownProperty, device, property)
	}

	xmlOut, err := buildMutation(v, values)
	if err != nil {
		return err
	}

	select {
	case c.tasks <- task{kind: taskSend, xml: xmlOut}:
	case <-c.done:
		return ErrNotConnected
	}

	if !opts.Block {
		return nil
	}

	deadline := time.Now().Add(opts.Timeout)
	for {
		snap, err := c.State()
		if err != nil {
			return err
		}
		cur := snap.Vector(device, property)
		if cur != nil && isSet(cur, values) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s/%s", ErrSetTimeout, device, property)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func buildMutation(v *state.Vector, values map[string]interface{}) (string, error) {
	switch v.Kind {
	case state.KindNumber:
		vals := map[string]float64{}
		for k, raw := range values {
			f, ok := raw.(float64)
			if !ok {
				return "", fmt.Errorf("conn: value for %s must be float64", k)
			}
			vals[k] = f
		}
		return wire.EncodeNumberVector(v, vals)
	case state.KindText:
		vals := map[string]string{}
		for k, raw := range values {
			s, ok := raw.(string)
			if !ok {
				return "", fmt.Errorf("conn: value for %s must be string", k)
			}
			vals[k] = s
		}
		return wire.EncodeTextVector(v, vals)
	case state.KindSwitch:
		vals := map[string]bool{}
		for k, raw := range values {
			b, ok := raw.(bool)
			if !ok {
				return "", fmt.Errorf("conn: value for %s must be bool", k)
			}
			vals[k] = b
		}
		return wire.EncodeSwitchVector(v, vals)
	default:
		return "", fmt.Errorf("conn: blob vectors are read-only")
	}
}

func isSet(v *state.Vector, values map[string]interface{}) bool {
	switch v.Kind {
	case state.KindNumber:
		vals := map[string]float64{}
		for k, raw := range values {
			vals[k], _ = raw.(float64)
		}
		return wire.IsSetNumber(v, vals)
	case state.KindText:
		vals := map[string]string{}
		for k, raw := range values {
			vals[k], _ = raw.(string)
		}
		return wire.IsSetText(v, vals)
	case state.KindSwitch:
		vals := map[string]bool{}
		for k, raw := range values {
			vals[k], _ = raw.(bool)
		}
		return wire.IsSetSwitch(v, vals)
	default:
		return true
	}
}

// SetCameraRecv sends enableBLOB to every blob-bearing device in the
// current snapshot (or the given list), per spec section 4.2. Without
// this, the remote daemon will not forward image blobs.
func (c *Connection) SetCameraRecv(devices []string, mode BlobMode) error {
	if mode == "" {
		mode = BlobAlso
	}
	if len(devices) == 0 {
		snap, err := c.State()
		if err != nil {
			return err
		}
		for _, name := range snap.DeviceNames() {
			d := snap.Device(name)
			for _, v := range d.Properties {
				if v.Kind == state.KindBlob {
					devices = append(devices, name)
					break
				}
			}
		}
	}

	for _, dev := range devices {
		select {
		case c.tasks <- task{kind: taskSend, xml: wire.EncodeEnableBlob(dev, string(mode))}:
		case <-c.done:
			return ErrNotConnected
		}
	}
	return nil
}

// Close enqueues the stop task and waits for the worker to terminate.
func (c *Connection) Close() error {
	select {
	case c.tasks <- task{kind: taskStop}:
	case <-c.done:
		return nil
	}
	<-c.done
	log.Debug("conn: connection closed")
	return nil
}
