//go:build !tinygo && !baremetal

// Package stub is an in-memory radio for host-side tests and the simulator.
package stub

import (
	"sync"
	"time"

	proto "github.com/ystepanoff/splitkb/protocol"
	"github.com/ystepanoff/splitkb/transport"
)

// Driver implements transport.RadioDriver in memory. A standalone driver
// logs what it transmits; drivers created by NewPair deliver to each other.
type Driver struct {
	mu     sync.Mutex
	rxBuf  ringBuffer
	txBuf  ringBuffer
	peer   *Driver
	signal chan struct{}
	fault  func([]byte) []byte

	channel uint8
}

var _ transport.RadioDriver = (*Driver)(nil)

// New returns an unconnected driver.
func New() *Driver {
	return &Driver{signal: make(chan struct{}, 1), channel: proto.DefaultChannel}
}

// NewPair returns two drivers wired back to back: what one transmits, the
// other receives.
func NewPair() (*Driver, *Driver) {
	a, b := New(), New()
	a.peer, b.peer = b, a
	return a, b
}

func (d *Driver) StartHFCLK()                                                {}
func (d *Driver) Configure(address uint32, prefix byte, channel uint8) error { return d.SetChannel(channel) }

func (d *Driver) SetChannel(channel uint8) error {
	if channel > proto.MaxChannel {
		return proto.ErrInvalidChannel
	}
	d.mu.Lock()
	d.channel = channel
	d.mu.Unlock()
	return nil
}

// SetFault installs a hook applied to every transmitted frame. It may
// modify the frame, or return nil to drop it. Nil removes the hook.
func (d *Driver) SetFault(fn func(frame []byte) []byte) {
	d.mu.Lock()
	d.fault = fn
	d.mu.Unlock()
}

func (d *Driver) Tx(data []byte) error {
	frame := make([]byte, len(data))
	copy(frame, data)

	d.mu.Lock()
	d.txBuf.push(frame)
	fault, peer, channel := d.fault, d.peer, d.channel
	d.mu.Unlock()

	if fault != nil {
		frame = fault(frame)
	}
	if frame == nil || peer == nil {
		return nil
	}

	peer.mu.Lock()
	if peer.channel != channel {
		peer.mu.Unlock()
		return nil
	}
	peer.rxBuf.push(frame)
	peer.mu.Unlock()
	peer.wake()
	return nil
}

func (d *Driver) Rx(timeout time.Duration) ([]byte, error) {
	var timer *time.Timer
	for {
		d.mu.Lock()
		frame, ok := d.rxBuf.pop()
		d.mu.Unlock()
		if ok {
			return frame, nil
		}
		if timeout <= 0 {
			return nil, proto.ErrTimeout
		}
		if timer == nil {
			timer = time.NewTimer(timeout)
			defer timer.Stop()
		}
		select {
		case <-d.signal:
		case <-timer.C:
			return nil, proto.ErrTimeout
		}
	}
}

func (d *Driver) wake() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// InjectRx queues data as if it had arrived over the air.
func (d *Driver) InjectRx(data []byte) {
	frame := make([]byte, len(data))
	copy(frame, data)
	d.mu.Lock()
	d.rxBuf.push(frame)
	d.mu.Unlock()
	d.wake()
}

// GetTxLog returns copies of the most recent transmitted frames, oldest
// first.
func (d *Driver) GetTxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txBuf.snapshot()
}

// ClearTxLog forgets the transmit history.
func (d *Driver) ClearTxLog() {
	d.mu.Lock()
	d.txBuf = ringBuffer{}
	d.mu.Unlock()
}

// Pending returns the number of frames waiting to be received.
func (d *Driver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxBuf.count
}

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		// Overwrite the oldest when full
		rb.data[rb.tail] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, rb.count)
	i := rb.head
	for c := 0; c < rb.count; c++ {
		p := rb.data[i]
		cp := make([]byte, len(p))
		copy(cp, p)
		out[c] = cp
		i = (i + 1) % ringCapacity
	}
	return out
}
