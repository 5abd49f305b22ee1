package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	proto "github.com/ystepanoff/splitkb/protocol"
)

// ErrOutboxFull is returned by Send when the transmit queue is saturated.
// The message is dropped; the link is best-effort.
var ErrOutboxFull = errors.New("link outbox full")

// Config describes one end of the link.
type Config struct {
	Local   proto.DeviceID
	Peer    proto.DeviceID
	Channel uint8

	InboxSize  int           // decoded inbound messages awaiting the drain task
	OutboxSize int           // records awaiting the radio
	RxTimeout  time.Duration // longest single receive poll in Run

	// Clock returns milliseconds; nil counts from NewLink.
	Clock  func() uint32
	Logger *slog.Logger
}

// DefaultConfig returns the stock queue sizes on the default channel.
func DefaultConfig(local, peer proto.DeviceID) Config {
	return Config{
		Local:      local,
		Peer:       peer,
		Channel:    proto.DefaultChannel,
		InboxSize:  6,
		OutboxSize: 16,
		RxTimeout:  10 * time.Millisecond,
	}
}

// Stats counts what happened to datagrams on this end of the link.
type Stats struct {
	Sent          uint32 // frames handed to the radio
	SendDropped   uint32 // outbox full or radio Tx error
	Received      uint32 // messages queued for the drain task
	DecodeDropped uint32 // bad frame or malformed record
	Foreign       uint32 // frames from a sender other than the peer
	QueueDropped  uint32 // inbox full
	Lost          uint32 // gaps in the peer's sequence numbers
}

// Link carries sync records between the two halves. Sends are
// fire-and-forget into a bounded outbox; received records are decoded and
// queued on Inbound for the drain task. Delivery is best-effort with no
// acknowledgment.
type Link struct {
	driver RadioDriver
	cfg    Config
	local  *proto.Device
	peer   *proto.Device
	log    *slog.Logger

	outbox chan []byte
	inbox  chan proto.Message

	// owned by the transmit side
	seq uint32

	// owned by the receive side
	lastSeq uint32
	haveSeq bool

	sent, sendDropped, received          atomic.Uint32
	decodeDropped, foreign, queueDropped atomic.Uint32
	lost                                 atomic.Uint32
}

// NewLink wraps a radio driver. Call Initialise before the first transfer.
func NewLink(d RadioDriver, cfg Config) *Link {
	def := DefaultConfig(cfg.Local, cfg.Peer)
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = def.OutboxSize
	}
	if cfg.RxTimeout <= 0 {
		cfg.RxTimeout = def.RxTimeout
	}
	if cfg.Clock == nil {
		start := time.Now()
		cfg.Clock = func() uint32 { return uint32(time.Since(start).Milliseconds()) }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &Link{
		driver: d,
		cfg:    cfg,
		local:  proto.NewDevice(cfg.Local),
		peer:   proto.NewDevice(cfg.Peer),
		log:    logger.With("component", "link", "local", uint32(cfg.Local)),
		outbox: make(chan []byte, cfg.OutboxSize),
		inbox:  make(chan proto.Message, cfg.InboxSize),
	}
	l.local.Channel = cfg.Channel
	l.peer.Channel = cfg.Channel
	return l
}

// Initialise starts the radio clock and applies addressing and channel.
func (l *Link) Initialise() error {
	l.driver.StartHFCLK()
	return l.driver.Configure(l.local.Address, l.local.Prefix, l.local.Channel)
}

// Send encodes m and queues it for transmission without blocking.
func (l *Link) Send(m proto.Message) error {
	rec, err := m.MarshalBinary()
	if err != nil {
		l.sendDropped.Add(1)
		return err
	}
	select {
	case l.outbox <- rec:
		return nil
	default:
		l.sendDropped.Add(1)
		l.log.Warn("outbox full, dropping message", "msg", m.String())
		return ErrOutboxFull
	}
}

// PumpTx frames and transmits every queued record and returns how many
// reached the radio.
func (l *Link) PumpTx() int {
	n := 0
	for {
		select {
		case rec := <-l.outbox:
			if l.transmit(rec) {
				n++
			}
		default:
			return n
		}
	}
}

func (l *Link) transmit(rec []byte) bool {
	frame := &proto.Frame{
		SenderID: l.local.ID,
		Seq:      l.seq,
		Payload:  rec,
	}
	l.seq++
	if err := l.driver.Tx(proto.EncodeFrame(frame)); err != nil {
		l.sendDropped.Add(1)
		l.log.Warn("radio tx failed", "seq", frame.Seq, "err", err)
		return false
	}
	l.sent.Add(1)
	return true
}

// PollRx waits up to timeout for one datagram and queues it on Inbound if
// it is a well-formed record from the peer. It reports whether a message
// was queued. PollRx and PollAll must only be called from one goroutine.
func (l *Link) PollRx(timeout time.Duration) bool {
	data, err := l.driver.Rx(timeout)
	if err != nil {
		return false
	}
	return l.accept(data)
}

// PollAll receives datagrams already waiting in the radio without blocking
// until the radio is empty or Inbound is full, and returns how many
// messages were queued.
func (l *Link) PollAll() int {
	n := 0
	for len(l.inbox) < cap(l.inbox) {
		data, err := l.driver.Rx(0)
		if err != nil {
			break
		}
		if l.accept(data) {
			n++
		}
	}
	return n
}

func (l *Link) accept(data []byte) bool {
	frame := proto.DecodeFrame(data)
	if frame == nil {
		l.decodeDropped.Add(1)
		l.log.Warn("dropping malformed frame", "len", len(data))
		return false
	}
	if frame.SenderID != l.peer.ID {
		l.foreign.Add(1)
		l.log.Debug("ignoring frame from foreign sender", "sender", uint32(frame.SenderID))
		return false
	}
	l.trackSeq(frame.Seq)
	l.peer.UpdateLastSeen(l.cfg.Clock())

	msg, err := proto.DecodeMessage(frame.Payload)
	if err != nil {
		l.decodeDropped.Add(1)
		l.log.Warn("dropping malformed record", "seq", frame.Seq, "err", err)
		return false
	}

	select {
	case l.inbox <- msg:
		l.received.Add(1)
		return true
	default:
		l.queueDropped.Add(1)
		l.log.Warn("inbox full, dropping message", "msg", msg.String())
		return false
	}
}

// trackSeq counts sequence gaps as lost datagrams. A sequence number far
// behind the last one is taken as a peer restart.
func (l *Link) trackSeq(seq uint32) {
	if l.haveSeq {
		gap := seq - l.lastSeq - 1
		if gap != 0 && gap < 1<<31 {
			l.lost.Add(gap)
			l.log.Debug("sequence gap", "from", l.lastSeq, "to", seq)
		}
	}
	l.lastSeq = seq
	l.haveSeq = true
}

// Inbound delivers decoded messages from the peer.
func (l *Link) Inbound() <-chan proto.Message { return l.inbox }

// PeerAlive reports whether the peer was heard from within timeout ms.
func (l *Link) PeerAlive(timeout uint32) bool {
	return l.peer.IsAlive(l.cfg.Clock(), timeout)
}

// Run pumps the radio until ctx is cancelled: one goroutine transmits the
// outbox, another polls for inbound datagrams.
func (l *Link) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case rec := <-l.outbox:
				l.transmit(rec)
			}
		}
	})

	g.Go(func() error {
		for ctx.Err() == nil {
			l.PollRx(l.cfg.RxTimeout)
		}
		return nil
	})

	return g.Wait()
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	return Stats{
		Sent:          l.sent.Load(),
		SendDropped:   l.sendDropped.Load(),
		Received:      l.received.Load(),
		DecodeDropped: l.decodeDropped.Load(),
		Foreign:       l.foreign.Load(),
		QueueDropped:  l.queueDropped.Load(),
		Lost:          l.lost.Load(),
	}
}
