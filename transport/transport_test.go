package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	proto "github.com/ystepanoff/splitkb/protocol"
)

// MockDriver implements the RadioDriver interface for testing
type MockDriver struct {
	mutex  sync.Mutex
	txLog  [][]byte
	rxData [][]byte
	txErr  error

	configured bool
	channel    uint8
}

func NewMockDriver() *MockDriver {
	return &MockDriver{
		txLog:  make([][]byte, 0),
		rxData: make([][]byte, 0),
	}
}

func (d *MockDriver) StartHFCLK() {}

func (d *MockDriver) Configure(address uint32, prefix byte, channel uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.configured = true
	d.channel = channel
	return nil
}

func (d *MockDriver) SetChannel(channel uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.channel = channel
	return nil
}

func (d *MockDriver) Tx(data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.txErr != nil {
		return d.txErr
	}

	// Make a copy to avoid data races
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	d.txLog = append(d.txLog, dataCopy)
	return nil
}

func (d *MockDriver) Rx(timeout time.Duration) ([]byte, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.rxData) == 0 {
		return nil, proto.ErrTimeout
	}

	data := d.rxData[0]
	d.rxData = d.rxData[1:]

	result := make([]byte, len(data))
	copy(result, data)

	return result, nil
}

// Test helper methods
func (d *MockDriver) GetTxLog() [][]byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	result := make([][]byte, len(d.txLog))
	for i, data := range d.txLog {
		result[i] = make([]byte, len(data))
		copy(result[i], data)
	}

	return result
}

func (d *MockDriver) ClearTxLog() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.txLog = d.txLog[:0]
}

func (d *MockDriver) InjectRx(data []byte) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	d.rxData = append(d.rxData, dataCopy)
}

// ConnectDrivers forwards each driver's transmissions to the other until
// ctx is cancelled.
func ConnectDrivers(ctx context.Context, a, b *MockDriver) {
	go func() {
		for ctx.Err() == nil {
			for _, data := range a.GetTxLog() {
				b.InjectRx(data)
			}
			a.ClearTxLog()

			for _, data := range b.GetTxLog() {
				a.InjectRx(data)
			}
			b.ClearTxLog()

			time.Sleep(time.Millisecond)
		}
	}()
}

func quietConfig(local, peer proto.DeviceID) Config {
	cfg := DefaultConfig(local, peer)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Clock = func() uint32 { return 1000 }
	return cfg
}

func frameFrom(sender proto.DeviceID, seq uint32, m proto.Message) []byte {
	rec, err := m.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return proto.EncodeFrame(&proto.Frame{SenderID: sender, Seq: seq, Payload: rec})
}

func TestLink_SendFramesRecord(t *testing.T) {
	driver := NewMockDriver()
	link := NewLink(driver, quietConfig(0xCAFE, 0xBEEF))

	msgs := []proto.Message{
		proto.NewLayerSync(proto.OriginSecondary, 1),
		proto.NewHeartbeatRequest(proto.OriginSecondary),
		proto.NewModDesync(proto.OriginSecondary, 0x08),
	}
	for _, m := range msgs {
		if err := link.Send(m); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if len(driver.GetTxLog()) != 0 {
		t.Fatal("Send() transmitted synchronously, want queued")
	}
	if n := link.PumpTx(); n != len(msgs) {
		t.Fatalf("PumpTx() = %d, want %d", n, len(msgs))
	}

	txLog := driver.GetTxLog()
	for i, data := range txLog {
		sent := proto.DecodeFrame(data)
		if sent == nil {
			t.Fatal("Transmitted invalid frame")
		}
		if sent.SenderID != 0xCAFE {
			t.Errorf("Frame.SenderID = %v, want %v", sent.SenderID, 0xCAFE)
		}
		if sent.Seq != uint32(i) {
			t.Errorf("Frame.Seq = %v, want %v", sent.Seq, i)
		}
		got, err := proto.DecodeMessage(sent.Payload)
		if err != nil {
			t.Fatalf("DecodeMessage() error = %v", err)
		}
		if got != msgs[i] {
			t.Errorf("message %d = %v, want %v", i, got, msgs[i])
		}
	}

	if s := link.Stats(); s.Sent != 3 || s.SendDropped != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLink_SendRejectsInvalidMessage(t *testing.T) {
	link := NewLink(NewMockDriver(), quietConfig(1, 2))

	err := link.Send(proto.Message{Origin: proto.OriginSecondary, Type: proto.EventTap})
	if !errors.Is(err, proto.ErrPayloadMismatch) {
		t.Errorf("Send() error = %v, want %v", err, proto.ErrPayloadMismatch)
	}
}

func TestLink_OutboxFullDrops(t *testing.T) {
	cfg := quietConfig(1, 2)
	cfg.OutboxSize = 2
	link := NewLink(NewMockDriver(), cfg)

	m := proto.NewHeartbeatRequest(proto.OriginSecondary)
	for i := 0; i < 2; i++ {
		if err := link.Send(m); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if err := link.Send(m); !errors.Is(err, ErrOutboxFull) {
		t.Errorf("Send() error = %v, want %v", err, ErrOutboxFull)
	}
	if s := link.Stats(); s.SendDropped != 1 {
		t.Errorf("SendDropped = %d, want 1", s.SendDropped)
	}
}

func TestLink_TxErrorIsCounted(t *testing.T) {
	driver := NewMockDriver()
	driver.txErr = errors.New("radio busy")
	link := NewLink(driver, quietConfig(1, 2))

	_ = link.Send(proto.NewHeartbeatRequest(proto.OriginSecondary))
	if n := link.PumpTx(); n != 0 {
		t.Errorf("PumpTx() = %d, want 0", n)
	}
	if s := link.Stats(); s.SendDropped != 1 || s.Sent != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLink_PollRxFilters(t *testing.T) {
	const local, peer = proto.DeviceID(1), proto.DeviceID(2)

	good := proto.NewLayerSync(proto.OriginSecondary, 2)

	badRecord := frameFrom(peer, 1, good)
	badRecord[proto.FrameHeaderSize+1] = 0x42 // unknown event type, CRC now wrong too

	unknownEvent := proto.EncodeFrame(&proto.Frame{
		SenderID: peer,
		Seq:      2,
		Payload:  []byte{1, 0x42, 0, 0, 0, 0, 0, 0, 0, 0},
	})

	shortRecord := proto.EncodeFrame(&proto.Frame{
		SenderID: peer,
		Seq:      3,
		Payload:  []byte{1, 3, 1},
	})

	tests := []struct {
		name        string
		data        []byte
		wantQueued  bool
		wantForeign uint32
		wantDecode  uint32
	}{
		{name: "valid", data: frameFrom(peer, 0, good), wantQueued: true},
		{name: "foreign sender", data: frameFrom(9, 0, good), wantForeign: 1},
		{name: "corrupt frame", data: badRecord, wantDecode: 1},
		{name: "unknown event", data: unknownEvent, wantDecode: 1},
		{name: "short record", data: shortRecord, wantDecode: 1},
		{name: "garbage", data: []byte{0xFF, 0x00}, wantDecode: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := NewMockDriver()
			link := NewLink(driver, quietConfig(local, peer))
			driver.InjectRx(tt.data)

			if got := link.PollRx(0); got != tt.wantQueued {
				t.Errorf("PollRx() = %v, want %v", got, tt.wantQueued)
			}
			s := link.Stats()
			if s.Foreign != tt.wantForeign {
				t.Errorf("Foreign = %d, want %d", s.Foreign, tt.wantForeign)
			}
			if s.DecodeDropped != tt.wantDecode {
				t.Errorf("DecodeDropped = %d, want %d", s.DecodeDropped, tt.wantDecode)
			}
			if tt.wantQueued {
				select {
				case m := <-link.Inbound():
					if m != good {
						t.Errorf("Inbound() = %v, want %v", m, good)
					}
				default:
					t.Error("Inbound() empty")
				}
			}
		})
	}
}

func TestLink_InboxFullDrops(t *testing.T) {
	driver := NewMockDriver()
	cfg := quietConfig(1, 2)
	cfg.InboxSize = 2
	link := NewLink(driver, cfg)

	for seq := uint32(0); seq < 3; seq++ {
		driver.InjectRx(frameFrom(2, seq, proto.NewHeartbeatResponse(proto.OriginPrimary)))
		link.PollRx(0)
	}

	s := link.Stats()
	if s.Received != 2 || s.QueueDropped != 1 {
		t.Errorf("Stats() = %+v, want 2 received and 1 queue drop", s)
	}
}

func TestLink_SequenceGapsCountAsLost(t *testing.T) {
	driver := NewMockDriver()
	link := NewLink(driver, quietConfig(1, 2))
	m := proto.NewHeartbeatResponse(proto.OriginPrimary)

	for _, seq := range []uint32{10, 11, 14, 15, 0} {
		driver.InjectRx(frameFrom(2, seq, m))
		link.PollRx(0)
		<-link.Inbound()
	}

	if s := link.Stats(); s.Lost != 2 {
		t.Errorf("Lost = %d, want 2 (restart at 0 is not a gap)", s.Lost)
	}
	if !link.PeerAlive(100) {
		t.Error("PeerAlive() = false after traffic")
	}
}

func TestLink_PeerAliveExpires(t *testing.T) {
	now := uint32(0)
	cfg := quietConfig(1, 2)
	cfg.Clock = func() uint32 { return now }
	driver := NewMockDriver()
	link := NewLink(driver, cfg)

	if link.PeerAlive(100) {
		t.Error("PeerAlive() = true before any frame")
	}

	now = 50
	driver.InjectRx(frameFrom(2, 1, proto.NewHeartbeatRequest(proto.OriginSecondary)))
	link.PollRx(0)
	<-link.Inbound()

	now = 149
	if !link.PeerAlive(100) {
		t.Error("PeerAlive() = false 99ms after a frame")
	}
	now = 150
	if link.PeerAlive(100) {
		t.Error("PeerAlive() = true 100ms after a frame")
	}
}

func TestLink_Initialise(t *testing.T) {
	driver := NewMockDriver()
	link := NewLink(driver, quietConfig(1, 2))

	if err := link.Initialise(); err != nil {
		t.Fatalf("Initialise() error = %v", err)
	}
	if !driver.configured || driver.channel != proto.DefaultChannel {
		t.Errorf("driver not configured on default channel: %+v", driver.channel)
	}
}

func TestLink_RunExchangesMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driverA := NewMockDriver()
	driverB := NewMockDriver()
	ConnectDrivers(ctx, driverA, driverB)

	cfgA := quietConfig(0xA, 0xB)
	cfgA.RxTimeout = time.Millisecond
	cfgB := quietConfig(0xB, 0xA)
	cfgB.RxTimeout = time.Millisecond

	a := NewLink(driverA, cfgA)
	b := NewLink(driverB, cfgB)

	done := make(chan error, 2)
	go func() { done <- a.Run(ctx) }()
	go func() { done <- b.Run(ctx) }()

	req := proto.NewHeartbeatRequest(proto.OriginSecondary)
	if err := a.Send(req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-b.Inbound():
		if got != req {
			t.Errorf("b received %v, want %v", got, req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	res := proto.NewHeartbeatResponse(proto.OriginPrimary)
	if err := b.Send(res); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case got := <-a.Inbound():
		if got != res {
			t.Errorf("a received %v, want %v", got, res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}

	cancel()
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}
}

func TestLink_PollAllStopsAtFullInbox(t *testing.T) {
	driver := NewMockDriver()
	cfg := quietConfig(1, 2)
	cfg.InboxSize = 3
	link := NewLink(driver, cfg)

	m := proto.NewHeartbeatResponse(proto.OriginPrimary)
	driver.InjectRx([]byte{0x00})
	for seq := uint32(0); seq < 5; seq++ {
		driver.InjectRx(frameFrom(2, seq, m))
	}

	if n := link.PollAll(); n != 3 {
		t.Fatalf("PollAll() = %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		<-link.Inbound()
	}
	if n := link.PollAll(); n != 2 {
		t.Fatalf("PollAll() = %d, want 2", n)
	}
	if n := link.PollAll(); n != 0 {
		t.Fatalf("PollAll() on empty radio = %d, want 0", n)
	}

	s := link.Stats()
	if s.QueueDropped != 0 || s.DecodeDropped != 1 || s.Received != 5 {
		t.Errorf("Stats() = %+v", s)
	}
}
