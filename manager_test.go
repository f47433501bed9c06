package mxprint

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxsdk/mxprint/link"
	"github.com/mxsdk/mxprint/packet"
	"github.com/mxsdk/mxprint/rowdata"
)

// stubLink is an in-memory printer side of the link.
type stubLink struct {
	mu         sync.Mutex
	written    [][]byte
	onReceive  func([]byte)
	connectErr error
}

func (s *stubLink) Connect(ctx context.Context) error { return s.connectErr }
func (s *stubLink) Disconnect() error { return nil }

func (s *stubLink) SendData(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(data))
	copy(out, data)
	s.written = append(s.written, out)
	return nil
}

func (s *stubLink) SetOnReceive(fn func([]byte)) { s.onReceive = fn }

// reply injects printer bytes into the SDK.
func (s *stubLink) reply(data []byte) { s.onReceive(data) }

func (s *stubLink) writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.written))
	copy(out, s.written)
	return out
}

func (s *stubLink) lastWrite() []byte {
	w := s.writes()
	if len(w) == 0 {
		return nil
	}
	return w[len(w)-1]
}

// newTestManager returns a connected manager speaking to a stub printer.
func newTestManager(t *testing.T, opts ...Option) (*ConnectManager, *stubLink, *Device) {
	t.Helper()
	stub := &stubLink{}
	m := NewConnectManager(append(opts, WithUDPPort(0))...)
	t.Cleanup(m.Close)
	m.newStrategy = func(*Device) (link.Strategy, error) { return stub, nil }

	dev := NewDevice("test-id", "MX-06", "AA:BB:CC:DD:EE:FF", ConnTypeBLE, FirmwareConfigs{
		FirmwareTypeWiFi: ConnTypeBLE,
	}, "test printer")
	dev.ConnType = ConnTypeBLE

	connected := make(chan struct{})
	m.SetConnectionBlock(DeviceConnectionListener{
		OnDeviceConnectSucceed: func() { close(connected) },
	})
	require.NoError(t, m.Connect(dev))
	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("connect did not complete")
	}
	return m, stub, dev
}

// waitIdle waits until the manager's dispatch queue has processed everything
// posted so far.
func waitIdle(m *ConnectManager) { m.syncRun(func() {}) }

// TestManager_batteryRoundTrip is the tiny command round-trip: read battery,
// stub replies 85%, the read event fires with the device updated.
func TestManager_batteryRoundTrip(t *testing.T) {
	m, stub, _ := newTestManager(t)

	got := make(chan int, 1)
	m.SetDeviceReadBlock(DeviceReadListener{
		OnReadBattery: func(d *Device, level int) {
			assert.Equal(t, level, d.BatteryLevel)
			got <- level
		},
	})
	m.SendCommand(OpReadBattery)
	waitIdle(m)

	require.Equal(t, FrameCommand(OpReadBattery, nil), stub.lastWrite())
	stub.reply(FrameCommand(OpReadBattery, []byte{85}))

	select {
	case level := <-got:
		assert.Equal(t, 85, level)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("battery read event did not fire within 500ms")
	}
}

// TestManager_chunkedPicture drives the full pull protocol: 3 rows of 600
// bytes, STX packets; expect 4 valid packets seq 0..3, a byte-identical NAK
// retransmit, and progress 1.0 on EOT.
func TestManager_chunkedPicture(t *testing.T) {
	m, stub, _ := newTestManager(t)

	dir := t.TempDir()
	rows := &rowdata.MultiRowData{}
	for i := range 3 {
		path := dir + "/row" + string(rune('0'+i)) + ".data"
		content := bytes.Repeat([]byte{byte(i + 1)}, 600)
		require.NoError(t, writeFile(path, content))
		rows.Rows = append(rows.Rows, &rowdata.RowData{DataPath: path, DataLength: 600})
	}

	var progress []float64
	finished := make(chan float64, 1)
	m.SetDataProgressBlock(DataProgressListener{
		OnDataProgress: func(_, p float64, _ int, _, _ time.Time) { progress = append(progress, p) },
		OnDataProgressFinish: func(_, p float64, _ int, _, _ time.Time) {
			finished <- p
		},
	})

	require.NoError(t, m.SetWithSendMultiRowDataPacket(rows, 0, DataSendOnceContinuous))
	waitIdle(m)
	kick := stub.lastWrite()
	f, err := ParseFrame(kick)
	require.NoError(t, err)
	assert.Equal(t, uint16(OpTransmitPicture), f.Opcode)

	// printer pulls: N with STX size code, four times
	var packets [][]byte
	for i := range 4 {
		stub.reply([]byte{packet.ReqData, packet.STX})
		waitIdle(m)
		pkt := stub.lastWrite()
		require.True(t, packet.Verify(pkt), "packet %d does not verify", i)
		assert.Equal(t, byte(i), pkt[2], "seq of packet %d", i)
		packets = append(packets, pkt)
	}

	// NAK after the last packet (seq 3): byte-identical re-emission of it
	before := len(stub.writes())
	stub.reply([]byte{packet.NAK})
	waitIdle(m)
	require.Len(t, stub.writes(), before+1)
	assert.Equal(t, packets[3], stub.lastWrite(), "NAK re-emission differs")

	stub.reply([]byte{packet.EOT})
	waitIdle(m)

	select {
	case p := <-finished:
		assert.Equal(t, 1.0, p)
	case <-time.After(time.Second):
		t.Fatal("transfer did not finish")
	}
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress not monotone")
	}
	assert.False(t, m.IsSyncingData())
}

// TestManager_queueBusyRejection: a transfer is rejected while commands are
// pending, with the documented error code.
func TestManager_queueBusyRejection(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.SendCommand(OpReadBattery) // never acked: queue not empty
	waitIdle(m)

	rows := &rowdata.MultiRowData{Rows: []*rowdata.RowData{{DataLength: 10}}}
	err := m.SetWithSendMultiRowDataPacket(rows, 0, DataSendOnceContinuous)
	var ce *CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CommandQueueIsNoEmptyError, ce.Code)
}

// TestManager_syncingRejection: a second payload is rejected mid-transfer.
func TestManager_syncingRejection(t *testing.T) {
	m, stub, _ := newTestManager(t)

	dir := t.TempDir()
	path := dir + "/row.data"
	require.NoError(t, writeFile(path, bytes.Repeat([]byte{1}, 100)))
	rows := &rowdata.MultiRowData{Rows: []*rowdata.RowData{{DataPath: path, DataLength: 100}}}

	require.NoError(t, m.SetWithSendMultiRowDataPacket(rows, 0, DataSendOnceContinuous))
	stub.reply([]byte{packet.ReqData, packet.SOH})
	waitIdle(m)

	err := m.SetWithSendMultiRowDataPacket(rows, 0, DataSendOnceContinuous)
	var ce *CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, SyncingDataError, ce.Code)
}

// TestManager_cancelTransfer surfaces the cancelled error and returns the
// engine to idle.
func TestManager_cancelTransfer(t *testing.T) {
	m, stub, _ := newTestManager(t)

	dir := t.TempDir()
	path := dir + "/row.data"
	require.NoError(t, writeFile(path, bytes.Repeat([]byte{1}, 600)))
	rows := &rowdata.MultiRowData{Rows: []*rowdata.RowData{{DataPath: path, DataLength: 600}}}

	errs := make(chan error, 1)
	m.SetDataProgressBlock(DataProgressListener{
		OnDataProgressError: func(err error) { errs <- err },
	})
	require.NoError(t, m.SetWithSendMultiRowDataPacket(rows, 0, DataSendOnceContinuous))
	stub.reply([]byte{packet.ReqData, packet.STX})
	waitIdle(m)

	m.CancelSendMultiRowDataPacket()
	waitIdle(m)
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("no cancellation event")
	}
	assert.False(t, m.IsSyncingData())
}

// TestManager_idempotentDisconnect: DisConnect twice from any state leaves
// every state machine idle and the queues drained.
func TestManager_idempotentDisconnect(t *testing.T) {
	m, _, _ := newTestManager(t)

	cmdErrs := make(chan string, 1)
	m.SendCommandFull(nil, OpReadBattery, -1, 0, &CommandCallback{
		OnError: func(_ *Command, msg string) { cmdErrs <- msg },
	})
	waitIdle(m)

	m.DisConnect()
	m.DisConnect()

	assert.Equal(t, ScanTypeIdle, m.ScanType())
	assert.Equal(t, ConnectTypeIdle, m.ConnectType())
	assert.Equal(t, UdpMonitorTypeIdle, m.UdpMonitorType())
	assert.Nil(t, m.Device())

	select {
	case msg := <-cmdErrs:
		assert.Equal(t, ErrDisconnected.Error(), msg)
	case <-time.After(time.Second):
		t.Fatal("pending command was not drained with an error")
	}
}

// TestManager_listenerOrder: the callback block fires before listeners, and
// listeners fire in registration order.
func TestManager_listenerOrder(t *testing.T) {
	m, stub, _ := newTestManager(t)

	var order []string
	var mu sync.Mutex
	record := func(tag string) func(*Device, int) {
		return func(*Device, int) {
			mu.Lock()
			order = append(order, tag)
			mu.Unlock()
		}
	}
	m.SetDeviceReadBlock(DeviceReadListener{OnReadBattery: record("block")})
	first := &DeviceReadListener{OnReadBattery: record("first")}
	second := &DeviceReadListener{OnReadBattery: record("second")}
	m.RegisterDeviceReadListener(first)
	m.RegisterDeviceReadListener(second)
	waitIdle(m)

	m.SendCommand(OpReadBattery)
	waitIdle(m)
	stub.reply(FrameCommand(OpReadBattery, []byte{50}))
	waitIdle(m)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"block", "first", "second"}, order)
}

// TestManager_provisioning is the provisioning success path: credentials
// written over BLE, then a matching UDP broadcast resolves the flow with the
// printer's network endpoint.
func TestManager_provisioning(t *testing.T) {
	m, stub, dev := newTestManager(t)

	model := &ConnModel{
		MAC:             dev.MAC,
		LocalName:       dev.LocalName,
		ConnTypes:       ConnTypeBLE,
		FirmwareConfigs: FirmwareConfigs{FirmwareTypeWiFi: ConnTypeBLE},
	}

	succeeded := make(chan *Device, 1)
	timedOut := make(chan struct{}, 1)
	m.SetDistributionNetworkBlock(DistributionNetworkListener{
		OnDistributionNetworkSucceed: func(d *Device) { succeeded <- d },
		OnDistributionNetworkTimeOut: func() { timedOut <- struct{}{} },
	})

	require.NoError(t, m.DistributionNetwork(model, "home", "pw", 15*time.Second))
	waitIdle(m)
	assert.Equal(t, UdpMonitorTypeDNW, m.UdpMonitorType())

	// the credentials command went to the wire
	f, err := ParseFrame(stub.lastWrite())
	require.NoError(t, err)
	assert.Equal(t, uint16(OpDistributionNetwork), f.Opcode)

	// an unrelated broadcast must not resolve the flow
	m.post(func() {
		m.handleUdpBroadcast(link.WifiRemoteModel{
			MAC: "11:22:33:44:55:66", SSID: "home", IP: "10.0.0.9", Port: 9100, State: 1,
		})
	})
	// a matching frame with state=1 resolves it
	m.post(func() {
		m.handleUdpBroadcast(link.WifiRemoteModel{
			MAC: dev.MAC, SSID: "home", IP: "10.0.0.17", Port: 9100, State: 1,
		})
	})

	select {
	case d := <-succeeded:
		assert.Equal(t, "10.0.0.17", d.IP)
		assert.Equal(t, uint16(9100), d.Port)
		assert.True(t, d.IsWifiReady())
	case <-time.After(time.Second):
		t.Fatal("provisioning did not succeed")
	}
	select {
	case <-timedOut:
		t.Fatal("timeout fired after success")
	default:
	}
	assert.Equal(t, UdpMonitorTypeIdle, m.UdpMonitorType())
}

// TestManager_provisioningTimeout: no matching broadcast before the deadline
// surfaces exactly the timeout event.
func TestManager_provisioningTimeout(t *testing.T) {
	m, _, dev := newTestManager(t)

	model := &ConnModel{
		MAC:             dev.MAC,
		ConnTypes:       ConnTypeBLE,
		FirmwareConfigs: FirmwareConfigs{FirmwareTypeWiFi: ConnTypeBLE},
	}
	timedOut := make(chan struct{}, 1)
	m.SetDistributionNetworkBlock(DistributionNetworkListener{
		OnDistributionNetworkTimeOut: func() { timedOut <- struct{}{} },
	})
	require.NoError(t, m.DistributionNetwork(model, "home", "pw", 100*time.Millisecond))

	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("provisioning timeout did not fire")
	}
	assert.Equal(t, UdpMonitorTypeIdle, m.UdpMonitorType())
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
