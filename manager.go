package mxprint

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"tinygo.org/x/bluetooth"

	"github.com/mxsdk/mxprint/link"
)

// ScanType is the active scan mode.
type ScanType int

const (
	ScanTypeIdle ScanType = iota
	ScanTypeBle
	ScanTypeDNW
	ScanTypeConnModel
)

// ConnectType is the active connection mode.
type ConnectType int

const (
	ConnectTypeIdle ConnectType = iota
	ConnectTypeBle
	ConnectTypeNetwork
	ConnectTypeDNW
)

// UdpMonitorType is the UDP listener mode.
type UdpMonitorType int

const (
	UdpMonitorTypeIdle UdpMonitorType = iota
	UdpMonitorTypeWifi
	UdpMonitorTypeDNW
)

// DataSendType selects row pacing for multi-row transfers.
type DataSendType int

const (
	// DataSendOnceContinuous streams all rows back to back.
	DataSendOnceContinuous DataSendType = iota
	// DataSendCompleteOnceWaitNext pauses until the printer reports
	// print-complete wherever a packet ends exactly at the end of a row and
	// rows remain. Rows are streamed as one byte sequence, so a packet that
	// spans two rows does not pause at the row edge inside it.
	DataSendCompleteOnceWaitNext
)

// Connection lifecycle states and events for the manager FSM.
const (
	connStateIdle       = "idle"
	connStateConnecting = "connecting"
	connStateConnected  = "connected"

	connEvtConnect     = "connect"
	connEvtEstablished = "established"
	connEvtFail        = "fail"
	connEvtDisconnect  = "disconnect"
)

// ConnectManager orchestrates scanning, connecting, the command scheduler,
// the packet engines and event fan-out. All mutable state is owned by one
// dispatch goroutine; public operations enqueue work and return.
//
// Construct with NewConnectManager; a handle is independent of any other, so
// tests build their own.
type ConnectManager struct {
	dispatch chan func()
	closed   chan struct{}
	once     sync.Once

	adapter   *bluetooth.Adapter
	ssidSense link.SSIDProvider

	scanType       ScanType
	connectType    ConnectType
	udpMonitorType UdpMonitorType
	sm             *fsm.FSM

	device   *Device
	strategy link.Strategy

	udp *link.UDPServer

	cmdSched  *cmdScheduler
	dataSched *dataScheduler

	transfer transferState

	// connModels is the discovered-device registry, keyed by MAC. BLE scan
	// results and UDP broadcasts merge here.
	connModels map[string]*ConnModel
	// bleAddrs maps peripheral identifiers from the last scans to connectable
	// addresses.
	bleAddrs map[string]bluetooth.Address

	rxBuf []byte

	// newStrategy builds the link for a device; swapped by tests.
	newStrategy func(*Device) (link.Strategy, error)

	scanCancel context.CancelFunc

	prov provisioningState

	events managerEvents
}

// managerEvents carries the callback-block slots and listener registries.
type managerEvents struct {
	centralState CentralStateListener
	discovery    DeviceDiscoveryListener
	connModel    ConnModelDiscoveryListener
	connection   DeviceConnectionListener
	progress     DataProgressListener
	read         DeviceReadListener
	print        PrintListener
	distNet      DistNetDeviceDiscoveryListener
	distNetwork  DistributionNetworkListener
	cmdWrite     CommandWriteListener
	dataWrite    DataWriteListener

	centralStateListeners registry[CentralStateListener]
	discoveryListeners    registry[DeviceDiscoveryListener]
	connModelListeners    registry[ConnModelDiscoveryListener]
	connectionListeners   registry[DeviceConnectionListener]
	progressListeners     registry[DataProgressListener]
	readListeners         registry[DeviceReadListener]
	printListeners        registry[PrintListener]
	distNetListeners      registry[DistNetDeviceDiscoveryListener]
	distNetworkListeners  registry[DistributionNetworkListener]
	cmdWriteListeners     registry[CommandWriteListener]
	dataWriteListeners    registry[DataWriteListener]
}

// Option configures a ConnectManager.
type Option func(*ConnectManager)

// WithAdapter sets the BLE adapter. Defaults to bluetooth.DefaultAdapter.
func WithAdapter(a *bluetooth.Adapter) Option {
	return func(m *ConnectManager) { m.adapter = a }
}

// WithSSIDProvider sets the SSID sensor used by the AP strategy.
func WithSSIDProvider(p link.SSIDProvider) Option {
	return func(m *ConnectManager) { m.ssidSense = p }
}

// WithResponseTimeout overrides the command response timeout.
func WithResponseTimeout(d time.Duration) Option {
	return func(m *ConnectManager) { m.cmdSched.responseTimeout = d }
}

// WithUDPPort overrides the discovery port.
func WithUDPPort(port int) Option {
	return func(m *ConnectManager) { m.udp.Port = port }
}

// NewConnectManager builds a manager and starts its dispatch goroutine.
func NewConnectManager(opts ...Option) *ConnectManager {
	m := &ConnectManager{
		dispatch:   make(chan func(), 64),
		closed:     make(chan struct{}),
		adapter:    bluetooth.DefaultAdapter,
		connModels: make(map[string]*ConnModel),
		bleAddrs:   make(map[string]bluetooth.Address),
		udp:        link.NewUDPServer(),
	}
	m.cmdSched = newCmdScheduler(m.sendToLink, m.post)
	m.dataSched = newDataScheduler(m.sendToLink, m.post)
	m.newStrategy = m.defaultStrategy
	m.sm = fsm.NewFSM(connStateIdle,
		fsm.Events{
			{Name: connEvtConnect, Src: []string{connStateIdle}, Dst: connStateConnecting},
			{Name: connEvtEstablished, Src: []string{connStateConnecting}, Dst: connStateConnected},
			{Name: connEvtFail, Src: []string{connStateConnecting}, Dst: connStateIdle},
			{Name: connEvtDisconnect, Src: []string{connStateConnecting, connStateConnected}, Dst: connStateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				slog.Debug("connection state", "from", e.Src, "to", e.Dst)
			},
		},
	)
	m.udp.OnReceive = func(w link.WifiRemoteModel) {
		m.post(func() { m.handleUdpBroadcast(w) })
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.run()
	return m
}

func (m *ConnectManager) run() {
	for {
		select {
		case <-m.closed:
			return
		case fn := <-m.dispatch:
			fn()
		}
	}
}

// post enqueues fn on the dispatch goroutine.
func (m *ConnectManager) post(fn func()) {
	select {
	case <-m.closed:
	case m.dispatch <- fn:
	}
}

// syncRun runs fn on the dispatch goroutine and waits for it. Used by accessors.
func (m *ConnectManager) syncRun(fn func()) {
	done := make(chan struct{})
	m.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-m.closed:
	}
}

// Close tears the manager down. The manager is unusable afterwards.
func (m *ConnectManager) Close() {
	m.syncRun(func() {
		m.disconnectLocked()
		m.udp.Stop()
	})
	m.once.Do(func() { close(m.closed) })
}

// State accessors. Each hops to the dispatch goroutine, so values are
// consistent snapshots.

func (m *ConnectManager) ScanType() ScanType {
	var v ScanType
	m.syncRun(func() { v = m.scanType })
	return v
}

func (m *ConnectManager) ConnectType() ConnectType {
	var v ConnectType
	m.syncRun(func() { v = m.connectType })
	return v
}

func (m *ConnectManager) UdpMonitorType() UdpMonitorType {
	var v UdpMonitorType
	m.syncRun(func() { v = m.udpMonitorType })
	return v
}

// Device returns the active device, nil when disconnected.
func (m *ConnectManager) Device() *Device {
	var d *Device
	m.syncRun(func() { d = m.device })
	return d
}

// IsConnected reports whether the given device is the connected one.
func (m *ConnectManager) IsConnected(d *Device) bool {
	var ok bool
	m.syncRun(func() {
		ok = m.sm.Current() == connStateConnected && m.device != nil &&
			d != nil && m.device.MAC == d.MAC
	})
	return ok
}

// IsSyncingData reports whether a chunked transfer is in flight.
func (m *ConnectManager) IsSyncingData() bool {
	var v bool
	m.syncRun(func() { v = m.transfer.syncing })
	return v
}

func (m *ConnectManager) sendToLink(data []byte) error {
	if m.strategy == nil {
		return ErrNotConnected
	}
	return m.strategy.SendData(data)
}

// --- scanning ---

// DiscoverBleDevice scans for printers over BLE for the given timeout,
// emitting one discovery per unique peripheral.
func (m *ConnectManager) DiscoverBleDevice(timeout time.Duration) error {
	return m.startScan(ScanTypeBle, timeout)
}

// DiscoverConnModel scans and reports ConnModels classified from the
// advertisement instead of bare devices.
func (m *ConnectManager) DiscoverConnModel(timeout time.Duration) error {
	return m.startScan(ScanTypeConnModel, timeout)
}

// DiscoverDistNetDevice scans for provisioning-capable peripherals.
func (m *ConnectManager) DiscoverDistNetDevice(timeout time.Duration) error {
	return m.startScan(ScanTypeDNW, timeout)
}

func (m *ConnectManager) startScan(st ScanType, timeout time.Duration) error {
	errc := make(chan error, 1)
	m.post(func() {
		if m.scanType != ScanTypeIdle {
			errc <- ErrBusy
			return
		}
		m.scanType = st
		m.emitScanStart(st)
		ctx, cancel := context.WithCancel(context.Background())
		m.scanCancel = cancel
		go func() {
			err := link.Scan(ctx, m.adapter, timeout, func(adv link.Advertisement) {
				m.post(func() { m.handleAdvertisement(st, adv) })
			})
			m.post(func() {
				if m.scanType != st {
					return
				}
				if err != nil {
					slog.Error("scan failed", "error", err)
				}
				m.scanType = ScanTypeIdle
				m.scanCancel = nil
				m.emitScanStop(st)
			})
		}()
		errc <- nil
	})
	return <-errc
}

// CancelDiscover stops the active scan of any kind.
func (m *ConnectManager) CancelDiscover() {
	m.post(func() { m.cancelScanLocked() })
}

func (m *ConnectManager) cancelScanLocked() {
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
}

func (m *ConnectManager) handleAdvertisement(st ScanType, adv link.Advertisement) {
	m.bleAddrs[adv.Identifier] = adv.Address
	model := NewConnModelFromAdvertisement(adv)
	if existing, ok := m.connModels[model.MAC]; ok && model.MAC != "" {
		existing.RSSI = model.RSSI
		existing.ConnTypes |= model.ConnTypes
		model = existing
	} else if model.MAC != "" {
		m.connModels[model.MAC] = model
	}
	switch st {
	case ScanTypeBle:
		m.emitDeviceDiscover(model.Device(ConnTypeBLE))
	case ScanTypeConnModel:
		m.emitConnModelDiscover(model)
	case ScanTypeDNW:
		if !model.EligibleForProvisioning() {
			return
		}
		m.emitDistNetDiscover(model)
	}
}

// DiscoverWifiDevice turns the UDP monitor on for the given period and
// reports printers heard broadcasting.
func (m *ConnectManager) DiscoverWifiDevice(timeout time.Duration) error {
	errc := make(chan error, 1)
	m.post(func() {
		if m.udpMonitorType != UdpMonitorTypeIdle {
			errc <- ErrBusy
			return
		}
		if err := m.udp.Start(); err != nil {
			errc <- err
			return
		}
		m.udpMonitorType = UdpMonitorTypeWifi
		m.emitScanStart(ScanTypeBle) // device discovery events carry UDP finds too
		time.AfterFunc(timeout, func() {
			m.post(func() {
				if m.udpMonitorType != UdpMonitorTypeWifi {
					return
				}
				m.udpMonitorType = UdpMonitorTypeIdle
				m.emitScanStop(ScanTypeBle)
			})
		})
		errc <- nil
	})
	return <-errc
}

func (m *ConnectManager) handleUdpBroadcast(w link.WifiRemoteModel) {
	model, ok := m.connModels[w.MAC]
	if !ok {
		model = &ConnModel{MAC: w.MAC, Aliases: w.SSID}
		m.connModels[w.MAC] = model
	}
	model.MergeWifi(w)

	switch m.udpMonitorType {
	case UdpMonitorTypeWifi:
		m.emitDeviceDiscover(model.Device(ConnTypeWiFi))
	case UdpMonitorTypeDNW:
		m.prov.handleBroadcast(m, w)
	}
}

// --- connecting ---

// Connect starts a connection to the device over its ConnType. A running
// scan is cancelled first; a second connect while one is active is rejected.
func (m *ConnectManager) Connect(device *Device) error {
	errc := make(chan error, 1)
	m.post(func() { errc <- m.connectLocked(device, false) })
	return <-errc
}

// ConnectForProvisioning connects over BLE in provisioning (DNW) mode.
func (m *ConnectManager) ConnectForProvisioning(device *Device) error {
	errc := make(chan error, 1)
	m.post(func() { errc <- m.connectLocked(device, true) })
	return <-errc
}

// defaultStrategy picks the link implementation for the device's ConnType.
func (m *ConnectManager) defaultStrategy(device *Device) (link.Strategy, error) {
	switch {
	case device.IsBleConnType():
		addr, ok := m.bleAddrs[device.UUIDIdentifier]
		if !ok {
			return nil, fmt.Errorf("device %s was not seen in a scan", device.UUIDIdentifier)
		}
		return link.NewBLE(m.adapter, addr), nil
	case device.IsApOrWifiConnType():
		if !device.IsWifiReady() {
			return nil, fmt.Errorf("device %s has no network endpoint", device.MAC)
		}
		if device.IsApConnType() {
			return link.NewAP(device.SSID, device.IP, device.Port, m.ssidSense), nil
		}
		return link.NewTCP(device.IP, device.Port), nil
	}
	return nil, fmt.Errorf("device has no usable conn type (%v)", device.ConnTypes)
}

func (m *ConnectManager) connectLocked(device *Device, dnw bool) error {
	if m.sm.Current() != connStateIdle {
		return ErrBusy
	}
	m.cancelScanLocked()

	strat, err := m.newStrategy(device)
	if err != nil {
		return err
	}
	switch {
	case device.IsBleConnType() && dnw:
		m.connectType = ConnectTypeDNW
	case device.IsBleConnType():
		m.connectType = ConnectTypeBle
	default:
		m.connectType = ConnectTypeNetwork
	}

	strat.SetOnReceive(func(data []byte) {
		m.post(func() { m.handleInbound(data) })
	})
	if n, ok := strat.(link.Notifier); ok {
		n.SetOnDisconnect(func() {
			m.post(func() { m.handleDrop() })
		})
		n.SetOnFailToReconnect(func() {
			m.post(func() { m.disconnectLocked() })
		})
	}

	if err := m.sm.Event(context.Background(), connEvtConnect); err != nil {
		m.connectType = ConnectTypeIdle
		return err
	}
	m.device = device
	m.strategy = strat
	m.emitConnectStart()

	go func() {
		err := strat.Connect(context.Background())
		m.post(func() { m.finishConnect(err) })
	}()
	return nil
}

func (m *ConnectManager) finishConnect(err error) {
	if m.sm.Current() != connStateConnecting {
		return
	}
	if err != nil {
		slog.Error("connect failed", "error", err)
		m.sm.Event(context.Background(), connEvtFail)
		m.device = nil
		m.strategy = nil
		m.connectType = ConnectTypeIdle
		m.emitConnectFail()
		return
	}
	m.sm.Event(context.Background(), connEvtEstablished)
	m.device.Connected = true
	m.emitConnectSucceed()
}

// handleDrop handles an unexpected link drop. The strategy may still be
// reconnecting internally; transfers do not survive either way.
func (m *ConnectManager) handleDrop() {
	m.abortTransfers(ErrDisconnected)
	m.cmdSched.cancelAll(ErrDisconnected.Error())
	m.dataSched.cancelAll(ErrDisconnected.Error())
}

// DisConnect tears everything down: scans, packet engines, queues, link.
// Safe to call from any state, any number of times.
func (m *ConnectManager) DisConnect() {
	m.syncRun(func() { m.disconnectLocked() })
}

func (m *ConnectManager) disconnectLocked() {
	m.cancelScanLocked()
	m.scanType = ScanTypeIdle
	m.prov.cancel(m)
	m.udpMonitorType = UdpMonitorTypeIdle

	m.abortTransfers(ErrCancelled)
	m.cmdSched.cancelAll(ErrDisconnected.Error())
	m.dataSched.cancelAll(ErrDisconnected.Error())

	if m.strategy != nil {
		if err := m.strategy.Disconnect(); err != nil {
			slog.Warn("link teardown failed", "error", err)
		}
		m.strategy = nil
	}
	if m.device != nil {
		m.device.Connected = false
		m.device = nil
	}
	if m.sm.Current() != connStateIdle {
		m.sm.Event(context.Background(), connEvtDisconnect)
		m.emitDisconnect()
	}
	m.connectType = ConnectTypeIdle
	m.rxBuf = nil
}

// --- inbound routing ---

// handleInbound demultiplexes link bytes: transfer control opcodes go to the
// active packet engine, framed replies go to the callback registry and
// read-back routing. AA55-framed data is never treated as a control opcode,
// whatever bytes its CRC happens to contain.
func (m *ConnectManager) handleInbound(data []byte) {
	framed := bytes.HasPrefix(data, framePrefix) || len(m.rxBuf) > 0
	if !framed && m.transfer.syncing && m.handleTransferResponse(data) {
		return
	}
	m.rxBuf = append(m.rxBuf, data...)
	for {
		n := FrameLen(m.rxBuf)
		if n == 0 {
			// discard garbage that cannot begin a frame; a partial header
			// stays buffered
			if len(m.rxBuf) >= 2 && !bytes.HasPrefix(m.rxBuf, framePrefix) {
				m.rxBuf = nil
			}
			return
		}
		if len(m.rxBuf) < n {
			return
		}
		f, err := ParseFrame(m.rxBuf[:n])
		m.rxBuf = m.rxBuf[n:]
		if err != nil {
			slog.Warn("dropping bad frame", "error", err)
			continue
		}
		m.handleFrame(f)
	}
}

func (m *ConnectManager) handleFrame(f Frame) {
	switch f.Opcode {
	case OpPrintStart, OpPrintCompleted:
		m.handlePrintNotification(f)
		return
	}
	if !m.cmdSched.handleAck(f) {
		slog.Debug("unsolicited frame", "opcode", fmt.Sprintf("0x%04X", f.Opcode))
	}
	m.applyReadback(f)
}

// --- heartbeat ---

// StartMonitorHeartData sets the TCP heartbeat payload to a connect-state
// ping. No-op on BLE.
func (m *ConnectManager) StartMonitorHeartData(start int) {
	m.post(func() {
		type heartSetter interface{ SetHeartData([]byte) }
		if hs, ok := m.strategy.(heartSetter); ok {
			hs.SetHeartData(FrameCommand(OpConnectState, []byte{byte(start)}))
		}
	})
}

func (m *ConnectManager) StopMonitorHeartData() {
	m.post(func() {
		type heartSetter interface{ SetHeartData([]byte) }
		if hs, ok := m.strategy.(heartSetter); ok {
			hs.SetHeartData(nil)
		}
	})
}

