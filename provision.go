package mxprint

import (
	"log/slog"
	"time"

	"github.com/mxsdk/mxprint/link"
)

// OpDistributionNetwork carries Wi-Fi credentials to the printer over BLE.
const OpDistributionNetwork = 0x0205

// wifiReadyState is the state value a printer broadcasts once it has joined
// the network it was provisioned onto.
const wifiReadyState = 1

// provisioningState tracks one DistributionNetwork invocation: the target
// MAC, the deadline timer, and whether a terminal event already fired.
type provisioningState struct {
	targetMAC string
	timer     *time.Timer
	active    bool
}

// DistributionNetwork writes Wi-Fi credentials to a BLE-connected,
// provisioning-capable printer and waits for the printer to surface on UDP.
// Exactly one of succeed / fail / timeout fires.
//
// The flow: write the credentials opcode, switch the UDP monitor to DNW, and
// watch for a broadcast whose MAC matches the target with state ready. The
// fresh Device handed to the succeed event carries the observed ip:port.
func (m *ConnectManager) DistributionNetwork(model *ConnModel, ssid, password string, timeout time.Duration) error {
	errc := make(chan error, 1)
	m.post(func() {
		if m.sm.Current() != connStateConnected || m.connectType == ConnectTypeNetwork {
			errc <- ErrNotConnected
			return
		}
		if !model.EligibleForProvisioning() {
			errc <- &CodeError{Code: SyncingDataError, Msg: "device does not support provisioning over ble"}
			return
		}
		if m.prov.active {
			errc <- ErrBusy
			return
		}
		if err := m.udp.Start(); err != nil {
			errc <- err
			return
		}
		m.udpMonitorType = UdpMonitorTypeDNW
		m.prov.active = true
		m.prov.targetMAC = model.MAC
		m.emitDistNetworkStart()

		m.SendCommandFull(credentialParams(ssid, password), OpDistributionNetwork, -1, 0, &CommandCallback{
			OnError: func(_ *Command, msg string) {
				m.post(func() {
					if !m.prov.active {
						return
					}
					slog.Error("credentials write failed", "error", msg)
					m.prov.finish(m)
					m.emitDistNetworkFail()
				})
			},
			// A successful write only starts the wait: the printer still has
			// to join the network and announce itself.
			OnSuccess: func(*Command, any) {
				m.post(func() { m.emitDistNetworkProgress(0.5) })
			},
		})

		m.prov.timer = time.AfterFunc(timeout, func() {
			m.post(func() {
				if !m.prov.active {
					return
				}
				m.prov.finish(m)
				m.emitDistNetworkTimeout()
			})
		})
		errc <- nil
	})
	return <-errc
}

// credentialParams packs ssidLen(1) | ssid | pwLen(1) | password.
func credentialParams(ssid, password string) []byte {
	params := make([]byte, 0, 2+len(ssid)+len(password))
	params = append(params, byte(len(ssid)))
	params = append(params, ssid...)
	params = append(params, byte(len(password)))
	params = append(params, password...)
	return params
}

// handleBroadcast checks a UDP frame against the provisioning target. Runs
// on the dispatch goroutine while the monitor is in DNW mode.
func (p *provisioningState) handleBroadcast(m *ConnectManager, w link.WifiRemoteModel) {
	if !p.active || w.MAC != p.targetMAC || w.State != wifiReadyState {
		return
	}
	model := m.connModels[w.MAC]
	if model == nil {
		model = &ConnModel{MAC: w.MAC}
	}
	model.MergeWifi(w)
	d := model.Device(ConnTypeWiFi)
	p.finish(m)
	slog.Info("provisioning succeeded", "mac", w.MAC, "ip", w.IP, "port", w.Port)
	m.emitDistNetworkSucceed(d)
}

// finish clears the provisioning state and returns the UDP monitor to idle.
func (p *provisioningState) finish(m *ConnectManager) {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.active = false
	p.targetMAC = ""
	m.udpMonitorType = UdpMonitorTypeIdle
}

// cancel aborts a pending provisioning flow and fires its fail event; used
// by disconnect.
func (p *provisioningState) cancel(m *ConnectManager) {
	if p.active {
		p.finish(m)
		m.emitDistNetworkFail()
	}
}
