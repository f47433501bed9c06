package mxprint

import (
	"time"
)

// SendCommand enqueues a parameterless command.
func (m *ConnectManager) SendCommand(opcode uint16) {
	m.SendCommandFull(nil, opcode, -1, 0, nil)
}

// SendCommandTag enqueues a parameterless command with a caller tag.
func (m *ConnectManager) SendCommandTag(opcode uint16, tag int) {
	m.SendCommandFull(nil, opcode, -1, tag, nil)
}

// SendCommandParams enqueues a command with parameter bytes.
func (m *ConnectManager) SendCommandParams(params []byte, opcode uint16) {
	m.SendCommandFull(params, opcode, -1, 0, nil)
}

// SendCommandDelayed enqueues a command fired after delay.
func (m *ConnectManager) SendCommandDelayed(params []byte, opcode uint16, delay time.Duration) {
	m.SendCommandFull(params, opcode, delay, 0, nil)
}

// SendCommandFull is the general form: params are framed with the opcode,
// delay -1 dispatches immediately, and cb (optional) observes the terminal
// outcome in addition to the command-write event fan-out.
func (m *ConnectManager) SendCommandFull(params []byte, opcode uint16, delay time.Duration, tag int, cb *CommandCallback) {
	m.post(func() {
		cmd := NewDelayedCommand(opcode, FrameCommand(opcode, params), tag, delay)
		m.enqueueCommand(cmd, cb)
	})
}

// enqueueCommand wires the callback through the command-write event fan-out
// and hands the context to the scheduler. Runs on the dispatch goroutine.
func (m *ConnectManager) enqueueCommand(cmd *Command, cb *CommandCallback) {
	if m.sm.Current() != connStateConnected {
		if cb != nil && cb.OnError != nil {
			cb.OnError(cmd, ErrNotConnected.Error())
		}
		m.emitCommandWriteError(cmd, ErrNotConnected.Error())
		return
	}
	wrapped := &CommandCallback{
		OnSuccess: func(c *Command, obj any) {
			if cb != nil && cb.OnSuccess != nil {
				cb.OnSuccess(c, obj)
			}
			m.emitCommandWriteSuccess(c, obj)
		},
		OnError: func(c *Command, msg string) {
			if cb != nil && cb.OnError != nil {
				cb.OnError(c, msg)
			}
			m.emitCommandWriteError(c, msg)
		},
		OnTimeout: func(c *Command, delayEfficacy bool) {
			if cb != nil && cb.OnTimeout != nil {
				cb.OnTimeout(c, delayEfficacy)
			}
			if !delayEfficacy {
				m.emitCommandWriteError(c, ErrResponseTimeout.Error())
			}
		},
	}
	m.cmdSched.enqueue(&CommandContext{Command: cmd, Callback: wrapped})
}

// SendDataObj enqueues a raw unit on the data channel. Completion is the
// link write itself.
func (m *ConnectManager) SendDataObj(obj *DataObj, cb *DataObjCallback) {
	m.post(func() {
		if m.sm.Current() != connStateConnected {
			if cb != nil && cb.OnError != nil {
				cb.OnError(obj, ErrNotConnected.Error())
			}
			m.emitDataWriteError(obj, ErrNotConnected.Error())
			return
		}
		wrapped := &DataObjCallback{
			OnSuccess: func(o *DataObj, res any) {
				if cb != nil && cb.OnSuccess != nil {
					cb.OnSuccess(o, res)
				}
				m.emitDataWriteSuccess(o, res)
			},
			OnError: func(o *DataObj, msg string) {
				if cb != nil && cb.OnError != nil {
					cb.OnError(o, msg)
				}
				m.emitDataWriteError(o, msg)
			},
		}
		m.dataSched.enqueue(&DataObjContext{DataObj: obj, Callback: wrapped})
	})
}

// --- callback-block slots ---

func (m *ConnectManager) SetCentralStateBlock(b CentralStateListener) {
	m.post(func() { m.events.centralState = b })
}

func (m *ConnectManager) SetDeviceDiscoveryBlock(b DeviceDiscoveryListener) {
	m.post(func() { m.events.discovery = b })
}

func (m *ConnectManager) SetConnModelDiscoveryBlock(b ConnModelDiscoveryListener) {
	m.post(func() { m.events.connModel = b })
}

func (m *ConnectManager) SetConnectionBlock(b DeviceConnectionListener) {
	m.post(func() { m.events.connection = b })
}

func (m *ConnectManager) SetDataProgressBlock(b DataProgressListener) {
	m.post(func() { m.events.progress = b })
}

func (m *ConnectManager) SetDeviceReadBlock(b DeviceReadListener) {
	m.post(func() { m.events.read = b })
}

func (m *ConnectManager) SetPrintBlock(b PrintListener) {
	m.post(func() { m.events.print = b })
}

func (m *ConnectManager) SetDistNetDiscoveryBlock(b DistNetDeviceDiscoveryListener) {
	m.post(func() { m.events.distNet = b })
}

func (m *ConnectManager) SetDistributionNetworkBlock(b DistributionNetworkListener) {
	m.post(func() { m.events.distNetwork = b })
}

func (m *ConnectManager) SetCommandWriteBlock(b CommandWriteListener) {
	m.post(func() { m.events.cmdWrite = b })
}

func (m *ConnectManager) SetDataWriteBlock(b DataWriteListener) {
	m.post(func() { m.events.dataWrite = b })
}

// --- listener registries ---

func (m *ConnectManager) RegisterCentralStateListener(l *CentralStateListener) {
	m.post(func() { m.events.centralStateListeners.register(l) })
}

func (m *ConnectManager) UnregisterCentralStateListener(l *CentralStateListener) {
	m.post(func() { m.events.centralStateListeners.unregister(l) })
}

func (m *ConnectManager) RegisterDeviceDiscoveryListener(l *DeviceDiscoveryListener) {
	m.post(func() { m.events.discoveryListeners.register(l) })
}

func (m *ConnectManager) UnregisterDeviceDiscoveryListener(l *DeviceDiscoveryListener) {
	m.post(func() { m.events.discoveryListeners.unregister(l) })
}

func (m *ConnectManager) RegisterConnModelDiscoveryListener(l *ConnModelDiscoveryListener) {
	m.post(func() { m.events.connModelListeners.register(l) })
}

func (m *ConnectManager) UnregisterConnModelDiscoveryListener(l *ConnModelDiscoveryListener) {
	m.post(func() { m.events.connModelListeners.unregister(l) })
}

func (m *ConnectManager) RegisterConnectionListener(l *DeviceConnectionListener) {
	m.post(func() { m.events.connectionListeners.register(l) })
}

func (m *ConnectManager) UnregisterConnectionListener(l *DeviceConnectionListener) {
	m.post(func() { m.events.connectionListeners.unregister(l) })
}

func (m *ConnectManager) RegisterDataProgressListener(l *DataProgressListener) {
	m.post(func() { m.events.progressListeners.register(l) })
}

func (m *ConnectManager) UnregisterDataProgressListener(l *DataProgressListener) {
	m.post(func() { m.events.progressListeners.unregister(l) })
}

func (m *ConnectManager) RegisterDeviceReadListener(l *DeviceReadListener) {
	m.post(func() { m.events.readListeners.register(l) })
}

func (m *ConnectManager) UnregisterDeviceReadListener(l *DeviceReadListener) {
	m.post(func() { m.events.readListeners.unregister(l) })
}

func (m *ConnectManager) RegisterPrintListener(l *PrintListener) {
	m.post(func() { m.events.printListeners.register(l) })
}

func (m *ConnectManager) UnregisterPrintListener(l *PrintListener) {
	m.post(func() { m.events.printListeners.unregister(l) })
}

func (m *ConnectManager) RegisterDistNetDiscoveryListener(l *DistNetDeviceDiscoveryListener) {
	m.post(func() { m.events.distNetListeners.register(l) })
}

func (m *ConnectManager) UnregisterDistNetDiscoveryListener(l *DistNetDeviceDiscoveryListener) {
	m.post(func() { m.events.distNetListeners.unregister(l) })
}

func (m *ConnectManager) RegisterDistributionNetworkListener(l *DistributionNetworkListener) {
	m.post(func() { m.events.distNetworkListeners.register(l) })
}

func (m *ConnectManager) UnregisterDistributionNetworkListener(l *DistributionNetworkListener) {
	m.post(func() { m.events.distNetworkListeners.unregister(l) })
}

func (m *ConnectManager) RegisterCommandWriteListener(l *CommandWriteListener) {
	m.post(func() { m.events.cmdWriteListeners.register(l) })
}

func (m *ConnectManager) UnregisterCommandWriteListener(l *CommandWriteListener) {
	m.post(func() { m.events.cmdWriteListeners.unregister(l) })
}

func (m *ConnectManager) RegisterDataWriteListener(l *DataWriteListener) {
	m.post(func() { m.events.dataWriteListeners.register(l) })
}

func (m *ConnectManager) UnregisterDataWriteListener(l *DataWriteListener) {
	m.post(func() { m.events.dataWriteListeners.unregister(l) })
}
