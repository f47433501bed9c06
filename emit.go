package mxprint

import "time"

// Emit helpers: each fires the callback-block slot first, then every
// registered listener in registration order. All run on the dispatch
// goroutine.

func (m *ConnectManager) emitCentralState(enabled bool) {
	if f := m.events.centralState.OnCentralStateUpdate; f != nil {
		f(enabled)
	}
	m.events.centralStateListeners.each(func(l *CentralStateListener) {
		if l.OnCentralStateUpdate != nil {
			l.OnCentralStateUpdate(enabled)
		}
	})
}

func (m *ConnectManager) emitScanStart(st ScanType) {
	switch st {
	case ScanTypeBle:
		if f := m.events.discovery.OnDeviceStartDiscover; f != nil {
			f()
		}
		m.events.discoveryListeners.each(func(l *DeviceDiscoveryListener) {
			if l.OnDeviceStartDiscover != nil {
				l.OnDeviceStartDiscover()
			}
		})
	case ScanTypeConnModel:
		if f := m.events.connModel.OnConnModelStartDiscover; f != nil {
			f()
		}
		m.events.connModelListeners.each(func(l *ConnModelDiscoveryListener) {
			if l.OnConnModelStartDiscover != nil {
				l.OnConnModelStartDiscover()
			}
		})
	case ScanTypeDNW:
		if f := m.events.distNet.OnDistNetDeviceDiscoverStart; f != nil {
			f()
		}
		m.events.distNetListeners.each(func(l *DistNetDeviceDiscoveryListener) {
			if l.OnDistNetDeviceDiscoverStart != nil {
				l.OnDistNetDeviceDiscoverStart()
			}
		})
	}
}

func (m *ConnectManager) emitScanStop(st ScanType) {
	switch st {
	case ScanTypeBle:
		if f := m.events.discovery.OnDeviceStopDiscover; f != nil {
			f()
		}
		m.events.discoveryListeners.each(func(l *DeviceDiscoveryListener) {
			if l.OnDeviceStopDiscover != nil {
				l.OnDeviceStopDiscover()
			}
		})
	case ScanTypeConnModel:
		if f := m.events.connModel.OnConnModelStopDiscover; f != nil {
			f()
		}
		m.events.connModelListeners.each(func(l *ConnModelDiscoveryListener) {
			if l.OnConnModelStopDiscover != nil {
				l.OnConnModelStopDiscover()
			}
		})
	case ScanTypeDNW:
		if f := m.events.distNet.OnDistNetDeviceDiscoverCancel; f != nil {
			f()
		}
		m.events.distNetListeners.each(func(l *DistNetDeviceDiscoveryListener) {
			if l.OnDistNetDeviceDiscoverCancel != nil {
				l.OnDistNetDeviceDiscoverCancel()
			}
		})
	}
}

func (m *ConnectManager) emitDeviceDiscover(d *Device) {
	if f := m.events.discovery.OnDeviceDiscover; f != nil {
		f(d)
	}
	m.events.discoveryListeners.each(func(l *DeviceDiscoveryListener) {
		if l.OnDeviceDiscover != nil {
			l.OnDeviceDiscover(d)
		}
	})
}

func (m *ConnectManager) emitConnModelDiscover(c *ConnModel) {
	if f := m.events.connModel.OnConnModelDiscover; f != nil {
		f(c)
	}
	m.events.connModelListeners.each(func(l *ConnModelDiscoveryListener) {
		if l.OnConnModelDiscover != nil {
			l.OnConnModelDiscover(c)
		}
	})
}

func (m *ConnectManager) emitDistNetDiscover(c *ConnModel) {
	if f := m.events.distNet.OnDistNetDeviceDiscover; f != nil {
		f(c)
	}
	m.events.distNetListeners.each(func(l *DistNetDeviceDiscoveryListener) {
		if l.OnDistNetDeviceDiscover != nil {
			l.OnDistNetDeviceDiscover(c)
		}
	})
}

func (m *ConnectManager) emitConnectStart() {
	if f := m.events.connection.OnDeviceConnectStart; f != nil {
		f()
	}
	m.events.connectionListeners.each(func(l *DeviceConnectionListener) {
		if l.OnDeviceConnectStart != nil {
			l.OnDeviceConnectStart()
		}
	})
}

func (m *ConnectManager) emitConnectSucceed() {
	if f := m.events.connection.OnDeviceConnectSucceed; f != nil {
		f()
	}
	m.events.connectionListeners.each(func(l *DeviceConnectionListener) {
		if l.OnDeviceConnectSucceed != nil {
			l.OnDeviceConnectSucceed()
		}
	})
}

func (m *ConnectManager) emitConnectFail() {
	if f := m.events.connection.OnDeviceConnectFail; f != nil {
		f()
	}
	m.events.connectionListeners.each(func(l *DeviceConnectionListener) {
		if l.OnDeviceConnectFail != nil {
			l.OnDeviceConnectFail()
		}
	})
}

func (m *ConnectManager) emitDisconnect() {
	if f := m.events.connection.OnDeviceDisconnect; f != nil {
		f()
	}
	m.events.connectionListeners.each(func(l *DeviceConnectionListener) {
		if l.OnDeviceDisconnect != nil {
			l.OnDeviceDisconnect()
		}
	})
}

func (m *ConnectManager) emitDataProgressStart(size, progress float64, precision int, start time.Time) {
	if f := m.events.progress.OnDataProgressStart; f != nil {
		f(size, progress, precision, start)
	}
	m.events.progressListeners.each(func(l *DataProgressListener) {
		if l.OnDataProgressStart != nil {
			l.OnDataProgressStart(size, progress, precision, start)
		}
	})
}

func (m *ConnectManager) emitDataProgress(size, progress float64, precision int, start, now time.Time) {
	if f := m.events.progress.OnDataProgress; f != nil {
		f(size, progress, precision, start, now)
	}
	m.events.progressListeners.each(func(l *DataProgressListener) {
		if l.OnDataProgress != nil {
			l.OnDataProgress(size, progress, precision, start, now)
		}
	})
}

func (m *ConnectManager) emitDataProgressFinish(size, progress float64, precision int, start, now time.Time) {
	if f := m.events.progress.OnDataProgressFinish; f != nil {
		f(size, progress, precision, start, now)
	}
	m.events.progressListeners.each(func(l *DataProgressListener) {
		if l.OnDataProgressFinish != nil {
			l.OnDataProgressFinish(size, progress, precision, start, now)
		}
	})
}

func (m *ConnectManager) emitDataProgressError(err error) {
	if f := m.events.progress.OnDataProgressError; f != nil {
		f(err)
	}
	m.events.progressListeners.each(func(l *DataProgressListener) {
		if l.OnDataProgressError != nil {
			l.OnDataProgressError(err)
		}
	})
}

func (m *ConnectManager) emitPrintStart(d *Device, begin, end, current int) {
	if f := m.events.print.OnPrintStart; f != nil {
		f(d, begin, end, current)
	}
	m.events.printListeners.each(func(l *PrintListener) {
		if l.OnPrintStart != nil {
			l.OnPrintStart(d, begin, end, current)
		}
	})
}

func (m *ConnectManager) emitPrintComplete(d *Device, begin, end, current int) {
	if f := m.events.print.OnPrintComplete; f != nil {
		f(d, begin, end, current)
	}
	m.events.printListeners.each(func(l *PrintListener) {
		if l.OnPrintComplete != nil {
			l.OnPrintComplete(d, begin, end, current)
		}
	})
}

func (m *ConnectManager) emitDistNetworkStart() {
	if f := m.events.distNetwork.OnDistributionNetworkStart; f != nil {
		f()
	}
	m.events.distNetworkListeners.each(func(l *DistributionNetworkListener) {
		if l.OnDistributionNetworkStart != nil {
			l.OnDistributionNetworkStart()
		}
	})
}

func (m *ConnectManager) emitDistNetworkSucceed(d *Device) {
	if f := m.events.distNetwork.OnDistributionNetworkSucceed; f != nil {
		f(d)
	}
	m.events.distNetworkListeners.each(func(l *DistributionNetworkListener) {
		if l.OnDistributionNetworkSucceed != nil {
			l.OnDistributionNetworkSucceed(d)
		}
	})
}

func (m *ConnectManager) emitDistNetworkProgress(p float64) {
	if f := m.events.distNetwork.OnDistributionNetworkProgress; f != nil {
		f(p)
	}
	m.events.distNetworkListeners.each(func(l *DistributionNetworkListener) {
		if l.OnDistributionNetworkProgress != nil {
			l.OnDistributionNetworkProgress(p)
		}
	})
}

func (m *ConnectManager) emitDistNetworkFail() {
	if f := m.events.distNetwork.OnDistributionNetworkFail; f != nil {
		f()
	}
	m.events.distNetworkListeners.each(func(l *DistributionNetworkListener) {
		if l.OnDistributionNetworkFail != nil {
			l.OnDistributionNetworkFail()
		}
	})
}

func (m *ConnectManager) emitDistNetworkTimeout() {
	if f := m.events.distNetwork.OnDistributionNetworkTimeOut; f != nil {
		f()
	}
	m.events.distNetworkListeners.each(func(l *DistributionNetworkListener) {
		if l.OnDistributionNetworkTimeOut != nil {
			l.OnDistributionNetworkTimeOut()
		}
	})
}

func (m *ConnectManager) emitCommandWriteSuccess(c *Command, obj any) {
	if f := m.events.cmdWrite.OnWriteCommandSuccess; f != nil {
		f(c, obj)
	}
	m.events.cmdWriteListeners.each(func(l *CommandWriteListener) {
		if l.OnWriteCommandSuccess != nil {
			l.OnWriteCommandSuccess(c, obj)
		}
	})
}

func (m *ConnectManager) emitCommandWriteError(c *Command, msg string) {
	if f := m.events.cmdWrite.OnWriteCommandError; f != nil {
		f(c, msg)
	}
	m.events.cmdWriteListeners.each(func(l *CommandWriteListener) {
		if l.OnWriteCommandError != nil {
			l.OnWriteCommandError(c, msg)
		}
	})
}

func (m *ConnectManager) emitDataWriteSuccess(o *DataObj, res any) {
	if f := m.events.dataWrite.OnDataWriteSuccess; f != nil {
		f(o, res)
	}
	m.events.dataWriteListeners.each(func(l *DataWriteListener) {
		if l.OnDataWriteSuccess != nil {
			l.OnDataWriteSuccess(o, res)
		}
	})
}

func (m *ConnectManager) emitDataWriteError(o *DataObj, msg string) {
	if f := m.events.dataWrite.OnDataWriteError; f != nil {
		f(o, msg)
	}
	m.events.dataWriteListeners.each(func(l *DataWriteListener) {
		if l.OnDataWriteError != nil {
			l.OnDataWriteError(o, msg)
		}
	})
}
