package mxprint

import (
	"encoding/binary"
	"strings"
)

// applyReadback folds a reply's values into the active device and fans out
// the matching read event. Unknown opcodes and short parameter buffers are
// ignored: firmware revisions disagree about trailing fields.
func (m *ConnectManager) applyReadback(f Frame) {
	d := m.device
	if d == nil {
		return
	}
	p := f.Params
	switch f.Opcode {
	case OpReadBattery:
		if len(p) < 1 {
			return
		}
		d.BatteryLevel = int(p[0])
		m.emitReadBattery(d, d.BatteryLevel)

	case OpReadChargingState:
		if len(p) < 1 {
			return
		}
		d.Charging = p[0] != 0
		m.emitReadChargingState(d, d.Charging)

	case OpReadPrinterParameters:
		if len(p) < 7 {
			return
		}
		d.PrinterHead = int(p[0])
		d.LPix = int(binary.BigEndian.Uint16(p[1:3]))
		d.PPix = int(binary.BigEndian.Uint16(p[3:5]))
		d.Distance = int(binary.BigEndian.Uint16(p[5:7]))
		m.emitReadParameter(d, d.PrinterHead, d.LPix, d.PPix, d.Distance)

	case OpReadCyclesRepeat:
		if len(p) < 4 {
			return
		}
		d.Cycles = int(binary.BigEndian.Uint16(p[0:2]))
		d.RepeatTime = int(binary.BigEndian.Uint16(p[2:4]))
		m.emitReadCyclesRepeat(d, d.Cycles, d.RepeatTime)

	case OpReadDirection:
		if len(p) < 2 {
			return
		}
		d.Direction = int(p[0])
		d.PrintHeadDirection = int(p[1])
		m.emitReadDirection(d, d.Direction, d.PrintHeadDirection)

	case OpReadDeviceInfo:
		// id \n name \n mcuVersion \n date
		parts := strings.Split(string(p), "\n")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		d.McuModel = parts[1]
		d.McuVersion = parts[2]
		d.McuDate = parts[3]
		m.emitReadDeviceInfo(d, parts[0], parts[1], parts[2], parts[3])

	case OpReadHeadTemperature:
		if len(p) < 5 {
			return
		}
		idx := int(p[0])
		get := int(binary.BigEndian.Uint16(p[1:3]))
		set := int(binary.BigEndian.Uint16(p[3:5]))
		d.CurrentTemperature = float64(get)
		d.Temperature = float64(set)
		m.emitReadHeadTemperature(d, idx, get, set)

	case OpReadHeadID:
		d.PrinterHeadID = string(p)
		m.emitReadHeadID(d, d.PrinterHeadID)

	case OpReadSilentState:
		if len(p) < 1 {
			return
		}
		d.SilentState = p[0] != 0
		m.emitReadSilentState(d, d.SilentState)

	case OpReadAutoPowerOffState:
		if len(p) < 1 {
			return
		}
		d.AutoPowerOffState = p[0] != 0
		m.emitReadAutoPowerOff(d, d.AutoPowerOffState)
	}
}

func (m *ConnectManager) emitReadBattery(d *Device, level int) {
	if f := m.events.read.OnReadBattery; f != nil {
		f(d, level)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadBattery != nil {
			l.OnReadBattery(d, level)
		}
	})
}

func (m *ConnectManager) emitReadChargingState(d *Device, charging bool) {
	if f := m.events.read.OnReadChargingState; f != nil {
		f(d, charging)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadChargingState != nil {
			l.OnReadChargingState(d, charging)
		}
	})
}

func (m *ConnectManager) emitReadParameter(d *Device, head, lPix, pPix, distance int) {
	if f := m.events.read.OnReadParameter; f != nil {
		f(d, head, lPix, pPix, distance)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadParameter != nil {
			l.OnReadParameter(d, head, lPix, pPix, distance)
		}
	})
}

func (m *ConnectManager) emitReadCyclesRepeat(d *Device, cycles, repeat int) {
	if f := m.events.read.OnReadCyclesRepeat; f != nil {
		f(d, cycles, repeat)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadCyclesRepeat != nil {
			l.OnReadCyclesRepeat(d, cycles, repeat)
		}
	})
}

func (m *ConnectManager) emitReadDirection(d *Device, direction, headDirection int) {
	if f := m.events.read.OnReadDirection; f != nil {
		f(d, direction, headDirection)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadDirection != nil {
			l.OnReadDirection(d, direction, headDirection)
		}
	})
}

func (m *ConnectManager) emitReadDeviceInfo(d *Device, id, name, mcuVersion, date string) {
	if f := m.events.read.OnReadDeviceInfo; f != nil {
		f(d, id, name, mcuVersion, date)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadDeviceInfo != nil {
			l.OnReadDeviceInfo(d, id, name, mcuVersion, date)
		}
	})
}

func (m *ConnectManager) emitReadHeadTemperature(d *Device, idx, get, set int) {
	if f := m.events.read.OnReadHeadTemperature; f != nil {
		f(d, idx, get, set)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadHeadTemperature != nil {
			l.OnReadHeadTemperature(d, idx, get, set)
		}
	})
}

func (m *ConnectManager) emitReadHeadID(d *Device, id string) {
	if f := m.events.read.OnReadHeadID; f != nil {
		f(d, id)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadHeadID != nil {
			l.OnReadHeadID(d, id)
		}
	})
}

func (m *ConnectManager) emitReadSilentState(d *Device, silent bool) {
	if f := m.events.read.OnReadSilentState; f != nil {
		f(d, silent)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadSilentState != nil {
			l.OnReadSilentState(d, silent)
		}
	})
}

func (m *ConnectManager) emitReadAutoPowerOff(d *Device, auto bool) {
	if f := m.events.read.OnReadAutoPowerOffState; f != nil {
		f(d, auto)
	}
	m.events.readListeners.each(func(l *DeviceReadListener) {
		if l.OnReadAutoPowerOffState != nil {
			l.OnReadAutoPowerOffState(d, auto)
		}
	})
}
