// Package mxprint is the core transport and data-preparation engine for a
// family of handheld thermal/inkjet printers. It owns everything between the
// rendering layer and the printer's acknowledgement: link strategies (BLE,
// TCP, AP), UDP discovery, the command scheduler, the chunked transfer
// engines and the connection manager that orchestrates them.
package mxprint

import (
	"fmt"

	"github.com/mxsdk/mxprint/link"
)

// ConnType is a bitset of the links a device is reachable over.
type ConnType uint

const (
	ConnTypeBLE  ConnType = 1 << 0
	ConnTypeWiFi ConnType = 1 << 1
	ConnTypeAP   ConnType = 1 << 2
)

func (c ConnType) String() string {
	switch c {
	case ConnTypeBLE:
		return "ble"
	case ConnTypeWiFi:
		return "wifi"
	case ConnTypeAP:
		return "ap"
	}
	return fmt.Sprintf("conntype(%d)", uint(c))
}

// FirmwareType identifies an upgradable firmware class on the printer.
type FirmwareType uint

const (
	FirmwareTypeMCU  FirmwareType = 1 << 8
	FirmwareTypeWiFi FirmwareType = 1 << 9
)

// FirmwareConfigs maps a firmware class to the conn types it can be upgraded
// over.
type FirmwareConfigs map[FirmwareType]ConnType

// Device is a printer the SDK has discovered or connected. Identity is
// (UUID, MAC); the connection manager mutates attributes as read-back
// replies arrive.
type Device struct {
	Name    string
	Aliases string

	ConnTypes ConnType // reachable links
	ConnType  ConnType // link in use

	FirmwareConfigs FirmwareConfigs

	UUIDIdentifier string // peripheral identifier from the BLE scan
	BluetoothName  string
	LocalName      string
	RSSI           int

	SSID     string // AP mode: network the printer hosts
	WifiName string // Wi-Fi mode: name carried in the UDP broadcast
	IP       string
	MAC      string
	Port     uint16
	State    int

	Connected bool

	// BatteryLevel is -1 until the first battery read-back.
	BatteryLevel int
	Charging     bool

	// Print parameters, populated by read-backs.
	PrinterHead        int
	PrinterHeadID      string
	LPix               int
	PPix               int
	Distance           int
	Cycles             int
	RepeatTime         int
	Direction          int
	PrintHeadDirection int
	Temperature        float64
	CurrentTemperature float64
	SilentState        bool
	AutoPowerOffState  bool

	// Firmware identity.
	McuModel     string
	McuVersion   string
	McuHwVersion string
	McuDate      string
	WifiModel    string
	WifiVersion  string
	WifiHw       string
}

// NewDevice creates a device discovered over BLE, seeded with the factory
// parameter defaults.
func NewDevice(identifier, localName, mac string, connTypes ConnType, fw FirmwareConfigs, aliases string) *Device {
	d := &Device{
		Name:            localName,
		Aliases:         aliases,
		UUIDIdentifier:  identifier,
		LocalName:       localName,
		BluetoothName:   localName,
		MAC:             mac,
		ConnTypes:       connTypes,
		FirmwareConfigs: fw,
		BatteryLevel:    -1,
	}
	ApplyParameterDefaults(d)
	return d
}

// NewWifiDevice creates a device reachable over infrastructure Wi-Fi.
func NewWifiDevice(wifiName, ip, mac string, port uint16, connTypes ConnType, fw FirmwareConfigs, aliases string) *Device {
	d := NewDevice("", wifiName, mac, connTypes|ConnTypeWiFi, fw, aliases)
	d.WifiName = wifiName
	d.IP = ip
	d.Port = port
	return d
}

// NewApDevice creates a device reachable over its own access point.
func NewApDevice(ssid, ip, mac string, port uint16, connTypes ConnType, fw FirmwareConfigs, aliases string) *Device {
	d := NewDevice("", ssid, mac, connTypes|ConnTypeAP, fw, aliases)
	d.SSID = ssid
	d.IP = ip
	d.Port = port
	return d
}

func (d *Device) ContainsConnType(c ConnType) bool { return d.ConnTypes&c != 0 }
func (d *Device) AddConnType(c ConnType) { d.ConnTypes |= c }
func (d *Device) RemoveConnType(c ConnType) { d.ConnTypes &^= c }

func (d *Device) IsBleConnType() bool { return d.ConnType == ConnTypeBLE }
func (d *Device) IsWifiConnType() bool { return d.ConnType == ConnTypeWiFi }
func (d *Device) IsApConnType() bool { return d.ConnType == ConnTypeAP }
func (d *Device) IsApOrWifiConnType() bool { return d.IsApConnType() || d.IsWifiConnType() }

// IsWifiReady reports whether the device carries a usable network endpoint.
func (d *Device) IsWifiReady() bool {
	return d.IP != "" && d.Port > 0
}

func (d *Device) ContainsFirmwareType(ft FirmwareType) bool {
	_, ok := d.FirmwareConfigs[ft]
	return ok
}

// ContainsFirmwareTypeWithConnType reports whether firmware class ft can be
// upgraded over link c.
func (d *Device) ContainsFirmwareTypeWithConnType(ft FirmwareType, c ConnType) bool {
	return d.FirmwareConfigs[ft]&c != 0
}

func (d *Device) ConnTypesForFirmwareType(ft FirmwareType) ConnType {
	return d.FirmwareConfigs[ft]
}

func (d *Device) String() string {
	return fmt.Sprintf("Device(%s mac=%s conn=%s ip=%s:%d)", d.Name, d.MAC, d.ConnType, d.IP, d.Port)
}

// ConnModel is the pre-connect view of a discovered peripheral: what the
// advertisement says the device supports, plus Wi-Fi reachability if a UDP
// broadcast has been merged in. It folds into a Device on connect.
type ConnModel struct {
	Aliases         string
	ConnTypes       ConnType
	FirmwareConfigs FirmwareConfigs

	UUIDIdentifier string
	BluetoothName  string
	LocalName      string
	MAC            string
	State          int
	RSSI           int

	WifiName string
	IP       string
	Port     uint16
}

// NewConnModelFromAdvertisement builds a ConnModel from a BLE scan result.
func NewConnModelFromAdvertisement(adv link.Advertisement) *ConnModel {
	fw := make(FirmwareConfigs, len(adv.FirmwareConfigs))
	for k, v := range adv.FirmwareConfigs {
		fw[FirmwareType(k)] = ConnType(v)
	}
	return &ConnModel{
		UUIDIdentifier:  adv.Identifier,
		BluetoothName:   adv.LocalName,
		LocalName:       adv.LocalName,
		Aliases:         adv.LocalName,
		MAC:             adv.MAC,
		RSSI:            adv.RSSI,
		ConnTypes:       ConnType(adv.ConnTypes) | ConnTypeBLE,
		FirmwareConfigs: fw,
	}
}

// MergeWifi folds a UDP broadcast into the model.
func (m *ConnModel) MergeWifi(w link.WifiRemoteModel) {
	m.WifiName = w.SSID
	m.IP = w.IP
	m.Port = w.Port
	m.State = w.State
	m.ConnTypes |= ConnTypeWiFi
}

func (m *ConnModel) IsWifiReady() bool {
	return m.IP != "" && m.Port > 0
}

func (m *ConnModel) ContainsConnType(c ConnType) bool { return m.ConnTypes&c != 0 }

// EligibleForProvisioning reports whether the peripheral advertises the
// Wi-Fi firmware class with BLE as an upgrade path, the precondition for
// writing credentials over BLE.
func (m *ConnModel) EligibleForProvisioning() bool {
	return m.FirmwareConfigs[FirmwareTypeWiFi]&ConnTypeBLE != 0
}

// Device materialises the model for a connect attempt over the given link.
func (m *ConnModel) Device(conn ConnType) *Device {
	d := NewDevice(m.UUIDIdentifier, m.LocalName, m.MAC, m.ConnTypes, m.FirmwareConfigs, m.Aliases)
	d.ConnType = conn
	d.RSSI = m.RSSI
	d.WifiName = m.WifiName
	d.IP = m.IP
	d.Port = m.Port
	d.State = m.State
	return d
}
