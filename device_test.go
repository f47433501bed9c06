package mxprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mxsdk/mxprint/link"
)

func TestConnTypeBitset(t *testing.T) {
	d := NewDevice("id", "MX-06", "AA:BB:CC:DD:EE:FF", ConnTypeBLE, nil, "")
	assert.True(t, d.ContainsConnType(ConnTypeBLE))
	assert.False(t, d.ContainsConnType(ConnTypeWiFi))

	d.AddConnType(ConnTypeWiFi)
	assert.True(t, d.ContainsConnType(ConnTypeWiFi))
	d.RemoveConnType(ConnTypeBLE)
	assert.False(t, d.ContainsConnType(ConnTypeBLE))
}

func TestDevice_invariants(t *testing.T) {
	// connType = WiFi requires a network endpoint
	d := NewWifiDevice("office", "10.0.0.2", "AA:BB:CC:DD:EE:FF", 9100, 0, nil, "")
	d.ConnType = ConnTypeWiFi
	assert.True(t, d.ContainsConnType(d.ConnType), "connType must be within connTypes")
	assert.True(t, d.IsWifiReady())
	assert.True(t, d.IsApOrWifiConnType())

	ap := NewApDevice("MX-AP-1234", "192.168.4.1", "AA:BB:CC:DD:EE:01", 9100, 0, nil, "")
	ap.ConnType = ConnTypeAP
	assert.True(t, ap.IsApConnType())
	assert.True(t, ap.IsWifiReady())

	ble := NewDevice("id", "MX-06", "AA:BB:CC:DD:EE:02", ConnTypeBLE, nil, "")
	assert.False(t, ble.IsWifiReady())
	assert.Equal(t, -1, ble.BatteryLevel, "battery unknown before first read")
}

func TestFirmwareConfigs(t *testing.T) {
	d := NewDevice("id", "MX-06", "AA:BB:CC:DD:EE:FF", ConnTypeBLE|ConnTypeWiFi, FirmwareConfigs{
		FirmwareTypeMCU:  ConnTypeBLE,
		FirmwareTypeWiFi: ConnTypeBLE | ConnTypeWiFi,
	}, "")
	assert.True(t, d.ContainsFirmwareType(FirmwareTypeMCU))
	assert.True(t, d.ContainsFirmwareTypeWithConnType(FirmwareTypeWiFi, ConnTypeBLE))
	assert.False(t, d.ContainsFirmwareTypeWithConnType(FirmwareTypeMCU, ConnTypeWiFi))
	assert.Equal(t, ConnTypeBLE|ConnTypeWiFi, d.ConnTypesForFirmwareType(FirmwareTypeWiFi))
}

func TestConnModel_mergeAndEligibility(t *testing.T) {
	model := NewConnModelFromAdvertisement(link.Advertisement{
		Identifier: "periph-1",
		LocalName:  "MX-06",
		MAC:        "AA:BB:CC:DD:EE:FF",
		RSSI:       -61,
		ConnTypes:  uint(ConnTypeBLE | ConnTypeWiFi),
		FirmwareConfigs: map[uint]uint{
			uint(FirmwareTypeWiFi): uint(ConnTypeBLE),
		},
	})
	assert.True(t, model.EligibleForProvisioning())
	assert.False(t, model.IsWifiReady())

	model.MergeWifi(link.WifiRemoteModel{
		MAC: "AA:BB:CC:DD:EE:FF", SSID: "office", IP: "10.0.0.7", Port: 9100, State: 1,
	})
	assert.True(t, model.IsWifiReady())
	assert.True(t, model.ContainsConnType(ConnTypeWiFi))

	d := model.Device(ConnTypeWiFi)
	assert.Equal(t, "10.0.0.7", d.IP)
	assert.Equal(t, uint16(9100), d.Port)
	assert.Equal(t, ConnTypeWiFi, d.ConnType)
	assert.True(t, d.ContainsConnType(d.ConnType))

	// without BLE as an upgrade path for the Wi-Fi firmware, not eligible
	plain := NewConnModelFromAdvertisement(link.Advertisement{
		Identifier: "periph-2", MAC: "AA:BB:CC:DD:EE:00",
		FirmwareConfigs: map[uint]uint{uint(FirmwareTypeWiFi): uint(ConnTypeWiFi)},
	})
	assert.False(t, plain.EligibleForProvisioning())
}
