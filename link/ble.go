package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

const (
	txChar = "0000ff01-0000-1000-8000-00805f9b34fb" // writable characteristic
	rxChar = "0000ff02-0000-1000-8000-00805f9b34fb" // notify characteristic
)

// attHeaderLen is subtracted from the MTU to get the usable write length.
const attHeaderLen = 3

const defaultMTU = 23

// Advertisement is one BLE scan result, with the printer fields parsed out of
// the manufacturer data.
type Advertisement struct {
	Identifier string // peripheral address, unique per scan session
	Address    bluetooth.Address
	LocalName  string
	RSSI       int
	MAC        string
	ConnTypes  uint
	// FirmwareConfigs maps a firmware kind bit to the conn types it can be
	// upgraded over.
	FirmwareConfigs map[uint]uint
}

// firmware kind bits as advertised. Mirrored by the root package.
const (
	advFirmwareMCU  = 0x100
	advFirmwareWiFi = 0x200
)

// parseManufacturerData extracts MAC(6) | connTypes(1) | mcuConn(1) |
// wifiConn(1). Shorter payloads degrade: missing fields stay zero.
func parseManufacturerData(data []byte) (mac string, connTypes uint, fw map[uint]uint) {
	fw = map[uint]uint{}
	if len(data) >= 6 {
		mac = fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
			data[0], data[1], data[2], data[3], data[4], data[5])
	}
	if len(data) >= 7 {
		connTypes = uint(data[6])
	}
	if len(data) >= 8 {
		fw[advFirmwareMCU] = uint(data[7])
	}
	if len(data) >= 9 {
		fw[advFirmwareWiFi] = uint(data[8])
	}
	return mac, connTypes, fw
}

// Scan scans for advertising printers until the timeout elapses or ctx is
// cancelled. onFound is invoked once per unique peripheral identifier.
func Scan(ctx context.Context, adapter *bluetooth.Adapter, timeout time.Duration, onFound func(Advertisement)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seen := make(map[string]bool)
	var mu sync.Mutex

	done := make(chan error, 1)
	go func() {
		done <- adapter.Scan(func(a *bluetooth.Adapter, sr bluetooth.ScanResult) {
			id := sr.Address.String()
			mu.Lock()
			dup := seen[id]
			seen[id] = true
			mu.Unlock()
			if dup {
				return
			}
			var md []byte
			if elems := sr.ManufacturerData(); len(elems) > 0 {
				md = elems[0].Data
			}
			mac, connTypes, fw := parseManufacturerData(md)
			onFound(Advertisement{
				Identifier:      id,
				Address:         sr.Address,
				LocalName:       sr.LocalName(),
				RSSI:            int(sr.RSSI),
				MAC:             mac,
				ConnTypes:       connTypes,
				FirmwareConfigs: fw,
			})
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to start scanning: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := adapter.StopScan(); err != nil {
			slog.Error("Failed to stop scanning", "error", err)
		}
		<-done
		return nil
	}
}

// BLE is the GATT central strategy. Writes are chunked to MTU minus the ATT
// header and strictly serialized: the link is half-duplex.
type BLE struct {
	Adapter *bluetooth.Adapter
	Address bluetooth.Address

	mu        sync.Mutex
	dev       bluetooth.Device
	tx        bluetooth.DeviceCharacteristic
	rx        bluetooth.DeviceCharacteristic
	mtu       int
	connected bool

	onReceive    func([]byte)
	onDisconnect func()
}

func NewBLE(adapter *bluetooth.Adapter, addr bluetooth.Address) *BLE {
	return &BLE{Adapter: adapter, Address: addr}
}

func (b *BLE) SetOnReceive(fn func([]byte)) { b.onReceive = fn }
func (b *BLE) SetOnDisconnect(fn func()) { b.onDisconnect = fn }
func (b *BLE) SetOnFailToReconnect(fn func()) {} // BLE does not auto-reconnect

func (b *BLE) Connect(ctx context.Context) error {
	dev, err := b.Adapter.Connect(b.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("failed to connect to device: %w", err)
	}
	txrx, err := locateCharacteristics(dev, txChar, rxChar)
	if err != nil {
		dev.Disconnect()
		return fmt.Errorf("failed to locate characteristics: %w", err)
	}
	if err := txrx.rx.EnableNotifications(func(value []byte) {
		if b.onReceive != nil {
			b.onReceive(value)
		}
	}); err != nil {
		dev.Disconnect()
		return fmt.Errorf("failed to enable notifications: %w", err)
	}

	mtu := defaultMTU
	if m, err := txrx.tx.GetMTU(); err == nil && int(m) > attHeaderLen {
		mtu = int(m)
	}

	b.mu.Lock()
	b.dev = dev
	b.tx = txrx.tx
	b.rx = txrx.rx
	b.mtu = mtu
	b.connected = true
	b.mu.Unlock()

	slog.Info("Connected to printer", "address", b.Address.String(), "mtu", mtu)
	return nil
}

func (b *BLE) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil
	}
	b.connected = false
	if err := b.rx.EnableNotifications(func([]byte) {}); err != nil {
		slog.Warn("failed to disable notifications, never mind, let's continue", "error", err)
	}
	if err := b.dev.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from printer: %w", err)
	}
	return nil
}

// SendData writes data in MTU-3 chunks, one chunk at a time. The write mutex
// releases the next write only when the previous one returned.
func (b *BLE) SendData(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrNotConnected
	}
	chunk := b.mtu - attHeaderLen
	for off := 0; off < len(data); off += chunk {
		end := min(off+chunk, len(data))
		if err := b.write(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func (b *BLE) write(data []byte) error {
	const maxRetries = 3
	for i := range maxRetries {
		_, err := b.tx.WriteWithoutResponse(data)
		if err == nil {
			return nil
		}
		slog.Warn("send failed, retrying", "attempt", i+1, "error", err)
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("BLE write failed after retries")
}

type txrx struct {
	tx bluetooth.DeviceCharacteristic
	rx bluetooth.DeviceCharacteristic
}

// locateCharacteristics discovers the TX and RX characteristics of the device.
func locateCharacteristics(device bluetooth.Device, tx, rx string) (txrx, error) {
	var zero txrx
	services, err := device.DiscoverServices(nil) // all
	if err != nil {
		return zero, fmt.Errorf("failed to discover services: %w", err)
	}
	if len(services) == 0 {
		return zero, fmt.Errorf("no services found on device %s", device.Address)
	}
	var found txrx
	rxOK, txOK := false, false
	for _, service := range services {
		chars, err := service.DiscoverCharacteristics(nil) // all
		if err != nil {
			return zero, fmt.Errorf("failed to discover characteristics for service %s: %w", service.UUID().String(), err)
		}
		for _, char := range chars {
			switch char.UUID().String() {
			case tx:
				found.tx = char
				txOK = true
			case rx:
				found.rx = char
				rxOK = true
			}
			if txOK && rxOK {
				return found, nil
			}
		}
	}
	return found, fmt.Errorf("required characteristics not found: TX (%s) or RX (%s)", tx, rx)
}
