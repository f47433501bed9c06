package link

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// TCP connection defaults.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultReconnectCount    = 10
)

// TCP connects to the printer's socket server over infrastructure Wi-Fi. It
// keeps the link warm with an application-level heartbeat and transparently
// reconnects after unexpected drops, up to ReconnectCount attempts. A manual
// Disconnect never reconnects.
type TCP struct {
	Host string
	Port uint16

	ConnectTimeout    time.Duration
	HeartbeatInterval time.Duration
	ReconnectInterval time.Duration
	ReconnectCount    int

	// HeartData is the heartbeat payload. No heartbeat is sent while empty.
	HeartData []byte

	mu     sync.Mutex
	conn   net.Conn
	closed bool // set by Disconnect
	cancel context.CancelFunc

	onReceive         func([]byte)
	onDisconnect      func()
	onFailToReconnect func()
	onSendHeartData   func([]byte)
}

func NewTCP(host string, port uint16) *TCP {
	return &TCP{
		Host:              host,
		Port:              port,
		ConnectTimeout:    DefaultConnectTimeout,
		HeartbeatInterval: DefaultHeartbeatInterval,
		ReconnectInterval: DefaultReconnectInterval,
		ReconnectCount:    DefaultReconnectCount,
	}
}

func (t *TCP) SetOnReceive(fn func([]byte)) { t.onReceive = fn }

// SetHeartData swaps the heartbeat payload. Nil or empty pauses the
// heartbeat.
func (t *TCP) SetHeartData(data []byte) {
	t.mu.Lock()
	t.HeartData = data
	t.mu.Unlock()
}

func (t *TCP) heartData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.HeartData
}
func (t *TCP) SetOnDisconnect(fn func()) { t.onDisconnect = fn }
func (t *TCP) SetOnFailToReconnect(fn func()) { t.onFailToReconnect = fn }
func (t *TCP) SetOnSendHeartData(fn func([]byte)) { t.onSendHeartData = fn }

func (t *TCP) addr() string {
	return net.JoinHostPort(t.Host, fmt.Sprint(t.Port))
}

func (t *TCP) Connect(ctx context.Context) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.conn = conn
	t.closed = false
	t.cancel = cancel
	t.mu.Unlock()

	go t.readLoop(runCtx, conn)
	go t.heartbeatLoop(runCtx)
	slog.Info("Connected to printer", "addr", t.addr())
	return nil
}

func (t *TCP) dial(ctx context.Context) (net.Conn, error) {
	timeout := t.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.addr(), err)
	}
	return conn, nil
}

func (t *TCP) Disconnect() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	t.conn = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (t *TCP) SendData(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("tcp write failed: %w", err)
	}
	return nil
}

func (t *TCP) readLoop(ctx context.Context, conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 && t.onReceive != nil {
			out := make([]byte, n)
			copy(out, buf[:n])
			t.onReceive(out)
		}
		if err != nil {
			if ctx.Err() != nil {
				return // manual disconnect
			}
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			slog.Warn("connection dropped", "addr", t.addr(), "error", err)
			if t.onDisconnect != nil {
				t.onDisconnect()
			}
			t.reconnect(ctx)
			return
		}
	}
}

// reconnect retries the connection ReconnectCount times at
// ReconnectInterval. After exhaustion it emits the terminal
// fail-to-reconnect event and stops.
func (t *TCP) reconnect(ctx context.Context) {
	count := t.ReconnectCount
	if count <= 0 {
		count = DefaultReconnectCount
	}
	interval := t.ReconnectInterval
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	for attempt := 1; attempt <= count; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return
		}
		conn, err := t.dial(ctx)
		if err != nil {
			slog.Warn("reconnect failed", "attempt", attempt, "error", err)
			continue
		}
		t.mu.Lock()
		t.conn = conn
		t.mu.Unlock()
		slog.Info("reconnected", "addr", t.addr(), "attempt", attempt)
		go t.readLoop(ctx, conn)
		return
	}
	slog.Error("reconnect attempts exhausted", "addr", t.addr(), "count", count)
	if t.onFailToReconnect != nil {
		t.onFailToReconnect()
	}
}

func (t *TCP) heartbeatLoop(ctx context.Context) {
	interval := t.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hd := t.heartData()
			if len(hd) == 0 {
				continue
			}
			if err := t.SendData(hd); err != nil {
				slog.Debug("heartbeat send failed", "error", err)
				continue
			}
			if t.onSendHeartData != nil {
				t.onSendHeartData(hd)
			}
		}
	}
}
