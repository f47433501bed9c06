package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts one connection at a time and echoes everything back.
func echoServer(t *testing.T) (addr *net.TCPAddr, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 1024)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					if _, err := c.Write(buf[:n]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().(*net.TCPAddr), func() { ln.Close() }
}

func TestTCP_sendReceive(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	tc := NewTCP("127.0.0.1", uint16(addr.Port))
	got := make(chan []byte, 1)
	tc.SetOnReceive(func(b []byte) { got <- b })
	require.NoError(t, tc.Connect(context.Background()))
	defer tc.Disconnect()

	require.NoError(t, tc.SendData([]byte{0xAA, 0x55, 0x01}))
	select {
	case b := <-got:
		assert.Equal(t, []byte{0xAA, 0x55, 0x01}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("echo never arrived")
	}
}

func TestTCP_sendWhileDisconnected(t *testing.T) {
	tc := NewTCP("127.0.0.1", 1)
	assert.ErrorIs(t, tc.SendData([]byte{1}), ErrNotConnected)
}

func TestTCP_connectTimeout(t *testing.T) {
	tc := NewTCP("192.0.2.1", 9100) // TEST-NET, never reachable
	tc.ConnectTimeout = 50 * time.Millisecond
	start := time.Now()
	err := tc.Connect(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTCP_heartbeat(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	tc := NewTCP("127.0.0.1", uint16(addr.Port))
	tc.HeartbeatInterval = 30 * time.Millisecond
	beats := make(chan []byte, 4)
	tc.SetOnSendHeartData(func(b []byte) { beats <- b })
	tc.SetHeartData([]byte("ping"))
	require.NoError(t, tc.Connect(context.Background()))
	defer tc.Disconnect()

	select {
	case b := <-beats:
		assert.Equal(t, []byte("ping"), b)
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat never sent")
	}
}

func TestTCP_manualDisconnectDoesNotReconnect(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	tc := NewTCP("127.0.0.1", uint16(addr.Port))
	dropped := make(chan struct{}, 1)
	tc.SetOnDisconnect(func() { dropped <- struct{}{} })
	require.NoError(t, tc.Connect(context.Background()))
	require.NoError(t, tc.Disconnect())

	select {
	case <-dropped:
		t.Fatal("manual disconnect reported as a drop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAP_requiresMatchingSSID(t *testing.T) {
	addr, stop := echoServer(t)
	defer stop()

	sense := ssidStub{ssid: "SomeOtherNetwork"}
	ap := NewAP("MX-AP-1234", "127.0.0.1", uint16(addr.Port), sense)
	err := ap.Connect(context.Background())
	assert.ErrorContains(t, err, "not joined")

	joined := ssidStub{ssid: "MX-AP-1234"}
	ap = NewAP("MX-AP-1234", "127.0.0.1", uint16(addr.Port), joined)
	require.NoError(t, ap.Connect(context.Background()))
	ap.Disconnect()
}

type ssidStub struct{ ssid string }

func (s ssidStub) CurrentSSID() (string, error) { return s.ssid, nil }
