// Package otasrv hosts the firmware-download side of a Wi-Fi chip OTA: an
// HTTP file server the printer fetches the image from, plus a TCP control
// channel the SDK drives the update over.
package otasrv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rusq/httpex"
)

const (
	// HTTPPort is where the printer fetches GET /<firmware-file>.
	HTTPPort = 8000
	// ControlPort is the printer's OTA control channel.
	ControlPort = 35001
)

const controlTimeout = 5 * time.Second

// Events are the lifecycle callbacks the SDK forwards to its listeners. Nil
// fields are skipped.
type Events struct {
	OnServerWillStart      func()
	OnServerStartFail      func(err error)
	OnServerStarted        func()
	OnClientWillConnect    func()
	OnClientConnectFail    func(err error)
	OnClientConnected      func()
	OnFirmwareVersion      func(version string)
	OnFirmwareVersionError func(err error)
	OnNotConnected         func(err error)
}

// Server serves firmware files and owns the control connection. One printer
// at a time.
type Server struct {
	Events Events

	mu      sync.Mutex
	srv     *http.Server
	control net.Conn
	running bool
}

func New() *Server {
	return &Server{}
}

func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control != nil
}

// Start serves documentPath over HTTP on HTTPPort.
func (s *Server) Start(documentPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if f := s.Events.OnServerWillStart; f != nil {
		f()
	}
	m := http.NewServeMux()
	m.Handle("GET /", http.FileServer(http.Dir(documentPath)))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", HTTPPort),
		Handler: httpex.LogMiddleware(m, log.Default()),
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		if f := s.Events.OnServerStartFail; f != nil {
			f(err)
		}
		return fmt.Errorf("failed to start ota server: %w", err)
	}
	s.srv = srv
	s.running = true
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ota server stopped", "error", err)
		}
	}()
	if f := s.Events.OnServerStarted; f != nil {
		f()
	}
	slog.Info("ota server started", "dir", documentPath, "port", HTTPPort)
	return nil
}

// Connect opens the control channel to the printer.
func (s *Server) Connect(ip string) error {
	if f := s.Events.OnClientWillConnect; f != nil {
		f()
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(ip, fmt.Sprint(ControlPort)), controlTimeout)
	if err != nil {
		if f := s.Events.OnClientConnectFail; f != nil {
			f(err)
		}
		return fmt.Errorf("failed to connect ota control channel: %w", err)
	}
	s.mu.Lock()
	s.control = conn
	s.mu.Unlock()
	if f := s.Events.OnClientConnected; f != nil {
		f()
	}
	return nil
}

// StartOta tells the printer to fetch and flash the firmware at reqURL.
func (s *Server) StartOta(reqURL string) error {
	return s.controlCommand("ota " + reqURL)
}

// ReadWifiFirmwareVersion queries the Wi-Fi chip's firmware version over the
// control channel.
func (s *Server) ReadWifiFirmwareVersion() {
	s.mu.Lock()
	conn := s.control
	s.mu.Unlock()
	if conn == nil {
		err := errors.New("ota control channel is not connected")
		if f := s.Events.OnNotConnected; f != nil {
			f(err)
		}
		return
	}
	go func() {
		if _, err := fmt.Fprintln(conn, "version"); err != nil {
			if f := s.Events.OnFirmwareVersionError; f != nil {
				f(err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(controlTimeout))
		line, err := bufio.NewReader(conn).ReadString('\n')
		if err != nil {
			if f := s.Events.OnFirmwareVersionError; f != nil {
				f(err)
			}
			return
		}
		if f := s.Events.OnFirmwareVersion; f != nil {
			f(strings.TrimSpace(line))
		}
	}()
}

func (s *Server) controlCommand(cmd string) error {
	s.mu.Lock()
	conn := s.control
	s.mu.Unlock()
	if conn == nil {
		err := errors.New("ota control channel is not connected")
		if f := s.Events.OnNotConnected; f != nil {
			f(err)
		}
		return err
	}
	if _, err := fmt.Fprintln(conn, cmd); err != nil {
		return fmt.Errorf("ota control write failed: %w", err)
	}
	return nil
}

// Disconnect closes the control channel.
func (s *Server) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.control != nil {
		s.control.Close()
		s.control = nil
	}
}

// Release stops everything: control channel and HTTP server.
func (s *Server) Release() error {
	s.Disconnect()
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.running = false
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
