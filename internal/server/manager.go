// Package server implements component H: the connection manager that
// accepts sockets, owns connection lifetimes, emits statistics, and
// broadcasts shutdown, per spec §4.H.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// maxConcurrentConnections caps active connections, per spec §4.H.
const maxConcurrentConnections = 100

// keepAlivePeriod and idleTimeout are the per-socket settings spec §4.H
// mandates for every accepted connection.
const (
	keepAlivePeriod = 60 * time.Second
	idleTimeout     = 300 * time.Second
)

// Handler processes one accepted connection to completion. It owns reading,
// writing, and closing conn; Manager only tracks its lifetime.
type Handler func(ctx context.Context, conn net.Conn) error

// Stats is a point-in-time snapshot of the manager's counters, per spec
// §4.H and the /health, /metrics surfaces of §6.
type Stats struct {
	StartTime         time.Time
	TotalConnections  uint64
	ActiveConnections int64
	Errors            uint64
}

// Manager accepts TCP connections on a configured address and drives each
// one through Handler, enforcing the resource limits and emitting the
// statistics spec §4.H describes.
type Manager struct {
	handler Handler
	logger  *slog.Logger

	listener net.Listener
	wg       sync.WaitGroup

	startTime time.Time
	total     atomic.Uint64
	active    atomic.Int64
	errors    atomic.Uint64

	mu          sync.Mutex
	connections map[net.Conn]context.CancelFunc
	closing     atomic.Bool
	closed      chan struct{}
}

// New constructs a Manager bound to handler. Call ListenAndServe to start
// accepting connections.
func New(handler Handler, logger *slog.Logger) *Manager {
	return &Manager{
		handler:     handler,
		logger:      logger,
		connections: make(map[net.Conn]context.CancelFunc),
		closed:      make(chan struct{}),
	}
}

// ListenAndServe opens a TCP listener at address and accepts connections
// until Shutdown is called or a fatal listener error occurs.
func (m *Manager) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}

	return m.Serve(listener)
}

// Serve accepts connections on an already-opened listener.
func (m *Manager) Serve(listener net.Listener) error {
	m.listener = listener
	m.startTime = time.Now()
	m.logger.Info("accepting connections", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			m.wg.Wait()
			return nil
		}

		if err != nil {
			if isFatalListenerError(err) {
				m.logger.Error("fatal listener error, shutting down", "error", err)
				return err
			}
			m.errors.Add(1)
			continue
		}

		if m.active.Load() >= maxConcurrentConnections {
			m.logger.Warn("rejecting connection, concurrency cap reached", "cap", maxConcurrentConnections)
			conn.Close()
			continue
		}

		m.acceptConnection(conn)
	}
}

func (m *Manager) acceptConnection(conn net.Conn) {
	configureSocket(conn, m.logger)

	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.connections[conn] = cancel
	m.mu.Unlock()

	m.total.Add(1)
	m.active.Add(1)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.deregister(conn)
		defer conn.Close()

		if err := m.handler(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
			m.errors.Add(1)
			m.logger.Error("connection handler returned an error", "remote", conn.RemoteAddr(), "error", err)
		}
	}()
}

func (m *Manager) deregister(conn net.Conn) {
	m.mu.Lock()
	delete(m.connections, conn)
	m.mu.Unlock()
	m.active.Add(-1)
}

// configureSocket disables Nagle's algorithm and enables TCP keepalive on
// the accepted socket, per spec §4.H. The idle-timeout deadline is the
// handler's responsibility to refresh on every successful read/write.
func configureSocket(conn net.Conn, logger *slog.Logger) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	if err := tcpConn.SetNoDelay(true); err != nil {
		logger.Warn("failed to disable Nagle's algorithm", "error", err)
	}

	if err := tcpConn.SetKeepAlive(true); err != nil {
		logger.Warn("failed to enable keepalive", "error", err)
	}

	if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
		logger.Warn("failed to set keepalive period", "error", err)
	}
}

// IdleTimeout is the read/write idle deadline handlers should apply per
// socket operation, per spec §4.H.
func IdleTimeout() time.Duration {
	return idleTimeout
}

// Shutdown force-closes every active connection (triggering backend cleanup
// in the handler), closes the listener, and waits for all handler
// goroutines to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closing.CompareAndSwap(false, true) {
		return nil
	}
	defer close(m.closed)

	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.connections))
	conns := make([]net.Conn, 0, len(m.connections))
	for conn, cancel := range m.connections {
		cancels = append(cancels, cancel)
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, conn := range conns {
		conn.Close()
	}

	if m.listener != nil {
		if err := m.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			m.logger.Warn("error closing listener during shutdown", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Healthy reports whether the manager is still accepting connections, i.e.
// shutdown has not been initiated.
func (m *Manager) Healthy() bool {
	return !m.closing.Load()
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	return Stats{
		StartTime:         m.startTime,
		TotalConnections:  m.total.Load(),
		ActiveConnections: m.active.Load(),
		Errors:            m.errors.Load(),
	}
}

// isFatalListenerError reports whether err indicates a condition the
// process cannot recover from by continuing to accept, per spec §4.H
// (address already in use, permission denied).
func isFatalListenerError(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE) || errors.Is(err, syscall.EACCES)
}
