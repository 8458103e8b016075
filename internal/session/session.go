// Package session owns the single outbound chat-network session. The
// manager is constructed once at process bootstrap and handed by
// reference to every component that sends through it; only the manager
// mutates session state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateInitializing State = "INITIALIZING"
	StateQRReady      State = "QR_READY"
	StateConnected    State = "CONNECTED"
)

var ErrNoTransport = errors.New("session: no transport configured")

type EventKind string

const (
	EventQR           EventKind = "qr"
	EventReady        EventKind = "ready"
	EventDisconnected EventKind = "disconnected"
	EventAuthFailure  EventKind = "auth_failure"
)

// Event is emitted by the transport client. QR carries the base64 PNG
// of the pairing code for EventQR.
type Event struct {
	Kind EventKind
	QR   string
	Err  error
}

// Client is the device-pairing transport to the chat network. Connect
// starts pairing; progress arrives on Events, which is closed when the
// underlying connection is released. Connect may take as long as the
// transport needs, the manager never holds its lock across the call.
type Client interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, to, text string) error
	Close() error
	Events() <-chan Event
}

// ClientFactory builds a fresh transport handle per initialization.
type ClientFactory func() (Client, error)

const destinationSuffix = "@s.whatsapp.net"

type Manager struct {
	factory ClientFactory
	logger  *slog.Logger

	mu     sync.Mutex
	client Client
	state  State
	qr     string
}

func NewManager(factory ClientFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		factory: factory,
		logger:  logger,
		state:   StateDisconnected,
	}
}

// Initialize starts a new session. It is a no-op when one is already
// underway. A stale handle left in a non-active state is torn down
// first, best effort.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateInitializing, StateQRReady, StateConnected:
		m.mu.Unlock()
		return nil
	}
	if m.factory == nil {
		m.mu.Unlock()
		return ErrNoTransport
	}
	stale := m.client
	m.client = nil
	m.state = StateInitializing
	m.qr = ""
	m.mu.Unlock()

	// The transport connect runs outside the lock so Status and
	// CurrentQR stay responsive while pairing starts. A concurrent
	// Initialize sees INITIALIZING and returns immediately.
	if stale != nil {
		if err := stale.Close(); err != nil {
			m.logger.Warn("stale session teardown failed", "error", err)
		}
	}

	client, err := m.factory()
	if err != nil {
		m.abortInit()
		return err
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		m.abortInit()
		return err
	}

	m.mu.Lock()
	if m.state != StateInitializing {
		// Logout raced the connect; release the fresh handle.
		m.mu.Unlock()
		_ = client.Close()
		return nil
	}
	m.client = client
	m.mu.Unlock()

	go m.watch(client)
	return nil
}

func (m *Manager) abortInit() {
	m.mu.Lock()
	if m.state == StateInitializing {
		m.state = StateDisconnected
	}
	m.mu.Unlock()
}

// Status never blocks on transport work; it only takes the state lock.
func (m *Manager) Status() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentQR returns the pending pairing code as a data URL, or empty
// when no pairing is in progress.
func (m *Manager) CurrentQR() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.qr == "" {
		return ""
	}
	return "data:image/png;base64," + m.qr
}

// Send delivers text to the normalized destination. It reports false,
// never an error, when the session is not connected or the transport
// call fails.
func (m *Manager) Send(ctx context.Context, to, text string) bool {
	m.mu.Lock()
	client := m.client
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || client == nil {
		return false
	}
	dest := NormalizeDestination(to)
	if dest == destinationSuffix {
		m.logger.Warn("session send skipped: empty destination", "to", to)
		return false
	}
	if err := client.Send(ctx, dest, text); err != nil {
		m.logger.Warn("session send failed", "to", dest, "error", err)
		return false
	}
	return true
}

// Logout tears the session down and forces DISCONNECTED.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Warn("session teardown failed", "error", err)
		}
		m.client = nil
	}
	m.state = StateDisconnected
	m.qr = ""
}

func (m *Manager) watch(client Client) {
	for ev := range client.Events() {
		m.apply(client, ev)
	}
}

// apply is the single state-transition function. Events from a handle
// the manager no longer owns are dropped, so a released connection can
// never resurrect the state machine.
func (m *Manager) apply(client Client, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != client {
		return
	}

	switch ev.Kind {
	case EventQR:
		if m.state == StateInitializing || m.state == StateQRReady {
			m.state = StateQRReady
			m.qr = ev.QR
		}
	case EventReady:
		if m.state == StateInitializing || m.state == StateQRReady {
			m.state = StateConnected
			m.qr = ""
			m.logger.Info("session connected")
		}
	case EventDisconnected, EventAuthFailure:
		if ev.Err != nil {
			m.logger.Warn("session dropped", "event", string(ev.Kind), "error", ev.Err)
		} else {
			m.logger.Info("session dropped", "event", string(ev.Kind))
		}
		m.client = nil
		m.state = StateDisconnected
		m.qr = ""
	}
}

// NormalizeDestination strips everything but digits from a phone number
// and appends the chat-network suffix.
func NormalizeDestination(to string) string {
	var b strings.Builder
	for _, r := range to {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String() + destinationSuffix
}
