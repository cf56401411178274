package conn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"order-board/internal/xpkg/logger"
)

// ErrConnectionLost is returned by Run after the reconnect budget is spent.
// The owner is expected to surface it to the user instead of retrying
// forever.
var ErrConnectionLost = errors.New("connection lost")

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	// StateLost is terminal: the retry budget is exhausted and the manager
	// has stopped.
	StateLost
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// maxBackoffShift bounds the doubling: with a 1s base the delay tops out
// around 17 minutes.
const maxBackoffShift = 10

// Manager owns exactly one websocket connection at a time and redials with
// exponential backoff when it drops. Frames and state transitions are
// delivered on channels consumed by the sync client's event loop.
type Manager struct {
	url         string
	dialer      *websocket.Dialer
	backoffBase time.Duration
	maxAttempts int
	mylog       logger.Logger

	frames chan []byte
	states chan State

	mu   sync.Mutex
	ws   *websocket.Conn
	done chan struct{}
	once sync.Once
}

func NewManager(url string, backoffBase time.Duration, maxAttempts int, mylog logger.Logger) *Manager {
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Manager{
		url:         url,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoffBase: backoffBase,
		maxAttempts: maxAttempts,
		mylog:       mylog,
		frames:      make(chan []byte, 64),
		states:      make(chan State, 8),
		done:        make(chan struct{}),
	}
}

func (m *Manager) Frames() <-chan []byte { return m.frames }
func (m *Manager) States() <-chan State  { return m.states }

// backoffDelay doubles per attempt with the exponent capped, so a generous
// retry budget cannot shift the delay past the int64 range and busy-redial.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return m.backoffBase << shift
}

// Run dials and reads until Close is called, the context ends, or the retry
// budget runs out. Consecutive dial failures back off as base * 2^attempt;
// a successful open resets the counter.
func (m *Manager) Run(ctx context.Context) error {
	attempt := 0
	for {
		if attempt > 0 {
			if attempt >= m.maxAttempts {
				m.mylog.Action("reconnect_gave_up").Error("Retry budget exhausted", ErrConnectionLost, "attempts", attempt)
				m.emit(StateLost)
				return ErrConnectionLost
			}
			delay := m.backoffDelay(attempt)
			m.mylog.Action("reconnect_scheduled").Debug("Waiting before redial", "attempt", attempt, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-m.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-m.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.emit(StateConnecting)
		ws, _, err := m.dialer.DialContext(ctx, m.url, nil)
		if err != nil {
			attempt++
			m.mylog.Action("dial_failed").Warn("Failed to dial websocket", "url", m.url, "attempt", attempt)
			continue
		}

		m.setConn(ws)
		attempt = 0
		m.mylog.Action("connected").Info("Websocket connected", "url", m.url)
		m.emit(StateOpen)

		m.readLoop(ws)

		// Old socket is closed before any redial so a reconnect can never
		// deliver duplicate frames from two live connections.
		m.setConn(nil)
		ws.Close()

		select {
		case <-m.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.mylog.Action("disconnected").Warn("Websocket closed, reconnecting")
		m.emit(StateClosed)
		attempt = 1
	}
}

func (m *Manager) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		select {
		case m.frames <- data:
		case <-m.done:
			return
		}
	}
}

// Close tears the manager down: the socket is closed and no reconnect will
// be attempted. Safe to call more than once.
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.ws != nil {
			m.ws.Close()
		}
		m.mu.Unlock()
	})
}

func (m *Manager) setConn(ws *websocket.Conn) {
	m.mu.Lock()
	m.ws = ws
	m.mu.Unlock()
}

func (m *Manager) emit(s State) {
	select {
	case m.states <- s:
	case <-m.done:
	}
}
