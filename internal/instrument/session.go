package instrument

import (
	"context"

	"go.uber.org/zap"
)

// Session is the single control channel to the reader.
type Session struct {
	endpoint string
	open     bool
}

func (s Session) Endpoint() string { return s.endpoint }
func (s Session) IsOpen() bool     { return s.open }

// SessionSource hands out the current session to the executor and monitor.
type SessionSource interface {
	Session() Session
}

// ConnectionManager owns the one Session of the process.
//
// Open is safe to call before every command batch and callers are expected
// to do so: a session left idle between unrelated invocations tends to be
// dropped by the vendor driver, and reusing a cached one is what brings the
// dropped-connection failures back. Re-opening supersedes the previous
// session without closing it.
type ConnectionManager struct {
	remote  Remote
	session Session
	logger  *zap.Logger
}

func NewConnectionManager(remote Remote, logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{
		remote: remote,
		logger: logger,
	}
}

// Open establishes a session against the named endpoint.
func (m *ConnectionManager) Open(ctx context.Context, endpoint string) error {
	code, err := m.remote.OpenConnection(ctx, endpoint)
	if err != nil {
		return &ConnectionError{Op: "open", Endpoint: endpoint, Err: err}
	}
	if code != 0 {
		return &ConnectionError{Op: "open", Endpoint: endpoint, Code: code}
	}

	if m.session.open {
		m.logger.Debug("Superseding open session",
			zap.String("previous", m.session.endpoint),
			zap.String("endpoint", endpoint))
	}
	m.session = Session{endpoint: endpoint, open: true}

	m.logger.Debug("Session opened", zap.String("endpoint", endpoint))
	return nil
}

// Close releases the current session. Closing without an open session fails.
func (m *ConnectionManager) Close(ctx context.Context) error {
	if !m.session.open {
		return &ConnectionError{Op: "close", Err: ErrNoSession}
	}

	endpoint := m.session.endpoint
	code, err := m.remote.CloseConnection(ctx)
	if err != nil {
		return &ConnectionError{Op: "close", Endpoint: endpoint, Err: err}
	}
	if code != 0 {
		return &ConnectionError{Op: "close", Endpoint: endpoint, Code: code}
	}

	m.session = Session{}
	m.logger.Debug("Session closed", zap.String("endpoint", endpoint))
	return nil
}

func (m *ConnectionManager) Session() Session {
	return m.session
}
