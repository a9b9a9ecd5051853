package instrument

import (
	"context"
	"sync"
)

// mockRemote is a Remote whose behaviour is set per test through the Func
// fields. Calls are recorded.
type mockRemote struct {
	OpenConnectionFunc  func(ctx context.Context, endpoint string) (int, error)
	CloseConnectionFunc func(ctx context.Context) (int, error)
	ExecuteAndWaitFunc  func(ctx context.Context, elements []any) (int, error)
	GetInfoFunc         func(ctx context.Context, item string) (any, error)
	GetVersionFunc      func(ctx context.Context) (string, error)

	mu       sync.Mutex
	opened   []string
	closes   int
	executed [][]any
	queried  []string
}

func (m *mockRemote) OpenConnection(ctx context.Context, endpoint string) (int, error) {
	m.mu.Lock()
	m.opened = append(m.opened, endpoint)
	m.mu.Unlock()

	if m.OpenConnectionFunc != nil {
		return m.OpenConnectionFunc(ctx, endpoint)
	}
	return 0, nil
}

func (m *mockRemote) CloseConnection(ctx context.Context) (int, error) {
	m.mu.Lock()
	m.closes++
	m.mu.Unlock()

	if m.CloseConnectionFunc != nil {
		return m.CloseConnectionFunc(ctx)
	}
	return 0, nil
}

func (m *mockRemote) ExecuteAndWait(ctx context.Context, elements []any) (int, error) {
	m.mu.Lock()
	m.executed = append(m.executed, elements)
	m.mu.Unlock()

	if m.ExecuteAndWaitFunc != nil {
		return m.ExecuteAndWaitFunc(ctx, elements)
	}
	return 0, nil
}

func (m *mockRemote) GetInfo(ctx context.Context, item string) (any, error) {
	m.mu.Lock()
	m.queried = append(m.queried, item)
	m.mu.Unlock()

	if m.GetInfoFunc != nil {
		return m.GetInfoFunc(ctx, item)
	}
	return "Ready", nil
}

func (m *mockRemote) GetVersion(ctx context.Context) (string, error) {
	if m.GetVersionFunc != nil {
		return m.GetVersionFunc(ctx)
	}
	return "mock 1.0", nil
}

func (m *mockRemote) executedCommands() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, len(m.executed))
	copy(out, m.executed)
	return out
}

// returnCode makes ExecuteAndWait fail with code for one command name.
func returnCode(name CommandName, code int) func(context.Context, []any) (int, error) {
	return func(_ context.Context, elements []any) (int, error) {
		if elements[0] == string(name) {
			return code, nil
		}
		return 0, nil
	}
}
