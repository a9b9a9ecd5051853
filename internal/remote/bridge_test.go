package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeBridgeHost answers bridge requests using handle.
type fakeBridgeHost struct {
	listener net.Listener
	handle   func(req Request) Reply

	mu       sync.Mutex
	requests []Request
}

func startFakeBridgeHost(t *testing.T, handle func(req Request) Reply) *fakeBridgeHost {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := &fakeBridgeHost{listener: listener, handle: handle}
	go h.serve()
	t.Cleanup(func() { listener.Close() })
	return h
}

func (h *fakeBridgeHost) serve() {
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			return
		}
		go h.serveConn(conn)
	}
}

func (h *fakeBridgeHost) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return
		}

		h.mu.Lock()
		h.requests = append(h.requests, req)
		h.mu.Unlock()

		reply := h.handle(req)
		if reply.ID == "" {
			reply.ID = req.ID
		}
		data, _ := json.Marshal(reply)
		if _, err := conn.Write(append(data, '\n')); err != nil {
			return
		}
	}
}

func (h *fakeBridgeHost) received() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, len(h.requests))
	copy(out, h.requests)
	return out
}

func TestBridge_RoundTrips(t *testing.T) {
	host := startFakeBridgeHost(t, func(req Request) Reply {
		switch req.Op {
		case OpInfo:
			return Reply{Value: " Ready "}
		case OpVersion:
			return Reply{Value: "6.20"}
		case OpExec:
			if req.Args[0] == "PlateIn" {
				return Reply{Code: 9}
			}
		}
		return Reply{}
	})

	b := NewBridge(host.listener.Addr().String(), time.Second, zaptest.NewLogger(t))
	defer b.Close()
	ctx := context.Background()

	code, err := b.OpenConnection(ctx, "CLARIOstar")
	require.NoError(t, err)
	assert.Zero(t, code)

	code, err = b.ExecuteAndWait(ctx, []any{"Run", "RNA", "/db", "/out", 1, 2, 3, "/out", "x.txt"})
	require.NoError(t, err)
	assert.Zero(t, code)

	code, err = b.ExecuteAndWait(ctx, []any{"PlateIn"})
	require.NoError(t, err)
	assert.Equal(t, 9, code)

	value, err := b.GetInfo(ctx, "Status")
	require.NoError(t, err)
	assert.Equal(t, " Ready ", value)

	version, err := b.GetVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6.20", version)

	code, err = b.CloseConnection(ctx)
	require.NoError(t, err)
	assert.Zero(t, code)

	reqs := host.received()
	require.Len(t, reqs, 6)
	assert.Equal(t, OpOpen, reqs[0].Op)
	assert.Equal(t, "CLARIOstar", reqs[0].Endpoint)
	// JSON numbers arrive as float64 on the host side; order is what matters
	assert.Equal(t, []any{"Run", "RNA", "/db", "/out", 1.0, 2.0, 3.0, "/out", "x.txt"}, reqs[1].Args)
	assert.Equal(t, "Status", reqs[3].Item)
	assert.Equal(t, OpClose, reqs[5].Op)
}

func TestBridge_HostErrorIsTransportError(t *testing.T) {
	host := startFakeBridgeHost(t, func(req Request) Reply {
		return Reply{Error: "COM object not registered"}
	})

	b := NewBridge(host.listener.Addr().String(), time.Second, zaptest.NewLogger(t))
	defer b.Close()

	_, err := b.OpenConnection(context.Background(), "CLARIOstar")
	assert.ErrorContains(t, err, "COM object not registered")
}

func TestBridge_IDMismatchDropsConnection(t *testing.T) {
	host := startFakeBridgeHost(t, func(req Request) Reply {
		return Reply{ID: "stale"}
	})

	b := NewBridge(host.listener.Addr().String(), time.Second, zaptest.NewLogger(t))
	defer b.Close()

	_, err := b.ExecuteAndWait(context.Background(), []any{"Dummy"})
	assert.ErrorContains(t, err, "reply id mismatch")

	b.mu.Lock()
	assert.False(t, b.connected)
	b.mu.Unlock()
}

func TestBridge_Unreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	b := NewBridge(addr, 200*time.Millisecond, zaptest.NewLogger(t))
	_, err = b.GetInfo(context.Background(), "Status")
	assert.ErrorContains(t, err, "connection failed")
}

func TestDecodeReply(t *testing.T) {
	_, err := DecodeReply([]byte("  \n"))
	assert.Error(t, err)

	_, err = DecodeReply([]byte(`{"code":0}`))
	assert.ErrorContains(t, err, "without id")

	reply, err := DecodeReply([]byte(`{"id":"a","code":3,"value":"Busy"}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, reply.Code)
	assert.Equal(t, "Busy", reply.Value)
}

func TestBridge_ExecIgnoresCallerDeadline(t *testing.T) {
	host := startFakeBridgeHost(t, func(req Request) Reply {
		if req.Op == OpExec {
			time.Sleep(150 * time.Millisecond)
		}
		return Reply{}
	})

	b := NewBridge(host.listener.Addr().String(), 2*time.Second, zaptest.NewLogger(t))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	code, err := b.ExecuteAndWait(ctx, []any{"Init"})
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestBridge_QueryHonoursCallerDeadline(t *testing.T) {
	host := startFakeBridgeHost(t, func(req Request) Reply {
		time.Sleep(300 * time.Millisecond)
		return Reply{Value: "Ready"}
	})

	b := NewBridge(host.listener.Addr().String(), 2*time.Second, zaptest.NewLogger(t))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.GetInfo(ctx, "Status")
	assert.ErrorContains(t, err, "read failed")

	b.mu.Lock()
	assert.False(t, b.connected)
	b.mu.Unlock()
}
