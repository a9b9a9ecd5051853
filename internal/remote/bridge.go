package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bridge talks to a bridge host that drives the vendor remote-control
// library on behalf of this process. Requests and replies are JSON lines.
type Bridge struct {
	address string
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool
}

func NewBridge(address string, timeout time.Duration, logger *zap.Logger) *Bridge {
	return &Bridge{
		address: address,
		timeout: timeout,
		logger:  logger,
	}
}

// Connect dials the bridge host. Requests connect lazily, so this is optional.
func (b *Bridge) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked()
}

func (b *Bridge) connectLocked() error {
	if b.connected {
		return nil
	}

	conn, err := net.DialTimeout("tcp", b.address, b.timeout)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	b.conn = conn
	b.reader = bufio.NewReader(conn)
	b.connected = true

	b.logger.Info("Connected to remote-control bridge", zap.String("address", b.address))
	return nil
}

// Close drops the TCP connection to the bridge host.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropLocked()
}

func (b *Bridge) dropLocked() error {
	if !b.connected {
		return nil
	}

	err := b.conn.Close()
	b.connected = false
	b.conn = nil
	b.reader = nil

	return err
}

// roundTrip sends one request and waits for the matching reply.
func (b *Bridge) roundTrip(ctx context.Context, req *Request) (*Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connectLocked(); err != nil {
		return nil, err
	}

	req.ID = uuid.NewString()
	data, err := req.Encode()
	if err != nil {
		return nil, err
	}

	// exec blocks until the device finishes; only b.timeout bounds it
	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) && req.Op != OpExec {
		deadline = d
	}
	if err := b.conn.SetDeadline(deadline); err != nil {
		b.dropLocked()
		return nil, fmt.Errorf("set deadline failed: %w", err)
	}

	if _, err := b.conn.Write(data); err != nil {
		b.dropLocked()
		return nil, fmt.Errorf("write failed: %w", err)
	}

	line, err := b.reader.ReadBytes('\n')
	if err != nil {
		b.dropLocked()
		return nil, fmt.Errorf("read failed: %w", err)
	}

	reply, err := DecodeReply(line)
	if err != nil {
		b.dropLocked()
		return nil, err
	}

	if reply.ID != req.ID {
		b.dropLocked()
		return nil, fmt.Errorf("reply id mismatch: expected %s, got %s", req.ID, reply.ID)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("bridge %s: %w", req.Op, errors.New(reply.Error))
	}

	return reply, nil
}

func (b *Bridge) OpenConnection(ctx context.Context, endpoint string) (int, error) {
	reply, err := b.roundTrip(ctx, &Request{Op: OpOpen, Endpoint: endpoint})
	if err != nil {
		return 0, err
	}
	return reply.Code, nil
}

func (b *Bridge) CloseConnection(ctx context.Context) (int, error) {
	reply, err := b.roundTrip(ctx, &Request{Op: OpClose})
	if err != nil {
		return 0, err
	}
	return reply.Code, nil
}

func (b *Bridge) ExecuteAndWait(ctx context.Context, elements []any) (int, error) {
	reply, err := b.roundTrip(ctx, &Request{Op: OpExec, Args: elements})
	if err != nil {
		return 0, err
	}
	return reply.Code, nil
}

func (b *Bridge) GetInfo(ctx context.Context, item string) (any, error) {
	reply, err := b.roundTrip(ctx, &Request{Op: OpInfo, Item: item})
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (b *Bridge) GetVersion(ctx context.Context) (string, error) {
	reply, err := b.roundTrip(ctx, &Request{Op: OpVersion})
	if err != nil {
		return "", err
	}
	version, ok := reply.Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected version value: %T", reply.Value)
	}
	return version, nil
}
