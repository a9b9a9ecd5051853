package instrument

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type CommandName string

const (
	CommandDummy    CommandName = "Dummy"
	CommandInit     CommandName = "Init"
	CommandPlateIn  CommandName = "PlateIn"
	CommandPlateOut CommandName = "PlateOut"
	CommandTemp     CommandName = "Temp"
	CommandRun      CommandName = "Run"
)

// Command is one instruction for the device. The device binds arguments by
// position only, so Args order is significant.
type Command struct {
	Name CommandName
	Args []any
}

// Elements returns the sequence handed to the device: name first, then args.
func (c Command) Elements() []any {
	elements := make([]any, 0, len(c.Args)+1)
	elements = append(elements, string(c.Name))
	return append(elements, c.Args...)
}

// CommandExecutor dispatches commands over an open session.
type CommandExecutor interface {
	Execute(ctx context.Context, name CommandName, args ...any) error
}

// Executor is the only path by which state-changing commands reach the device.
// It does not open sessions on its own.
type Executor struct {
	remote   Remote
	sessions SessionSource
	logger   *zap.Logger
}

func NewExecutor(remote Remote, sessions SessionSource, logger *zap.Logger) *Executor {
	return &Executor{
		remote:   remote,
		sessions: sessions,
		logger:   logger,
	}
}

// Execute sends the command and blocks until the device reports completion.
// Once dispatched a command cannot be aborted; ctx is only checked beforehand.
func (e *Executor) Execute(ctx context.Context, name CommandName, args ...any) error {
	session := e.sessions.Session()
	if !session.IsOpen() {
		return &ConnectionError{Op: "execute", Err: ErrNoSession}
	}
	if err := ctx.Err(); err != nil {
		return &CommandError{Command: name, Err: err}
	}

	cmd := Command{Name: name, Args: args}

	e.logger.Info("Dispatching command",
		zap.String("endpoint", session.Endpoint()),
		zap.String("command", string(name)),
		zap.Any("args", args))

	code, err := e.remote.ExecuteAndWait(ctx, cmd.Elements())
	if err != nil {
		return &CommandError{Command: name, Err: fmt.Errorf("dispatch: %w", err)}
	}
	if code != 0 {
		e.logger.Warn("Command rejected by device",
			zap.String("command", string(name)),
			zap.Int("code", code))
		return &CommandError{Command: name, Code: code}
	}

	return nil
}
