package instrument

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// countingExecutor counts every call that reaches the command executor.
type countingExecutor struct {
	next  CommandExecutor
	calls atomic.Int32
}

func (c *countingExecutor) Execute(ctx context.Context, name CommandName, args ...any) error {
	c.calls.Add(1)
	return c.next.Execute(ctx, name, args...)
}

func newCountingReader(t *testing.T, remote Remote, opts ...Option) (*Reader, *countingExecutor) {
	counter := &countingExecutor{}
	opts = append(opts, WithExecutorWrapper(func(next CommandExecutor) CommandExecutor {
		counter.next = next
		return counter
	}))
	return NewReader(remote, zaptest.NewLogger(t), opts...), counter
}

func TestReader_OpenThenPlateOut(t *testing.T) {
	remote := &mockRemote{}
	reader, _ := newCountingReader(t, remote)
	ctx := context.Background()

	require.NoError(t, reader.Open(ctx, "CLARIOstar"))
	require.NoError(t, reader.PlateOut(ctx))

	assert.Equal(t, []string{"CLARIOstar"}, remote.opened)
	assert.Equal(t, [][]any{{"PlateOut"}}, remote.executedCommands())
}

func TestReader_TrayAndHousekeepingCommands(t *testing.T) {
	remote := &mockRemote{}
	reader, _ := newCountingReader(t, remote)
	ctx := context.Background()

	require.NoError(t, reader.Open(ctx, "CLARIOstar"))
	require.NoError(t, reader.PlateIn(ctx))
	require.NoError(t, reader.Init(ctx))
	require.NoError(t, reader.Dummy(ctx))

	assert.Equal(t, [][]any{{"PlateIn"}, {"Init"}, {"Dummy"}}, remote.executedCommands())
}

func TestReader_SetTemperatureRejectedLocally(t *testing.T) {
	remote := &mockRemote{}
	reader, counter := newCountingReader(t, remote)
	ctx := context.Background()

	require.NoError(t, reader.Open(ctx, "CLARIOstar"))

	err := reader.SetTemperature(ctx, 46.0)
	assert.True(t, IsValidation(err))
	assert.Zero(t, counter.calls.Load())
	assert.Empty(t, remote.executedCommands())
}

func TestReader_SetTemperatureSendsDecimalString(t *testing.T) {
	remote := &mockRemote{}
	reader, counter := newCountingReader(t, remote)
	ctx := context.Background()

	require.NoError(t, reader.Open(ctx, "CLARIOstar"))
	require.NoError(t, reader.SetTemperature(ctx, 37.5))
	require.NoError(t, reader.SetTemperature(ctx, 0.1))

	assert.EqualValues(t, 2, counter.calls.Load())
	assert.Equal(t, [][]any{{"Temp", "37.5"}, {"Temp", "0.1"}}, remote.executedCommands())
}

func TestReader_RunAssayAtFixedEpoch(t *testing.T) {
	remote := &mockRemote{}
	reader, _ := newCountingReader(t, remote, WithClock(fixedClock))
	ctx := context.Background()
	outputDir := filepath.Join(t.TempDir(), "data")

	require.NoError(t, reader.Open(ctx, "CLARIOstar"))
	result, err := reader.RunAssay(ctx, NewAssayRunRequest("RNA", "/db", outputDir, ""))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outputDir, "1700000000.txt"), result.Path)
}

func TestReader_CommandsNeedSession(t *testing.T) {
	remote := &mockRemote{}
	reader, _ := newCountingReader(t, remote)

	assert.ErrorIs(t, reader.PlateIn(context.Background()), ErrNoSession)
	assert.ErrorIs(t, reader.Close(context.Background()), ErrNoSession)
}

func TestReader_Snapshot(t *testing.T) {
	remote := &mockRemote{
		GetInfoFunc: func(ctx context.Context, item string) (any, error) {
			if item == "Status" {
				return "Busy", nil
			}
			return "none", nil
		},
	}
	reader, _ := newCountingReader(t, remote)

	snap := reader.Snapshot(context.Background())
	assert.Equal(t, StatusBusy, snap.Status)
	assert.Equal(t, "none", snap.Error)
	assert.True(t, reader.IsBusy(context.Background()))

	version, err := reader.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mock 1.0", version)
}
