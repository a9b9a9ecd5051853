package instrument

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  any
		want DeviceStatus
	}{
		{"Busy", StatusBusy},
		{"  Busy\r\n", StatusBusy},
		{"busy", StatusUnknown},
		{"BUSY", StatusUnknown},
		{"Ready", StatusReady},
		{"Ready ", StatusReady},
		{"Error", StatusError},
		{"", StatusUnknown},
		{"Running", StatusUnknown},
		{42, StatusUnknown},
		{nil, StatusUnknown},
		{[]byte("Busy"), StatusUnknown},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeStatus(tc.raw), "raw %#v", tc.raw)
	}
}

func statusMonitor(t *testing.T, raw any, err error) *Monitor {
	remote := &mockRemote{
		GetInfoFunc: func(ctx context.Context, item string) (any, error) {
			return raw, err
		},
	}
	return NewMonitor(remote, zaptest.NewLogger(t))
}

func TestMonitor_IsBusy(t *testing.T) {
	ctx := context.Background()

	assert.True(t, statusMonitor(t, "Busy", nil).IsBusy(ctx))
	assert.True(t, statusMonitor(t, " Busy ", nil).IsBusy(ctx))

	for _, raw := range []any{"Ready", "Error", "busy", "garbage", 1, nil} {
		assert.False(t, statusMonitor(t, raw, nil).IsBusy(ctx), "raw %#v", raw)
	}
}

func TestMonitor_StatusDiffersForNonBusy(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, StatusReady, statusMonitor(t, "Ready", nil).Status(ctx))
	assert.Equal(t, StatusError, statusMonitor(t, "Error", nil).Status(ctx))
	assert.Equal(t, StatusUnknown, statusMonitor(t, 3.14, nil).Status(ctx))
}

func TestMonitor_QueryFailureDegradesToUnknown(t *testing.T) {
	m := statusMonitor(t, nil, errors.New("bridge down"))

	assert.Equal(t, StatusUnknown, m.Status(context.Background()))
	assert.Equal(t, "unknown", m.Error(context.Background()))
}

func TestMonitor_Error(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "Plate carrier blocked", statusMonitor(t, "Plate carrier blocked \n", nil).Error(ctx))
	assert.Equal(t, "", statusMonitor(t, "", nil).Error(ctx))
	assert.Equal(t, "unknown", statusMonitor(t, 17, nil).Error(ctx))
}

func TestMonitor_QueriesNamedFields(t *testing.T) {
	remote := &mockRemote{}
	m := NewMonitor(remote, zaptest.NewLogger(t))

	m.Status(context.Background())
	m.Error(context.Background())
	m.IsBusy(context.Background())

	assert.Equal(t, []string{"Status", "Error", "Status"}, remote.queried)
}

func TestDeviceStatusText(t *testing.T) {
	text, err := StatusBusy.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "busy", string(text))
	assert.Equal(t, "unknown", DeviceStatus(99).String())
}
