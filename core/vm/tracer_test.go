package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestTracer_CapturesEveryOpcode(t *testing.T) {
	tracer := NewStructLogTracer()
	host := NewMemHost(IstanbulConfig(), 1_000_000).WithTracer(tracer)
	ctx := testContext()
	host.SetAccount(ctx.Address, nil, *uint256.NewInt(0), 0)

	code := []byte{
		byte(PUSH1), 0x01,
		byte(PUSH1), 0x02,
		byte(ADD),
		byte(STOP),
	}
	rt := NewRuntime(code, nil, ctx, IstanbulConfig())
	_, capture := rt.Run(1_000, host)

	require.Equal(t, Succeed{Reason: SucceedStopped}, capture.Exit)
	require.Len(t, tracer.Logs, 4, "one CaptureState per opcode, including STOP")
	require.Equal(t, PUSH1, tracer.Logs[0].Op)
	require.Equal(t, ADD, tracer.Logs[2].Op)
	require.Equal(t, STOP, tracer.Logs[3].Op)
}
