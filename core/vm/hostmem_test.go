package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rome-protocol/goevm/core/types"
)

// calleeAddressAndCallerCode returns ADDRESS followed by CALLER, each MSTOREd so the
// caller can inspect which Context the callee actually observed.
func calleeAddressAndCallerCode() []byte {
	return []byte{
		byte(ADDRESS),
		byte(PUSH1), 0x00,
		byte(MSTORE),
		byte(CALLER),
		byte(PUSH1), 0x20,
		byte(MSTORE),
		byte(PUSH1), 0x40,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
}

func buildCallCode(op OpCode, target types.Address) []byte {
	code := []byte{
		byte(PUSH1), 0x40, // retLen
		byte(PUSH1), 0x00, // retOffset
		byte(PUSH1), 0x00, // argsLen
		byte(PUSH1), 0x00, // argsOffset
	}
	if op == CALL || op == CALLCODE {
		code = append(code, byte(PUSH1), 0x00) // value
	}
	code = append(code, byte(PUSH20))
	code = append(code, target[:]...)
	code = append(code, byte(PUSH3), 0x0f, 0x42, 0x40) // gas
	code = append(code, byte(op))
	code = append(code, byte(POP))
	code = append(code,
		byte(PUSH1), 0x40,
		byte(PUSH1), 0x00,
		byte(RETURN),
	)
	return code
}

func TestHostMem_DelegateCallPreservesCallerContext(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 10_000_000)
	callerAddr := types.HexToAddress("0x00000000000000000000000000000000000c0c")
	calleeAddr := types.HexToAddress("0x00000000000000000000000000000000000d0d")
	originalCaller := types.HexToAddress("0x000000000000000000000000000000000000aa")

	host.SetAccount(callerAddr, nil, *uint256.NewInt(0), 0)
	host.SetAccount(calleeAddr, calleeAddressAndCallerCode(), *uint256.NewInt(0), 0)

	ctx := Context{Address: callerAddr, Caller: originalCaller}
	rt := NewRuntime(buildCallCode(DELEGATECALL, calleeAddr), nil, ctx, IstanbulConfig())
	_, capture := rt.Run(1_000_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)

	out := rt.MachineReturnData()
	require.Len(t, out, 64)

	gotAddr := types.BytesToAddress(out[12:32])
	gotCaller := types.BytesToAddress(out[44:64])

	require.Equal(t, callerAddr, gotAddr, "DELEGATECALL must run under the caller's own address")
	require.Equal(t, originalCaller, gotCaller, "DELEGATECALL must forward the caller's own CALLER")
}

func TestHostMem_CallCodeRunsCalleeCodeUnderCallerAddress(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 10_000_000)
	callerAddr := types.HexToAddress("0x00000000000000000000000000000000000c0c")
	calleeAddr := types.HexToAddress("0x00000000000000000000000000000000000d0d")

	host.SetAccount(callerAddr, nil, *uint256.NewInt(0), 0)
	host.SetAccount(calleeAddr, calleeAddressAndCallerCode(), *uint256.NewInt(0), 0)

	ctx := Context{Address: callerAddr, Caller: types.HexToAddress("0x00000000000000000000000000000000000aaa")}
	rt := NewRuntime(buildCallCode(CALLCODE, calleeAddr), nil, ctx, IstanbulConfig())
	_, capture := rt.Run(1_000_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)

	out := rt.MachineReturnData()
	gotAddr := types.BytesToAddress(out[12:32])
	gotCaller := types.BytesToAddress(out[44:64])

	require.Equal(t, callerAddr, gotAddr, "CALLCODE must still run under the caller's own address")
	require.Equal(t, callerAddr, gotCaller, "CALLCODE's callee sees the caller itself as CALLER, not the original caller")
}

func TestHostMem_CallOutRangeLargerThanReturnDataCopiesOnlyWhatCameBack(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 10_000_000)
	callerAddr := types.HexToAddress("0x00000000000000000000000000000000000c0c")
	calleeAddr := types.HexToAddress("0x00000000000000000000000000000000000d0d")

	// Callee returns exactly 1 byte (0x42).
	calleeCode := []byte{
		byte(PUSH1), 0x42,
		byte(PUSH1), 0x00,
		byte(MSTORE8),
		byte(PUSH1), 0x01,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
	host.SetAccount(callerAddr, nil, *uint256.NewInt(0), 0)
	host.SetAccount(calleeAddr, calleeCode, *uint256.NewInt(0), 0)

	// Caller requests a 32-byte out range even though the callee only
	// returns 1 byte; the copy must be exactly min(outLen, len(returnData)).
	code := []byte{
		byte(PUSH1), 0x20, // retLen = 32 (larger than what comes back)
		byte(PUSH1), 0x00, // retOffset
		byte(PUSH1), 0x00, // argsLen
		byte(PUSH1), 0x00, // argsOffset
		byte(PUSH1), 0x00, // value
		byte(PUSH20),
	}
	code = append(code, calleeAddr[:]...)
	code = append(code, byte(PUSH3), 0x0f, 0x42, 0x40, byte(CALL), byte(POP))
	code = append(code,
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(RETURN),
	)

	ctx := Context{Address: callerAddr}
	rt := NewRuntime(code, nil, ctx, IstanbulConfig())
	_, capture := rt.Run(1_000_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)

	out := rt.MachineReturnData()
	require.Len(t, out, 32)
	require.Equal(t, byte(0x42), out[0])
	for _, b := range out[1:] {
		require.Equal(t, byte(0), b)
	}
}

func TestHostMem_AccessListWarmsAddressOnCall(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 10_000_000)
	target := types.HexToAddress("0x00000000000000000000000000000000000d0d")
	require.False(t, host.accessList.ContainsAddress(target))

	// CALL's operands: gas on top, target address one below it.
	st := NewStack()
	w := addressToWord(target)
	require.NoError(t, st.Push(&w))
	require.NoError(t, st.Push(uint256.NewInt(100000)))
	_, err := host.gasCost(CALL, st, 0, Context{})
	require.NoError(t, err)
	require.True(t, host.accessList.ContainsAddress(target))
}

func TestHostMem_SloadChargesColdOnceThenWarm(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 10_000_000)
	ctx := Context{Address: types.HexToAddress("0x00000000000000000000000000000000000c0c")}

	st := NewStack()
	require.NoError(t, st.Push(uint256.NewInt(7)))
	coldCost, err := host.gasCost(SLOAD, st, 0, ctx)
	require.NoError(t, err)
	require.Equal(t, WarmStorageReadCost+ColdSloadCost-WarmStorageReadCost, coldCost)

	require.NoError(t, st.Push(uint256.NewInt(7)))
	warmCost, err := host.gasCost(SLOAD, st, 0, ctx)
	require.NoError(t, err)
	require.Equal(t, WarmStorageReadCost, warmCost)
	require.Less(t, warmCost, coldCost, "a warm slot must be cheaper than the first, cold access")
}
