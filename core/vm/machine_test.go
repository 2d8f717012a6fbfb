package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noPreValidate(OpCode, *Stack, uint64) error { return nil }

func TestMachine_StopsAtCodeEnd(t *testing.T) {
	m := NewMachine([]byte{}, nil)
	capture := m.Run(1000, noPreValidate)
	require.NotNil(t, capture.Exit)
	require.Equal(t, Succeed{Reason: SucceedStopped}, capture.Exit)
}

func TestMachine_ReturnCapturesMemory(t *testing.T) {
	// PUSH1 0x2a PUSH1 0x00 MSTORE PUSH1 0x20 PUSH1 0x00 RETURN
	code := []byte{
		byte(PUSH1), 0x2a,
		byte(PUSH1), 0x00,
		byte(MSTORE),
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
	m := NewMachine(code, nil)
	capture := m.Run(1000, noPreValidate)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)
	require.Len(t, m.ReturnData(), 32)
	require.Equal(t, byte(0x2a), m.ReturnData()[31])
}

func TestMachine_InvalidJumpIsError(t *testing.T) {
	// PUSH1 0x05 JUMP (no JUMPDEST at 5)
	code := []byte{byte(PUSH1), 0x05, byte(JUMP)}
	m := NewMachine(code, nil)
	capture := m.Run(1000, noPreValidate)
	require.Equal(t, Error{Reason: ErrorInvalidJump}, capture.Exit)
}

func TestMachine_ValidJumpSkipsPushImmediateData(t *testing.T) {
	// PUSH1 0x5b (pushes a byte that looks like JUMPDEST, inside PUSH data)
	// at offset 2, followed by a real JUMPDEST at offset 2... construct so
	// the only real JUMPDEST is after the PUSH, and jumping into the
	// immediate-data byte fails.
	code := []byte{
		byte(PUSH1), byte(JUMPDEST), // offsets 0,1: immediate data is 0x5b but not a real dest
		byte(JUMPDEST),              // offset 2: real JUMPDEST
		byte(STOP),
	}
	dests := analyzeJumpdests(code)
	require.False(t, dests[1], "PUSH immediate data must never be a valid jump target")
	require.True(t, dests[2])
}

func TestMachine_StackUnderflowIsError(t *testing.T) {
	code := []byte{byte(ADD)}
	m := NewMachine(code, nil)
	capture := m.Run(1000, noPreValidate)
	require.Equal(t, Error{Reason: ErrorStackUnderflow}, capture.Exit)
}

func TestMachine_SplitBudgetMatchesSingleBudget(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x01,
		byte(PUSH1), 0x02,
		byte(ADD),
		byte(PUSH1), 0x00,
		byte(MSTORE),
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}

	whole := NewMachine(code, nil)
	wholeCap := whole.Run(1000, noPreValidate)

	split := NewMachine(code, nil)
	var total uint64
	for {
		capture := split.Run(1, noPreValidate)
		total += capture.Steps
		if capture.Exit != nil {
			require.Equal(t, wholeCap.Exit, capture.Exit)
			break
		}
		require.True(t, capture.StepLimitReached)
	}
}

func TestMachine_SystemOpcodeTraps(t *testing.T) {
	code := []byte{byte(PUSH1), 0x00, byte(SLOAD)}
	m := NewMachine(code, nil)
	capture := m.Run(1000, noPreValidate)
	require.NotNil(t, capture.Trap)
	require.Equal(t, SLOAD, *capture.Trap)
}

func TestMachine_PreValidateOutOfGasStopsBeforeSystemDispatch(t *testing.T) {
	code := []byte{byte(PUSH1), 0x00, byte(SLOAD)}
	m := NewMachine(code, nil)

	calls := 0
	preValidate := func(op OpCode, stack *Stack, memSize uint64) error {
		calls++
		if op == SLOAD {
			return errOutOfGas
		}
		return nil
	}
	capture := m.Run(1000, preValidate)
	require.Equal(t, Error{Reason: ErrorOutOfGas}, capture.Exit)
	require.Equal(t, 2, calls, "preValidate must run for the system opcode too")
}
