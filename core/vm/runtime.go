package vm

import (
	"github.com/holiman/uint256"
)

// Runtime is the execution-state object a caller drives to completion. It
// owns a Machine (stack, memory, PC, code) and, while running, borrows a
// Host (blockchain state). Runtime itself never touches gas accounting --
// that is the Host's PreValidate hook's job -- and it never recurses into
// Go's call stack for CALL/CREATE: those opcodes trap out of the Machine
// and are resolved here by asking the Host to run the child, which the
// reference Host (hostmem.go) does by driving a nested Runtime of its own.
type Runtime struct {
	machine *Machine
	context Context
	config  Config

	returnDataBuffer []byte
}

// NewRuntime constructs a Runtime ready to execute code against input,
// running as ctx, gated by cfg.
func NewRuntime(code []byte, input []byte, ctx Context, cfg Config) *Runtime {
	return &Runtime{
		machine: NewMachine(code, input),
		context: ctx,
		config:  cfg,
	}
}

// Context returns the Runtime's execution context.
func (rt *Runtime) Context() Context { return rt.context }

// Stack returns the underlying Machine's operand stack.
func (rt *Runtime) Stack() *Stack { return rt.machine.Stack() }

// Memory returns the underlying Machine's byte memory.
func (rt *Runtime) Memory() *Memory { return rt.machine.Memory() }

// ReturnDataBuffer returns the bytes most recently installed by a resolved
// CALL/CREATE trap, per RETURNDATASIZE/RETURNDATACOPY. evalCall and
// evalCreate are its only writers: each clears it before popping operands
// and installs the Host's returned data after the child finishes.
func (rt *Runtime) ReturnDataBuffer() []byte { return rt.returnDataBuffer }

// MachineReturnData returns the bytes this Runtime's own RETURN/REVERT
// placed in memory, handed to the Runtime's own caller on exit.
func (rt *Runtime) MachineReturnData() []byte { return rt.machine.ReturnData() }

// Finished reports the Runtime's sticky terminal state, if any.
func (rt *Runtime) Finished() (ExitReason, bool) { return rt.machine.Finished() }

// Run steps the Machine, dispatching any system-opcode Traps to the Host,
// until it reaches a terminal Exit or exhausts maxSteps. The returned step
// count is honest: resuming with the remaining budget after a
// StepLimitReached report, rather than a single larger budget, reaches the
// identical final state.
func (rt *Runtime) Run(maxSteps uint64, host Host) (uint64, MachineCapture) {
	var total uint64
	preValidate := func(op OpCode, stack *Stack, memorySize uint64) error {
		return host.PreValidate(op, stack, memorySize, rt.context)
	}

	for total < maxSteps {
		result := rt.machine.Run(maxSteps-total, preValidate)
		total += result.Steps

		switch {
		case result.StepLimitReached:
			return total, MachineCapture{Steps: total, StepLimitReached: true}
		case result.Exit != nil:
			return total, MachineCapture{Steps: total, Exit: result.Exit}
		case result.Trap != nil:
			control := rt.resolveTrap(*result.Trap, host)
			switch c := control.(type) {
			case ControlExit:
				rt.machine.finish(c.Reason)
				return total, MachineCapture{Steps: total, Exit: c.Reason}
			case ControlContinue:
				continue
			default:
				return total, MachineCapture{Steps: total, Exit: Fatal{Reason: FatalUnhandledInterrupt}}
			}
		default:
			return total, MachineCapture{Steps: total, Exit: Fatal{Reason: FatalUnhandledInterrupt}}
		}
	}
	return total, MachineCapture{Steps: total, StepLimitReached: true}
}

// resolveTrap dispatches a single system opcode to its evaluator. The
// evaluator is handed a ResolveHandle borrowing this Runtime rather than
// the Runtime itself, so every place that mutates the stack, memory, or
// return-data buffer after a trap is visibly doing so under the same
// borrow discipline the Machine used while it was still running.
func (rt *Runtime) resolveTrap(op OpCode, host Host) Control {
	if rt.context.IsStatic && isStaticWriteOp(op) {
		return ControlExit{Reason: Error{Reason: ErrorWriteProtection}}
	}

	handle := newResolveHandle(rt)

	switch {
	case op == KECCAK256:
		return evalSha3(handle, host)
	case isEnvironmentOp(op):
		return evalEnvironment(handle, host, op)
	case op == EXTCODECOPY:
		return evalExtCodeCopy(handle, host)
	case op == RETURNDATACOPY:
		return evalReturnDataCopy(handle)
	case op == LOG0 || op == LOG1 || op == LOG2 || op == LOG3 || op == LOG4:
		return evalLog(handle, host, op)
	case op == SLOAD || op == SSTORE:
		return evalStorage(handle, host, op)
	case op == TLOAD || op == TSTORE:
		return evalTransientStorage(handle, host, op)
	case op == SELFDESTRUCT:
		return evalSelfdestruct(handle, host)
	case op == CREATE || op == CREATE2:
		return evalCreate(handle, host, op)
	case op == CALL || op == CALLCODE || op == DELEGATECALL || op == STATICCALL:
		return evalCall(handle, host, op)
	case op == GAS:
		if err := pushU256(rt.Stack(), uint256.NewInt(host.GasLeft())); err != nil {
			return exitFor(err)
		}
		rt.machine.pc++
		return ControlContinue{}
	default:
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
}

// isStaticWriteOp reports whether op unconditionally mutates state and is
// therefore forbidden inside a read-only (STATICCALL-descended) frame. The
// CALL-family's narrower "no value transfer" restriction is checked in
// evalCall instead, since CALLCODE/DELEGATECALL/STATICCALL all reuse the
// same trap but are not blanket-forbidden here.
func isStaticWriteOp(op OpCode) bool {
	switch op {
	case SSTORE, TSTORE, LOG0, LOG1, LOG2, LOG3, LOG4, CREATE, CREATE2, SELFDESTRUCT:
		return true
	default:
		return false
	}
}

func isEnvironmentOp(op OpCode) bool {
	switch op {
	case ADDRESS, BALANCE, ORIGIN, CALLER, CALLVALUE, GASPRICE,
		SELFBALANCE, CHAINID, TIMESTAMP, NUMBER, PREVRANDAO, GASLIMIT,
		BASEFEE, BLOCKHASH, EXTCODESIZE, EXTCODEHASH, RETURNDATASIZE,
		BLOBHASH, BLOBBASEFEE, COINBASE:
		return true
	default:
		return false
	}
}
