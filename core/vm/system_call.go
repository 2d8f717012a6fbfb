package vm

import (
	"github.com/holiman/uint256"
)

// evalCall resolves the CALL family. It deliberately does not pop
// out_offset/out_len: those stay on the stack until saveReturnValue runs,
// because the amount of data actually worth copying depends on how much
// the callee returned -- information this Runtime does not have until
// after host.Call returns.
func evalCall(h *ResolveHandle, host Host, op OpCode) Control {
	rt := h.Runtime()
	stack := rt.Stack()
	mem := rt.Memory()

	rt.returnDataBuffer = nil

	kind := callKindFor(op)

	gasWord, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	toWord, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	to := addressFromWord(&toWord)

	var value uint256.Int
	if kind == CallKindCall || kind == CallKindCallCode {
		v, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		value = v
	}

	inOffset, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	inLength, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}

	inOffIdx, ok := u256ToIndex(&inOffset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	inLenIdx, ok := u256ToIndex(&inLength)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}

	// A plain CALL carrying value is the one CALL-family shape STATICCALL
	// (or any of its descendants) forbids; CALLCODE's value never leaves
	// the caller's own balance, so it is exempt.
	if rt.context.IsStatic && kind == CallKindCall && !value.IsZero() {
		return ControlExit{Reason: Error{Reason: ErrorWriteProtection}}
	}

	if err := mem.ResizeOffset(inOffIdx, inLenIdx); err != nil {
		return exitFor(err)
	}
	input, err := mem.Get(inOffIdx, inLenIdx)
	if err != nil {
		return exitFor(err)
	}

	childCtx := ChildContext(kind, rt.context, to, value)

	var transfer *Transfer
	if kind == CallKindCall || kind == CallKindCallCode {
		target := to
		if kind == CallKindCallCode {
			target = rt.context.Address
		}
		transfer = &Transfer{Source: rt.context.Address, Target: target, Value: value}
	}

	gas := u256ToGas(&gasWord)

	result := host.Call(kind, to, transfer, input, gas, childCtx)
	rt.returnDataBuffer = result.ReturnData

	return rt.saveReturnValue(result.Reason, result.ReturnData)
}

func callKindFor(op OpCode) CallKind {
	switch op {
	case CALL:
		return CallKindCall
	case CALLCODE:
		return CallKindCallCode
	case DELEGATECALL:
		return CallKindDelegateCall
	case STATICCALL:
		return CallKindStaticCall
	default:
		return CallKindCall
	}
}

// saveReturnValue is the sole place a CALL-family trap's result is turned
// back into stack and memory state. It now pops out_offset/out_len (left
// untouched by evalCall) and copies min(out_len, len(returnData)) bytes
// into memory -- the asymmetry between Succeed, Revert, and Error below
// mirrors how much the caller is allowed to trust the copied bytes:
//
//   - Succeed: push 1, copy the data (a short copy past what the callee
//     returned is not possible since out_len is only ever shrunk to fit).
//   - Revert: push 0, but still copy the data -- revert reasons are
//     meant to be inspected.
//   - Error: push 0, copy nothing -- an error leaves no trustworthy data.
//   - Fatal: propagate straight through as this Runtime's own Exit.
func (rt *Runtime) saveReturnValue(reason ExitReason, data []byte) Control {
	stack := rt.Stack()
	mem := rt.Memory()

	outOffset, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	outLength, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}

	if _, ok := reason.(Fatal); ok {
		if err := pushU256(stack, uint256.NewInt(0)); err != nil {
			return exitFor(err)
		}
		return ControlExit{Reason: reason}
	}

	outOffIdx, ok := u256ToIndex(&outOffset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	outLenIdx, ok := u256ToIndex(&outLength)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}

	copyLen := outLenIdx
	if uint64(len(data)) < copyLen {
		copyLen = uint64(len(data))
	}

	switch reason.(type) {
	case Succeed:
		copyOK := true
		if copyLen > 0 {
			if err := mem.ResizeOffset(outOffIdx, copyLen); err != nil {
				copyOK = false
			} else if err := mem.Set(outOffIdx, copyLen, data[:copyLen]); err != nil {
				copyOK = false
			}
		}
		if copyOK {
			err = pushU256(stack, uint256.NewInt(1))
		} else {
			err = pushU256(stack, uint256.NewInt(0))
		}
		if err != nil {
			return exitFor(err)
		}
	case Revert:
		if copyLen > 0 {
			if err := mem.ResizeOffset(outOffIdx, copyLen); err == nil {
				mem.Set(outOffIdx, copyLen, data[:copyLen])
			}
		}
		if err := pushU256(stack, uint256.NewInt(0)); err != nil {
			return exitFor(err)
		}
	default: // Error
		if err := pushU256(stack, uint256.NewInt(0)); err != nil {
			return exitFor(err)
		}
	}

	rt.machine.pc++
	return ControlContinue{}
}
