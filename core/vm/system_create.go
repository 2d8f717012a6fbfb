package vm

import (
	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
)

// evalCreate resolves CREATE/CREATE2: pop the init code's (value,
// code_offset, code_length) -- and, for CREATE2, its salt -- read the
// code out of memory, ask the Host to run it, and install the result via
// saveCreatedAddress.
func evalCreate(h *ResolveHandle, host Host, op OpCode) Control {
	rt := h.Runtime()
	stack := rt.Stack()
	mem := rt.Memory()

	rt.returnDataBuffer = nil

	value, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	codeOffset, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	codeLength, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}

	var salt *uint256.Int
	scheme := CreateSchemeLegacy
	if op == CREATE2 {
		s, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		salt = &s
		scheme = CreateSchemeCreate2
	}

	offIdx, ok := u256ToIndex(&codeOffset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&codeLength)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := mem.ResizeOffset(offIdx, lenIdx); err != nil {
		return exitFor(err)
	}
	initCode, err := mem.Get(offIdx, lenIdx)
	if err != nil {
		return exitFor(err)
	}

	// CREATE2's address derivation needs the init code's hash; computing
	// it here (rather than leaving it to the Host) keeps the Host's
	// responsibility limited to bookkeeping (nonce, collision checks),
	// matching the boundary in host.go's doc comment. The hash is handed
	// to host.Create below rather than thrown away.
	var codeHash types.Hash
	if scheme == CreateSchemeCreate2 {
		codeHash = host.Keccak256(initCode)
	}

	result := host.Create(rt.context.Address, scheme, salt, codeHash, value, initCode, host.GasLeft(), rt.context)
	rt.returnDataBuffer = result.ReturnData

	return rt.saveCreatedAddress(result.Reason, result.Address)
}

// saveCreatedAddress is the sole place a CREATE/CREATE2 trap's result is
// turned back into stack state: Succeed/Revert/Error all push the
// deployed address (zero on anything but Succeed) and let the Machine
// keep stepping; Fatal propagates straight through as this Runtime's own
// terminal Exit rather than being reflected as a pushed value, because a
// Fatal means the whole call tree is unrecoverable, not just this frame.
func (rt *Runtime) saveCreatedAddress(reason ExitReason, addr types.Address) Control {
	switch reason.(type) {
	case Fatal:
		if err := pushU256(rt.Stack(), uint256.NewInt(0)); err != nil {
			return exitFor(err)
		}
		return ControlExit{Reason: reason}
	default:
		var word uint256.Int
		if _, ok := reason.(Succeed); ok {
			word = addressToWord(addr)
		}
		if err := pushU256(rt.Stack(), &word); err != nil {
			return exitFor(err)
		}
		rt.machine.pc++
		return ControlContinue{}
	}
}
