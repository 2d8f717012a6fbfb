package vm

import (
	"github.com/rome-protocol/goevm/core/types"
)

// evalStorage resolves SLOAD/SSTORE against the Host's persistent storage,
// keyed by the Runtime's own Context.Address (never the caller).
func evalStorage(h *ResolveHandle, host Host, op OpCode) Control {
	rt := h.Runtime()
	stack := rt.Stack()

	switch op {
	case SLOAD:
		keyWord, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		key := types.Hash(keyWord)
		val := host.Storage(rt.context.Address, key)
		var w [32]byte
		copy(w[:], val[:])
		if err := pushWord(stack, w); err != nil {
			return exitFor(err)
		}
	case SSTORE:
		keyWord, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		valWord, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		host.SetStorage(rt.context.Address, types.Hash(keyWord), types.Hash(valWord))
	}
	rt.machine.pc++
	return ControlContinue{}
}

// evalTransientStorage resolves TLOAD/TSTORE (EIP-1153): identical shape
// to evalStorage but against the Host's transient storage, which is
// cleared at the end of a transaction rather than persisted.
func evalTransientStorage(h *ResolveHandle, host Host, op OpCode) Control {
	rt := h.Runtime()
	stack := rt.Stack()

	switch op {
	case TLOAD:
		keyWord, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		key := types.Hash(keyWord)
		val := host.TransientStorage(rt.context.Address, key)
		var w [32]byte
		copy(w[:], val[:])
		if err := pushWord(stack, w); err != nil {
			return exitFor(err)
		}
	case TSTORE:
		keyWord, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		valWord, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		host.SetTransientStorage(rt.context.Address, types.Hash(keyWord), types.Hash(valWord))
	}
	rt.machine.pc++
	return ControlContinue{}
}
