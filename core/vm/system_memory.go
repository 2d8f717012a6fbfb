package vm

import (
	"github.com/rome-protocol/goevm/core/types"
)

// evalSha3 resolves KECCAK256: pop (offset, length), read that memory
// range (resizing first), hash it through the Host (which may cache or
// accelerate the hash), and push the digest.
func evalSha3(h *ResolveHandle, host Host) Control {
	rt := h.Runtime()
	stack := rt.Stack()
	mem := rt.Memory()

	offset, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	offIdx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&length)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := mem.ResizeOffset(offIdx, lenIdx); err != nil {
		return exitFor(err)
	}
	data, err := mem.Get(offIdx, lenIdx)
	if err != nil {
		return exitFor(err)
	}

	hash := host.Keccak256(data)
	var w [32]byte
	copy(w[:], hash[:])
	if err := pushWord(stack, w); err != nil {
		return exitFor(err)
	}
	rt.machine.pc++
	return ControlContinue{}
}

// evalExtCodeCopy resolves EXTCODECOPY: pop (address, destOffset, offset,
// length), zero-pad-copy the account's code into memory.
func evalExtCodeCopy(h *ResolveHandle, host Host) Control {
	rt := h.Runtime()
	stack := rt.Stack()
	mem := rt.Memory()

	addrWord, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	dst, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	off, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}

	dstIdx, ok := u256ToIndex(&dst)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	offIdx, ok := u256ToIndex(&off)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&length)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}

	if lenIdx > 0 {
		if err := mem.ResizeOffset(dstIdx, lenIdx); err != nil {
			return exitFor(err)
		}
		addr := addressFromWord(&addrWord)
		code := host.Code(addr)
		if err := mem.CopyLarge(dstIdx, offIdx, lenIdx, code); err != nil {
			return exitFor(err)
		}
	}
	rt.machine.pc++
	return ControlContinue{}
}

// evalReturnDataCopy resolves RETURNDATACOPY: pop (destOffset, offset,
// length). Unlike EXTCODECOPY this never zero-pads: a read that runs past
// the end of the return-data buffer is an explicit ErrorOutOfOffset, not a
// silently truncated copy, checked before any memory is grown.
func evalReturnDataCopy(h *ResolveHandle) Control {
	rt := h.Runtime()
	stack := rt.Stack()
	mem := rt.Memory()

	dst, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	off, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}

	dstIdx, ok := u256ToIndex(&dst)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	offIdx, ok := u256ToIndex(&off)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&length)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}

	buf := rt.returnDataBuffer
	if offIdx+lenIdx > uint64(len(buf)) || offIdx+lenIdx < offIdx {
		return ControlExit{Reason: Error{Reason: ErrorOutOfOffset}}
	}

	if lenIdx > 0 {
		if err := mem.ResizeOffset(dstIdx, lenIdx); err != nil {
			return exitFor(err)
		}
		if err := mem.Set(dstIdx, lenIdx, buf[offIdx:offIdx+lenIdx]); err != nil {
			return exitFor(err)
		}
	}
	rt.machine.pc++
	return ControlContinue{}
}

// evalLog resolves LOG0..LOG4: pop (offset, length, topic_1..topic_n),
// read the memory range, and forward it to the Host as a log entry.
func evalLog(h *ResolveHandle, host Host, op OpCode) Control {
	rt := h.Runtime()
	stack := rt.Stack()
	mem := rt.Memory()

	numTopics := int(op - LOG0)

	offset, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}

	topics := make([]types.Hash, numTopics)
	for i := 0; i < numTopics; i++ {
		w, err := popWord(stack)
		if err != nil {
			return exitFor(err)
		}
		topics[i] = types.BytesToHash(w[:])
	}

	offIdx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&length)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := mem.ResizeOffset(offIdx, lenIdx); err != nil {
		return exitFor(err)
	}
	data, err := mem.Get(offIdx, lenIdx)
	if err != nil {
		return exitFor(err)
	}

	host.Log(rt.context.Address, topics, data)
	rt.machine.pc++
	return ControlContinue{}
}
