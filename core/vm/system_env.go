package vm

import (
	"github.com/holiman/uint256"
)

// evalEnvironment resolves the environmental opcodes: everything that
// reads a fixed piece of call or block metadata rather than mutating
// state. Each one pops nothing (besides the opcodes that take an address
// operand, and BLOCKHASH/BLOBHASH, which pop a number) and pushes exactly
// one word.
func evalEnvironment(h *ResolveHandle, host Host, op OpCode) Control {
	rt := h.Runtime()
	stack := rt.Stack()

	switch op {
	case ADDRESS:
		return pushAndAdvance(rt, addressToWord(rt.context.Address))
	case CALLER:
		return pushAndAdvance(rt, addressToWord(rt.context.Caller))
	case CALLVALUE:
		return pushAndAdvance(rt, rt.context.ApparentValue)
	case ORIGIN:
		return pushAndAdvance(rt, addressToWord(host.Origin()))
	case GASPRICE:
		return pushAndAdvance(rt, host.GasPrice())
	case CHAINID:
		return pushAndAdvance(rt, host.ChainID())
	case TIMESTAMP:
		return pushAndAdvance(rt, *uint256.NewInt(host.BlockTimestamp()))
	case NUMBER:
		return pushAndAdvance(rt, *uint256.NewInt(host.BlockNumber()))
	case PREVRANDAO:
		return pushAndAdvance(rt, host.BlockDifficulty())
	case GASLIMIT:
		return pushAndAdvance(rt, *uint256.NewInt(host.BlockGasLimit()))
	case BASEFEE:
		return pushAndAdvance(rt, host.BlockBaseFee())
	case BLOBBASEFEE:
		return pushAndAdvance(rt, *uint256.NewInt(0))
	case COINBASE:
		return pushAndAdvance(rt, addressToWord(host.BlockCoinbase()))

	case SELFBALANCE:
		return pushAndAdvance(rt, host.Balance(rt.context.Address))

	case BALANCE:
		addrWord, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		addr := addressFromWord(&addrWord)
		return pushAndAdvance(rt, host.Balance(addr))

	case EXTCODESIZE:
		addrWord, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		addr := addressFromWord(&addrWord)
		return pushAndAdvance(rt, *uint256.NewInt(host.CodeSize(addr)))

	case EXTCODEHASH:
		addrWord, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		addr := addressFromWord(&addrWord)
		hash := host.CodeHash(addr)
		var w [32]byte
		copy(w[:], hash[:])
		if err := pushWord(stack, w); err != nil {
			return exitFor(err)
		}
		rt.machine.pc++
		return ControlContinue{}

	case RETURNDATASIZE:
		return pushAndAdvance(rt, *uint256.NewInt(uint64(len(rt.returnDataBuffer))))

	case BLOBHASH:
		idxWord, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		_ = idxWord
		return pushAndAdvance(rt, *uint256.NewInt(0))

	case BLOCKHASH:
		numWord, err := stack.Pop()
		if err != nil {
			return exitFor(err)
		}
		num, ok := u256ToIndex(&numWord)
		if !ok {
			return pushAndAdvance(rt, *uint256.NewInt(0))
		}
		hash := host.BlockHash(num)
		var w [32]byte
		copy(w[:], hash[:])
		if err := pushWord(stack, w); err != nil {
			return exitFor(err)
		}
		rt.machine.pc++
		return ControlContinue{}

	default:
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
}

func pushAndAdvance(rt *Runtime, v uint256.Int) Control {
	if err := rt.Stack().Push(&v); err != nil {
		return exitFor(err)
	}
	rt.machine.pc++
	return ControlContinue{}
}
