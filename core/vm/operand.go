package vm

import (
	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
)

// maxIndex bounds what u256ToIndex will hand back as a native int. EVM
// memory/offset arguments that need more than this many bytes to express
// could never be satisfied by any real machine, so treating them as a
// Fatal rather than silently truncating keeps the Runtime honest about
// what it can and can't do.
const maxIndex = 1<<31 - 1

// popWord pops the top stack word and returns it as a 32-byte big-endian
// array, useful for the opcodes (LOG topics, SSTORE keys/values) that
// treat their operand as an opaque word rather than a numeric offset.
func popWord(stack *Stack) ([32]byte, error) {
	v, err := stack.Pop()
	if err != nil {
		return [32]byte{}, err
	}
	return v.Bytes32(), nil
}

// pushWord pushes a 32-byte big-endian array as a stack word.
func pushWord(stack *Stack, w [32]byte) error {
	var v uint256.Int
	v.SetBytes32(w[:])
	return stack.Push(&v)
}

// pushU256 pushes a uint256.Int.
func pushU256(stack *Stack, v *uint256.Int) error {
	return stack.Push(v)
}

// pushBool pushes 1 for true, 0 for false -- the EVM boolean convention.
func pushBool(stack *Stack, b bool) error {
	if b {
		return stack.Push(uint256.NewInt(1))
	}
	return stack.Push(uint256.NewInt(0))
}

// u256ToIndex converts a stack word used as a byte offset or length into a
// native uint64. Per the Fatal/error taxonomy, a word that cannot possibly
// address real memory is not truncated -- it reports ok=false so the
// caller can raise Fatal(NotSupported) rather than silently wrapping
// around and reading the wrong bytes.
func u256ToIndex(v *uint256.Int) (idx uint64, ok bool) {
	if !v.IsUint64() {
		return 0, false
	}
	n := v.Uint64()
	if n > maxIndex {
		return 0, false
	}
	return n, true
}

// u256ToGas caps a stack word used as a CALL-family gas operand to the
// native uint64 range. Unlike u256ToIndex, values above uint64 max are not
// a Fatal condition -- the EVM caller is simply asking to forward "all
// remaining gas" (which itself never exceeds uint64), so an oversized
// operand saturates to uint64 max rather than failing the call.
func u256ToGas(v *uint256.Int) uint64 {
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}

// addressFromWord extracts the low 20 bytes of a stack word as an address,
// per the EVM convention that address-typed stack operands are words with
// the high 12 bytes zeroed.
func addressFromWord(v *uint256.Int) types.Address {
	b := v.Bytes20()
	return types.Address(b)
}

// addressToWord widens an address back out to a stack word.
func addressToWord(addr types.Address) uint256.Int {
	var v uint256.Int
	v.SetBytes(addr[:])
	return v
}
