package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestOperand_U256ToIndexRejectsAboveMaxIndex(t *testing.T) {
	v := uint256.NewInt(maxIndex + 1)
	_, ok := u256ToIndex(v)
	require.False(t, ok)
}

func TestOperand_U256ToIndexAcceptsMaxIndex(t *testing.T) {
	v := uint256.NewInt(maxIndex)
	idx, ok := u256ToIndex(v)
	require.True(t, ok)
	require.Equal(t, uint64(maxIndex), idx)
}

func TestOperand_U256ToGasSaturatesAboveUint64(t *testing.T) {
	var v uint256.Int
	v.SetAllOne() // far beyond uint64 range
	require.Equal(t, ^uint64(0), u256ToGas(&v))
}

func TestOperand_U256ToGasPassesThroughWithinRange(t *testing.T) {
	// A value well above maxIndex (2^31-1) but still a legitimate uint64
	// gas amount must be forwarded as-is, not rejected the way u256ToIndex
	// rejects it.
	v := uint256.NewInt(1 << 40)
	require.Equal(t, uint64(1<<40), u256ToGas(v))
}
