package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestStack_PushPop(t *testing.T) {
	st := NewStack()
	require.NoError(t, st.Push(uint256.NewInt(42)))
	v, err := st.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(42), v.Uint64())
}

func TestStack_PopEmptyUnderflows(t *testing.T) {
	st := NewStack()
	_, err := st.Pop()
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestStack_OverflowAtLimit(t *testing.T) {
	st := NewStack()
	for i := 0; i < stackLimit; i++ {
		require.NoError(t, st.Push(uint256.NewInt(uint64(i))))
	}
	require.ErrorIs(t, st.Push(uint256.NewInt(1)), ErrStackOverflow)
}

func TestStack_BackIsZeroIndexedFromTop(t *testing.T) {
	st := NewStack()
	require.NoError(t, st.Push(uint256.NewInt(1)))
	require.NoError(t, st.Push(uint256.NewInt(2)))
	require.NoError(t, st.Push(uint256.NewInt(3)))

	top, err := st.Back(0)
	require.NoError(t, err)
	require.Equal(t, uint64(3), top.Uint64())

	second, err := st.Back(1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.Uint64())

	_, err = st.Back(3)
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestStack_SwapAndDup(t *testing.T) {
	st := NewStack()
	require.NoError(t, st.Push(uint256.NewInt(1)))
	require.NoError(t, st.Push(uint256.NewInt(2)))

	require.NoError(t, st.Swap(1))
	top, _ := st.Back(0)
	require.Equal(t, uint64(1), top.Uint64())

	require.NoError(t, st.Dup(1))
	require.Equal(t, 3, st.Len())
	top, _ = st.Back(0)
	require.Equal(t, uint64(1), top.Uint64())
}

func TestStack_SwapUnderflow(t *testing.T) {
	st := NewStack()
	require.NoError(t, st.Push(uint256.NewInt(1)))
	require.ErrorIs(t, st.Swap(1), ErrStackUnderflow)
}
