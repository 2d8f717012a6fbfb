package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/rome-protocol/goevm/core/types"
)

func TestSystemEnv_BlockMetadataOpcodes(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 1_000_000)
	host.SetChainID(*uint256.NewInt(1337))
	host.SetBlockNumber(42)
	host.SetBlockTimestamp(100)
	host.SetBlockGasLimit(30_000_000)
	host.SetOrigin(types.HexToAddress("0x00000000000000000000000000000000000abc"))

	ctx := testContext()
	host.SetAccount(ctx.Address, nil, *uint256.NewInt(0), 0)

	code := []byte{
		byte(CHAINID),
		byte(NUMBER),
		byte(TIMESTAMP),
		byte(GASLIMIT),
		byte(ORIGIN),
		byte(PUSH1), 0x00,
		byte(MSTORE), // ORIGIN
		byte(PUSH1), 0x20,
		byte(MSTORE), // GASLIMIT
		byte(PUSH1), 0x40,
		byte(MSTORE), // TIMESTAMP
		byte(PUSH1), 0x60,
		byte(MSTORE), // NUMBER
		byte(PUSH1), 0x80,
		byte(MSTORE), // CHAINID
		byte(PUSH1), 0xa0,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
	rt := NewRuntime(code, nil, ctx, IstanbulConfig())
	_, capture := rt.Run(10_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)

	out := rt.MachineReturnData()
	require.Len(t, out, 0xa0)
	require.Equal(t, byte(42), out[0x7f])   // NUMBER
	require.Equal(t, byte(100), out[0x5f])  // TIMESTAMP
	require.Equal(t, byte(1337&0xff), out[0x9f]) // CHAINID low byte
}

func TestSystemEnv_SelfbalanceReflectsHostBalance(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 1_000_000)
	ctx := testContext()
	host.SetAccount(ctx.Address, nil, *uint256.NewInt(77), 0)

	code := []byte{
		byte(SELFBALANCE),
		byte(PUSH1), 0x00,
		byte(MSTORE),
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
	rt := NewRuntime(code, nil, ctx, IstanbulConfig())
	_, capture := rt.Run(10_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)
	require.Equal(t, byte(77), rt.MachineReturnData()[31])
}

func TestSystemEnv_ExtcodesizeOfUnknownAddressIsZero(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 1_000_000)
	ctx := testContext()
	host.SetAccount(ctx.Address, nil, *uint256.NewInt(0), 0)
	stranger := types.HexToAddress("0x00000000000000000000000000000000000fff")

	code := []byte{
		byte(PUSH20),
	}
	code = append(code, stranger[:]...)
	code = append(code,
		byte(EXTCODESIZE),
		byte(PUSH1), 0x00,
		byte(MSTORE),
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(RETURN),
	)
	rt := NewRuntime(code, nil, ctx, IstanbulConfig())
	_, capture := rt.Run(10_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)
	for _, b := range rt.MachineReturnData() {
		require.Equal(t, byte(0), b)
	}
}

func TestSystemStorage_TloadTstoreRoundTripsWithinCall(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 1_000_000)
	ctx := testContext()
	host.SetAccount(ctx.Address, nil, *uint256.NewInt(0), 0)

	// TSTORE key=1 val=9, then TLOAD key=1, MSTORE, RETURN.
	code := []byte{
		byte(PUSH1), 0x09,
		byte(PUSH1), 0x01,
		byte(TSTORE),
		byte(PUSH1), 0x01,
		byte(TLOAD),
		byte(PUSH1), 0x00,
		byte(MSTORE),
		byte(PUSH1), 0x20,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
	rt := NewRuntime(code, nil, ctx, IstanbulConfig())
	_, capture := rt.Run(10_000, host)
	require.Equal(t, Succeed{Reason: SucceedReturned}, capture.Exit)
	require.Equal(t, byte(9), rt.MachineReturnData()[31])
}

func TestSystemStorage_TransientStorageNeverPersists(t *testing.T) {
	host := NewMemHost(IstanbulConfig(), 1_000_000)
	ctx := testContext()
	host.SetAccount(ctx.Address, nil, *uint256.NewInt(0), 0)

	key := types.Hash{}
	key[31] = 0x01
	require.Equal(t, types.Hash{}, host.TransientStorage(ctx.Address, key),
		"transient storage must start empty and must never alias persistent storage")
	host.SetTransientStorage(ctx.Address, key, types.Hash{31: 0x09})
	require.Equal(t, types.Hash{}, host.Storage(ctx.Address, key))
}
