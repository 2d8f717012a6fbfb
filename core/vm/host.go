package vm

import (
	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
)

// Host is the blockchain-state capability a Runtime is handed at Run time.
// It owns everything the Machine itself does not: accounts, storage,
// transient storage, logs, and the ability to run a child contract. A
// Host implementation is free to be backed by a real state trie, an
// in-memory map (see the reference Host in hostmem.go), or a remote RPC
// client -- the Runtime only ever sees this interface.
type Host interface {
	// Origin is the outermost transaction sender (ORIGIN).
	Origin() types.Address

	// Balance returns an account's wei balance (BALANCE, SELFBALANCE).
	Balance(addr types.Address) uint256.Int

	// CodeSize returns the length of an account's code (EXTCODESIZE).
	CodeSize(addr types.Address) uint64

	// CodeHash returns the keccak256 hash of an account's code, or the
	// empty-code hash for an account with no code (EXTCODEHASH).
	CodeHash(addr types.Address) types.Hash

	// Code returns a copy of an account's code (EXTCODECOPY).
	Code(addr types.Address) []byte

	// Storage reads a persistent storage slot (SLOAD).
	Storage(addr types.Address, key types.Hash) types.Hash

	// TransientStorage reads a transient storage slot (TLOAD, EIP-1153).
	TransientStorage(addr types.Address, key types.Hash) types.Hash

	// BlockHash returns the hash of a recent block (BLOCKHASH). An empty
	// Hash means the number is outside the 256-block lookback window.
	BlockHash(number uint64) types.Hash

	// BlockCoinbase is the executing block's beneficiary (COINBASE).
	BlockCoinbase() types.Address
	// BlockNumber is the executing block's number (NUMBER).
	BlockNumber() uint64
	// BlockTimestamp is the executing block's timestamp (TIMESTAMP).
	BlockTimestamp() uint64
	// BlockDifficulty is PREVRANDAO post-merge, DIFFICULTY pre-merge.
	BlockDifficulty() uint256.Int
	// BlockGasLimit is the executing block's gas limit (GASLIMIT).
	BlockGasLimit() uint64
	// BlockBaseFee is the executing block's EIP-1559 base fee (BASEFEE).
	// Always reported as zero: see DESIGN.md for why London base-fee
	// support is an open question this module leaves to a later Host.
	BlockBaseFee() uint256.Int

	// ChainID is the configured chain ID (CHAINID, EIP-1344).
	ChainID() uint256.Int
	// GasPrice is the executing transaction's gas price (GASPRICE).
	GasPrice() uint256.Int
	// GasLeft is the gas remaining as tracked by the Host's own ledger
	// (GAS). The Runtime never tracks gas itself -- see Config.
	GasLeft() uint64

	// SetStorage writes a persistent storage slot (SSTORE).
	SetStorage(addr types.Address, key, value types.Hash)
	// SetTransientStorage writes a transient storage slot (TSTORE).
	SetTransientStorage(addr types.Address, key, value types.Hash)
	// Log appends a LOG entry.
	Log(addr types.Address, topics []types.Hash, data []byte)
	// MarkDelete schedules addr for deletion at the end of the
	// transaction, crediting its balance to target (SELFDESTRUCT).
	MarkDelete(addr types.Address, target types.Address)

	// Keccak256 hashes data. Hosts with a cache or a hardware accelerator
	// can answer faster than the Runtime hashing it itself, and the
	// Runtime never needs the raw bytes of the hash again once the Host
	// has answered (KECCAK256, and internally for CREATE2).
	Keccak256(data []byte) types.Hash

	// Create executes an init code sequence and returns its Capture: a
	// terminal ExitReason plus the deployed address (if any) and return
	// data (deployed code, or revert reason). codeHash is the Runtime's own
	// keccak256(initCode), already computed for CREATE2's address
	// derivation (zero for CREATE, which derives its address from the
	// caller's nonce instead) -- the Host never has to recompute a hash the
	// caller already paid KECCAK256 gas for. Implementations may run a
	// nested Runtime synchronously to produce this result.
	Create(caller types.Address, scheme CreateScheme, salt *uint256.Int, codeHash types.Hash, value uint256.Int, initCode []byte, gasLimit uint64, ctx Context) HostCreateResult

	// Call executes a child contract and returns its Capture: a terminal
	// ExitReason plus return data. childCtx.IsStatic carries the read-only
	// flag the child Runtime itself enforces (see resolveTrap); Call does
	// not take a separate isStatic parameter because childCtx is always the
	// authoritative source of that flag. Implementations may run a nested
	// Runtime synchronously to produce this result.
	Call(kind CallKind, target types.Address, transfer *Transfer, input []byte, gasLimit uint64, childCtx Context) HostCallResult

	// PreValidate is invoked before the Machine steps, once per opcode it
	// is about to execute, giving the Host the chance to charge gas and
	// report OutOfGas without the Runtime itself knowing what anything
	// costs. ctx identifies which Runtime (which address) is about to
	// execute the opcode, for EIP-2929 cold/warm bookkeeping keyed by
	// address. A nil error lets the step proceed.
	PreValidate(op OpCode, stack *Stack, memorySize uint64, ctx Context) error
}

// HostCreateResult is the outcome of Host.Create.
type HostCreateResult struct {
	Reason     ExitReason
	Address    types.Address
	ReturnData []byte
}

// HostCallResult is the outcome of Host.Call.
type HostCallResult struct {
	Reason     ExitReason
	ReturnData []byte
}

// PreValidateFunc adapts a plain function to the per-step validation hook
// a Machine is configured with.
type PreValidateFunc func(op OpCode, stack *Stack, memorySize uint64) error
