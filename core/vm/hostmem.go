package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
)

// ErrCallTooDeep is returned by MemHost's Call/Create when the nested
// Runtime chain has already reached Config.CallStackLimit.
var ErrCallTooDeep = errors.New("vm: call stack too deep")

// account is a MemHost account record.
type account struct {
	nonce    uint64
	balance  uint256.Int
	code     []byte
	codeHash types.Hash
	storage  map[types.Hash]types.Hash
}

func newAccount() *account {
	return &account{storage: make(map[types.Hash]types.Hash)}
}

// MemHost is an in-memory reference Host implementation: everything a
// Runtime needs (accounts, storage, logs, block metadata) lives in plain
// Go maps. It drives nested Runtimes synchronously for CALL/CREATE,
// bounded by Config.CallStackLimit, and reuses AccessListTracker for
// EIP-2929 warm/cold bookkeeping and StructLogTracer for optional
// step-by-step tracing. It exists to make the Runtime testable without a
// real state trie or RPC client; it is not a production state backend.
type MemHost struct {
	accounts   map[types.Address]*account
	transient  map[types.Address]map[types.Hash]types.Hash
	destructed map[types.Address]types.Address // addr -> beneficiary
	logs       []types.Log

	accessList *AccessListTracker

	origin          types.Address
	gasPrice        uint256.Int
	chainID         uint256.Int
	blockNumber     uint64
	blockTimestamp  uint64
	blockDifficulty uint256.Int
	blockGasLimit   uint64
	blockCoinbase   types.Address
	blockHashes     map[uint64]types.Hash

	config Config
	gas    uint64
	depth  int

	tracer EVMLogger
}

// NewMemHost returns an empty MemHost. Use the Set* setters to populate
// block/transaction metadata before running code against it.
func NewMemHost(cfg Config, gasLimit uint64) *MemHost {
	return &MemHost{
		accounts:   make(map[types.Address]*account),
		transient:  make(map[types.Address]map[types.Hash]types.Hash),
		destructed: make(map[types.Address]types.Address),
		accessList:  NewAccessListTracker(),
		blockHashes: make(map[uint64]types.Hash),
		config:      cfg,
		gas:         gasLimit,
	}
}

// WithTracer attaches an EVMLogger (see tracer.go) that records every
// opcode step. PreValidate reports every opcode -- system and
// non-system alike, since it runs before each step regardless -- via
// CaptureState; MemHost's Create/Call loop does not itself call
// CaptureStart/CaptureEnd, since nested calls are resolved internally
// rather than at a boundary the tracer's top-level hooks describe.
func (h *MemHost) WithTracer(t EVMLogger) *MemHost {
	h.tracer = t
	return h
}

func (h *MemHost) account(addr types.Address) *account {
	a, ok := h.accounts[addr]
	if !ok {
		a = newAccount()
		h.accounts[addr] = a
	}
	return a
}

// SetAccount installs code and a starting balance for addr, for test setup.
func (h *MemHost) SetAccount(addr types.Address, code []byte, balance uint256.Int, nonce uint64) {
	a := h.account(addr)
	a.code = code
	a.balance = balance
	a.nonce = nonce
	if len(code) > 0 {
		a.codeHash = types.Hash(h.Keccak256(code))
	}
}

// SetOrigin, SetGasPrice, SetChainID, SetBlock* configure the transaction
// and block context Host accessors report.
func (h *MemHost) SetOrigin(addr types.Address)                { h.origin = addr }
func (h *MemHost) SetGasPrice(v uint256.Int)                   { h.gasPrice = v }
func (h *MemHost) SetChainID(v uint256.Int)                    { h.chainID = v }
func (h *MemHost) SetBlockNumber(n uint64)                     { h.blockNumber = n }
func (h *MemHost) SetBlockTimestamp(t uint64)                  { h.blockTimestamp = t }
func (h *MemHost) SetBlockDifficulty(v uint256.Int)            { h.blockDifficulty = v }
func (h *MemHost) SetBlockGasLimit(n uint64)                   { h.blockGasLimit = n }
func (h *MemHost) SetBlockCoinbase(addr types.Address)         { h.blockCoinbase = addr }
func (h *MemHost) SetBlockHash(number uint64, hash types.Hash) { h.blockHashes[number] = hash }

func (h *MemHost) Origin() types.Address { return h.origin }

func (h *MemHost) Balance(addr types.Address) uint256.Int {
	return h.account(addr).balance
}

func (h *MemHost) CodeSize(addr types.Address) uint64 {
	return uint64(len(h.account(addr).code))
}

func (h *MemHost) CodeHash(addr types.Address) types.Hash {
	a := h.account(addr)
	if len(a.code) == 0 {
		return types.EmptyCodeHash
	}
	return a.codeHash
}

func (h *MemHost) Code(addr types.Address) []byte {
	code := h.account(addr).code
	out := make([]byte, len(code))
	copy(out, code)
	return out
}

func (h *MemHost) Storage(addr types.Address, key types.Hash) types.Hash {
	return h.account(addr).storage[key]
}

func (h *MemHost) TransientStorage(addr types.Address, key types.Hash) types.Hash {
	slots, ok := h.transient[addr]
	if !ok {
		return types.Hash{}
	}
	return slots[key]
}

func (h *MemHost) BlockHash(number uint64) types.Hash { return h.blockHashes[number] }
func (h *MemHost) BlockCoinbase() types.Address       { return h.blockCoinbase }
func (h *MemHost) BlockNumber() uint64                { return h.blockNumber }
func (h *MemHost) BlockTimestamp() uint64             { return h.blockTimestamp }
func (h *MemHost) BlockDifficulty() uint256.Int       { return h.blockDifficulty }
func (h *MemHost) BlockGasLimit() uint64              { return h.blockGasLimit }
func (h *MemHost) BlockBaseFee() uint256.Int          { return uint256.Int{} }

func (h *MemHost) ChainID() uint256.Int { return h.chainID }
func (h *MemHost) GasPrice() uint256.Int { return h.gasPrice }
func (h *MemHost) GasLeft() uint64       { return h.gas }

func (h *MemHost) SetStorage(addr types.Address, key, value types.Hash) {
	h.account(addr).storage[key] = value
}

func (h *MemHost) SetTransientStorage(addr types.Address, key, value types.Hash) {
	slots, ok := h.transient[addr]
	if !ok {
		slots = make(map[types.Hash]types.Hash)
		h.transient[addr] = slots
	}
	slots[key] = value
}

func (h *MemHost) Log(addr types.Address, topics []types.Hash, data []byte) {
	h.logs = append(h.logs, types.Log{Address: addr, Topics: topics, Data: data})
}

// Logs returns every log entry recorded so far.
func (h *MemHost) Logs() []types.Log { return h.logs }

func (h *MemHost) MarkDelete(addr types.Address, target types.Address) {
	beneficiary := h.account(target)
	victim := h.account(addr)
	beneficiary.balance.Add(&beneficiary.balance, &victim.balance)
	victim.balance.Clear()
	h.destructed[addr] = target
}

func (h *MemHost) Keccak256(data []byte) types.Hash {
	return keccak256Hash(data)
}

// PreValidate charges the Host's own gas ledger for the about-to-execute
// opcode, using the pure gas-table helpers LogGas, Sha3Gas and CopyGas,
// flat costs for SSTORE (GasSstoreReset), CREATE/CREATE2 and SELFDESTRUCT,
// plus the AccessListTracker's cold/warm bookkeeping for EIP-2929 opcodes.
// Memory expansion is not charged, and SSTORE has no net-gas pricing.
// The Runtime never sees any
// of this: it only sees PreValidate's error return.
func (h *MemHost) PreValidate(op OpCode, stack *Stack, memorySize uint64, ctx Context) error {
	cost, err := h.gasCost(op, stack, memorySize, ctx)
	if h.tracer != nil {
		h.tracer.CaptureState(0, op, h.gas, cost, stack, nil, 0, err)
	}
	if err != nil {
		return err
	}
	if cost > h.gas {
		return errOutOfGas
	}
	h.gas -= cost
	return nil
}

var errOutOfGas = errors.New("vm: out of gas")

// gasCost prices an about-to-execute opcode. ctx.Address is this Runtime's
// own executing address, warmed automatically by TouchAddress the first
// time it is referenced below -- EIP-2929 always treats the currently
// executing contract as pre-warmed, so this mirrors PrePopulate's intent
// without needing the transaction-level caller to do it explicitly.
func (h *MemHost) gasCost(op OpCode, stack *Stack, memorySize uint64, ctx Context) (uint64, error) {
	switch op {
	case SLOAD:
		slot, err := stack.Back(0)
		if err != nil {
			return WarmStorageReadCost, nil
		}
		key := types.Hash(slot.Bytes32())
		return WarmStorageReadCost + h.accessList.SlotGasCost(ctx.Address, key), nil
	case SSTORE:
		return GasSstoreReset, nil
	case BALANCE, EXTCODESIZE, EXTCODEHASH:
		addrWord, err := stack.Back(0)
		if err != nil {
			return WarmStorageReadCost, nil
		}
		target := addressFromWord(addrWord)
		return WarmStorageReadCost + h.accessList.AddressGasCost(target), nil
	case EXTCODECOPY:
		addrWord, err := stack.Back(0)
		if err != nil {
			return WarmStorageReadCost, nil
		}
		target := addressFromWord(addrWord)
		length, err := stack.Back(3)
		n := uint64(0)
		if err == nil {
			n, _ = u256ToIndex(length)
		}
		return WarmStorageReadCost + h.accessList.AddressGasCost(target) + CopyGas(n), nil
	case KECCAK256:
		length, err := stack.Back(1)
		if err != nil {
			return Sha3Gas(0), nil
		}
		n, _ := u256ToIndex(length)
		return Sha3Gas(n), nil
	case LOG0, LOG1, LOG2, LOG3, LOG4:
		n := uint64(op - LOG0)
		length, err := stack.Back(1)
		if err != nil {
			return LogGas(n, 0), nil
		}
		size, _ := u256ToIndex(length)
		return LogGas(n, size), nil
	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		addrWord, err := stack.Back(1)
		if err != nil {
			return WarmStorageReadCost, nil
		}
		target := addressFromWord(addrWord)
		return WarmStorageReadCost + h.accessList.AddressGasCost(target), nil
	case CREATE, CREATE2:
		return GasCreate, nil
	case SELFDESTRUCT:
		return SelfdestructGas, nil
	case CALLDATACOPY, CODECOPY, RETURNDATACOPY, MCOPY:
		length, err := stack.Back(2)
		if err != nil {
			return GasVerylow, nil
		}
		n, _ := u256ToIndex(length)
		return GasVerylow + CopyGas(n), nil
	default:
		h.accessList.TouchAddress(ctx.Address)
		return GasVerylow, nil
	}
}

// Create drives a nested Runtime over initCode to completion, synchronously.
// codeHash is the Runtime-computed keccak256(initCode) for CREATE2 (see
// host.go's doc comment); Create never recomputes it.
func (h *MemHost) Create(caller types.Address, scheme CreateScheme, salt *uint256.Int, codeHash types.Hash, value uint256.Int, initCode []byte, gasLimit uint64, ctx Context) HostCreateResult {
	if h.depth >= h.config.CallStackLimit {
		return HostCreateResult{Reason: Error{Reason: ErrorCallTooDeep}}
	}

	h.accessList.TouchAddress(caller)

	callerAcct := h.account(caller)
	nonce := callerAcct.nonce
	callerAcct.nonce++

	var addr types.Address
	if scheme == CreateSchemeCreate2 {
		addr = create2Address(caller, salt, codeHash)
	} else {
		addr = createAddress(caller, nonce)
	}

	if existing, ok := h.accounts[addr]; ok && (len(existing.code) > 0 || existing.nonce > 0) {
		return HostCreateResult{Reason: Error{Reason: ErrorCreateCollision}}
	}

	newAcct := h.account(addr)
	newAcct.nonce = 1
	newAcct.balance.Add(&newAcct.balance, &value)
	callerAcct.balance.Sub(&callerAcct.balance, &value)

	childCtx := Context{Address: addr, Caller: caller, ApparentValue: value}

	h.depth++
	child := NewRuntime(initCode, nil, childCtx, h.config)
	_, result := h.runToCompletion(child)
	h.depth--

	if result.Exit == nil {
		return HostCreateResult{Reason: Fatal{Reason: FatalUnhandledInterrupt}}
	}

	switch r := result.Exit.(type) {
	case Succeed:
		deployed := child.MachineReturnData()
		if h.config.CreateContractLimit > 0 && len(deployed) > h.config.CreateContractLimit {
			return HostCreateResult{Reason: Error{Reason: ErrorCreateContractLimit}}
		}
		newAcct.code = deployed
		newAcct.codeHash = h.Keccak256(deployed)
		return HostCreateResult{Reason: r, Address: addr}
	case Revert:
		return HostCreateResult{Reason: r, ReturnData: child.MachineReturnData()}
	default:
		return HostCreateResult{Reason: result.Exit}
	}
}

// Call drives a nested Runtime over the target's code to completion,
// synchronously. Write protection for a read-only (STATICCALL-descended)
// frame is enforced by the child Runtime itself, keyed off
// childCtx.IsStatic (see resolveTrap) -- Call does not need to re-check it.
func (h *MemHost) Call(kind CallKind, target types.Address, transfer *Transfer, input []byte, gasLimit uint64, childCtx Context) HostCallResult {
	if h.depth >= h.config.CallStackLimit {
		return HostCallResult{Reason: Error{Reason: ErrorCallTooDeep}}
	}

	if transfer != nil {
		src := h.account(transfer.Source)
		dst := h.account(transfer.Target)
		if src.balance.Lt(&transfer.Value) {
			return HostCallResult{Reason: Error{Reason: ErrorOutOfGas}}
		}
		src.balance.Sub(&src.balance, &transfer.Value)
		dst.balance.Add(&dst.balance, &transfer.Value)
	}

	code := h.account(target).code

	h.depth++
	child := NewRuntime(code, input, childCtx, h.config)
	_, result := h.runToCompletion(child)
	h.depth--

	if result.Exit == nil {
		return HostCallResult{Reason: Fatal{Reason: FatalUnhandledInterrupt}}
	}
	return HostCallResult{Reason: result.Exit, ReturnData: child.MachineReturnData()}
}

// runToCompletion loops a Runtime in fixed-size step slices until it
// reaches a terminal Exit, matching §4.10's split-budget-vs-single-budget
// equivalence: the slicing here is purely a host-side convenience, never
// user-visible in the final result.
func (h *MemHost) runToCompletion(rt *Runtime) (uint64, MachineCapture) {
	const slice = 100_000
	var total uint64
	for {
		steps, result := rt.Run(slice, h)
		total += steps
		if result.StepLimitReached {
			continue
		}
		return total, result
	}
}
