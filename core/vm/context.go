package vm

import (
	"github.com/holiman/uint256"

	"github.com/rome-protocol/goevm/core/types"
)

// Context is the caller-facing execution frame: who is executing, at what
// address, and with what apparent value. It is immutable for the lifetime
// of a single Runtime; a CALL-family opcode builds a new Context for its
// child rather than mutating this one.
type Context struct {
	// Address is the account whose code is executing -- and whose storage
	// SLOAD/SSTORE address. For CALL and STATICCALL this is the callee;
	// for CALLCODE and DELEGATECALL it is the caller's own address.
	Address types.Address

	// Caller is the immediate caller as seen by the CALLER opcode. For
	// DELEGATECALL this is forwarded from the parent's own Caller, not the
	// parent's own Address.
	Caller types.Address

	// ApparentValue is what CALLVALUE reports. For DELEGATECALL this is
	// forwarded from the parent's own ApparentValue.
	ApparentValue uint256.Int

	// IsStatic marks a read-only frame (STATICCALL, or any descendant of
	// one). Once set it propagates to every nested call regardless of that
	// call's own kind -- a CALLCODE or DELEGATECALL reached from within a
	// STATICCALL is still forbidden from mutating state.
	IsStatic bool
}

// CallKind distinguishes the four CALL-family opcodes by how they build
// the child Context and whether they carry a Transfer.
type CallKind uint8

const (
	CallKindCall CallKind = iota
	CallKindCallCode
	CallKindDelegateCall
	CallKindStaticCall
)

func (k CallKind) String() string {
	switch k {
	case CallKindCall:
		return "Call"
	case CallKindCallCode:
		return "CallCode"
	case CallKindDelegateCall:
		return "DelegateCall"
	case CallKindStaticCall:
		return "StaticCall"
	default:
		return "CallKind(unknown)"
	}
}

// ChildContext builds the Context a CALL-family opcode's callee runs
// under, given the parent's own Context, the callee address, and the
// apparent value carried by the call (ignored for DelegateCall, which
// forwards the parent's own value).
func ChildContext(kind CallKind, parent Context, callee types.Address, value uint256.Int) Context {
	isStatic := parent.IsStatic || kind == CallKindStaticCall
	switch kind {
	case CallKindCall, CallKindStaticCall:
		return Context{Address: callee, Caller: parent.Address, ApparentValue: value, IsStatic: isStatic}
	case CallKindCallCode:
		return Context{Address: parent.Address, Caller: parent.Address, ApparentValue: value, IsStatic: isStatic}
	case CallKindDelegateCall:
		return Context{Address: parent.Address, Caller: parent.Caller, ApparentValue: parent.ApparentValue, IsStatic: isStatic}
	default:
		return Context{Address: callee, Caller: parent.Address, ApparentValue: value, IsStatic: isStatic}
	}
}

// CreateScheme distinguishes CREATE and CREATE2 address derivation.
type CreateScheme uint8

const (
	CreateSchemeLegacy CreateScheme = iota // CREATE: keccak256(rlp([sender, nonce]))[12:]
	CreateSchemeCreate2                    // CREATE2: keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))[12:]
)

// Transfer describes a value transfer accompanying a CALL or CALLCODE.
// For CALLCODE both Source and Target are the caller's own address, so the
// value stays within the caller's own balance. DELEGATECALL and STATICCALL
// never carry one to the Host.
type Transfer struct {
	Source types.Address
	Target types.Address
	Value  uint256.Int
}
