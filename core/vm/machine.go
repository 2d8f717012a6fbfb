package vm

import (
	"github.com/holiman/uint256"
)

// Machine is the stack-and-memory engine that owns a single contract's
// code, PC, stack, and memory. It executes every opcode that needs
// nothing beyond that local state; anything else (system opcodes, see
// IsSystem) it reports as a Trap so the enclosing Runtime can dispatch it
// to the Host.
type Machine struct {
	code       []byte
	jumpdests  []bool // true at byte offsets that are a valid JUMPDEST
	input      []byte
	pc         uint64
	stack      *Stack
	memory     *Memory
	stopped    bool
	exitReason ExitReason
	returnData []byte
}

// ReturnData returns the bytes RETURN or REVERT placed in memory when the
// Machine reached its terminal state (nil otherwise).
func (m *Machine) ReturnData() []byte { return m.returnData }

// NewMachine analyzes code once (to find valid jump destinations, skipping
// PUSH immediate-data bytes) and returns a Machine ready to execute it
// against the given call input.
func NewMachine(code []byte, input []byte) *Machine {
	return &Machine{
		code:      code,
		jumpdests: analyzeJumpdests(code),
		input:     input,
		stack:     NewStack(),
		memory:    NewMemory(),
	}
}

// analyzeJumpdests scans code once and marks every byte offset holding a
// JUMPDEST opcode that is not itself inside a PUSH's immediate data.
func analyzeJumpdests(code []byte) []bool {
	dests := make([]bool, len(code))
	for i := 0; i < len(code); {
		op := OpCode(code[i])
		if op == JUMPDEST {
			dests[i] = true
			i++
			continue
		}
		if op.IsPush() {
			width := int(op) - int(PUSH1) + 1
			i += 1 + width
			continue
		}
		i++
	}
	return dests
}

// Stack returns the Machine's operand stack.
func (m *Machine) Stack() *Stack { return m.stack }

// Memory returns the Machine's byte memory.
func (m *Machine) Memory() *Memory { return m.memory }

// PC returns the current program counter.
func (m *Machine) PC() uint64 { return m.pc }

// Code returns the executing account's code.
func (m *Machine) Code() []byte { return m.code }

// Input returns the call's input data.
func (m *Machine) Input() []byte { return m.input }

// validJumpdest reports whether dest is a valid JUMPDEST position.
func (m *Machine) validJumpdest(dest uint64) bool {
	return dest < uint64(len(m.jumpdests)) && m.jumpdests[dest]
}

func (m *Machine) currentOp() (OpCode, bool) {
	if m.pc >= uint64(len(m.code)) {
		return STOP, false
	}
	return OpCode(m.code[m.pc]), true
}

// Run advances the Machine up to budget steps, invoking preValidate before
// each one. It stops early on a terminal Exit, a Trap into a system
// opcode, or budget exhaustion (StepLimitReached, non-terminal).
func (m *Machine) Run(budget uint64, preValidate PreValidateFunc) MachineCapture {
	if m.stopped {
		return MachineCapture{Exit: m.exitReason}
	}
	var steps uint64
	for steps < budget {
		op, inBounds := m.currentOp()
		if !inBounds {
			m.finish(Succeed{Reason: SucceedStopped})
			return MachineCapture{Steps: steps + 1, Exit: m.exitReason}
		}

		if preValidate != nil {
			if err := preValidate(op, m.stack, uint64(m.memory.Len())); err != nil {
				m.finish(toExitError(err))
				return MachineCapture{Steps: steps + 1, Exit: m.exitReason}
			}
		}

		if IsSystem(op) {
			return MachineCapture{Steps: steps, Trap: &op}
		}

		control := m.step(op)
		steps++

		switch c := control.(type) {
		case ControlExit:
			m.finish(c.Reason)
			return MachineCapture{Steps: steps, Exit: m.exitReason}
		case ControlContinue:
			continue
		default:
			m.finish(Fatal{Reason: FatalUnhandledInterrupt})
			return MachineCapture{Steps: steps, Exit: m.exitReason}
		}
	}
	return MachineCapture{Steps: steps, StepLimitReached: true}
}

func (m *Machine) finish(reason ExitReason) {
	m.stopped = true
	m.exitReason = reason
}

// Finished reports the Machine's sticky terminal state, if any.
func (m *Machine) Finished() (ExitReason, bool) {
	return m.exitReason, m.stopped
}

// step executes exactly one Machine-local opcode and advances pc.
func (m *Machine) step(op OpCode) Control {
	switch {
	case op == STOP:
		return ControlExit{Reason: Succeed{Reason: SucceedStopped}}
	case op == RETURN || op == REVERT:
		return m.opReturn(op)
	case op == INVALID:
		return ControlExit{Reason: Error{Reason: ErrorInvalidCode}}
	case op.IsPush():
		return m.opPush(op)
	case op >= DUP1 && op <= DUP16:
		return m.opDup(int(op-DUP1) + 1)
	case op >= SWAP1 && op <= SWAP16:
		return m.opSwap(int(op-SWAP1) + 1)
	}

	switch op {
	case ADD, MUL, SUB, DIV, SDIV, MOD, SMOD, ADDMOD, MULMOD, EXP, SIGNEXTEND,
		LT, GT, SLT, SGT, EQ, ISZERO, AND, OR, XOR, NOT, BYTE, SHL, SHR, SAR:
		return m.opArith(op)
	case POP:
		if _, err := m.stack.Pop(); err != nil {
			return exitFor(err)
		}
		m.pc++
		return ControlContinue{}
	case MLOAD:
		return m.opMload()
	case MSTORE:
		return m.opMstore()
	case MSTORE8:
		return m.opMstore8()
	case MCOPY:
		return m.opMcopy()
	case JUMP:
		return m.opJump()
	case JUMPI:
		return m.opJumpi()
	case PC:
		if err := pushU256(m.stack, uint256.NewInt(m.pc)); err != nil {
			return exitFor(err)
		}
		m.pc++
		return ControlContinue{}
	case MSIZE:
		if err := pushU256(m.stack, uint256.NewInt(uint64(m.memory.Len()))); err != nil {
			return exitFor(err)
		}
		m.pc++
		return ControlContinue{}
	case JUMPDEST:
		m.pc++
		return ControlContinue{}
	case CALLDATALOAD:
		return m.opCalldataload()
	case CALLDATASIZE:
		if err := pushU256(m.stack, uint256.NewInt(uint64(len(m.input)))); err != nil {
			return exitFor(err)
		}
		m.pc++
		return ControlContinue{}
	case CALLDATACOPY:
		return m.opDataCopy(m.input)
	case CODESIZE:
		if err := pushU256(m.stack, uint256.NewInt(uint64(len(m.code)))); err != nil {
			return exitFor(err)
		}
		m.pc++
		return ControlContinue{}
	case CODECOPY:
		return m.opDataCopy(m.code)
	default:
		return ControlExit{Reason: Error{Reason: ErrorInvalidCode}}
	}
}

func exitFor(err error) Control {
	return ControlExit{Reason: toExitError(err)}
}

func toExitError(err error) ExitReason {
	switch err {
	case ErrStackUnderflow:
		return Error{Reason: ErrorStackUnderflow}
	case ErrStackOverflow:
		return Error{Reason: ErrorStackOverflow}
	case ErrOutOfOffset:
		return Error{Reason: ErrorOutOfOffset}
	case errOutOfGas:
		return Error{Reason: ErrorOutOfGas}
	case ErrCallTooDeep:
		return Error{Reason: ErrorCallTooDeep}
	default:
		return Fatal{Reason: FatalNotSupported}
	}
}

func (m *Machine) opPush(op OpCode) Control {
	width := int(op) - int(PUSH1) + 1
	if op == PUSH0 {
		width = 0
	}
	start := m.pc + 1
	var buf [32]byte
	for i := uint64(0); i < uint64(width); i++ {
		if start+i < uint64(len(m.code)) {
			buf[32-uint64(width)+i] = m.code[start+i]
		}
	}
	var v uint256.Int
	v.SetBytes32(buf[:])
	if err := m.stack.Push(&v); err != nil {
		return exitFor(err)
	}
	m.pc = start + uint64(width)
	return ControlContinue{}
}

func (m *Machine) opDup(n int) Control {
	if err := m.stack.Dup(n); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opSwap(n int) Control {
	if err := m.stack.Swap(n); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opJump() Control {
	dest, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	idx, ok := u256ToIndex(&dest)
	if !ok || !m.validJumpdest(idx) {
		return ControlExit{Reason: Error{Reason: ErrorInvalidJump}}
	}
	m.pc = idx
	return ControlContinue{}
}

func (m *Machine) opJumpi() Control {
	dest, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	cond, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	if cond.IsZero() {
		m.pc++
		return ControlContinue{}
	}
	idx, ok := u256ToIndex(&dest)
	if !ok || !m.validJumpdest(idx) {
		return ControlExit{Reason: Error{Reason: ErrorInvalidJump}}
	}
	m.pc = idx
	return ControlContinue{}
}

func (m *Machine) opMload() Control {
	offset, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	idx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := m.memory.ResizeOffset(idx, 32); err != nil {
		return exitFor(err)
	}
	data, err := m.memory.Get(idx, 32)
	if err != nil {
		return exitFor(err)
	}
	var v uint256.Int
	v.SetBytes32(data)
	if err := m.stack.Push(&v); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opMstore() Control {
	offset, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	val, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	idx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := m.memory.ResizeOffset(idx, 32); err != nil {
		return exitFor(err)
	}
	if err := m.memory.Set32(idx, &val); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opMstore8() Control {
	offset, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	val, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	idx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := m.memory.ResizeOffset(idx, 1); err != nil {
		return exitFor(err)
	}
	if err := m.memory.Set(idx, 1, []byte{byte(val.Uint64())}); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opMcopy() Control {
	dst, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	src, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	dstIdx, ok := u256ToIndex(&dst)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	srcIdx, ok := u256ToIndex(&src)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&length)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if lenIdx == 0 {
		m.pc++
		return ControlContinue{}
	}
	max := dstIdx
	if srcIdx > max {
		max = srcIdx
	}
	if err := m.memory.ResizeOffset(max, lenIdx); err != nil {
		return exitFor(err)
	}
	src2, err := m.memory.Get(srcIdx, lenIdx)
	if err != nil {
		return exitFor(err)
	}
	if err := m.memory.Set(dstIdx, lenIdx, src2); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opCalldataload() Control {
	offset, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	idx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	var buf [32]byte
	for i := 0; i < 32; i++ {
		pos := idx + uint64(i)
		if pos < uint64(len(m.input)) {
			buf[i] = m.input[pos]
		}
	}
	var v uint256.Int
	v.SetBytes32(buf[:])
	if err := m.stack.Push(&v); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opDataCopy(src []byte) Control {
	dst, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	off, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := m.stack.Pop()
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
	if lenIdx == 0 {
		m.pc++
		return ControlContinue{}
	}
	if err := m.memory.ResizeOffset(dstIdx, lenIdx); err != nil {
		return exitFor(err)
	}
	if err := m.memory.CopyLarge(dstIdx, offIdx, lenIdx, src); err != nil {
		return exitFor(err)
	}
	m.pc++
	return ControlContinue{}
}

func (m *Machine) opReturn(op OpCode) Control {
	offset, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	length, err := m.stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	idx, ok := u256ToIndex(&offset)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	lenIdx, ok := u256ToIndex(&length)
	if !ok {
		return ControlExit{Reason: Fatal{Reason: FatalNotSupported}}
	}
	if err := m.memory.ResizeOffset(idx, lenIdx); err != nil {
		return exitFor(err)
	}
	data, err := m.memory.Get(idx, lenIdx)
	if err != nil {
		return exitFor(err)
	}
	m.returnData = data
	if op == RETURN {
		return ControlExit{Reason: Succeed{Reason: SucceedReturned}}
	}
	return ControlExit{Reason: Revert{}}
}

// opArith dispatches the pure-value opcodes (arithmetic, comparison,
// bitwise) that need nothing beyond popping and pushing uint256 words.
func (m *Machine) opArith(op OpCode) Control {
	unary := op == NOT || op == ISZERO
	n := 2
	if unary {
		n = 1
	}
	if err := m.stack.Require(n); err != nil {
		return exitFor(err)
	}

	switch op {
	case NOT:
		a, _ := m.stack.Pop()
		var r uint256.Int
		r.Not(&a)
		m.stack.Push(&r)
	case ISZERO:
		a, _ := m.stack.Pop()
		pushBool(m.stack, a.IsZero())
	case SIGNEXTEND:
		a, _ := m.stack.Pop()
		b, _ := m.stack.Pop()
		var r uint256.Int
		r.ExtendSign(&b, &a)
		m.stack.Push(&r)
	case EXP:
		base, _ := m.stack.Pop()
		exp, _ := m.stack.Pop()
		var r uint256.Int
		r.Exp(&base, &exp)
		m.stack.Push(&r)
	case BYTE:
		i, _ := m.stack.Pop()
		x, _ := m.stack.Pop()
		var r uint256.Int
		if iu, ok := u256ToIndex(&i); ok && iu < 32 {
			b := x.Bytes32()
			r.SetUint64(uint64(b[iu]))
		}
		m.stack.Push(&r)
	case SHL, SHR, SAR:
		shift, _ := m.stack.Pop()
		val, _ := m.stack.Pop()
		var r uint256.Int
		n, overflow := shift.Uint64WithOverflow()
		switch {
		case overflow || n >= 256:
			if op == SAR && val.Sign() < 0 {
				r.SetAllOne()
			}
		case op == SHL:
			r.Lsh(&val, uint(n))
		case op == SHR:
			r.Rsh(&val, uint(n))
		case op == SAR:
			r.SRsh(&val, uint(n))
		}
		m.stack.Push(&r)
	case ADDMOD:
		a, _ := m.stack.Pop()
		b, _ := m.stack.Pop()
		mod, _ := m.stack.Pop()
		var r uint256.Int
		r.AddMod(&a, &b, &mod)
		m.stack.Push(&r)
	case MULMOD:
		a, _ := m.stack.Pop()
		b, _ := m.stack.Pop()
		mod, _ := m.stack.Pop()
		var r uint256.Int
		r.MulMod(&a, &b, &mod)
		m.stack.Push(&r)
	default:
		a, _ := m.stack.Pop()
		b, _ := m.stack.Pop()
		var r uint256.Int
		switch op {
		case ADD:
			r.Add(&a, &b)
		case MUL:
			r.Mul(&a, &b)
		case SUB:
			r.Sub(&a, &b)
		case DIV:
			r.Div(&a, &b)
		case SDIV:
			r.SDiv(&a, &b)
		case MOD:
			r.Mod(&a, &b)
		case SMOD:
			r.SMod(&a, &b)
		case LT:
			pushBool(m.stack, a.Lt(&b))
			m.pc++
			return ControlContinue{}
		case GT:
			pushBool(m.stack, a.Gt(&b))
			m.pc++
			return ControlContinue{}
		case SLT:
			pushBool(m.stack, a.Slt(&b))
			m.pc++
			return ControlContinue{}
		case SGT:
			pushBool(m.stack, a.Sgt(&b))
			m.pc++
			return ControlContinue{}
		case EQ:
			pushBool(m.stack, a.Eq(&b))
			m.pc++
			return ControlContinue{}
		case AND:
			r.And(&a, &b)
		case OR:
			r.Or(&a, &b)
		case XOR:
			r.Xor(&a, &b)
		}
		m.stack.Push(&r)
	}
	m.pc++
	return ControlContinue{}
}
