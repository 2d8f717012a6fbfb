package vm

// Control is the verdict a Machine reports after attempting to advance by
// one step. It replaces a native recursive call: whenever a system opcode
// is encountered the Machine does not execute it, it reports a Trap and
// hands control back to the Runtime.
type Control interface {
	control()
}

// ControlContinue means the step executed a Machine-local opcode and the
// Machine may be stepped again immediately.
type ControlContinue struct{}

func (ControlContinue) control() {}

// ControlExit means the Machine run has reached a terminal state. Once
// issued, Reason is sticky: the Runtime must not step this Machine again.
type ControlExit struct{ Reason ExitReason }

func (ControlExit) control() {}

// ControlTrap means the Machine reached a system opcode it cannot
// evaluate itself. Op is the opcode that trapped; the Runtime must
// dispatch it to the system-opcode evaluator and then either continue
// stepping (on success) or latch an Exit (on system-evaluator failure).
type ControlTrap struct{ Op OpCode }

func (ControlTrap) control() {}

// MachineCapture is what a Machine's bounded run() reports: either it
// consumed its whole step budget without finishing (StepLimitReached,
// non-terminal -- Steps then equals the budget), or it stopped early
// with a terminal Exit, or it stopped
// early because it hit a system opcode (Trap).
type MachineCapture struct {
	Steps uint64

	// Exactly one of StepLimitReached, Exit, or Trap is set.
	StepLimitReached bool
	Exit             ExitReason
	Trap             *OpCode
}

// ResolveHandle exclusively borrows a Runtime while a system-opcode
// evaluator is resolving a trap: the Machine itself is paused (it has no
// outstanding borrow on the stack or memory) so the evaluator may safely
// push results, grow memory, or replace the return-data buffer before
// handing control back to the driver loop.
type ResolveHandle struct {
	rt *Runtime
}

func newResolveHandle(rt *Runtime) *ResolveHandle {
	return &ResolveHandle{rt: rt}
}

// Runtime returns the Runtime the handle borrows. System-opcode evaluators
// use it to reach the stack, memory, and context.
func (h *ResolveHandle) Runtime() *Runtime { return h.rt }
