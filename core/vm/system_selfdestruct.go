package vm

// evalSelfdestruct resolves SELFDESTRUCT: pop the beneficiary address,
// ask the Host to credit it with this account's balance and schedule the
// account for deletion, then terminate with Succeed::Suicided. Unlike
// every other system opcode this one never returns ControlContinue --
// SELFDESTRUCT always ends the Machine run.
func evalSelfdestruct(h *ResolveHandle, host Host) Control {
	rt := h.Runtime()
	stack := rt.Stack()

	targetWord, err := stack.Pop()
	if err != nil {
		return exitFor(err)
	}
	target := addressFromWord(&targetWord)

	host.MarkDelete(rt.context.Address, target)

	return ControlExit{Reason: Succeed{Reason: SucceedSuicided}}
}
