package core

// DeriveThreadID maps an external counterpart address (e.g. a
// "whatsapp:+4915..." number) to its conversation thread id. The mapping is
// pure and injective: distinct addresses never share a thread, and the same
// address always yields the same id, giving isolation between accounts and
// continuity across turns.
func DeriveThreadID(address string) string {
	return "thread:" + address
}
