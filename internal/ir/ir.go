package ir

// PrintModule returns a pretty-printed representation of the IR, the
// top-level convenience wrapper callers outside this package reach for.
func PrintModule(mod *Module) string {
	return Print(mod)
}
