package util

// Assert panics with msg when the petrel_debug build tag is set and cond
// is false. In release builds (the default) it is a no-op; callers must
// still return an error along every path an assertion would have covered,
// per the debug-abort / release-surface propagation policy.
func Assert(cond bool, msg string) {
	assert(cond, msg)
}
