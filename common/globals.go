// Package common holds small values shared across every stage of the
// compiler: file extensions, the fresh-name counter used by STG lowering,
// and the handful of constants that the runtime ABI and the Cmm lowering
// both need to agree on.
package common

import "strconv"

// ThunkFileExt is the file extension recognized for source files.
const ThunkFileExt = ".thunk"

// ThunkModFileName is the name of the build-profile file read by buildcfg.
const ThunkModFileName = "thunk-mod.toml"

// CompilerVersion is the current compiler version string.
const CompilerVersion = "0.1.0"

// FreshNamePrefix is prepended to every name synthesized by STG lowering's
// atomization pass. The source grammar forbids '$' in identifiers, so
// these names can never collide with a source-level binding.
const FreshNamePrefix = "$"

// NameCounter mints fresh, monotonically increasing synthetic names of the
// form "$0", "$1", .... A NameCounter is not safe for concurrent use; each
// compilation owns exactly one counter for the lifetime of STG lowering,
// held as a field on the lowering context rather than a shared global.
type NameCounter struct {
	next int
}

// Fresh returns the next synthetic name.
func (c *NameCounter) Fresh() string {
	n := FreshNamePrefix + strconv.Itoa(c.next)
	c.next++
	return n
}

// Reset rewinds the counter to zero, so the next Fresh returns "$0" again.
func (c *NameCounter) Reset() {
	c.next = 0
}
