// Package runtime carries the C support code every generated translation
// unit links against: the closure/heap/stack machinery and allocator
// described below, embedded directly as a static asset rather than
// shelling out to find it on disk.
package runtime

import _ "embed"

//go:embed runtime.c
var Source []byte

//go:embed thunkc_rt.h
var Header []byte

// SourceFileName and HeaderFileName are the names cmd writes Source and
// Header under, alongside the generated translation unit, before
// invoking the C compiler.
const (
	SourceFileName = "thunkc_runtime.c"
	HeaderFileName = "thunkc_rt.h"
)
