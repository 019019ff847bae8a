package common

// The constants below mirror the sizing decisions baked into
// runtime/runtime.c. They are duplicated here, in Go, so that cmm's
// allocation accounting and the package's tests can reason about heap
// layout sizes without invoking cgo or a C compiler.

// PointerSize is sizeof(uint8_t*) / sizeof(InfoTable*) on every platform
// this compiler targets (LP64 and LLP64 both keep pointers 8 bytes wide;
// narrower targets are not supported).
const PointerSize = 8

// IntSize is sizeof(int64_t).
const IntSize = 8

// InfoTableHeaderSize is the size of the InfoTable* that begins every heap
// object.
const InfoTableHeaderSize = PointerSize

// MinRelocatableSize is the minimum size a closure must occupy so that,
// once forced, there is room to overwrite it in place with an
// indirection closure ([InfoTable*_for_indirection | target-pointer]).
// Thunks and string literals in particular must pad up to this size.
const MinRelocatableSize = InfoTableHeaderSize + PointerSize

// BaseHeapSize is the initial heap size in bytes. Deliberately small so
// that heap growth is exercised early in the test suite.
const BaseHeapSize = 128

// StackSize is the initial slot count for the argument stack.
const StackSize = 1024

// HeapGrowthFactor is the multiplier the runtime uses when the heap runs
// out of room and has to grow via realloc.
const HeapGrowthFactor = 3
