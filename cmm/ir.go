// Package cmm defines Cmm, the flat imperative form STG lowers into:
// every function is a small set of labeled Blocks, each a flat
// instruction sequence ending in exactly one terminal instruction (a tail
// call, a branch, a return, or a print-error-and-halt), matching the
// trampoline execution model the runtime uses — no native call stack
// growth, every "call" is really "return the next label".
//
// Every let-bound closure that STG keeps nested is lambda-lifted
// here into its own top-level Function, captured free variables and all.
// Case alternatives are flattened differently: since an alternative runs
// in the same activation as its case expression, it becomes an extra
// Block of the *same* Function rather than a separate closure — no free
// variable capture is needed for something that never outlives its
// caller's stack frame. Cmm itself has no other nested scope, only
// explicit argument/closure/global Locations, the same flattening real
// STG-to-C-like compilers perform at this stage.
package cmm

import "github.com/thunkc/thunkc/common"

// Storage classifies a value by its physical representation, mirroring
// stg.ValueKind one level down: which argument/closure-field group a
// Location belongs to.
type Storage int

const (
	StoragePointer Storage = iota
	StorageInt
	StorageString
)

// LocKind is how a Location resolves to an actual value at the point an
// instruction reads it.
type LocKind int

const (
	LocLocal   LocKind = iota // a temporary computed earlier in this function
	LocArg                    // the Index-th argument of this Storage kind
	LocClosure                // the Index-th free variable of this Storage kind, read from this closure's own environment
	LocGlobal                 // a top-level binding or constructor/thunk closure, referenced by name
)

// Location names where an instruction should read a value from.
type Location struct {
	Kind    LocKind
	Index   int
	Name    string
	Storage Storage
}

// Instruction is one flat Cmm operation. Every Function's Body is a
// sequence of these, the non-terminal ones computing named temporaries
// and the last one always terminal.
type Instruction interface {
	instrTag()
}

// IConst materializes an immediate value into Dst — the unboxed Int/Bool
// representation, or a literal String closure.
type IConst struct {
	Dst     string
	Storage Storage
	IntVal  int64
	StrVal  string
}

// IEnterValue forces Src to weak head normal form, leaving the result —
// unboxed for Int/Bool, a closure pointer otherwise — in Dst. This is the
// "enter" instruction: the only place evaluation of a lazy thunk actually
// happens.
type IEnterValue struct {
	Dst string
	Src Location
}

// IProject reads one field out of an already-forced closure pointer,
// using the grouped-by-kind closure layout
// ([InfoTable*|pointer fields|int fields|string fields]).
type IProject struct {
	Dst        string
	Src        Location
	FieldKind  Storage
	FieldIndex int
	// Table names the InfoTable describing Src's closure shape, so
	// cemit can look up how many fields of each preceding group come
	// before FieldIndex within its own group.
	Table string
}

// IAllocClosure heap-allocates a new closure pointing at Table, with its
// fields supplied pre-grouped by kind — the allocation tuple the
// allocator expects. Size is the exact byte count cemit must reserve
// before writing the fields, precomputed here rather than in cemit so
// one formula governs both the C emitter and any test that wants to
// assert on it.
type IAllocClosure struct {
	Dst      string
	Table    string
	Pointers []Location
	Ints     []Location
	Strings  []Location
	Size     int
}

// IBuiltin1/IBuiltin2 apply a primitive operator to already-forced
// operands.
type IBuiltin1 struct {
	Dst string
	Op  string
	Arg Location
}

type IBuiltin2 struct {
	Dst string
	Op  string
	Lhs Location
	Rhs Location
}

// IPush pushes an argument closure pointer onto the A-stack ahead of a
// call. Every argument, regardless of its eventual unboxed/boxed kind
// once forced, is passed this way: call-by-need means the callee decides
// whether and when to force it, via its own IEnterValue.
type IPush struct{ Src Location }

// ITailCall applies Fn to whatever was just pushed, in the same
// Pointers-then-Ints-then-Strings order the push happened. Fn's own
// declared arity may exceed NumPointers/NumInts/NumStrings — that is
// exactly the partial-application case the runtime's entry-code arity
// check exists to catch — so, unlike its name suggests, "saturated" is
// not guaranteed here; Fn's entry code is responsible for noticing a
// shortfall and building a PAP instead of running its body. Terminal.
type ITailCall struct {
	Fn                               Location
	NumPointers, NumInts, NumStrings int
}

// IReturn finishes the current evaluation with Src as its result, left in
// the registers for whoever forced or called this code. It ends every body
// or case alternative whose tail is a value (a thunk's, a function's, or an
// alternative's); a tail that is an application ends in ITailCall instead.
// Terminal.
type IReturn struct{ Src Location }

// IPrintError writes Message to stderr and halts — the pattern-match
// failure and runtime-error path. Terminal.
type IPrintError struct{ Message string }

// IBranch dispatches on an already-forced scrutinee value to one of
// several Blocks within the same Function, falling through to Default if
// nothing matches. Unlike a call target, a branch target is not a
// separate closure: a case alternative shares its enclosing function's
// locals, params and free variables directly (no capture needed, since
// it runs in the same activation), so targets here are block labels, not
// Function names. Constructor targets project their binder fields out of
// On via IProject at the top of their block. Terminal.
type IBranch struct {
	On       Location
	ConCases []ConCase
	IntCases []IntCase
	BoolCase *BoolCase
	StrCases []StrCase
	Default  string
}

type ConCase struct {
	Tag    int
	Target string // block label
}
type IntCase struct {
	Value  int64
	Target string // block label
}
// BoolCase holds whichever of TrueTarget/FalseTarget the source program
// actually matched on; a source case that only matches True (catching
// False via its default alternative, or vice versa) leaves the other
// field empty, and cemit falls through to Default for it.
type BoolCase struct {
	TrueTarget, FalseTarget string // block labels; "" falls through to Default
}
type StrCase struct {
	Value  string
	Target string // block label
}

func (IConst) instrTag()         {}
func (IEnterValue) instrTag()    {}
func (IProject) instrTag()       {}
func (IAllocClosure) instrTag()  {}
func (IBuiltin1) instrTag()      {}
func (IBuiltin2) instrTag()      {}
func (IPush) instrTag()          {}
func (ITailCall) instrTag()      {}
func (IReturn) instrTag()        {}
func (IPrintError) instrTag()    {}
func (IBranch) instrTag()        {}

// ArgGroup is one Function's parameter list, partitioned by Storage the
// same way a call site partitions its arguments: pointer params in
// declaration order, then int params, then string params.
type ArgGroup struct {
	Pointers []string
	Ints     []string
	Strings  []string
}

// FunctionKind records why a Function exists, purely for cemit's naming
// and for anyone dumping --emit-cmm output; it carries no semantic
// weight of its own.
type FunctionKind int

const (
	FuncTopLevel FunctionKind = iota
	FuncClosure
)

// Block is one labeled, straight-line run of instructions inside a
// Function, ending in exactly one terminal instruction. A Function needs
// more than one Block exactly when its body contains a case expression:
// each alternative becomes its own Block, reachable only via an IBranch
// in some earlier Block of the same Function. Blocks are never shared
// across Functions and are never individually heap-allocated — a case
// alternative runs in its enclosing function's own activation, with
// direct access to the same locals, params and free variables, so it
// needs no capture of its own.
type Block struct {
	Label string
	Body  []Instruction
}

// Function is one flat, lambda-lifted unit of code: a closure's entry
// code, or a top-level binding's. Execution always starts in Blocks[0].
type Function struct {
	Name        string
	Kind        FunctionKind
	GlobalIndex int
	Args        ArgGroup
	FreeVars    ArgGroup
	Blocks      []*Block
}

// InfoTableKind is the shape of closure a Function's info table
// describes.
type InfoTableKind int

const (
	TableFun InfoTableKind = iota
	TableThunk
	TableCon
	TableIndirection
)

// InfoTable is one static info table: an entry-code function pointer
// plus, for TableFun, the saturated argument count (needed by the
// runtime's partial-application check), and for TableCon, the
// constructor's tag. Size is the fixed byte size of every closure built
// from this table; individual IAllocClosure sites carry their own copy
// of the same number for the allocator's bounds check.
type InfoTable struct {
	Name      string
	Kind      InfoTableKind
	EntryFunc string
	Arity     int
	Tag       int
	Size      int
	// NumPointers/NumInts/NumStrings record the field-group widths of
	// every closure built from this table, in the same
	// pointers-then-ints-then-strings order IAllocClosure and IProject
	// both use — cemit needs these to compute a projected field's byte
	// offset, since IProject.FieldIndex is only scoped within its own
	// group.
	NumPointers int
	NumInts     int
	NumStrings  int
}

// Program is a whole lowered compilation unit: every lambda-lifted
// Function, every InfoTable it or a constructor needs, and the name of
// the Function cemit should treat as the program's entry point.
type Program struct {
	Functions  []*Function
	InfoTables []*InfoTable
	Entry      string
}

// closureSize computes the exact byte size of a closure with the given
// field counts, per the grouped closure layout and common's ABI
// constants — the allocation-accounting formula both IAllocClosure.Size
// and any test asserting on it must agree with.
func closureSize(pointers, ints, strings int) int {
	return common.InfoTableHeaderSize +
		pointers*common.PointerSize +
		ints*common.IntSize +
		strings*common.PointerSize
}
