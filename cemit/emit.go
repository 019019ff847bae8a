// Package cemit walks a lowered cmm.Program and writes out a single C
// translation unit: one InfoTable per closure shape, one C function per
// cmm.Function (itself a set of goto-labeled blocks, since a case
// alternative shares its enclosing function's activation and needs no
// call of its own), and a thunkc_main entry point the runtime's
// trampoline calls into.
//
// The accumulation shape here — an Emitter walking a Program and
// filling in a translationUnit through small per-function builders — is
// modeled on the classic Context/Module/Builder triple an LLVM-style
// code generator uses to accumulate instructions into basic blocks.
// There is no hosted C AST library available to build against directly,
// so functionBuilder plays the Builder's role by hand, writing textual C
// straight into the translation unit's buffer.
package cemit

import (
	"fmt"
	"strings"

	"github.com/thunkc/thunkc/cmm"
	"github.com/thunkc/thunkc/common"
)

// Emit produces the bytes of one C source file implementing prog,
// ready to be compiled and linked against runtime/runtime.c.
func Emit(prog *cmm.Program) ([]byte, error) {
	tu := &translationUnit{}
	e := &Emitter{prog: prog, tu: tu}

	e.preamble()
	for _, tbl := range prog.InfoTables {
		e.forwardDeclareTable(tbl)
	}
	for _, fn := range prog.Functions {
		fmt.Fprintf(&tu.decls, "static void *%s(void);\n", fn.Name)
	}
	tu.decls.WriteString("\n")

	for _, fn := range prog.Functions {
		nb := &functionBuilder{e: e, fn: fn, rawInt: map[string]bool{}}
		nb.build()
	}

	for _, tbl := range prog.InfoTables {
		e.defineTable(tbl)
	}
	for _, fn := range prog.Functions {
		if fn.Kind == cmm.FuncTopLevel {
			e.defineGlobalClosure(fn.Name)
		}
	}
	e.defineNullaryConstructorClosures()

	fmt.Fprintf(&tu.defs, "\nvoid *thunkc_main(void) {\n  g_NodeRegister = %s;\n  return (void *)CLOSURE_TABLE(g_NodeRegister)->entry;\n}\n",
		globalClosureExpr(prog.Entry))

	var out strings.Builder
	out.WriteString(tu.decls.String())
	out.WriteString(tu.defs.String())
	return []byte(out.String()), nil
}

// Emitter is the top-level accumulator, standing in for an LLVM-style
// Context/Module pair.
type Emitter struct {
	prog *cmm.Program
	tu   *translationUnit
}

// translationUnit separates forward declarations (info tables, function
// prototypes, global closures) from definitions, so every declaration a
// definition needs already exists above it regardless of emission order.
type translationUnit struct {
	decls strings.Builder
	defs  strings.Builder
}

func (e *Emitter) preamble() {
	e.tu.decls.WriteString("/* generated by thunkc's cemit; do not edit by hand. */\n")
	e.tu.decls.WriteString("#include <string.h>\n#include \"thunkc_rt.h\"\n\n")
}

func mangle(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "n_" + out
	}
	return out
}

func globalClosureExpr(name string) string {
	return "((uint8_t *)&gclo_" + mangle(name) + ")"
}

func infoTableExpr(name string) string { return "&" + mangle(name) }

// forwardDeclareTable writes the extern-visible InfoTable declaration;
// its initializer (which needs the entry function already declared) is
// written later by defineTable.
func (e *Emitter) forwardDeclareTable(tbl *cmm.InfoTable) {
	fmt.Fprintf(&e.tu.decls, "static InfoTable %s;\n", mangle(tbl.Name))
}

// closureKind maps a cmm.InfoTableKind onto the runtime's CLOSURE_KIND_*
// discriminator, letting force_value/indirection_entry recognize an
// already-WHNF function or partial application without running its
// body, and letting the collector fall back to generic_evac for every
// shape cemit itself emits.
func closureKind(k cmm.InfoTableKind) string {
	switch k {
	case cmm.TableFun:
		return "CLOSURE_KIND_FUN"
	case cmm.TableThunk:
		return "CLOSURE_KIND_THUNK"
	default: // TableCon
		return "CLOSURE_KIND_VALUE"
	}
}

func (e *Emitter) defineTable(tbl *cmm.InfoTable) {
	tag := tbl.Tag
	entry := "NULL"
	if tbl.EntryFunc != "" {
		entry = "&" + tbl.EntryFunc
	}
	fmt.Fprintf(&e.tu.defs, "static InfoTable %s = {%s, &generic_evac, %d, %d, %s, %d, %d, %d};\n",
		mangle(tbl.Name), entry, tbl.Size, tag, closureKind(tbl.Kind),
		tbl.NumPointers, tbl.NumInts, tbl.NumStrings)
}

// defineGlobalClosure emits the statically-allocated, zero-free-variable
// closure for a top-level binding — every top-level Function's closure
// payload is empty (globals capture nothing), so the object is its
// InfoTable pointer plus one spare word, the room update_closure needs to
// overwrite a forced top-level thunk with an indirection. It goes into
// the decls section so every function body can refer to it.
func (e *Emitter) defineGlobalClosure(fnName string) {
	tblName := "tbl_" + fnName
	fmt.Fprintf(&e.tu.decls, "static struct { InfoTable *table; uint8_t *indirection; } gclo_%s = {&%s, NULL};\n", mangle(fnName), mangle(tblName))
}

func (e *Emitter) defineNullaryConstructorClosures() {
	for _, tbl := range e.prog.InfoTables {
		if tbl.Kind == cmm.TableCon && tbl.Arity == 0 {
			ctorName := strings.TrimPrefix(tbl.Name, "tbl_ctor_")
			fmt.Fprintf(&e.tu.decls, "static struct { InfoTable *table; } gclo_ctor_%s = {&%s};\n",
				mangle(ctorName), mangle(tbl.Name))
		}
	}
}

// functionBuilder compiles a single cmm.Function into one C function,
// playing the Builder role against the shared translationUnit.
type functionBuilder struct {
	e      *Emitter
	fn     *cmm.Function
	out    strings.Builder
	rawInt map[string]bool // local names holding an already-unboxed int64_t
}

func (b *functionBuilder) build() {
	for _, blk := range b.fn.Blocks {
		fmt.Fprintf(&b.out, "%s: ;\n", label(blk.Label))
		for _, instr := range blk.Body {
			b.emitInstr(instr)
		}
	}

	var decl strings.Builder
	fmt.Fprintf(&decl, "static void *%s(void) {\n", b.fn.Name)
	b.declareArgsAndFreeVars(&decl)
	decl.WriteString(b.out.String())
	decl.WriteString("}\n\n")
	b.e.tu.defs.WriteString(decl.String())
}

func label(l string) string { return "L_" + mangle(l) }

func localVar(name string) string { return "v_" + mangle(name) }
func argVar(group string, idx int) string { return fmt.Sprintf("arg_%s%d", group, idx) }
func fvVar(group string, idx int) string  { return fmt.Sprintf("fv_%s%d", group, idx) }

// declareArgsAndFreeVars pops this function's arguments off the A stack
// (in reverse of the Pointers-then-Ints-then-Strings push order every
// call site uses, since the stack is LIFO) and projects its free
// variables out of the closure g_NodeRegister holds on entry.
func (b *functionBuilder) declareArgsAndFreeVars(w *strings.Builder) {
	args := b.fn.Args
	needPointers, needInts, needStrings := len(args.Pointers), len(args.Ints), len(args.Strings)
	if needPointers+needInts+needStrings > 0 {
		fmt.Fprintf(w, "  if (g_ArgPointerCount < %d || g_ArgIntCount < %d || g_ArgStringCount < %d) {\n",
			needPointers, needInts, needStrings)
		fmt.Fprintf(w, "    return build_partial_application(g_NodeRegister, %d, %d, %d, (int32_t)g_ArgPointerCount, (int32_t)g_ArgIntCount, (int32_t)g_ArgStringCount);\n",
			needPointers, needInts, needStrings)
		w.WriteString("  }\n")
	}
	for i := range args.Strings {
		fmt.Fprintf(w, "  uint8_t *%s = pop_arg();\n", argVar("s", len(args.Strings)-1-i))
	}
	for i := range args.Ints {
		fmt.Fprintf(w, "  uint8_t *%s = pop_arg();\n", argVar("i", len(args.Ints)-1-i))
	}
	for i := range args.Pointers {
		fmt.Fprintf(w, "  uint8_t *%s = pop_arg();\n", argVar("p", len(args.Pointers)-1-i))
	}

	if len(b.fn.FreeVars.Pointers)+len(b.fn.FreeVars.Ints)+len(b.fn.FreeVars.Strings) > 0 {
		w.WriteString("  uint8_t *self = g_NodeRegister;\n")
	}
	offset := common.InfoTableHeaderSize
	for i := range b.fn.FreeVars.Pointers {
		fmt.Fprintf(w, "  uint8_t *%s; memcpy(&%s, self + %d, sizeof(uint8_t *));\n",
			fvVar("p", i), fvVar("p", i), offset)
		offset += common.PointerSize
	}
	for i := range b.fn.FreeVars.Ints {
		fmt.Fprintf(w, "  uint8_t *%s; memcpy(&%s, self + %d, sizeof(uint8_t *));\n",
			fvVar("i", i), fvVar("i", i), offset)
		offset += common.PointerSize
	}
	for i := range b.fn.FreeVars.Strings {
		fmt.Fprintf(w, "  uint8_t *%s; memcpy(&%s, self + %d, sizeof(uint8_t *));\n",
			fvVar("s", i), fvVar("s", i), offset)
		offset += common.PointerSize
	}
}

// ptrExpr returns a C uint8_t* expression reading loc, valid for every
// Location kind: Args/FreeVars/Globals are always closure pointers, and
// a Local is a pointer unless it was recorded as an already-raw int64_t
// (see rawInt).
func (b *functionBuilder) ptrExpr(loc cmm.Location) string {
	switch loc.Kind {
	case cmm.LocArg:
		return argVar(groupLetter(loc.Storage), loc.Index)
	case cmm.LocClosure:
		return fvVar(groupLetter(loc.Storage), loc.Index)
	case cmm.LocGlobal:
		return globalClosureOrCtorExpr(b.e, loc.Name)
	default: // LocLocal
		if b.rawInt[loc.Name] {
			return "box_int(" + localVar(loc.Name) + ")"
		}
		return localVar(loc.Name)
	}
}

func globalClosureOrCtorExpr(e *Emitter, name string) string {
	for _, tbl := range e.prog.InfoTables {
		if tbl.Kind == cmm.TableCon && tbl.Arity == 0 && strings.TrimPrefix(tbl.Name, "tbl_ctor_") == name {
			return "((uint8_t *)&gclo_ctor_" + mangle(name) + ")"
		}
	}
	return globalClosureExpr(name)
}

func groupLetter(s cmm.Storage) string {
	switch s {
	case cmm.StorageInt:
		return "i"
	case cmm.StorageString:
		return "s"
	default:
		return "p"
	}
}

// intExpr returns a C int64_t expression for an already-forced Int
// scalar, unboxing through the pointer representation when necessary.
func (b *functionBuilder) intExpr(loc cmm.Location) string {
	if loc.Kind == cmm.LocLocal && b.rawInt[loc.Name] {
		return localVar(loc.Name)
	}
	return "unbox_int(" + b.ptrExpr(loc) + ")"
}

func (b *functionBuilder) emitInstr(instr cmm.Instruction) {
	w := &b.out
	switch in := instr.(type) {
	case cmm.IConst:
		switch in.Storage {
		case cmm.StorageInt:
			fmt.Fprintf(w, "  int64_t %s = %d;\n", localVar(in.Dst), in.IntVal)
			b.rawInt[in.Dst] = true
		case cmm.StorageString:
			fmt.Fprintf(w, "  uint8_t *%s = make_string_lit(%q, %d);\n", localVar(in.Dst), in.StrVal, len(in.StrVal))
		default:
			fmt.Fprintf(w, "  uint8_t *%s = NULL; /* unreachable pointer literal */\n", localVar(in.Dst))
		}

	case cmm.IEnterValue:
		if in.Src.Storage == cmm.StorageInt {
			fmt.Fprintf(w, "  force_value(%s);\n  int64_t %s = g_IntRegister;\n", b.ptrExpr(in.Src), localVar(in.Dst))
			b.rawInt[in.Dst] = true
		} else {
			fmt.Fprintf(w, "  uint8_t *%s = force_value(%s);\n", localVar(in.Dst), b.ptrExpr(in.Src))
		}

	case cmm.IProject:
		offset := b.e.fieldOffset(in.Table, in.FieldKind, in.FieldIndex)
		switch in.FieldKind {
		case cmm.StorageInt:
			fmt.Fprintf(w, "  int64_t %s; memcpy(&%s, %s + %s, sizeof(int64_t));\n",
				localVar(in.Dst), localVar(in.Dst), b.ptrExpr(in.Src), offset)
			b.rawInt[in.Dst] = true
		default:
			fmt.Fprintf(w, "  uint8_t *%s; memcpy(&%s, %s + %s, sizeof(uint8_t *));\n",
				localVar(in.Dst), localVar(in.Dst), b.ptrExpr(in.Src), offset)
		}

	case cmm.IAllocClosure:
		b.emitAlloc(in)

	case cmm.IBuiltin1:
		switch in.Op {
		case "negate":
			fmt.Fprintf(w, "  int64_t %s = -(%s);\n", localVar(in.Dst), b.intExpr(in.Arg))
			b.rawInt[in.Dst] = true
		case "printInt":
			fmt.Fprintf(w, "  print_int(%s);\n  uint8_t *%s = get_unit();\n", b.intExpr(in.Arg), localVar(in.Dst))
		case "printString":
			fmt.Fprintf(w, "  print_string(%s);\n  uint8_t *%s = get_unit();\n", b.ptrExpr(in.Arg), localVar(in.Dst))
		default:
			fmt.Fprintf(w, "  int64_t %s = builtin_%s(%s);\n", localVar(in.Dst), builtinName(in.Op), b.intExpr(in.Arg))
			b.rawInt[in.Dst] = true
		}

	case cmm.IBuiltin2:
		if in.Op == "++" {
			fmt.Fprintf(w, "  uint8_t *%s = string_concat(%s, %s);\n", localVar(in.Dst), b.ptrExpr(in.Lhs), b.ptrExpr(in.Rhs))
		} else if in.Op == "==" && isStringLoc(in.Lhs) {
			fmt.Fprintf(w, "  int64_t %s = string_eq(%s, %s);\n", localVar(in.Dst), b.ptrExpr(in.Lhs), b.ptrExpr(in.Rhs))
			b.rawInt[in.Dst] = true
		} else if in.Op == "/=" && isStringLoc(in.Lhs) {
			fmt.Fprintf(w, "  int64_t %s = !string_eq(%s, %s);\n", localVar(in.Dst), b.ptrExpr(in.Lhs), b.ptrExpr(in.Rhs))
			b.rawInt[in.Dst] = true
		} else {
			fmt.Fprintf(w, "  int64_t %s = builtin_%s(%s, %s);\n", localVar(in.Dst), builtinName(in.Op), b.intExpr(in.Lhs), b.intExpr(in.Rhs))
			b.rawInt[in.Dst] = true
		}

	case cmm.IPush:
		fmt.Fprintf(w, "  push_arg(%s);\n", b.ptrExpr(in.Src))

	case cmm.ITailCall:
		fmt.Fprintf(w, "  g_ArgPointerCount = %d; g_ArgIntCount = %d; g_ArgStringCount = %d;\n  g_NodeRegister = %s;\n  return (void *)CLOSURE_TABLE(g_NodeRegister)->entry;\n",
			in.NumPointers, in.NumInts, in.NumStrings, b.ptrExpr(in.Fn))

	case cmm.IReturn:
		b.emitReturn(in)

	case cmm.IPrintError:
		fmt.Fprintf(w, "  panic(%q);\n", in.Message)

	case cmm.IBranch:
		b.emitBranch(in)

	default:
		fmt.Fprintf(w, "  panic(\"cemit: unhandled instruction\");\n")
	}
}

// fieldOffset returns the byte offset of the idx-th field of the given
// kind within a closure built from tableName, using that table's
// recorded group widths to skip over whichever groups precede kind in
// the pointers-then-ints-then-strings layout IAllocClosure used to
// build it.
func (e *Emitter) fieldOffset(tableName string, kind cmm.Storage, index int) string {
	var numPointers, numInts int
	for _, tbl := range e.prog.InfoTables {
		if tbl.Name == tableName {
			numPointers, numInts = tbl.NumPointers, tbl.NumInts
			break
		}
	}
	base := common.InfoTableHeaderSize
	switch kind {
	case cmm.StoragePointer:
		return fmt.Sprintf("%d", base+index*common.PointerSize)
	case cmm.StorageInt:
		return fmt.Sprintf("%d", base+numPointers*common.PointerSize+index*common.IntSize)
	default:
		return fmt.Sprintf("%d", base+numPointers*common.PointerSize+numInts*common.IntSize+index*common.PointerSize)
	}
}

func isStringLoc(loc cmm.Location) bool { return loc.Storage == cmm.StorageString }

// builtinName maps an operator token to the builtin_* C function cemit
// calls for it. negate, printInt and printString never reach here — they
// are handled directly in emitInstr's IBuiltin1 case.
func builtinName(op string) string {
	switch op {
	case "+":
		return "add"
	case "-":
		return "sub"
	case "*":
		return "mul"
	case "/":
		return "div"
	case "==":
		return "eq"
	case "/=":
		return "ne"
	case "<":
		return "lt"
	case "<=":
		return "le"
	case ">":
		return "gt"
	case ">=":
		return "ge"
	default:
		panic(fmt.Sprintf("cemit: unknown builtin operator %q", op))
	}
}

func (b *functionBuilder) emitAlloc(in cmm.IAllocClosure) {
	w := &b.out
	fmt.Fprintf(w, "  uint8_t *%s = heap_alloc(%d);\n", localVar(in.Dst), in.Size)
	fmt.Fprintf(w, "  CLOSURE_TABLE(%s) = &%s;\n", localVar(in.Dst), mangle(in.Table))
	offset := common.InfoTableHeaderSize
	for _, ptr := range in.Pointers {
		fmt.Fprintf(w, "  { uint8_t *tmp = %s; memcpy(%s + %d, &tmp, sizeof(uint8_t *)); }\n", b.ptrExpr(ptr), localVar(in.Dst), offset)
		offset += common.PointerSize
	}
	for _, iv := range in.Ints {
		fmt.Fprintf(w, "  { int64_t tmp = %s; memcpy(%s + %d, &tmp, sizeof(int64_t)); }\n", b.intExpr(iv), localVar(in.Dst), offset)
		offset += common.IntSize
	}
	for _, sv := range in.Strings {
		fmt.Fprintf(w, "  { uint8_t *tmp = %s; memcpy(%s + %d, &tmp, sizeof(uint8_t *)); }\n", b.ptrExpr(sv), localVar(in.Dst), offset)
		offset += common.PointerSize
	}
}

func (b *functionBuilder) emitReturn(in cmm.IReturn) {
	w := &b.out
	switch in.Src.Storage {
	case cmm.StorageInt:
		fmt.Fprintf(w, "  g_IntRegister = %s;\n  g_NodeRegister = box_int(g_IntRegister);\n  return NULL;\n", b.intExpr(in.Src))
	default:
		fmt.Fprintf(w, "  g_NodeRegister = %s;\n  return NULL;\n", b.ptrExpr(in.Src))
	}
}

func (b *functionBuilder) emitBranch(in cmm.IBranch) {
	w := &b.out
	switch {
	case len(in.ConCases) > 0:
		fmt.Fprintf(w, "  switch (CLOSURE_TABLE(%s)->tag) {\n", b.ptrExpr(in.On))
		for _, c := range in.ConCases {
			fmt.Fprintf(w, "    case %d: goto %s;\n", c.Tag, label(c.Target))
		}
		w.WriteString("  }\n")
	case in.BoolCase != nil:
		fmt.Fprintf(w, "  if (unbox_int(%s)) {\n", b.ptrExpr(in.On))
		if in.BoolCase.TrueTarget != "" {
			fmt.Fprintf(w, "    goto %s;\n", label(in.BoolCase.TrueTarget))
		}
		w.WriteString("  } else {\n")
		if in.BoolCase.FalseTarget != "" {
			fmt.Fprintf(w, "    goto %s;\n", label(in.BoolCase.FalseTarget))
		}
		w.WriteString("  }\n")
	case len(in.IntCases) > 0:
		fmt.Fprintf(w, "  switch (unbox_int(%s)) {\n", b.ptrExpr(in.On))
		for _, c := range in.IntCases {
			fmt.Fprintf(w, "    case %d: goto %s;\n", c.Value, label(c.Target))
		}
		w.WriteString("  }\n")
	case len(in.StrCases) > 0:
		for _, c := range in.StrCases {
			fmt.Fprintf(w, "  if (string_eq(%s, make_string_lit(%q, %d))) goto %s;\n",
				b.ptrExpr(in.On), c.Value, len(c.Value), label(c.Target))
		}
	}
	if in.Default != "" {
		fmt.Fprintf(w, "  goto %s;\n", label(in.Default))
	} else {
		w.WriteString("  panic(\"non-exhaustive case\");\n")
	}
}
