package cmm

import (
	"fmt"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/common"
	"github.com/thunkc/thunkc/stg"
)

// Lower flattens an stg.Program into Cmm. Every top-level stg.Binding
// becomes a top-level Function; every nested stg.ELet binding is
// lambda-lifted into its own top-level Function, free variables resolved
// against whatever enclosing scope held them at the point of capture;
// every stg.ECase alternative becomes an extra Block of whichever
// Function its case expression lives in, per Block's doc comment.
func Lower(prog *stg.Program, ctors *ast.ConstructorMap) (*Program, error) {
	ctx := &lowerCtx{nc: &common.NameCounter{}, ctors: ctors, globals: map[string]bool{}}
	for _, b := range prog.Bindings {
		ctx.globals[b.Name] = true
	}
	for name := range ctors.ByName {
		ctx.globals[name] = true
	}
	for _, name := range stg.BuiltinNames() {
		ctx.globals[name] = true
	}

	for _, info := range ctors.ByName {
		var pointers, ints, strings int
		for _, t := range info.FieldType {
			switch classifyASTType(t) {
			case StorageInt:
				ints++
			case StorageString:
				strings++
			default:
				pointers++
			}
		}
		ctx.tables = append(ctx.tables, &InfoTable{
			Name:        ctorTableName(info.Name),
			Kind:        TableCon,
			EntryFunc:   "whnf_self_entry",
			Arity:       info.Arity,
			Tag:         info.Tag,
			Size:        closureSize(pointers, ints, strings),
			NumPointers: pointers,
			NumInts:     ints,
			NumStrings:  strings,
		})
	}

	for _, b := range prog.Bindings {
		ctx.lowerTopLevelBinding(b)
	}

	return &Program{Functions: ctx.funcs, InfoTables: ctx.tables, Entry: prog.Entry}, nil
}

type lowerCtx struct {
	nc         *common.NameCounter
	ctors      *ast.ConstructorMap
	globals    map[string]bool
	funcs      []*Function
	tables     []*InfoTable
	nextGlobal int
}

func (ctx *lowerCtx) freshGlobalName(hint string) string {
	name := fmt.Sprintf("clo_%s_%d", sanitizeIdent(hint), ctx.nextGlobal)
	ctx.nextGlobal++
	return name
}

func sanitizeIdent(s string) string {
	b := []byte(s)
	for i, c := range b {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			b[i] = '_'
		}
	}
	if len(b) == 0 {
		return "t"
	}
	return string(b)
}

func infoTableName(fnName string) string   { return "tbl_" + fnName }
func ctorTableName(ctorName string) string { return "tbl_ctor_" + ctorName }

// classifyASTType mirrors stg's own classify, duplicated here so this
// package doesn't need to reach into stg's unexported helper just to size
// a constructor's fields the same way stg.Lower already did.
func classifyASTType(t ast.Type) Storage {
	if con, ok := t.(*ast.TCon); ok {
		switch con.Name {
		case "Int", "Bool":
			return StorageInt
		case "String":
			return StorageString
		}
	}
	return StoragePointer
}

func storageOf(k stg.ValueKind) Storage {
	switch k {
	case stg.KindInt:
		return StorageInt
	case stg.KindString:
		return StorageString
	default:
		return StoragePointer
	}
}

// partition buckets vars by kind, preserving each bucket's original
// relative order — the same canonical grouping a call site's pushes and
// a closure's field layout both follow, so indices line up everywhere.
func partition(vars []stg.AtomVar) ArgGroup {
	var g ArgGroup
	for _, v := range vars {
		switch v.Kind {
		case stg.KindInt:
			g.Ints = append(g.Ints, v.Name)
		case stg.KindString:
			g.Strings = append(g.Strings, v.Name)
		default:
			g.Pointers = append(g.Pointers, v.Name)
		}
	}
	return g
}

// scope resolves a name visible inside the function currently being
// built to the Location an instruction should read it from.
type scope struct {
	locals map[string]Location
}

func newScope(args, freeVars ArgGroup) *scope {
	s := &scope{locals: map[string]Location{}}
	bindGroup := func(g ArgGroup, kind LocKind) {
		for i, n := range g.Pointers {
			s.locals[n] = Location{Kind: kind, Index: i, Name: n, Storage: StoragePointer}
		}
		for i, n := range g.Ints {
			s.locals[n] = Location{Kind: kind, Index: i, Name: n, Storage: StorageInt}
		}
		for i, n := range g.Strings {
			s.locals[n] = Location{Kind: kind, Index: i, Name: n, Storage: StorageString}
		}
	}
	bindGroup(args, LocArg)
	bindGroup(freeVars, LocClosure)
	return s
}

func (s *scope) bind(name string, loc Location) { s.locals[name] = loc }

func (ctx *lowerCtx) resolve(s *scope, name string, kind stg.ValueKind) Location {
	if loc, ok := s.locals[name]; ok {
		return loc
	}
	// Anything not already local/arg/freevar must be a global binding, a
	// constructor, or a builtin — stg's free-variable pass guarantees
	// every other name was already captured.
	return Location{Kind: LocGlobal, Name: name, Storage: storageOf(kind)}
}

// lowerTopLevelBinding builds name's Function and the InfoTable that
// describes its closure shape (TableFun for anything with parameters,
// TableThunk for a zero-arg value binding that must be entered and
// updated in place once forced).
func (ctx *lowerCtx) lowerTopLevelBinding(b *stg.Binding) {
	fn := ctx.buildFunction(b.Name, FuncTopLevel, b.Form)
	ctx.funcs = append(ctx.funcs, fn)

	kind := TableFun
	if len(b.Form.Params) == 0 {
		kind = TableThunk
	}
	// A top-level binding never captures anything (there is no enclosing
	// environment to capture from), so its closure payload is always
	// empty — just the InfoTable* header.
	ctx.tables = append(ctx.tables, &InfoTable{
		Name:      infoTableName(b.Name),
		Kind:      kind,
		EntryFunc: fn.Name,
		Arity:     len(b.Form.Params),
		Size:      closureSize(0, 0, 0),
	})
}

func (ctx *lowerCtx) buildFunction(name string, kind FunctionKind, form *stg.LambdaForm) *Function {
	args := partition(form.Params)
	freeVars := partition(form.FreeVars)
	b := &fnBuilder{ctx: ctx, scope: newScope(args, freeVars)}
	b.cur = b.startBlock("entry")
	b.lowerTerminal(form.Body)
	return &Function{Name: name, Kind: kind, Args: args, FreeVars: freeVars, Blocks: b.blocks}
}

// fnBuilder accumulates one Function's Blocks while walking its body.
type fnBuilder struct {
	ctx    *lowerCtx
	scope  *scope
	blocks []*Block
	cur    *Block
}

func (b *fnBuilder) startBlock(label string) *Block {
	blk := &Block{Label: label}
	b.blocks = append(b.blocks, blk)
	return blk
}

func (b *fnBuilder) emit(instr Instruction) {
	b.cur.Body = append(b.cur.Body, instr)
}

func (b *fnBuilder) fresh() string { return b.ctx.nc.Fresh() }

// locationOf resolves an atom to a Location, materializing a fresh local
// via IConst first if the atom is a literal rather than a bare name.
func (b *fnBuilder) locationOf(a stg.Atom) Location {
	switch v := a.(type) {
	case stg.AtomVar:
		return b.ctx.resolve(b.scope, v.Name, v.Kind)
	case stg.AtomInt:
		name := b.fresh()
		b.emit(IConst{Dst: name, Storage: StorageInt, IntVal: v.Value})
		loc := Location{Kind: LocLocal, Name: name, Storage: StorageInt}
		b.scope.bind(name, loc)
		return loc
	case stg.AtomBool:
		name := b.fresh()
		iv := int64(0)
		if v.Value {
			iv = 1
		}
		b.emit(IConst{Dst: name, Storage: StorageInt, IntVal: iv})
		loc := Location{Kind: LocLocal, Name: name, Storage: StorageInt}
		b.scope.bind(name, loc)
		return loc
	case stg.AtomString:
		name := b.fresh()
		b.emit(IConst{Dst: name, Storage: StorageString, StrVal: v.Value})
		loc := Location{Kind: LocLocal, Name: name, Storage: StorageString}
		b.scope.bind(name, loc)
		return loc
	default:
		panic(fmt.Sprintf("cmm: unknown atom %T", a))
	}
}

// force emits an IEnterValue bringing loc to weak head normal form. Entering
// a Location that already holds a resolved value (any IConst/IBuiltin/
// IProject result) is a no-op fast path at runtime; emitting it
// unconditionally here keeps every consumer of a value uniform rather
// than threading "is this already forced" bookkeeping through lower.go.
func (b *fnBuilder) force(loc Location) Location {
	name := b.fresh()
	b.emit(IEnterValue{Dst: name, Src: loc})
	forced := Location{Kind: LocLocal, Name: name, Storage: loc.Storage}
	b.scope.bind(name, forced)
	return forced
}

func atomKind(a stg.Atom) stg.ValueKind {
	switch v := a.(type) {
	case stg.AtomVar:
		return v.Kind
	case stg.AtomInt:
		return stg.KindInt
	case stg.AtomBool:
		return stg.KindInt
	case stg.AtomString:
		return stg.KindString
	default:
		return stg.KindPointer
	}
}

// pushArgsInOrder pushes every call argument via IPush, in the same
// Pointers-then-Ints-then-Strings canonical order the callee's own
// ArgGroup partitioning produces — since both sides independently bucket
// the same originally-ordered parameter list, the pop order on the
// callee side matches the push order here with no extra bookkeeping. It
// returns each group's width, so the caller can tell the callee's entry
// code exactly how many arguments of each kind just arrived.
func pushArgsInOrder(b *fnBuilder, args []stg.Atom) (numPointers, numInts, numStrings int) {
	var ptrs, ints, strs []stg.Atom
	for _, a := range args {
		switch atomKind(a) {
		case stg.KindInt:
			ints = append(ints, a)
		case stg.KindString:
			strs = append(strs, a)
		default:
			ptrs = append(ptrs, a)
		}
	}
	for _, a := range ptrs {
		b.emit(IPush{Src: b.locationOf(a)})
	}
	for _, a := range ints {
		b.emit(IPush{Src: b.locationOf(a)})
	}
	for _, a := range strs {
		b.emit(IPush{Src: b.locationOf(a)})
	}
	return len(ptrs), len(ints), len(strs)
}

func (b *fnBuilder) lowerTerminal(e stg.Expr) {
	switch e := e.(type) {
	case stg.EAtom:
		// A bare atom in tail position may still be an unentered thunk
		// (e.g. a CAF that is just an alias for another binding), so it
		// is forced before handing it back — IReturn's contract is that
		// its Src is already in normal form.
		b.emit(IReturn{Src: b.force(b.locationOf(e.Atom))})
	case stg.EApp:
		// Fn is not guaranteed to already be a function/PAP closure — a
		// let-bound name of function type is exactly as lazy as any other
		// binding, so applying it before forcing it would jump straight
		// into an unevaluated thunk's body instead of the value it
		// produces. force_value hands a closure whose info table is
		// CLOSURE_KIND_FUN straight back without entering it (see
		// runtime.c's already_whnf), so this costs little on the common
		// case of calling a global function directly.
		fnLoc := b.force(b.ctx.resolve(b.scope, e.Fn.Name, e.Fn.Kind))
		np, ni, ns := pushArgsInOrder(b, e.Args)
		b.emit(ITailCall{Fn: fnLoc, NumPointers: np, NumInts: ni, NumStrings: ns})
	case stg.EConstructor:
		b.emit(IReturn{Src: b.buildConstructor(e)})
	case stg.EBuiltin:
		b.emit(IReturn{Src: b.buildBuiltin(e)})
	case stg.ELet:
		for _, bind := range e.Bindings {
			b.lowerBindingClosure(bind)
		}
		b.lowerTerminal(e.Body)
	case stg.ECase:
		b.lowerCase(e)
	case stg.EMatchFail:
		b.emit(IPrintError{Message: e.Message})
	default:
		panic(fmt.Sprintf("cmm: unexpected stg expr %T", e))
	}
}

// buildConstructor allocates a constructor's closure. Int and String
// arguments are forced to
// their unboxed/pointer payload before storage — a data constructor's
// primitive fields are never thunks — while Pointer-kind arguments
// (nested ADTs, functions, anything polymorphic) are stored as the raw,
// still-unforced Location, preserving laziness for everything else.
func (b *fnBuilder) buildConstructor(e stg.EConstructor) Location {
	var ptrs, ints, strs []Location
	for _, a := range e.Args {
		loc := b.locationOf(a)
		if loc.Storage == StorageInt || loc.Storage == StorageString {
			loc = b.force(loc)
		}
		switch loc.Storage {
		case StorageInt:
			ints = append(ints, loc)
		case StorageString:
			strs = append(strs, loc)
		default:
			ptrs = append(ptrs, loc)
		}
	}
	dst := b.fresh()
	size := closureSize(len(ptrs), len(ints), len(strs))
	b.emit(IAllocClosure{Dst: dst, Table: ctorTableName(e.Ctor), Pointers: ptrs, Ints: ints, Strings: strs, Size: size})
	loc := Location{Kind: LocLocal, Name: dst, Storage: StoragePointer}
	b.scope.bind(dst, loc)
	return loc
}

func builtinResultStorage(op string) Storage {
	switch op {
	case "++":
		return StorageString
	case "printInt", "printString":
		// both print builtins return the nullary Unit value, which is a
		// statically allocated closure pointer rather than an unboxed word.
		return StoragePointer
	default:
		// arithmetic results are Int; comparisons produce Bool, which
		// shares Int's unboxed representation.
		return StorageInt
	}
}

func (b *fnBuilder) buildBuiltin(e stg.EBuiltin) Location {
	args := make([]Location, len(e.Args))
	for i, a := range e.Args {
		args[i] = b.force(b.locationOf(a))
	}
	dst := b.fresh()
	storage := builtinResultStorage(e.Op)
	if len(args) == 1 {
		b.emit(IBuiltin1{Dst: dst, Op: e.Op, Arg: args[0]})
	} else {
		b.emit(IBuiltin2{Dst: dst, Op: e.Op, Lhs: args[0], Rhs: args[1]})
	}
	loc := Location{Kind: LocLocal, Name: dst, Storage: storage}
	b.scope.bind(dst, loc)
	return loc
}

// lowerBindingClosure lambda-lifts one stg.ELet binding into its own
// top-level Function plus the IAllocClosure that instantiates it here,
// capturing each of its free variables from the scope this let lives in.
// Free variables are captured as-is, unforced: an ordinary let-bound
// closure stays exactly as lazy as the source let it came from. An
// Int-kind free variable is therefore still a closure pointer here, so it
// is stored in a pointer field (after the Pointer-kind ones, where the
// closure's own Function reads it back) and evacuated like one.
func (b *fnBuilder) lowerBindingClosure(bind *stg.Binding) {
	globalName := b.ctx.freshGlobalName(bind.Name)
	fn := b.ctx.buildFunction(globalName, FuncClosure, bind.Form)
	b.ctx.funcs = append(b.ctx.funcs, fn)

	kind := TableFun
	if len(bind.Form.Params) == 0 {
		kind = TableThunk
	}

	var ptrs, ints, strs []Location
	for _, fv := range bind.Form.FreeVars {
		loc := b.ctx.resolve(b.scope, fv.Name, fv.Kind)
		switch storageOf(fv.Kind) {
		case StorageInt:
			ints = append(ints, loc)
		case StorageString:
			strs = append(strs, loc)
		default:
			ptrs = append(ptrs, loc)
		}
	}
	ptrs, ints = append(ptrs, ints...), nil
	size := closureSize(len(ptrs), len(ints), len(strs))
	if kind == TableThunk && size < common.MinRelocatableSize {
		// A thunk this small still needs room to be overwritten with an
		// indirection closure once forced, so its reservation is padded
		// up to the smallest relocatable size even though its own
		// fields use less.
		size = common.MinRelocatableSize
	}

	table := &InfoTable{
		Name: infoTableName(globalName), Kind: kind, EntryFunc: fn.Name, Arity: len(bind.Form.Params), Size: size,
		NumPointers: len(ptrs), NumInts: len(ints), NumStrings: len(strs),
	}
	b.ctx.tables = append(b.ctx.tables, table)

	b.emit(IAllocClosure{Dst: bind.Name, Table: table.Name, Pointers: ptrs, Ints: ints, Strings: strs, Size: size})
	b.scope.bind(bind.Name, Location{Kind: LocLocal, Name: bind.Name, Storage: StoragePointer})
}

// emitProjections reads each constructor binder out of an already-forced
// closure pointer, grouping by kind in the same canonical order
// buildConstructor used to lay its fields out.
func (b *fnBuilder) emitProjections(ptr Location, table string, binders []stg.AtomVar) {
	group := partition(binders)
	for i, n := range group.Pointers {
		b.projectOne(ptr, table, n, StoragePointer, i)
	}
	for i, n := range group.Ints {
		b.projectOne(ptr, table, n, StorageInt, i)
	}
	for i, n := range group.Strings {
		b.projectOne(ptr, table, n, StorageString, i)
	}
}

func (b *fnBuilder) projectOne(ptr Location, table, name string, storage Storage, index int) {
	b.emit(IProject{Dst: name, Src: ptr, FieldKind: storage, FieldIndex: index, Table: table})
	b.scope.bind(name, Location{Kind: LocLocal, Name: name, Storage: storage})
}

// lowerCase forces the scrutinee, then lowers each alternative into its
// own Block of the current Function (see Block's doc comment for why
// alternatives don't need their own closures), finishing with a single
// IBranch in the block the case expression itself appears in.
func (b *fnBuilder) lowerCase(e stg.ECase) {
	forced := b.force(b.locationOf(e.Scrutinee))
	branch := IBranch{On: forced}
	outer := b.cur

	var trueLabel, falseLabel string

	for _, alt := range e.Alts.Cases {
		switch alt.Kind {
		case stg.AltConstructor:
			label := fmt.Sprintf("alt_%s_%s", sanitizeIdent(alt.Ctor), b.fresh())
			b.cur = b.startBlock(label)
			b.emitProjections(forced, ctorTableName(alt.Ctor), alt.Binders)
			b.lowerTerminal(alt.Body)
			branch.ConCases = append(branch.ConCases, ConCase{Tag: alt.Tag, Target: label})
		case stg.AltInt:
			label := fmt.Sprintf("alt_int_%s", b.fresh())
			b.cur = b.startBlock(label)
			b.lowerTerminal(alt.Body)
			branch.IntCases = append(branch.IntCases, IntCase{Value: alt.IntVal, Target: label})
		case stg.AltBool:
			label := fmt.Sprintf("alt_bool_%s", b.fresh())
			b.cur = b.startBlock(label)
			b.lowerTerminal(alt.Body)
			if alt.BoolVal {
				trueLabel = label
			} else {
				falseLabel = label
			}
		case stg.AltString:
			label := fmt.Sprintf("alt_str_%s", b.fresh())
			b.cur = b.startBlock(label)
			b.lowerTerminal(alt.Body)
			branch.StrCases = append(branch.StrCases, StrCase{Value: alt.StringVal, Target: label})
		}
	}

	if trueLabel != "" || falseLabel != "" {
		branch.BoolCase = &BoolCase{TrueTarget: trueLabel, FalseTarget: falseLabel}
	}

	if e.Alts.Default != nil {
		label := fmt.Sprintf("alt_default_%s", b.fresh())
		b.cur = b.startBlock(label)
		b.lowerTerminal(e.Alts.Default)
		branch.Default = label
	}

	b.cur = outer
	b.emit(branch)
}
