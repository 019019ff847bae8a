package stg

import (
	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/common"
	"github.com/thunkc/thunkc/report"
)

// Lower converts a simplified, type-annotated ast.Program (after
// patmat.Compile and typing.Infer have both run) into an stg.Program.
// This is ConvertExpr plus the atomization and free-variable-capture
// passes, rolled into one top-to-bottom walk: every compound
// subexpression that would otherwise appear in argument or scrutinee
// position is let-bound first (atomize), application chains are
// flattened and matched against the builtin and constructor tables before
// falling back to ordinary EApp (GatherApplications + ConvertExpr's
// builtin dispatch), and every LambdaForm's free variables are filled in
// by a final bottom-up pass (computeAllFreeVars).
func Lower(prog *ast.Program) (*Program, error) {
	ctx := &lowerCtx{
		nc:      &common.NameCounter{},
		ctors:   prog.Constructors,
		globals: map[string]bool{},
	}
	for _, d := range prog.Defs {
		ctx.globals[d.Name] = true
	}
	for name := range prog.Constructors.ByName {
		ctx.globals[name] = true
	}
	for name := range builtinArity {
		ctx.globals[name] = true
	}

	bindings := make([]*Binding, 0, len(prog.Defs))
	for _, d := range prog.Defs {
		bindings = append(bindings, &Binding{Name: d.Name, Form: ctx.lowerTopLevel(d)})
	}

	out := &Program{Bindings: bindings, Entry: "main"}
	computeAllFreeVars(out, ctx.globals)
	return out, nil
}

type lowerCtx struct {
	nc      *common.NameCounter
	ctors   *ast.ConstructorMap
	globals map[string]bool
}

func classify(t ast.Type) ValueKind {
	if con, ok := t.(*ast.TCon); ok {
		switch con.Name {
		case "Int", "Bool":
			return KindInt
		case "String":
			return KindString
		}
	}
	return KindPointer
}

// unfoldFnType peels n arrows off t, returning the parameter types in
// order and whatever is left as the result type.
func unfoldFnType(t ast.Type, n int) []ast.Type {
	types := make([]ast.Type, 0, n)
	cur := t
	for i := 0; i < n; i++ {
		fn, ok := cur.(*ast.TFun)
		if !ok {
			break
		}
		types = append(types, fn.Param)
		cur = fn.Result
	}
	return types
}

func (ctx *lowerCtx) lowerTopLevel(d *ast.Def) *LambdaForm {
	var params []AtomVar
	cur := d.Body
	for {
		lam, ok := cur.(*ast.Lambda)
		if !ok {
			break
		}
		types := unfoldFnType(lam.ExprType(), len(lam.Params))
		for i, p := range lam.Params {
			kind := KindPointer
			if i < len(types) {
				kind = classify(types[i])
			}
			params = append(params, AtomVar{Name: p, Kind: kind})
		}
		cur = lam.Body
	}

	update := Updateable
	if len(params) > 0 {
		update = NonUpdateable
	}
	return &LambdaForm{Params: params, Update: update, Body: ctx.convertExpr(cur)}
}

func (ctx *lowerCtx) lowerLambdaValue(lam *ast.Lambda) *LambdaForm {
	types := unfoldFnType(lam.ExprType(), len(lam.Params))
	params := make([]AtomVar, len(lam.Params))
	for i, p := range lam.Params {
		kind := KindPointer
		if i < len(types) {
			kind = classify(types[i])
		}
		params[i] = AtomVar{Name: p, Kind: kind}
	}
	return &LambdaForm{Params: params, Update: NonUpdateable, Body: ctx.convertExpr(lam.Body)}
}

func (ctx *lowerCtx) atomForVar(v *ast.Var) AtomVar {
	return AtomVar{Name: v.Name, Kind: classify(v.ExprType())}
}

func (ctx *lowerCtx) convertExpr(e ast.Expr) Expr {
	switch e := e.(type) {
	case *ast.IntLit:
		return EAtom{AtomInt{e.Value}}
	case *ast.BoolLit:
		return EAtom{AtomBool{e.Value}}
	case *ast.StringLit:
		return EAtom{AtomString{e.Value}}
	case *ast.Var:
		return EAtom{ctx.atomForVar(e)}
	case *ast.Lambda:
		name := ctx.nc.Fresh()
		form := ctx.lowerLambdaValue(e)
		return ELet{
			Bindings: []*Binding{{Name: name, Form: form}},
			Body:     EAtom{AtomVar{Name: name, Kind: KindPointer}},
		}
	case *ast.App:
		return ctx.convertApp(e)
	case *ast.Let:
		return ctx.convertLet(e)
	case *ast.Case:
		return ctx.convertCase(e)
	case *ast.MatchFailure:
		return EMatchFail{Message: e.Message}
	default:
		report.Raise(report.KindInternal, e.Span(), "stg: unexpected node %T", e)
		return nil
	}
}

// gatherApp flattens a left-nested chain of App nodes into its head and
// its arguments in source order.
func gatherApp(e ast.Expr) (ast.Expr, []ast.Expr) {
	var args []ast.Expr
	cur := e
	for {
		app, ok := cur.(*ast.App)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		cur = app.Fn
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
	}
	return cur, args
}

func (ctx *lowerCtx) convertApp(e *ast.App) Expr {
	head, args := gatherApp(e)

	if v, ok := head.(*ast.Var); ok {
		if arity, isBuiltin := builtinArity[v.Name]; isBuiltin && arity == len(args) {
			atoms, bindings := ctx.atomizeArgs(args)
			return wrapBindings(bindings, EBuiltin{Op: v.Name, Args: atoms})
		}
		if info, isCtor := ctx.ctors.ByName[v.Name]; isCtor && info.Arity == len(args) {
			atoms, bindings := ctx.atomizeArgs(args)
			return wrapBindings(bindings, EConstructor{Ctor: v.Name, Tag: info.Tag, Args: atoms})
		}
	}

	fnAtom, headBindings := ctx.atomize(head)
	fnVar, ok := fnAtom.(AtomVar)
	if !ok {
		report.Raise(report.KindInternal, e.Span(), "stg: function position is not a variable")
	}
	argAtoms, argBindings := ctx.atomizeArgs(args)
	allBindings := append(headBindings, argBindings...)
	return wrapBindings(allBindings, EApp{Fn: fnVar, Args: argAtoms})
}

// atomize converts e to an Atom, synthesizing a fresh let-binding for it
// first if e is not already a literal or a bare variable.
func (ctx *lowerCtx) atomize(e ast.Expr) (Atom, []*Binding) {
	switch v := e.(type) {
	case *ast.IntLit:
		return AtomInt{v.Value}, nil
	case *ast.BoolLit:
		return AtomBool{v.Value}, nil
	case *ast.StringLit:
		return AtomString{v.Value}, nil
	case *ast.Var:
		return ctx.atomForVar(v), nil
	default:
		name := ctx.nc.Fresh()
		body := ctx.convertExpr(e)
		kind := classify(e.ExprType())
		form := &LambdaForm{Update: Updateable, Body: body}
		return AtomVar{Name: name, Kind: kind}, []*Binding{{Name: name, Form: form}}
	}
}

func (ctx *lowerCtx) atomizeArgs(args []ast.Expr) ([]Atom, []*Binding) {
	atoms := make([]Atom, len(args))
	var bindings []*Binding
	for i, a := range args {
		at, bs := ctx.atomize(a)
		atoms[i] = at
		bindings = append(bindings, bs...)
	}
	return atoms, bindings
}

func wrapBindings(bindings []*Binding, body Expr) Expr {
	if len(bindings) == 0 {
		return body
	}
	return ELet{Bindings: bindings, Body: body}
}

func (ctx *lowerCtx) convertLet(e *ast.Let) Expr {
	bindings := make([]*Binding, len(e.Bindings))
	for i, b := range e.Bindings {
		var form *LambdaForm
		if lam, ok := b.RHS.(*ast.Lambda); ok {
			form = ctx.lowerLambdaValue(lam)
		} else {
			form = &LambdaForm{Update: Updateable, Body: ctx.convertExpr(b.RHS)}
		}
		bindings[i] = &Binding{Name: b.Name, Form: form}
	}
	return ELet{Bindings: bindings, Body: ctx.convertExpr(e.Body)}
}

func (ctx *lowerCtx) convertCase(e *ast.Case) Expr {
	scrutAtom, scrutBindings := ctx.atomize(e.Scrutinee)
	alts := ctx.convertAlts(e.Alts, scrutAtom)
	return wrapBindings(scrutBindings, ECase{Scrutinee: scrutAtom, Alts: alts})
}

// convertAlts partitions alts into the non-default cases and exactly one
// default, per §3.1: the default alternative is either a wildcard or
// binds the scrutinee itself to a name, so a *ast.PVar default is lowered
// to a let rebinding that name to scrutAtom around the default body.
func (ctx *lowerCtx) convertAlts(alts []*ast.Alt, scrutAtom Atom) *Alternatives {
	var cases []*AltCase
	var kind AltKind
	var def Expr
	kindSet := false

	for _, alt := range alts {
		switch p := alt.Pattern.(type) {
		case *ast.PWild:
			def = ctx.convertExpr(alt.Body)
		case *ast.PVar:
			def = ELet{
				Bindings: []*Binding{{Name: p.Name, Form: &LambdaForm{Update: NonUpdateable, Body: EAtom{scrutAtom}}}},
				Body:     ctx.convertExpr(alt.Body),
			}
		case *ast.PLit:
			ac := ctx.convertLitAlt(p, alt.Body)
			if !kindSet {
				kind, kindSet = ac.Kind, true
			}
			cases = append(cases, ac)
		case *ast.PCon:
			ac := ctx.convertConAlt(p, alt.Body)
			if !kindSet {
				kind, kindSet = AltConstructor, true
			}
			cases = append(cases, ac)
		}
	}
	return &Alternatives{Kind: kind, Cases: cases, Default: def}
}

func (ctx *lowerCtx) convertLitAlt(p *ast.PLit, body ast.Expr) *AltCase {
	bodyIR := ctx.convertExpr(body)
	switch lit := p.Lit.(type) {
	case *ast.IntLit:
		return &AltCase{Kind: AltInt, IntVal: lit.Value, Body: bodyIR}
	case *ast.BoolLit:
		return &AltCase{Kind: AltBool, BoolVal: lit.Value, Body: bodyIR}
	case *ast.StringLit:
		return &AltCase{Kind: AltString, StringVal: lit.Value, Body: bodyIR}
	default:
		report.Raise(report.KindInternal, p.Span(), "stg: unknown literal pattern %T", p.Lit)
		return nil
	}
}

func (ctx *lowerCtx) convertConAlt(p *ast.PCon, body ast.Expr) *AltCase {
	info, ok := ctx.ctors.ByName[p.Ctor]
	if !ok {
		report.Raise(report.KindResolve, p.Span(), "undefined constructor %q", p.Ctor)
	}
	binders := make([]AtomVar, len(p.SubPatterns))
	for i, sub := range p.SubPatterns {
		pv, ok := sub.(*ast.PVar)
		if !ok {
			report.Raise(report.KindInternal, sub.Span(), "stg: nested pattern survived patmat.Compile")
			continue
		}
		kind := KindPointer
		if i < len(info.FieldType) {
			kind = classify(info.FieldType[i])
		}
		binders[i] = AtomVar{Name: pv.Name, Kind: kind}
	}
	return &AltCase{Kind: AltConstructor, Ctor: p.Ctor, Tag: info.Tag, Binders: binders, Body: ctx.convertExpr(body)}
}
