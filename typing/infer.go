package typing

import (
	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/report"
)

// constraint is one unification obligation generated while walking the
// program; solving happens in a single separate pass over the whole
// collected list, not interleaved with generation.
type constraint struct {
	lhs, rhs ast.Type
	span     *report.TextSpan
}

// env is a persistent-enough (copy-on-extend) mapping from name to type
// scheme, used for lexical scoping of lambda/let/pattern-bound variables
// and for top-level definitions.
type env map[string]*ast.Scheme

func (e env) extend(name string, s *ast.Scheme) env {
	e2 := make(env, len(e)+1)
	for k, v := range e {
		e2[k] = v
	}
	e2[name] = s
	return e2
}

func monoScheme(t ast.Type) *ast.Scheme { return &ast.Scheme{Type: t} }

// inferer carries the mutable bits that are genuinely single-threaded
// through one compilation: the fresh type-variable counter and the
// accumulated constraint list. The substitution itself stays immutable
// and is only ever threaded through Solve's return value.
type inferer struct {
	next        int
	constraints []constraint
	ctors       *ast.ConstructorMap
}

func (in *inferer) fresh() *ast.TVar {
	t := &ast.TVar{ID: in.next}
	in.next++
	return t
}

func (in *inferer) emit(lhs, rhs ast.Type, span *report.TextSpan) {
	in.constraints = append(in.constraints, constraint{lhs, rhs, span})
}

// builtinEnv is the fixed typing for every builtin operator name the
// parser can produce (syntax.parseOpExpr and parseUnary). Arithmetic and
// comparison operators are monomorphic over Int; this mirrors the small,
// Int/Bool/String-only primitive set this language supports and keeps
// the constraint language first-order rather than introducing ad hoc
// operator polymorphism.
func builtinEnv() env {
	intOp := monoScheme(&ast.TFun{Param: ast.TypeInt, Result: &ast.TFun{Param: ast.TypeInt, Result: ast.TypeInt}})
	cmpOp := monoScheme(&ast.TFun{Param: ast.TypeInt, Result: &ast.TFun{Param: ast.TypeInt, Result: ast.TypeBool}})
	concatOp := monoScheme(&ast.TFun{Param: ast.TypeString, Result: &ast.TFun{Param: ast.TypeString, Result: ast.TypeString}})
	negateOp := monoScheme(&ast.TFun{Param: ast.TypeInt, Result: ast.TypeInt})
	printIntOp := monoScheme(&ast.TFun{Param: ast.TypeInt, Result: ast.TypeUnit})
	printStringOp := monoScheme(&ast.TFun{Param: ast.TypeString, Result: ast.TypeUnit})

	return env{
		"+": intOp, "-": intOp, "*": intOp, "/": intOp,
		"==": cmpOp, "/=": cmpOp, "<": cmpOp, "<=": cmpOp, ">": cmpOp, ">=": cmpOp,
		"++":         concatOp,
		"negate":     negateOp,
		"printInt":   printIntOp,
		"printString": printStringOp,
	}
}

// ctorScheme builds the curried constructor function type
// Field1 -> Field2 -> ... -> T for a declared constructor.
func ctorScheme(info *ast.ConstructorInfo) *ast.Scheme {
	result := ast.Type(&ast.TCon{Name: info.TypeName})
	for i := len(info.FieldType) - 1; i >= 0; i-- {
		result = &ast.TFun{Param: info.FieldType[i], Result: result}
	}
	return monoScheme(result)
}

// Infer type-checks every definition in prog, mutating each Def.Scheme and
// annotating every Expr node's type via ast.SetType. Definitions are
// treated as one mutually recursive group, the same scoping rule
// let-bindings use ("later bindings in the list may reference earlier
// ones" — here, every top-level name may reference every other).
func Infer(prog *ast.Program) error {
	in := &inferer{ctors: prog.Constructors}

	base := builtinEnv()
	for name, info := range prog.Constructors.ByName {
		base = base.extend(name, ctorScheme(info))
	}

	// Give every top-level def a fresh monomorphic placeholder type so
	// mutually recursive references type-check before generalization.
	placeholders := make(map[string]*ast.TVar, len(prog.Defs))
	for _, def := range prog.Defs {
		tv := in.fresh()
		placeholders[def.Name] = tv
		base = base.extend(def.Name, monoScheme(tv))
	}

	for _, def := range prog.Defs {
		t := in.inferExpr(base, def.Body)
		in.emit(placeholders[def.Name], t, def.Span)
	}

	sub, err := solve(in.constraints)
	if err != nil {
		return err
	}

	for _, def := range prog.Defs {
		resolved := sub.Apply(placeholders[def.Name])
		def.Scheme = generalize(resolved)
		annotate(def.Body, sub)
	}
	return nil
}

// inferExpr assigns ast.Types to e and every subexpression (via
// ast.SetType, resolved later against the final substitution by
// annotate), and returns e's own type.
func (in *inferer) inferExpr(e env, expr ast.Expr) ast.Type {
	switch node := expr.(type) {
	case *ast.IntLit:
		ast.SetType(node, ast.TypeInt)
		return ast.TypeInt
	case *ast.BoolLit:
		ast.SetType(node, ast.TypeBool)
		return ast.TypeBool
	case *ast.StringLit:
		ast.SetType(node, ast.TypeString)
		return ast.TypeString

	case *ast.Var:
		scheme, ok := e[node.Name]
		if !ok {
			report.Raise(report.KindResolve, node.Span(), "undefined name %q", node.Name)
		}
		t := instantiate(in, scheme)
		ast.SetType(node, t)
		return t

	case *ast.Lambda:
		paramTypes := make([]ast.Type, len(node.Params))
		scoped := e
		for i, p := range node.Params {
			tv := in.fresh()
			paramTypes[i] = tv
			scoped = scoped.extend(p, monoScheme(tv))
		}
		bodyT := in.inferExpr(scoped, node.Body)
		t := bodyT
		for i := len(paramTypes) - 1; i >= 0; i-- {
			t = &ast.TFun{Param: paramTypes[i], Result: t}
		}
		ast.SetType(node, t)
		return t

	case *ast.App:
		fnT := in.inferExpr(e, node.Fn)
		argT := in.inferExpr(e, node.Arg)
		resultT := in.fresh()
		in.emit(fnT, &ast.TFun{Param: argT, Result: resultT}, node.Span())
		ast.SetType(node, resultT)
		return resultT

	case *ast.Let:
		scoped := e
		for _, b := range node.Bindings {
			// Mutual recursion within one let, same placeholder trick as
			// the top-level group.
			tv := in.fresh()
			scoped = scoped.extend(b.Name, monoScheme(tv))
		}
		for _, b := range node.Bindings {
			rhsT := in.inferExpr(scoped, b.RHS)
			placeholder := scoped[b.Name].Type
			in.emit(placeholder, rhsT, b.Span)
		}
		bodyT := in.inferExpr(scoped, node.Body)
		ast.SetType(node, bodyT)
		return bodyT

	case *ast.Case:
		scrutT := in.inferExpr(e, node.Scrutinee)
		resultT := in.fresh()
		for _, alt := range node.Alts {
			scoped, patT := in.bindPattern(e, alt.Pattern)
			in.emit(scrutT, patT, alt.Pattern.Span())
			altT := in.inferExpr(scoped, alt.Body)
			in.emit(resultT, altT, alt.Body.Span())
		}
		ast.SetType(node, resultT)
		return resultT

	case *ast.MatchFailure:
		t := in.fresh()
		ast.SetType(node, t)
		return t

	default:
		report.Raise(report.KindInternal, expr.Span(), "typing: unexpected node %T (patmat.Compile must run first)", expr)
		return nil
	}
}

// bindPattern extends e with any variables p introduces and returns the
// type p itself requires the scrutinee to have.
func (in *inferer) bindPattern(e env, p ast.Pattern) (env, ast.Type) {
	switch p := p.(type) {
	case *ast.PWild:
		return e, in.fresh()
	case *ast.PVar:
		tv := in.fresh()
		return e.extend(p.Name, monoScheme(tv)), tv
	case *ast.PLit:
		return e, in.inferExpr(e, p.Lit)
	case *ast.PCon:
		info, ok := in.ctors.ByName[p.Ctor]
		if !ok {
			report.Raise(report.KindResolve, p.Span(), "undefined constructor %q", p.Ctor)
		}
		scoped := e
		for i, sub := range p.SubPatterns {
			pv, ok := sub.(*ast.PVar)
			if !ok {
				report.Raise(report.KindInternal, sub.Span(), "typing: nested pattern survived patmat.Compile")
				continue
			}
			scoped = scoped.extend(pv.Name, monoScheme(info.FieldType[i]))
		}
		return scoped, &ast.TCon{Name: info.TypeName}
	default:
		report.Raise(report.KindInternal, p.Span(), "typing: unknown pattern kind %T", p)
		return e, nil
	}
}

// instantiate replaces a scheme's quantified variables with fresh ones.
func instantiate(in *inferer, s *ast.Scheme) ast.Type {
	if len(s.Vars) == 0 {
		return s.Type
	}
	renaming := map[int]ast.Type{}
	for _, v := range s.Vars {
		renaming[v] = in.fresh()
	}
	return substituteVars(s.Type, renaming)
}

func substituteVars(t ast.Type, renaming map[int]ast.Type) ast.Type {
	switch t := t.(type) {
	case *ast.TVar:
		if r, ok := renaming[t.ID]; ok {
			return r
		}
		return t
	case *ast.TCon:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]ast.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = substituteVars(a, renaming)
		}
		return &ast.TCon{Name: t.Name, Args: args}
	case *ast.TFun:
		return &ast.TFun{Param: substituteVars(t.Param, renaming), Result: substituteVars(t.Result, renaming)}
	default:
		return t
	}
}

// generalize quantifies over every free type variable in t, producing the
// let-generalized scheme for a top-level definition.
func generalize(t ast.Type) *ast.Scheme {
	fv := map[int]bool{}
	freeVars(t, fv)
	vars := make([]int, 0, len(fv))
	for id := range fv {
		vars = append(vars, id)
	}
	return &ast.Scheme{Vars: vars, Type: t}
}

// annotate re-applies the final substitution to every node's type,
// replacing the provisional types inferExpr assigned (which may still
// mention since-resolved type variables) with their fully-resolved form.
func annotate(expr ast.Expr, sub *Substitution) {
	ast.SetType(expr, sub.Apply(expr.ExprType()))
	switch node := expr.(type) {
	case *ast.Lambda:
		annotate(node.Body, sub)
	case *ast.App:
		annotate(node.Fn, sub)
		annotate(node.Arg, sub)
	case *ast.Let:
		for _, b := range node.Bindings {
			annotate(b.RHS, sub)
		}
		annotate(node.Body, sub)
	case *ast.Case:
		annotate(node.Scrutinee, sub)
		for _, alt := range node.Alts {
			annotate(alt.Body, sub)
		}
	}
}
