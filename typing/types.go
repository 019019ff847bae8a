// Package typing implements Hindley-Milner type inference over the
// simplified ast (after patmat.Compile has run). The constraint solver
// is deliberately architected away from a monadic, mutable-substitution
// design and toward a pure function from a constraint set to a result:
// solve(constraints) -> (Substitution, error).
// This package follows that shape throughout: Substitution is an
// immutable, persistent map (each unification step produces a new one
// rather than mutating a shared one), and the solver is a plain loop over
// a constraint slice with no receiver state beyond a fresh-variable
// counter.
package typing

import "github.com/thunkc/thunkc/ast"

// Substitution maps type variable ids to the type they stand for. Values
// are immutable once constructed: Bind returns a new Substitution built
// on top of the old one rather than mutating it, so a Substitution taken
// mid-solve can still be inspected after later ones are built (useful for
// diagnostics and for the let-generalization step, which needs a
// snapshot of the substitution before a binding's body is processed).
type Substitution struct {
	parent *Substitution
	id     int
	typ    ast.Type
}

// Empty is the substitution with no bindings.
var Empty *Substitution

// Bind returns a new substitution extending s with id -> t.
func (s *Substitution) Bind(id int, t ast.Type) *Substitution {
	return &Substitution{parent: s, id: id, typ: t}
}

// Lookup returns the type bound to id in s, if any.
func (s *Substitution) Lookup(id int) (ast.Type, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.id == id {
			return cur.typ, true
		}
	}
	return nil, false
}

// Apply fully resolves t through s: every TVar bound (directly or
// transitively) in s is replaced by what it is bound to.
func (s *Substitution) Apply(t ast.Type) ast.Type {
	switch t := t.(type) {
	case *ast.TVar:
		if bound, ok := s.Lookup(t.ID); ok {
			return s.Apply(bound)
		}
		return t
	case *ast.TCon:
		if len(t.Args) == 0 {
			return t
		}
		args := make([]ast.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = s.Apply(a)
		}
		return &ast.TCon{Name: t.Name, Args: args}
	case *ast.TFun:
		return &ast.TFun{Param: s.Apply(t.Param), Result: s.Apply(t.Result)}
	default:
		return t
	}
}

// freeVars collects the free type-variable ids in t.
func freeVars(t ast.Type, out map[int]bool) {
	switch t := t.(type) {
	case *ast.TVar:
		out[t.ID] = true
	case *ast.TCon:
		for _, a := range t.Args {
			freeVars(a, out)
		}
	case *ast.TFun:
		freeVars(t.Param, out)
		freeVars(t.Result, out)
	}
}

func occurs(id int, t ast.Type) bool {
	fv := map[int]bool{}
	freeVars(t, fv)
	return fv[id]
}
