package typing

import (
	"fmt"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/report"
)

// solve is the pure (constraints) -> (Substitution, error) function for
// this Hindley-Milner pass: it folds over the constraint list, unifying
// each pair against the substitution accumulated so far, and returns
// either the final substitution or the first failure. There is no other
// state.
func solve(constraints []constraint) (*Substitution, error) {
	sub := Empty
	for _, c := range constraints {
		next, err := unify(sub, sub.Apply(c.lhs), sub.Apply(c.rhs), c.span)
		if err != nil {
			return nil, err
		}
		sub = next
	}
	return sub, nil
}

func unify(sub *Substitution, a, b ast.Type, span *report.TextSpan) (*Substitution, error) {
	a, b = sub.Apply(a), sub.Apply(b)

	switch at := a.(type) {
	case *ast.TVar:
		if bt, ok := b.(*ast.TVar); ok && bt.ID == at.ID {
			return sub, nil
		}
		if occurs(at.ID, b) {
			return nil, typeError(span, "infinite type: t%d occurs in %s", at.ID, b.String())
		}
		return sub.Bind(at.ID, b), nil
	}

	if bt, ok := b.(*ast.TVar); ok {
		return unify(sub, bt, a, span)
	}

	switch at := a.(type) {
	case *ast.TCon:
		bt, ok := b.(*ast.TCon)
		if !ok || at.Name != bt.Name || len(at.Args) != len(bt.Args) {
			return nil, typeError(span, "type mismatch: %s vs %s", a.String(), b.String())
		}
		for i := range at.Args {
			next, err := unify(sub, at.Args[i], bt.Args[i], span)
			if err != nil {
				return nil, err
			}
			sub = next
		}
		return sub, nil

	case *ast.TFun:
		bt, ok := b.(*ast.TFun)
		if !ok {
			return nil, typeError(span, "type mismatch: %s vs %s", a.String(), b.String())
		}
		sub, err := unify(sub, at.Param, bt.Param, span)
		if err != nil {
			return nil, err
		}
		return unify(sub, at.Result, bt.Result, span)

	default:
		return nil, typeError(span, "type mismatch: %s vs %s", a.String(), b.String())
	}
}

func typeError(span *report.TextSpan, format string, args ...interface{}) error {
	return &report.CompileError{Kind: report.KindType, Span: span, Message: fmt.Sprintf(format, args...)}
}
