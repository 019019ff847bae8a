package stg

import "sort"

// computeAllFreeVars fills in FreeVars for every LambdaForm in prog,
// top-level bindings included (which will always come out empty, since a
// top-level binding can only ever reference its own parameters and
// globals — there is no enclosing environment to capture from).
func computeAllFreeVars(prog *Program, globals map[string]bool) {
	for _, b := range prog.Bindings {
		formFreeVars(b.Form, globals)
	}
}

// formFreeVars computes and records form.FreeVars, returning the same
// set so a caller one level up (an enclosing ELet or LambdaForm) can fold
// it into its own free-variable computation.
func formFreeVars(form *LambdaForm, globals map[string]bool) map[string]bool {
	fv := freeVarsOfExpr(form.Body, globals)
	for _, p := range form.Params {
		delete(fv, p.Name)
	}
	form.FreeVars = sortedAtomVars(fv, form.Body)
	return fv
}

func freeVarsOfExpr(e Expr, globals map[string]bool) map[string]bool {
	out := map[string]bool{}
	switch e := e.(type) {
	case EAtom:
		addAtomRef(out, e.Atom, globals)
	case EApp:
		addVarRef(out, e.Fn, globals)
		for _, a := range e.Args {
			addAtomRef(out, a, globals)
		}
	case EConstructor:
		for _, a := range e.Args {
			addAtomRef(out, a, globals)
		}
	case EBuiltin:
		for _, a := range e.Args {
			addAtomRef(out, a, globals)
		}
	case EMatchFail:
		// no references
	case ELet:
		bound := map[string]bool{}
		for k := range freeVarsOfExpr(e.Body, globals) {
			out[k] = true
		}
		for _, b := range e.Bindings {
			for k := range formFreeVars(b.Form, globals) {
				out[k] = true
			}
			bound[b.Name] = true
		}
		for k := range bound {
			delete(out, k)
		}
	case ECase:
		addAtomRef(out, e.Scrutinee, globals)
		for _, alt := range e.Alts.Cases {
			sub := freeVarsOfExpr(alt.Body, globals)
			for _, binder := range alt.Binders {
				delete(sub, binder.Name)
			}
			for k := range sub {
				out[k] = true
			}
		}
		if e.Alts.Default != nil {
			for k := range freeVarsOfExpr(e.Alts.Default, globals) {
				out[k] = true
			}
		}
	}
	return out
}

func addAtomRef(out map[string]bool, a Atom, globals map[string]bool) {
	if v, ok := a.(AtomVar); ok {
		addVarRef(out, v, globals)
	}
}

func addVarRef(out map[string]bool, v AtomVar, globals map[string]bool) {
	if !globals[v.Name] {
		out[v.Name] = true
	}
}

// sortedAtomVars turns a free-name set back into a deterministically
// ordered []AtomVar, recovering each name's ValueKind by searching e for
// a reference that carries it — every free name is referenced somewhere
// in the body by construction, so this always finds one. Per §4.2, the
// result is grouped pointer-kinded first, then int-kinded, then
// string-kinded; within each group, names are sorted so two lowering
// runs over the same program agree byte-for-byte (P1).
func sortedAtomVars(names map[string]bool, e Expr) []AtomVar {
	kinds := map[string]ValueKind{}
	collectKinds(e, kinds)

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var ptrs, ints, strs []string
	for _, n := range sorted {
		switch kinds[n] {
		case KindInt:
			ints = append(ints, n)
		case KindString:
			strs = append(strs, n)
		default:
			ptrs = append(ptrs, n)
		}
	}

	out := make([]AtomVar, 0, len(sorted))
	for _, n := range ptrs {
		out = append(out, AtomVar{Name: n, Kind: KindPointer})
	}
	for _, n := range ints {
		out = append(out, AtomVar{Name: n, Kind: KindInt})
	}
	for _, n := range strs {
		out = append(out, AtomVar{Name: n, Kind: KindString})
	}
	return out
}

func collectKinds(e Expr, kinds map[string]ValueKind) {
	record := func(a Atom) {
		if v, ok := a.(AtomVar); ok {
			kinds[v.Name] = v.Kind
		}
	}
	switch e := e.(type) {
	case EAtom:
		record(e.Atom)
	case EApp:
		kinds[e.Fn.Name] = e.Fn.Kind
		for _, a := range e.Args {
			record(a)
		}
	case EConstructor:
		for _, a := range e.Args {
			record(a)
		}
	case EBuiltin:
		for _, a := range e.Args {
			record(a)
		}
	case ELet:
		for _, b := range e.Bindings {
			collectKinds(b.Form.Body, kinds)
		}
		collectKinds(e.Body, kinds)
	case ECase:
		record(e.Scrutinee)
		for _, alt := range e.Alts.Cases {
			collectKinds(alt.Body, kinds)
		}
		if e.Alts.Default != nil {
			collectKinds(e.Alts.Default, kinds)
		}
	}
}
