package stg

import (
	"fmt"
	"strings"

	"github.com/thunkc/thunkc/util"
)

// Dump renders prog as readable text for --emit-stg, one binding per
// line grouping its LambdaForm's parameters, free variables and update
// flag the way a case-alternative dump reads in the teacher's ssa
// package's Func.String().
func Dump(prog *Program) string {
	var b strings.Builder
	for _, bind := range prog.Bindings {
		dumpBinding(&b, bind)
	}
	return b.String()
}

func dumpBinding(b *strings.Builder, bind *Binding) {
	f := bind.Form
	fmt.Fprintf(b, "%s [%s] free=%s params=%s =\n", bind.Name, updateFlagString(f.Update),
		dumpAtomVars(f.FreeVars), dumpAtomVars(f.Params))
	fmt.Fprintf(b, "  %s\n", dumpExpr(f.Body))
}

func updateFlagString(u UpdateFlag) string {
	if u == Updateable {
		return "u"
	}
	return "n"
}

func dumpAtomVars(vs []AtomVar) string {
	names := util.Map(vs, func(v AtomVar) string { return v.Name })
	return "(" + strings.Join(names, ",") + ")"
}

func dumpAtom(a Atom) string {
	switch v := a.(type) {
	case AtomVar:
		return v.Name
	case AtomInt:
		return fmt.Sprintf("%d", v.Value)
	case AtomBool:
		return fmt.Sprintf("%t", v.Value)
	case AtomString:
		return fmt.Sprintf("%q", v.Value)
	default:
		return "?"
	}
}

func dumpExpr(e Expr) string {
	switch e := e.(type) {
	case EAtom:
		return dumpAtom(e.Atom)
	case EApp:
		parts := util.Map(e.Args, dumpAtom)
		return fmt.Sprintf("%s %s", e.Fn.Name, strings.Join(parts, " "))
	case EConstructor:
		parts := util.Map(e.Args, dumpAtom)
		return fmt.Sprintf("%s{%d} %s", e.Ctor, e.Tag, strings.Join(parts, " "))
	case EBuiltin:
		parts := util.Map(e.Args, dumpAtom)
		return fmt.Sprintf("%s(%s)", e.Op, strings.Join(parts, ","))
	case EMatchFail:
		return fmt.Sprintf("matchfail(%q)", e.Message)
	case ELet:
		var b strings.Builder
		b.WriteString("let ")
		for _, bind := range e.Bindings {
			fmt.Fprintf(&b, "%s = %s; ", bind.Name, dumpExpr(bind.Form.Body))
		}
		fmt.Fprintf(&b, "in %s", dumpExpr(e.Body))
		return b.String()
	case ECase:
		return fmt.Sprintf("case %s of {...}", dumpAtom(e.Scrutinee))
	default:
		return "?"
	}
}
