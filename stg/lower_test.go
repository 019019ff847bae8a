package stg

import (
	"strings"
	"testing"

	"github.com/thunkc/thunkc/patmat"
	"github.com/thunkc/thunkc/syntax"
	"github.com/thunkc/thunkc/typing"
)

func mustLower(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := syntax.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := patmat.Compile(prog); err != nil {
		t.Fatalf("patmat: %v", err)
	}
	if err := typing.Infer(prog); err != nil {
		t.Fatalf("infer: %v", err)
	}
	out, err := Lower(prog)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return out
}

func bindingByName(prog *Program, name string) *Binding {
	for _, b := range prog.Bindings {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func TestLowerEntryPointIsMain(t *testing.T) {
	prog := mustLower(t, `main = printInt 42;`)
	if prog.Entry != "main" {
		t.Fatalf("expected entry main, got %q", prog.Entry)
	}
}

func TestLowerBuiltinApplicationIsSaturated(t *testing.T) {
	prog := mustLower(t, `main = printInt (1 + 2);`)
	main := bindingByName(prog, "main")
	if main == nil {
		t.Fatal("expected a main binding")
	}
	// printInt(1+2) atomizes the addition into a let-bound name, then
	// applies printInt to that name — so the outermost expression should
	// be an ELet wrapping the eventual EBuiltin call to printInt.
	let, ok := main.Form.Body.(ELet)
	if !ok {
		t.Fatalf("expected the body to atomize the addition into a let, got %T", main.Form.Body)
	}
	if len(let.Bindings) == 0 {
		t.Fatal("expected at least one atomized binding")
	}
	found := false
	for _, b := range let.Bindings {
		if bi, ok := b.Form.Body.(EBuiltin); ok && bi.Op == "+" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an atomized binding computing 1 + 2 via EBuiltin")
	}
}

func TestLowerConstructorApplicationCarriesTag(t *testing.T) {
	prog := mustLower(t, `data L = N | C Int L; xs = C 1 N;`)
	xs := bindingByName(prog, "xs")
	if xs == nil {
		t.Fatal("expected a binding for xs")
	}
	ctorExpr, ok := xs.Form.Body.(EConstructor)
	if !ok {
		t.Fatalf("expected xs to lower directly to EConstructor, got %T", xs.Form.Body)
	}
	if ctorExpr.Ctor != "C" || ctorExpr.Tag != 1 {
		t.Fatalf("expected constructor C with tag 1, got %s/%d", ctorExpr.Ctor, ctorExpr.Tag)
	}
}

func TestLowerCaseDefaultBindsVarPattern(t *testing.T) {
	// f x = case x of { 0 -> 1; y -> y; } — the second alternative binds
	// the scrutinee to y rather than discarding it. patmat turns it into a
	// wildcard default whose body let-binds y to the scrutinee, and wraps
	// the case in two lets: one binding x to f's parameter, one binding
	// the scrutinee.
	prog := mustLower(t, `f x = case x of { 0 -> 1; y -> y; }; main = printInt (f 5);`)
	f := bindingByName(prog, "f")
	if f == nil {
		t.Fatal("expected a binding for f")
	}
	param, ok := f.Form.Body.(ELet)
	if !ok || len(param.Bindings) != 1 || param.Bindings[0].Name != "x" {
		t.Fatalf("expected f's body to start with an ELet binding x, got %T", f.Form.Body)
	}
	scrut, ok := param.Body.(ELet)
	if !ok || len(scrut.Bindings) != 1 {
		t.Fatalf("expected an ELet binding the scrutinee, got %T", param.Body)
	}
	kase, ok := scrut.Body.(ECase)
	if !ok {
		t.Fatalf("expected the scrutinee's ELet body to be an ECase, got %T", scrut.Body)
	}
	if kase.Alts.Default == nil {
		t.Fatal("expected a default alternative")
	}
	let, ok := kase.Alts.Default.(ELet)
	if !ok {
		t.Fatalf("expected the default to rebind the scrutinee via ELet, got %T", kase.Alts.Default)
	}
	if len(let.Bindings) != 1 || let.Bindings[0].Name != "y" {
		t.Fatalf("expected the default to bind y to the scrutinee, got %#v", let.Bindings)
	}
}

func TestLowerFreeVarsSortedPointerFirst(t *testing.T) {
	// A closure capturing a pointer-kinded, an int-kinded, and a
	// string-kinded free variable must list them pointer, then int, then
	// string, alphabetically within each group — the field-layout
	// convention cmm.Lower and cemit both depend on.
	names := map[string]bool{"b": true, "a": true, "c": true, "z": true}
	body := EBuiltin{Op: "++", Args: []Atom{
		AtomVar{Name: "a", Kind: KindPointer},
		AtomVar{Name: "z", Kind: KindPointer},
	}}
	// collectKinds only sees refs actually present in the expression, so
	// route every name through one where its kind is recoverable.
	e := ELet{
		Bindings: []*Binding{
			{Name: "$k1", Form: &LambdaForm{Body: EAtom{AtomVar{Name: "b", Kind: KindInt}}}},
			{Name: "$k2", Form: &LambdaForm{Body: EAtom{AtomVar{Name: "c", Kind: KindString}}}},
		},
		Body: body,
	}
	sorted := sortedAtomVars(names, e)
	want := []string{"a", "z", "b", "c"}
	if len(sorted) != len(want) {
		t.Fatalf("expected %d vars, got %d", len(want), len(sorted))
	}
	for i, name := range want {
		if sorted[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, sorted[i].Name)
		}
	}
}

func TestLowerIsIdempotentModuloFreshNames(t *testing.T) {
	src := `main = printInt (1 + 2 * 3);`
	first := mustLower(t, src)
	second := mustLower(t, src)
	if len(first.Bindings) != len(second.Bindings) {
		t.Fatalf("expected the same number of top-level bindings across two lowerings, got %d and %d",
			len(first.Bindings), len(second.Bindings))
	}
}
