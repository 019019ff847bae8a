package syntax

import (
	"strings"
	"testing"

	"github.com/thunkc/thunkc/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return prog
}

func TestParseSimpleBinding(t *testing.T) {
	prog := mustParse(t, `main = printInt 42;`)
	if len(prog.Defs) != 1 {
		t.Fatalf("expected 1 def, got %d", len(prog.Defs))
	}
	if prog.Defs[0].Name != "main" {
		t.Fatalf("expected def named main, got %q", prog.Defs[0].Name)
	}
	app, ok := prog.Defs[0].Body.(*ast.App)
	if !ok {
		t.Fatalf("expected *ast.App body, got %T", prog.Defs[0].Body)
	}
	if lit, ok := app.Arg.(*ast.IntLit); !ok || lit.Value != 42 {
		t.Fatalf("expected int literal argument 42, got %#v", app.Arg)
	}
}

func TestParseMultiEquationFunction(t *testing.T) {
	prog := mustParse(t, `f 0 = 1; f n = n;`)
	if len(prog.Defs) != 1 || prog.Defs[0].Name != "f" {
		t.Fatalf("expected single def named f, got %#v", prog.Defs)
	}
	eqs, ok := prog.Defs[0].Body.(*ast.FuncEquations)
	if !ok {
		t.Fatalf("expected multi-clause function body to be FuncEquations, got %T", prog.Defs[0].Body)
	}
	if eqs.Arity != 1 || len(eqs.Clauses) != 2 {
		t.Fatalf("expected arity 1 with 2 clauses, got arity=%d clauses=%d", eqs.Arity, len(eqs.Clauses))
	}
}

func TestParseMismatchedArityFails(t *testing.T) {
	_, err := Parse(strings.NewReader(`f x = x; f x y = x;`))
	if err == nil {
		t.Fatal("expected an error for mismatched equation arity")
	}
}

func TestParseDataDecl(t *testing.T) {
	prog := mustParse(t, `data L = N | C Int L; main = printInt 0;`)
	info, ok := prog.Constructors.ByName["C"]
	if !ok {
		t.Fatal("expected constructor C to be registered")
	}
	if info.Arity != 2 {
		t.Fatalf("expected C to have arity 2, got %d", info.Arity)
	}
	if info.Tag != 1 {
		t.Fatalf("expected C to have tag 1 (after N), got %d", info.Tag)
	}
	n, ok := prog.Constructors.ByName["N"]
	if !ok || n.Tag != 0 {
		t.Fatalf("expected N to have tag 0, got %#v", n)
	}
}

func TestParseCaseExpression(t *testing.T) {
	prog := mustParse(t, `data L = N | C Int L; sum xs = case xs of { N -> 0; C x rest -> x; };`)
	if len(prog.Defs) != 1 {
		t.Fatalf("expected 1 def, got %d", len(prog.Defs))
	}
}
