package typing

import (
	"strings"
	"testing"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/patmat"
	"github.com/thunkc/thunkc/syntax"
)

func mustInfer(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := syntax.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := patmat.Compile(prog); err != nil {
		t.Fatalf("patmat: %v", err)
	}
	if err := Infer(prog); err != nil {
		t.Fatalf("infer: %v", err)
	}
	return prog
}

func schemeOf(prog *ast.Program, name string) *ast.Scheme {
	for _, d := range prog.Defs {
		if d.Name == name {
			return d.Scheme
		}
	}
	return nil
}

func TestInferPrintIntReturnsUnit(t *testing.T) {
	prog := mustInfer(t, `main = printInt 42;`)
	s := schemeOf(prog, "main")
	if s == nil {
		t.Fatal("expected a scheme for main")
	}
	if s.Type.String() != ast.TypeUnit.String() {
		t.Fatalf("expected main : Unit, got %s", s.Type.String())
	}
}

func TestInferPrintStringOverConcat(t *testing.T) {
	prog := mustInfer(t, `main = printString ("hello" ++ " world");`)
	s := schemeOf(prog, "main")
	if s.Type.String() != ast.TypeUnit.String() {
		t.Fatalf("expected main : Unit, got %s", s.Type.String())
	}
}

func TestInferArithmetic(t *testing.T) {
	prog := mustInfer(t, `f x = x + 1; main = printInt (f 10);`)
	s := schemeOf(prog, "f")
	if s.Type.String() != "(Int -> Int)" {
		t.Fatalf("expected f : Int -> Int, got %s", s.Type.String())
	}
}

func TestInferConstructorApplication(t *testing.T) {
	prog := mustInfer(t, `data L = N | C Int L; xs = C 1 N;`)
	s := schemeOf(prog, "xs")
	if s.Type.String() != "L" {
		t.Fatalf("expected xs : L, got %s", s.Type.String())
	}
}

func TestInferGeneralizesPolymorphicIdentity(t *testing.T) {
	prog := mustInfer(t, `id x = x; main = printInt (id 3);`)
	s := schemeOf(prog, "id")
	if len(s.Vars) == 0 {
		t.Fatalf("expected id to be generalized over a type variable, got monomorphic scheme %s", s.Type.String())
	}
}

func TestInferMismatchedTypesFails(t *testing.T) {
	_, err := func() (prog *ast.Program, err error) {
		p, perr := syntax.Parse(strings.NewReader(`main = printInt "not an int";`))
		if perr != nil {
			return nil, perr
		}
		if e := patmat.Compile(p); e != nil {
			return nil, e
		}
		return p, Infer(p)
	}()
	if err == nil {
		t.Fatal("expected a type error passing a String where Int is required")
	}
}
