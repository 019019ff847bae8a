package patmat

import (
	"strings"
	"testing"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/syntax"
)

func mustCompile(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := syntax.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := Compile(prog); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return prog
}

func defByName(prog *ast.Program, name string) *ast.Def {
	for _, d := range prog.Defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func TestCompileMultiClauseFunctionProducesLambda(t *testing.T) {
	prog := mustCompile(t, `data L = N | C Int L; sum N = 0; sum (C x xs) = x;`)
	def := defByName(prog, "sum")
	if def == nil {
		t.Fatal("expected a def named sum")
	}
	lam, ok := def.Body.(*ast.Lambda)
	if !ok {
		t.Fatalf("expected patmat to produce a Lambda, got %T", def.Body)
	}
	if len(lam.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(lam.Params))
	}
	if _, ok := lam.Body.(*ast.Case); !ok {
		t.Fatalf("expected a shallow Case directly over the lambda's own parameter, got %T", lam.Body)
	}
}

func TestCompileCaseProducesShallowDefault(t *testing.T) {
	prog := mustCompile(t, `data L = N | C Int L; sum xs = case xs of { N -> 0; C x rest -> x; };`)
	def := defByName(prog, "sum")
	if def == nil {
		t.Fatal("expected a def named sum")
	}
	// sum has one parameter, so its body is a Lambda over a synthesized
	// parameter whose first Let binds xs to it; the case follows inside.
	lam, ok := def.Body.(*ast.Lambda)
	if !ok {
		t.Fatalf("expected sum to compile to a Lambda, got %T", def.Body)
	}
	param, ok := lam.Body.(*ast.Let)
	if !ok || len(param.Bindings) != 1 || param.Bindings[0].Name != "xs" {
		t.Fatalf("expected the lambda body to bind xs to the synthesized parameter, got %T", lam.Body)
	}
	let, ok := param.Body.(*ast.Let)
	if !ok {
		t.Fatalf("expected case to produce a Let binding the scrutinee, got %T", param.Body)
	}
	kase, ok := let.Body.(*ast.Case)
	if !ok {
		t.Fatalf("expected the let body to be a Case, got %T", let.Body)
	}
	if len(kase.Alts) != 3 {
		t.Fatalf("expected 2 source alternatives plus 1 synthesized default, got %d", len(kase.Alts))
	}
	last := kase.Alts[len(kase.Alts)-1]
	if _, ok := last.Pattern.(*ast.PWild); !ok {
		t.Fatalf("expected the final alternative to be a wildcard default, got %T", last.Pattern)
	}
}

func TestCompileMismatchedFieldCountsIsRejectedAtParse(t *testing.T) {
	_, err := syntax.Parse(strings.NewReader(`f x = x; f x y = x;`))
	if err == nil {
		t.Fatal("expected a parse-time error for mismatched arity")
	}
}

func TestCompileFirstMatchingClauseWins(t *testing.T) {
	// f 0 = 1; f n = n -- when both a literal and a catch-all clause
	// exist, the literal clause must be tried first, matching source order.
	prog := mustCompile(t, `f 0 = 1; f n = n;`)
	def := defByName(prog, "f")
	lam := def.Body.(*ast.Lambda)
	kase, ok := lam.Body.(*ast.Case)
	if !ok {
		t.Fatalf("expected a Case over the single argument, got %T", lam.Body)
	}
	if _, ok := kase.Alts[0].Pattern.(*ast.PLit); !ok {
		t.Fatalf("expected the literal 0 alternative to come first, got %T", kase.Alts[0].Pattern)
	}
}
