package cemit

import (
	"strings"
	"testing"

	"github.com/thunkc/thunkc/cmm"
	"github.com/thunkc/thunkc/patmat"
	"github.com/thunkc/thunkc/stg"
	"github.com/thunkc/thunkc/syntax"
	"github.com/thunkc/thunkc/typing"
)

func mustEmit(t *testing.T, src string) string {
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
	stgProg, err := stg.Lower(prog)
	if err != nil {
		t.Fatalf("stg lower: %v", err)
	}
	cmmProg, err := cmm.Lower(stgProg, prog.Constructors)
	if err != nil {
		t.Fatalf("cmm lower: %v", err)
	}
	out, err := Emit(cmmProg)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return string(out)
}

func TestEmitPrintIntCallsRuntimeHelper(t *testing.T) {
	c := mustEmit(t, `main = printInt 42;`)
	if !strings.Contains(c, "print_int(") {
		t.Fatalf("expected generated C to call print_int, got:\n%s", c)
	}
	if !strings.Contains(c, "get_unit()") {
		t.Fatalf("expected printInt's result to be get_unit(), got:\n%s", c)
	}
}

func TestEmitPrintStringCallsRuntimeHelper(t *testing.T) {
	c := mustEmit(t, `main = printString "hi";`)
	if !strings.Contains(c, "print_string(") {
		t.Fatalf("expected generated C to call print_string, got:\n%s", c)
	}
}

func TestEmitConcatCallsStringConcat(t *testing.T) {
	c := mustEmit(t, `main = printString ("a" ++ "b");`)
	if !strings.Contains(c, "string_concat(") {
		t.Fatalf("expected ++ to lower to string_concat, got:\n%s", c)
	}
}

func TestEmitComparisonOperatorsMapToRuntimeNames(t *testing.T) {
	want := map[string]string{
		"+": "add", "-": "sub", "*": "mul", "/": "div",
		"==": "eq", "/=": "ne", "<": "lt", "<=": "le", ">": "gt", ">=": "ge",
	}
	for op, name := range want {
		if got := builtinName(op); got != name {
			t.Fatalf("builtinName(%q) = %q, want %q", op, got, name)
		}
	}
}

func TestEmitGreaterThanComparisonProgram(t *testing.T) {
	src := `cmp a b = case a > b of { True -> 1; False -> 0; }; main = printInt (cmp 3 2);`
	c := mustEmit(t, src)
	if !strings.Contains(c, "builtin_gt(") {
		t.Fatalf("expected > to lower to builtin_gt, got:\n%s", c)
	}
}

func TestBuiltinNamePanicsOnUnknownOperator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected builtinName to panic on an unrecognized operator")
		}
	}()
	builtinName("frobnicate")
}

func TestEmitRecursiveSumProgram(t *testing.T) {
	src := `data L = N | C Int L;
sum N = 0;
sum (C x xs) = x + sum xs;
main = printInt (sum (C 1 (C 2 (C 3 N))));`
	c := mustEmit(t, src)
	if !strings.Contains(c, "thunkc_main") {
		t.Fatalf("expected an entry point function, got:\n%s", c)
	}
}
