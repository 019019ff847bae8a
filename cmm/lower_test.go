package cmm

import (
	"strings"
	"testing"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/patmat"
	"github.com/thunkc/thunkc/stg"
	"github.com/thunkc/thunkc/syntax"
	"github.com/thunkc/thunkc/typing"
)

func mustLowerToCmm(t *testing.T, src string) (*Program, *ast.ConstructorMap) {
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
	cmmProg, err := Lower(stgProg, prog.Constructors)
	if err != nil {
		t.Fatalf("cmm lower: %v", err)
	}
	return cmmProg, prog.Constructors
}

func functionByName(prog *Program, name string) *Function {
	for _, f := range prog.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func TestBuiltinResultStoragePrintFunctionsReturnPointer(t *testing.T) {
	if got := builtinResultStorage("printInt"); got != StoragePointer {
		t.Fatalf("expected printInt to return StoragePointer (Unit), got %v", got)
	}
	if got := builtinResultStorage("printString"); got != StoragePointer {
		t.Fatalf("expected printString to return StoragePointer (Unit), got %v", got)
	}
}

func TestBuiltinResultStorageArithmeticReturnsInt(t *testing.T) {
	if got := builtinResultStorage("+"); got != StorageInt {
		t.Fatalf("expected + to return StorageInt, got %v", got)
	}
	if got := builtinResultStorage("=="); got != StorageInt {
		t.Fatalf("expected == to return StorageInt (Bool shares Int's representation), got %v", got)
	}
}

func TestBuiltinResultStorageConcatReturnsString(t *testing.T) {
	if got := builtinResultStorage("++"); got != StorageString {
		t.Fatalf("expected ++ to return StorageString, got %v", got)
	}
}

func TestLowerProducesMainFunction(t *testing.T) {
	prog, _ := mustLowerToCmm(t, `main = printInt 42;`)
	if prog.Entry != "main" {
		t.Fatalf("expected entry main, got %q", prog.Entry)
	}
	if functionByName(prog, "main") == nil {
		t.Fatal("expected a Function named main")
	}
}

func TestLowerConstructorInfoTablesCarryFieldCounts(t *testing.T) {
	prog, ctors := mustLowerToCmm(t, `data L = N | C Int L; xs = C 1 N;`)
	info := ctors.ByName["C"]
	var tbl *InfoTable
	for _, tb := range prog.InfoTables {
		if tb.Name == ctorTableName("C") {
			tbl = tb
		}
	}
	if tbl == nil {
		t.Fatal("expected an info table for constructor C")
	}
	if tbl.Arity != info.Arity {
		t.Fatalf("expected arity %d, got %d", info.Arity, tbl.Arity)
	}
	// C : Int -> L -> L has one int field and one pointer field.
	if tbl.NumInts != 1 || tbl.NumPointers != 1 {
		t.Fatalf("expected 1 int field and 1 pointer field, got ints=%d pointers=%d", tbl.NumInts, tbl.NumPointers)
	}
}

func TestLowerRecursiveDataStructureCompiles(t *testing.T) {
	// S4 from the golden scenario table: a recursively defined sum over a
	// user-declared list type must lower to Cmm without error.
	src := `data L = N | C Int L;
sum N = 0;
sum (C x xs) = x + sum xs;
main = printInt (sum (C 1 (C 2 (C 3 N))));`
	prog, _ := mustLowerToCmm(t, src)
	if functionByName(prog, "sum") == nil {
		t.Fatal("expected a Function named sum")
	}
}
