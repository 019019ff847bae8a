package cmm

import (
	"fmt"
	"strings"
)

// Dump renders prog as readable text for --emit-cmm: one C-like function
// per cmm.Function, its blocks as labels, mirroring the layout cemit
// itself produces but without the C-specific escaping.
func Dump(prog *Program) string {
	var b strings.Builder
	for _, fn := range prog.Functions {
		dumpFunction(&b, fn)
	}
	return b.String()
}

func dumpFunction(b *strings.Builder, fn *Function) {
	fmt.Fprintf(b, "function %s(args=%v free=%v):\n", fn.Name, fn.Args, fn.FreeVars)
	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Label)
		for _, instr := range blk.Body {
			fmt.Fprintf(b, "  %s\n", dumpInstr(instr))
		}
	}
}

func dumpLoc(l Location) string {
	switch l.Kind {
	case LocArg:
		return fmt.Sprintf("arg[%d]", l.Index)
	case LocClosure:
		return fmt.Sprintf("fv[%d]", l.Index)
	case LocGlobal:
		return "@" + l.Name
	default:
		return l.Name
	}
}

func dumpInstr(instr Instruction) string {
	switch in := instr.(type) {
	case IConst:
		return fmt.Sprintf("%s = const", in.Dst)
	case IEnterValue:
		return fmt.Sprintf("%s = enter %s", in.Dst, dumpLoc(in.Src))
	case IProject:
		return fmt.Sprintf("%s = project %s[%d]", in.Dst, dumpLoc(in.Src), in.FieldIndex)
	case IAllocClosure:
		return fmt.Sprintf("%s = alloc %s", in.Dst, in.Table)
	case IBuiltin1:
		return fmt.Sprintf("%s = %s(%s)", in.Dst, in.Op, dumpLoc(in.Arg))
	case IBuiltin2:
		return fmt.Sprintf("%s = %s(%s, %s)", in.Dst, in.Op, dumpLoc(in.Lhs), dumpLoc(in.Rhs))
	case IPush:
		return fmt.Sprintf("push %s", dumpLoc(in.Src))
	case ITailCall:
		return fmt.Sprintf("tailcall %s (%dp %di %ds)", dumpLoc(in.Fn), in.NumPointers, in.NumInts, in.NumStrings)
	case IReturn:
		return fmt.Sprintf("return %s", dumpLoc(in.Src))
	case IPrintError:
		return fmt.Sprintf("panic %q", in.Message)
	case IBranch:
		return fmt.Sprintf("branch %s", dumpLoc(in.On))
	default:
		return "?"
	}
}
