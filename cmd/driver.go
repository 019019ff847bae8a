// Package cmd implements the thunkc command-line driver: turning parsed
// arguments into a compilation, running the full syntax/patmat/typing/
// stg/cmm/cemit pipeline over one source file, and invoking a C compiler
// on the result. Modeled on the teacher's bootstrap/cmd driver.go/args.go
// split — args.go owns argument parsing, this file owns the compilation
// itself.
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/buildcfg"
	"github.com/thunkc/thunkc/cemit"
	"github.com/thunkc/thunkc/cmm"
	"github.com/thunkc/thunkc/common"
	"github.com/thunkc/thunkc/patmat"
	"github.com/thunkc/thunkc/report"
	rt "github.com/thunkc/thunkc/runtime"
	"github.com/thunkc/thunkc/stg"
	"github.com/thunkc/thunkc/syntax"
	"github.com/thunkc/thunkc/typing"
)

// OutputMode selects what Compiler.Run leaves on disk once cemit has
// produced C source.
type OutputMode int

const (
	OutModeExecutable OutputMode = iota
	OutModeC
)

// Compiler holds one invocation's resolved configuration, populated by
// NewCompilerFromArgs and consumed by Run.
type Compiler struct {
	sourcePath string
	outputPath string
	outputMode OutputMode
	profile    string
	cc         string
	keepC      bool
	debug      bool
	emitStg    bool
	emitCmm    bool
}

// Run executes the full pipeline: parse, simplify patterns, infer types,
// lower to STG then Cmm, emit C, and (unless the output mode is C-only)
// invoke a C compiler to produce a native binary. Errors raised via
// report.Raise during any phase are caught at that phase's boundary and
// reported through the global reporter; Run itself returns whether
// compilation succeeded.
func (c *Compiler) Run() bool {
	report.Info("compiling %s", c.sourcePath)

	prog, ok := c.parse()
	if !ok {
		return false
	}
	if !c.runPhase("pattern matching", func() error { return patmat.Compile(prog) }) {
		return false
	}
	if !c.runPhase("type inference", func() error { return typing.Infer(prog) }) {
		return false
	}

	stgProg, ok := c.lowerStg(prog)
	if !ok {
		return false
	}
	if c.emitStg {
		fmt.Fprintln(os.Stderr, stg.Dump(stgProg))
	}

	cmmProg, ok := c.lowerCmm(stgProg, prog.Constructors)
	if !ok {
		return false
	}
	if c.emitCmm {
		fmt.Fprintln(os.Stderr, cmm.Dump(cmmProg))
	}

	cSource, err := cemit.Emit(cmmProg)
	if err != nil {
		report.ReportFatal("code generation failed: %s", err)
		return false
	}

	cPath, ok := c.writeC(cSource)
	if !ok {
		return false
	}
	defer func() {
		if !c.keepC && c.outputMode != OutModeC {
			os.Remove(cPath)
		}
	}()

	if c.outputMode == OutModeC {
		report.Success("wrote %s", cPath)
		return true
	}

	if !c.link(cPath) {
		return false
	}
	report.Success("wrote %s", c.outputPath)
	return true
}

// parse reads and parses the source file, reporting a parse error through
// the same CatchErrors boundary every later phase uses.
func (c *Compiler) parse() (prog *ast.Program, ok bool) {
	defer report.CatchErrors(c.sourcePath)
	f, err := os.Open(c.sourcePath)
	if err != nil {
		report.ReportFatal("cannot open %s: %s", c.sourcePath, err)
		return nil, false
	}
	defer f.Close()

	p, err := syntax.Parse(f)
	if err != nil {
		report.Raise(report.KindParse, nil, "%s", err)
	}
	return p, !report.AnyErrors()
}

// runPhase wraps a compilation phase's panicking call convention
// (report.Raise/CatchErrors) behind an ordinary bool return, so Run's
// own control flow stays linear.
func (c *Compiler) runPhase(name string, phase func() error) (ok bool) {
	defer report.CatchErrors(c.sourcePath)
	if err := phase(); err != nil {
		if cerr, isCompileErr := err.(*report.CompileError); isCompileErr {
			panic(cerr)
		}
		report.Raise(report.KindInternal, nil, "%s: %s", name, err)
	}
	return !report.AnyErrors()
}

func (c *Compiler) lowerStg(prog *ast.Program) (out *stg.Program, ok bool) {
	defer report.CatchErrors(c.sourcePath)
	out, err := stg.Lower(prog)
	if err != nil {
		report.Raise(report.KindInternal, nil, "stg lowering: %s", err)
	}
	return out, !report.AnyErrors()
}

func (c *Compiler) lowerCmm(prog *stg.Program, ctors *ast.ConstructorMap) (out *cmm.Program, ok bool) {
	defer report.CatchErrors(c.sourcePath)
	out, err := cmm.Lower(prog, ctors)
	if err != nil {
		report.Raise(report.KindInternal, nil, "cmm lowering: %s", err)
	}
	return out, !report.AnyErrors()
}

func (c *Compiler) writeC(source []byte) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(c.sourcePath), common.ThunkFileExt)
	cPath := filepath.Join(filepath.Dir(c.outputPath), base+".c")
	if err := os.WriteFile(cPath, source, 0o644); err != nil {
		report.ReportFatal("cannot write %s: %s", cPath, err)
		return "", false
	}
	return cPath, true
}

// runtimeSourcePath resolves the C runtime this build links against.
// THUNKC_RUNTIME lets a developer working inside this module point at
// runtime/runtime.c on disk directly; an installed thunkc binary carries
// no such tree next to it, so absent that override it unpacks the copy
// embedded into the binary at build time (rt.Source, rt.Header) into a
// scratch directory and links against that instead.
func runtimeSourcePath() (path string, ok bool) {
	if p := os.Getenv("THUNKC_RUNTIME"); p != "" {
		return p, true
	}

	dir, err := os.MkdirTemp("", "thunkc-runtime-")
	if err != nil {
		report.ReportFatal("cannot create scratch dir for embedded runtime: %s", err)
		return "", false
	}
	srcPath := filepath.Join(dir, rt.SourceFileName)
	if err := os.WriteFile(srcPath, rt.Source, 0o644); err != nil {
		report.ReportFatal("cannot write embedded runtime source: %s", err)
		return "", false
	}
	if err := os.WriteFile(filepath.Join(dir, rt.HeaderFileName), rt.Header, 0o644); err != nil {
		report.ReportFatal("cannot write embedded runtime header: %s", err)
		return "", false
	}
	return srcPath, true
}

func (c *Compiler) link(cPath string) bool {
	rtPath, ok := runtimeSourcePath()
	if !ok {
		return false
	}
	includeDir := filepath.Dir(rtPath)

	args := []string{"-I", includeDir, "-o", c.outputPath, cPath, rtPath}
	if c.debug {
		args = append([]string{"-g"}, args...)
	}

	report.Info("linking with %s", c.cc)
	cmd := exec.Command(c.cc, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		report.ReportFatal("%s failed: %s", c.cc, err)
		return false
	}
	return true
}

// applyProfile overlays a loaded build profile's settings onto c, without
// letting an explicit CLI flag be clobbered by the profile's own default.
func (c *Compiler) applyProfile(prof *buildcfg.Profile) {
	if prof == nil {
		return
	}
	if c.outputPath == "" {
		c.outputPath = prof.OutputPath
	}
	if c.cc == "" {
		c.cc = prof.CC
	}
	c.keepC = c.keepC || prof.KeepC
	c.debug = c.debug || prof.Debug
	if prof.Format == buildcfg.FormatC {
		c.outputMode = OutModeC
	}
}
