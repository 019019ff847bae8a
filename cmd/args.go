package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thunkc/thunkc/buildcfg"
	"github.com/thunkc/thunkc/common"
	"github.com/thunkc/thunkc/report"
)

const usage = `Usage: thunkc [flags|options] <path to .thunk file>

Flags:
------
-h, --help       Displays usage information (ie. this text).
-v, --version    Displays the current compiler version.
-d, --debug      Compile the generated C with debug symbols.
    --emit-stg   Dump the lowered STG program to stderr.
    --emit-cmm   Dump the lowered Cmm program to stderr.
    --keep-c     Keep the generated .c file instead of deleting it.

Options:
--------
-o,  --outpath    Sets the path of the compiled output. Defaults to the
                   source file's name with its extension stripped.
-m,  --outmode    Sets the output mode: "exe" (default) for a native
                   binary, "c" for the generated C source only.
-ll, --loglevel   Sets the compiler's log level: "silent", "error",
                   "warn", or "verbose" (default).
-p,  --profile    Selects a build profile from thunk-mod.toml, if the
                   source file's directory (or an ancestor) has one.
     --cc         Overrides the C compiler invoked to link the output.
`

func printUsage(exitCode int) {
	fmt.Print(usage)
	os.Exit(exitCode)
}

func argumentError(format string, args ...interface{}) {
	fmt.Print("argument error: ", fmt.Sprintf(format, args...), "\n\n")
	printUsage(1)
}

// options names every flag that consumes the following argument as its
// value, rather than standing alone.
var options = map[string]bool{
	"o": true, "-outpath": true,
	"m": true, "-outmode": true,
	"ll": true, "-loglevel": true,
	"p": true, "-profile": true,
	"-cc": true,
}

// argParser walks os.Args[1:] one flag/option/positional at a time, the
// same shape as the teacher's bootstrap/cmd argParser.
type argParser struct {
	args []string
	ndx  int
}

// nextArg returns (name, value, found). name is empty for a positional
// argument; value is empty for a bare flag.
func (ap *argParser) nextArg() (string, string, bool) {
	if ap.ndx >= len(ap.args) {
		return "", "", false
	}
	arg := ap.args[ap.ndx]
	ap.ndx++

	if !strings.HasPrefix(arg, "-") {
		return "", arg, true
	}

	name := arg[1:]
	if options[name] {
		if ap.ndx < len(ap.args) && !strings.HasPrefix(ap.args[ap.ndx], "-") {
			value := ap.args[ap.ndx]
			ap.ndx++
			return name, value, true
		}
		argumentError("option %s requires an argument", strings.TrimLeft(name, "-"))
	}
	return name, "", true
}

func useArg(c *Compiler, name, value string) {
	switch name {
	case "h", "-help":
		printUsage(0)
	case "v", "-version":
		fmt.Println(common.CompilerVersion)
		os.Exit(0)
	case "d", "-debug":
		c.debug = true
	case "-emit-stg":
		c.emitStg = true
	case "-emit-cmm":
		c.emitCmm = true
	case "-keep-c":
		c.keepC = true
	case "-cc":
		c.cc = value
	case "p", "-profile":
		c.profile = value
	case "o", "-outpath":
		c.outputPath = value
	case "ll", "-loglevel":
		switch value {
		case "silent":
			report.InitReporter(report.LogLevelSilent)
		case "error":
			report.InitReporter(report.LogLevelError)
		case "warn":
			report.InitReporter(report.LogLevelWarn)
		case "verbose":
			report.InitReporter(report.LogLevelVerbose)
		default:
			argumentError("invalid log level %q", value)
		}
	case "m", "-outmode":
		switch value {
		case "exe":
			c.outputMode = OutModeExecutable
		case "c":
			c.outputMode = OutModeC
		default:
			argumentError("invalid output mode %q", value)
		}
	case "":
		if c.sourcePath == "" {
			c.sourcePath = value
		} else {
			argumentError("source path specified multiple times")
		}
	default:
		argumentError("unknown flag: %s", name)
	}
}

// NewCompilerFromArgs parses os.Args[1:] into a ready-to-run Compiler,
// exiting the process on any usage error. If the source file's directory
// (or an ancestor) has a thunk-mod.toml, its selected build profile fills
// in any option the command line left unset.
func NewCompilerFromArgs() *Compiler {
	c := &Compiler{outputMode: OutModeExecutable}

	ap := &argParser{args: os.Args[1:]}
	for {
		name, value, ok := ap.nextArg()
		if !ok {
			break
		}
		useArg(c, name, value)
	}

	if c.sourcePath == "" {
		argumentError("a source path must be specified")
	}
	absPath, err := filepath.Abs(c.sourcePath)
	if err != nil {
		argumentError("invalid source path: %s", c.sourcePath)
	}
	c.sourcePath = absPath

	if root, found := buildcfg.FindModuleRoot(filepath.Dir(c.sourcePath)); found {
		if _, prof, err := buildcfg.Load(root, c.profile); err == nil {
			c.applyProfile(prof)
		} else {
			report.Warn(c.sourcePath, nil, "thunk-mod.toml found but could not be loaded: %s", err)
		}
	}
	if c.cc == "" {
		c.cc = "cc"
	}

	if c.outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(c.sourcePath), common.ThunkFileExt)
		c.outputPath = base
	}

	return c
}

// Execute is the package's single entry point, called by cmd/thunkc's
// main. It exits nonzero if compilation failed.
func Execute() {
	c := NewCompilerFromArgs()
	if !c.Run() {
		os.Exit(1)
	}
}
