// Display logic for the report package: pterm background styles for the
// message banner, foreground colors for the body, a terminal-width-aware
// separator.
package report

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

var (
	errorStyleBG = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	errorColorFG = pterm.NewStyle(pterm.FgRed)
	warnStyleBG  = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	warnColorFG  = pterm.NewStyle(pterm.FgYellow)
	infoStyleBG  = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	infoColorFG  = pterm.NewStyle(pterm.FgLightGreen)
)

// reportCompileError prints a *CompileError through the global reporter,
// respecting the configured log level.
func reportCompileError(absPath string, cerr *CompileError) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.isErr = true
	rep.errCount++

	if rep.logLevel <= LogLevelSilent {
		return
	}

	label := cerr.Kind.String() + " Error"
	errorStyleBG.Println(" " + label + " ")
	errorColorFG.Println(cerr.Message)

	if cerr.Span != nil {
		displaySourceText(absPath, cerr.Span)
	}

	fmt.Println()
}

// ReportICE reports an internal compiler error: a broken invariant that
// indicates a bug in the compiler, not in the input program. ICEs always
// display, regardless of log level, and terminate the process.
func ReportICE(format string, args ...interface{}) {
	rep.m.Lock()
	rep.isErr = true
	rep.errCount++
	rep.m.Unlock()

	msg := fmt.Sprintf(format, args...)
	errorStyleBG.Println(" Internal Compiler Error ")
	errorColorFG.Println(msg)
	fmt.Println("this indicates a bug in thunkc, not in your program")

	os.Exit(2)
}

// ReportFatal reports an error that stops compilation immediately but does
// not indicate a compiler bug (bad CLI arguments, unreadable file, missing
// linker, ...).
func ReportFatal(format string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		errorStyleBG.Println(" Fatal Error ")
		errorColorFG.Println(fmt.Sprintf(format, args...))
	}
	os.Exit(1)
}

// Warn reports a non-fatal compile warning.
func Warn(absPath string, span *TextSpan, format string, args ...interface{}) {
	if rep.logLevel < LogLevelWarn {
		return
	}

	warnStyleBG.Println(" Warning ")
	warnColorFG.Println(fmt.Sprintf(format, args...))
	if span != nil {
		displaySourceText(absPath, span)
	}
	fmt.Println()
}

// Info reports a verbose-only informational message: compile headers,
// "linking..." progress, and the like.
func Info(format string, args ...interface{}) {
	if rep.logLevel < LogLevelVerbose {
		return
	}

	infoStyleBG.Println(" thunkc ")
	infoColorFG.Println(fmt.Sprintf(format, args...))
}

// Success reports a verbose-only success message (compilation finished).
func Success(format string, args ...interface{}) {
	if rep.logLevel < LogLevelVerbose {
		return
	}

	infoStyleBG.Println(" OK ")
	infoColorFG.Println(fmt.Sprintf(format, args...))
}

// Separator prints a terminal-width-aware horizontal rule, using the same
// width-detection logic as every other banner in this package.
func Separator() {
	width := pterm.GetTerminalWidth()
	if width <= 0 {
		width = 80
	}
	fmt.Println(strings.Repeat("-", width))
}

// displaySourceText renders the lines of absPath covered by span, with a
// line-number gutter and a caret underline.
func displaySourceText(absPath string, span *TextSpan) {
	file, err := os.Open(absPath)
	if err != nil {
		return
	}
	defer file.Close()

	var lines []string
	sc := bufio.NewScanner(file)
	for ln := 0; sc.Scan(); ln++ {
		if span.StartLine <= ln && ln <= span.EndLine {
			lines = append(lines, strings.ReplaceAll(sc.Text(), "\t", "    "))
		}
	}
	if len(lines) == 0 {
		return
	}

	minIndent := math.MaxInt
	for _, line := range lines {
		indent := 0
		for _, c := range line {
			if c != ' ' {
				break
			}
			indent++
		}
		if indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent == math.MaxInt {
		minIndent = 0
	}

	maxLineNumLen := len(strconv.Itoa(span.EndLine + 1))
	lineNumFmt := "%-" + strconv.Itoa(maxLineNumLen) + "v | "

	for i, line := range lines {
		fmt.Printf(lineNumFmt, i+span.StartLine+1)
		if minIndent <= len(line) {
			fmt.Println(line[minIndent:])
		} else {
			fmt.Println(line)
		}

		fmt.Print(strings.Repeat(" ", maxLineNumLen), " | ")

		prefix := 0
		if i == 0 {
			prefix = span.StartCol - minIndent
			if prefix < 0 {
				prefix = 0
			}
		}

		suffix := 0
		if i == len(lines)-1 && span.EndCol <= len(line) {
			suffix = len(line) - span.EndCol
		}

		carets := len(line) - suffix - prefix - minIndent
		if carets < 1 {
			carets = 1
		}

		fmt.Print(strings.Repeat(" ", prefix))
		fmt.Println(strings.Repeat("^", carets))
	}

	fmt.Println()
}
