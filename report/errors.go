package report

import "fmt"

// Kind enumerates the compile-time error kinds this compiler can raise.
type Kind int

const (
	KindParse Kind = iota
	KindType
	KindResolve
	KindSimplify
	KindInternal
)

var kindLabels = [...]string{
	KindParse:    "Parse",
	KindType:     "Type",
	KindResolve:  "Resolution",
	KindSimplify: "Simplifier",
	KindInternal: "Internal",
}

func (k Kind) String() string {
	return kindLabels[k]
}

// CompileError is a fatal compile-time error. The compiler reports the
// first one it raises and stops; every error is fatal to the
// compilation, there is no warning tier.
type CompileError struct {
	Kind    Kind
	Span    *TextSpan
	Message string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("%s error: %s", ce.Kind, ce.Message)
}

// Raise constructs and panics with a *CompileError, to be caught by
// CatchErrors at the nearest compilation-phase boundary. Raising via panic
// (rather than threading an error return through every recursive AST walk)
// lets every walk function read naturally, panicking at the point of
// failure and recovering once at the phase boundary.
func Raise(kind Kind, span *TextSpan, format string, args ...interface{}) {
	panic(&CompileError{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)})
}

// CatchErrors recovers a panicking *CompileError raised by Raise and reports
// it through the global reporter, or re-panics anything else (a genuine Go
// bug, not a modeled compiler error). It must always be deferred.
func CatchErrors(absPath string) {
	if x := recover(); x != nil {
		if cerr, ok := x.(*CompileError); ok {
			reportCompileError(absPath, cerr)
			return
		}
		panic(x)
	}
}
