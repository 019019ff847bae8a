package report

import "sync"

// Enumeration of log levels, in increasing order of verbosity. Mirrors the
// teacher's bootstrap/report log levels exactly.
const (
	LogLevelSilent = iota
	LogLevelError
	LogLevelWarn
	LogLevelVerbose
)

// reporter owns all global diagnostic state.
type reporter struct {
	m        sync.Mutex
	logLevel int
	isErr    bool
	errCount int
}

var rep = &reporter{logLevel: LogLevelVerbose}

// InitReporter sets the global log level. Call once, before compilation
// begins.
func InitReporter(logLevel int) {
	rep.m.Lock()
	defer rep.m.Unlock()
	rep.logLevel = logLevel
	rep.isErr = false
	rep.errCount = 0
}

// AnyErrors reports whether any compile error has been recorded.
func AnyErrors() bool {
	rep.m.Lock()
	defer rep.m.Unlock()
	return rep.isErr
}

// ErrorCount returns the number of compile errors recorded so far.
func ErrorCount() int {
	rep.m.Lock()
	defer rep.m.Unlock()
	return rep.errCount
}
