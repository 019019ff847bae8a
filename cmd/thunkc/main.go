// Command thunkc compiles a single .thunk source file to a native
// executable (or, with -m c, to a standalone C translation unit) by
// running the syntax/patmat/typing/stg/cmm/cemit pipeline and linking
// the result against the runtime.
package main

import "github.com/thunkc/thunkc/cmd"

func main() {
	cmd.Execute()
}
