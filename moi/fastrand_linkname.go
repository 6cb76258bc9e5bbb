package moi

// github.com/grailbio/hts/sam's record free pool pulls the runtime's random
// source via `//go:linkname fastrand sync.fastrand`, a symbol the Go runtime
// stopped exporting in Go 1.20.  runtime.fastrand (the function sync.fastrand
// used to alias) still exists through Go 1.21, so re-export it under the old
// name to let the unmodified hts objects link.

import _ "unsafe" // for go:linkname

//go:linkname runtimeFastrand runtime.fastrand
func runtimeFastrand() uint32

//go:linkname syncFastrand sync.fastrand
func syncFastrand() uint32 { return runtimeFastrand() }
