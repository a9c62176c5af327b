// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package stack walks the current goroutine stack to find out which
// package of this module is calling. Logs and metrics use it to get
// their "module" label and prefix.
package stack

import (
	"fmt"
	"runtime"
	"strings"
)

// Call is a single program counter from a goroutine stack.
type Call uintptr

// Trace is a list of calls, innermost first.
type Trace []Call

// Callers returns the stack of the caller (the caller of Callers is
// the first element).
func Callers() Trace {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	trace := make(Trace, n)
	for i, pc := range pcs[:n] {
		trace[i] = Call(pc)
	}
	return trace
}

func (pc Call) function() *runtime.Func {
	return runtime.FuncForPC(uintptr(pc) - 1)
}

// FunctionName returns the fully qualified function name for the call
// (for example nfcollector/inlet/flow.(*Component).Start).
func (pc Call) FunctionName() string {
	fn := pc.function()
	if fn == nil {
		return "(nofunc)"
	}
	return fn.Name()
}

// SourceFile returns the source file of the call, relative to the
// module root and prefixed by the top-level import path. The line
// number is appended when requested.
func (pc Call) SourceFile(withLine bool) string {
	fn := pc.function()
	if fn == nil {
		return "(nosource)"
	}
	file, line := fn.FileLine(uintptr(pc) - 1)
	name := fn.Name()

	// Keep as many path components as the import path has, then
	// replace the module directory by the top-level import path.
	depth := strings.Count(name, "/")
	parts := strings.Split(file, "/")
	if len(parts) > depth+1 {
		parts = parts[len(parts)-depth-1:]
	}
	root := name
	if i := strings.IndexAny(root, "./"); i != -1 {
		root = root[:i]
	}
	file = root + "/" + strings.Join(parts, "/")
	if withLine {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return file
}

// ModuleName is the name of the current Go module (nfcollector).
var ModuleName = func() string {
	self := Callers()[0].FunctionName() // nfcollector/common/reporter/stack.init...
	return strings.SplitN(self, "/", 2)[0]
}()
