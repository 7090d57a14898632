/*
Package xlog provides a Logger interface and supporting functions used by
the vcdiff encoder and decoder to report non-fatal anomalies — such as the
RFC-sanctioned "two ADD instructions in a row" lint — without forcing a
logging dependency on callers that don't want one.

The standard library's log package doesn't support toggling output on and
off, and calling a method on a nil *log.Logger panics. Since Encoder and
Decoder are constructed without a logger by default, every call through
this package must be nil-safe.

The Logger interface is simple and is satisfied by *log.Logger, so most
callers need nothing beyond the standard library.
*/
package xlog

import "fmt"

// Logger is the minimal logging interface used by this package. The
// standard library's *log.Logger satisfies it.
type Logger interface {
	Output(calldepth int, s string) error
}

// Print logs its arguments using the logger. If l is nil, Print does
// nothing.
func Print(l Logger, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprint(v...))
	}
}

// Printf logs using the given format string. If l is nil, Printf does
// nothing.
func Printf(l Logger, format string, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintf(format, v...))
	}
}

// Println logs its arguments, appending a newline. If l is nil, Println
// does nothing.
func Println(l Logger, v ...interface{}) {
	if l != nil {
		l.Output(2, fmt.Sprintln(v...))
	}
}
