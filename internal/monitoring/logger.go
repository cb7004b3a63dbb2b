// Package monitoring carries the controller's diagnostic logger and its
// Prometheus metrics.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the runner, the board
// bridge and the trace store. It defaults to log.Printf; the CLI replaces it
// with a zap logger and tests mute it with SetLogger(nil).
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
