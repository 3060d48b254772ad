// Package concurrency runs background work without letting a panic take down the process.
package concurrency

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn in a goroutine. A panic is logged with its stack and
// reported to done as an error; a nil done is allowed.
func SafeGo(name string, fn func() error, done func(error)) {
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "routine", name, "panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
			if err != nil && done == nil {
				slog.Error("Background routine failed", "routine", name, "error", err)
			}
			if done != nil {
				done(err)
			}
		}()
		err = fn()
	}()
}
