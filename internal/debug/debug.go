// Package debug provides env-gated debug logging to stderr.
// Set SVN_DEBUG to any non-empty value to enable it.
package debug

import (
	"fmt"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	enabled = os.Getenv("SVN_DEBUG") != ""
	verbose = false
)

// Enabled reports whether debug output is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled || verbose
}

// SetVerbose enables debug output regardless of the environment.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Logf writes a formatted line to stderr when debug output is active.
func Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
