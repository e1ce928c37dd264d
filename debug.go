// Package btuin provides an env-gated debug logger.
package btuin

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var (
	debugMu   sync.Mutex
	debugFile *os.File
	debugInit bool
)

// DebugLog appends a line to the file named by BTUIN_DEBUG.
// A no-op when the variable is unset.
func DebugLog(format string, args ...any) {
	debugMu.Lock()
	defer debugMu.Unlock()

	if !debugInit {
		debugInit = true
		path := os.Getenv("BTUIN_DEBUG")
		if path != "" && path != "0" {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				debugFile = f
			}
		}
	}
	if debugFile == nil {
		return
	}
	fmt.Fprintf(debugFile, "%s %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}
