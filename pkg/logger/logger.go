package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	mu          sync.RWMutex
	verboseMode bool
	quietMode   bool
	infoLogger  *log.Logger
	debugLogger *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
)

func init() {
	// Everything goes to stderr so that report output on stdout stays machine readable.
	// Timestamps are added by Debugf only.
	SetOutput(os.Stderr)
}

// SetOutput redirects all loggers to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	infoLogger = log.New(w, "", 0)
	debugLogger = log.New(w, "", 0)
	warnLogger = log.New(w, "WARN: ", 0)
	errorLogger = log.New(w, "ERROR: ", 0)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	mu.Lock()
	verboseMode = verbose
	mu.Unlock()
}

// SetQuiet suppresses informational messages. Warnings and errors are still printed.
func SetQuiet(quiet bool) {
	mu.Lock()
	quietMode = quiet
	mu.Unlock()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verboseMode
}

func getTimestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// Debugf logs a formatted debug message if verbose mode is enabled.
// Includes a timestamp.
func Debugf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseMode {
		debugLogger.Printf("[%s] DEBUG: %s", getTimestamp(), fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if !quietMode {
		infoLogger.Printf(format, v...)
	}
}

// Warnf logs a formatted warning.
func Warnf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	warnLogger.Printf(format, v...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	errorLogger.Printf(format, v...)
}
