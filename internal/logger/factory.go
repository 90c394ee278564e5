package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Setup configures the global logger for the binary.
// Debug mode lowers the level and adds timestamps; otherwise only warnings and errors are shown.
func Setup(debug bool, json bool) {
	log.SetOutput(os.Stderr)
	if json {
		log.SetFormatter(log.JSONFormatter)
	}
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return
	}
	log.SetLevel(log.WarnLevel)
	log.SetReportTimestamp(false)
}

// Quiet silences everything below errors, used by tests and benchmarks.
func Quiet() {
	log.SetLevel(log.ErrorLevel)
}
