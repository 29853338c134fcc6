package log

import (
	"os"
	"strings"

	"github.com/tacusci/logging/v2"
	"golang.org/x/term"
)

var Debug = func(format string, a ...interface{}) {
	logging.Debug(format, a...) //nolint
}

var Info = func(format string, a ...interface{}) {
	logging.Info(format, a...) //nolint
}

var Warn = func(format string, a ...interface{}) {
	logging.Warn(format, a...) //nolint
}

var Error = func(format string, a ...interface{}) {
	logging.Error(format, a...) //nolint
}

var Fatal = func(format string, a ...interface{}) {
	logging.Fatal(format, a...) //nolint
}

var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Configure sets the global logging level from a level name such
// as the value of BGBLUR_LOGGING_LEVEL. Unknown names fall back to warn.
func Configure(level string) {
	logging.CallbackLabelLevel = 5
	logging.ColorLogLevelLabelOnly = isTerminal()

	switch strings.ToLower(level) {
	case "silent":
		logging.CurrentLoggingLevel = logging.SilentLevel
	case "info":
		logging.CurrentLoggingLevel = logging.InfoLevel
	case "warn":
		logging.CurrentLoggingLevel = logging.WarnLevel
	case "debug":
		logging.CurrentLoggingLevel = logging.DebugLevel
		logging.CallbackLabel = true
	default:
		logging.CurrentLoggingLevel = logging.WarnLevel
	}
}
