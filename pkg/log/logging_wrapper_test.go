package log

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tacusci/logging/v2"
)

func overloadIsTerminal(v bool) func() {
	ref := isTerminal
	isTerminal = func() bool { return v }
	return func() { isTerminal = ref }
}

func TestConfigureSetsLevelFromName(t *testing.T) {
	is := is.New(t)
	defer overloadIsTerminal(false)()
	defer func() { logging.CurrentLoggingLevel = logging.WarnLevel; logging.CallbackLabel = false }()

	Configure("INFO")
	is.Equal(logging.CurrentLoggingLevel, logging.InfoLevel)
	is.True(!logging.ColorLogLevelLabelOnly)

	Configure("debug")
	is.Equal(logging.CurrentLoggingLevel, logging.DebugLevel)
	is.True(logging.CallbackLabel)
}

func TestConfigureUnknownLevelFallsBackToWarn(t *testing.T) {
	is := is.New(t)
	defer overloadIsTerminal(true)()
	defer func() { logging.CurrentLoggingLevel = logging.WarnLevel }()

	Configure("verbose")
	is.Equal(logging.CurrentLoggingLevel, logging.WarnLevel)
	is.True(logging.ColorLogLevelLabelOnly)
}
