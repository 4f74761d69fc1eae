package log

import "github.com/tacusci/logging/v2"

type Level int

const (
	SilentLevel Level = iota
	InfoLevel
	DebugLevel
)

// SetLevel maps the wrapper's levels onto the underlying lib's ones.
func SetLevel(l Level) {
	logging.ColorLogLevelLabelOnly = true
	switch l {
	case SilentLevel:
		logging.CurrentLoggingLevel = logging.SilentLevel
	case DebugLevel:
		logging.CurrentLoggingLevel = logging.DebugLevel
		logging.CallbackLabel = true
		logging.CallbackLabelLevel = 5
	default:
		logging.CurrentLoggingLevel = logging.InfoLevel
	}
}

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
