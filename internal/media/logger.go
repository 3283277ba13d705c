package media

import (
	"fmt"

	"github.com/pion/logging"

	"github.com/1ureka/sigcore/internal/util"
)

// LoggerFactory hands pion a logger that writes through util.
type LoggerFactory struct{}

// NewLogger implements logging.LoggerFactory.
func (LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return scopedLogger{scope: scope}
}

// scopedLogger maps pion levels onto util. Trace is discarded; debug and
// info both go to debug output.
type scopedLogger struct {
	scope string
}

func (l scopedLogger) prefix(msg string) string {
	return fmt.Sprintf("pion/%s: %s", l.scope, msg)
}

func (l scopedLogger) Trace(msg string) {}

func (l scopedLogger) Tracef(format string, args ...any) {}

func (l scopedLogger) Debug(msg string) { util.LogDebug("%s", l.prefix(msg)) }

func (l scopedLogger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l scopedLogger) Info(msg string) { util.LogDebug("%s", l.prefix(msg)) }

func (l scopedLogger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l scopedLogger) Warn(msg string) { util.LogWarning("%s", l.prefix(msg)) }

func (l scopedLogger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l scopedLogger) Error(msg string) { util.LogError("%s", l.prefix(msg)) }

func (l scopedLogger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}
