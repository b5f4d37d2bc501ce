package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel uint8

const (
	LOG_LEVEL_DEBUG LogLevel = iota
	LOG_LEVEL_INFO
	LOG_LEVEL_WARN
	LOG_LEVEL_ERROR
	LOG_LEVEL_FATAL
)

// ParseLogLevel maps the textual level used in configuration files.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "":
		return LOG_LEVEL_DEBUG, nil
	case "info":
		return LOG_LEVEL_INFO, nil
	case "warn", "warning":
		return LOG_LEVEL_WARN, nil
	case "error":
		return LOG_LEVEL_ERROR, nil
	case "fatal":
		return LOG_LEVEL_FATAL, nil
	}
	return LOG_LEVEL_DEBUG, fmt.Errorf("%w: `%s`", ErrUnknownLogLevel, s)
}

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Lumen 💡 ",
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// SetLogLevel changes the minimum level written by the engine logger.
func SetLogLevel(level LogLevel) {
	l := getLogger()
	switch level {
	case LOG_LEVEL_INFO:
		l.SetLevel(log.InfoLevel)
	case LOG_LEVEL_WARN:
		l.SetLevel(log.WarnLevel)
	case LOG_LEVEL_ERROR:
		l.SetLevel(log.ErrorLevel)
	case LOG_LEVEL_FATAL:
		l.SetLevel(log.FatalLevel)
	default:
		l.SetLevel(log.DebugLevel)
	}
}

// SetLogOutput redirects the engine logger, stderr by default.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// FatalHandler is invoked by LogFatal once the message has been written.
type FatalHandler func(msg string)

var fatalMu sync.Mutex
var fatalHandler FatalHandler = func(string) { os.Exit(1) }

// SetFatalHandler replaces the process-terminating behaviour of LogFatal and
// returns the previous handler.
func SetFatalHandler(h FatalHandler) FatalHandler {
	fatalMu.Lock()
	defer fatalMu.Unlock()
	prev := fatalHandler
	fatalHandler = h
	return prev
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

// LogFatal logs at error level and hands control to the fatal handler, which
// terminates the process unless replaced.
func LogFatal(msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)
	getLogger().Error(formatted)

	fatalMu.Lock()
	h := fatalHandler
	fatalMu.Unlock()
	h(formatted)
	// a handler that returns must not let the caller continue
	panic(formatted)
}

// Assert aborts through LogFatal when cond is false.
func Assert(cond bool, msg string, args ...interface{}) {
	if !cond {
		LogFatal(msg, args...)
	}
}
