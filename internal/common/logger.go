package common

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

// Logger is a leveled wrapper around the standard logger, writing either to
// a file or to stderr. All diagnostics from the probe, the stripper, the
// bundler and the CLI flow through one Logger instance per process rather
// than scattered fmt.Println calls.
type Logger struct {
	impl      *log.Logger
	fileName  string
	verbosity int
}

func MakeLogger(logFile string, verbosity int64) (*Logger, error) {
	var impl *log.Logger

	if logFile != "" && logFile != "stderr" {
		out, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}
		impl = log.New(out, "", 0)
	} else {
		impl = log.New(os.Stderr, "", 0)
	}

	if verbosity < -1 || verbosity > 2 {
		return nil, errors.New("incorrect verbosity passed")
	}

	return &Logger{
		impl:      impl,
		fileName:  logFile,
		verbosity: int(verbosity),
	}, nil
}

func formatStr(prefix string, v ...interface{}) string {
	return fmt.Sprintf("%s %s %s", time.Now().Format("2006-01-02 15:04:05"), prefix, fmt.Sprintln(v...))
}

func (logger *Logger) Info(verbosity int, v ...interface{}) {
	if logger.verbosity >= verbosity {
		_ = logger.impl.Output(0, formatStr("INFO", v...))
	}
}

func (logger *Logger) Error(v ...interface{}) {
	_ = logger.impl.Output(0, formatStr("ERROR", v...))
}

func (logger *Logger) GetFileName() string {
	return logger.fileName
}
