// Package log provides leveled logging with systemd sd-daemon priority
// prefixes. Date/time is normally omitted because systemd timestamps
// journal entries for us; pass --logdate to re-enable it.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	debugWriter io.Writer = os.Stderr
	noteWriter  io.Writer = os.Stderr
	infoWriter  io.Writer = os.Stderr
	warnWriter  io.Writer = os.Stderr
	errWriter   io.Writer = os.Stderr
	critWriter  io.Writer = os.Stderr
)

const (
	debugPrefix = "<7>[DEBUG]    "
	infoPrefix  = "<6>[INFO]     "
	notePrefix  = "<5>[NOTICE]   "
	warnPrefix  = "<4>[WARNING]  "
	errPrefix   = "<3>[ERROR]    "
	critPrefix  = "<2>[CRITICAL] "
)

var (
	debugLog = log.New(debugWriter, debugPrefix, 0)
	infoLog  = log.New(infoWriter, infoPrefix, 0)
	noteLog  = log.New(noteWriter, notePrefix, log.Lshortfile)
	warnLog  = log.New(warnWriter, warnPrefix, log.Lshortfile)
	errLog   = log.New(errWriter, errPrefix, log.Llongfile)
	critLog  = log.New(critWriter, critPrefix, log.Llongfile)

	debugTimeLog = log.New(debugWriter, debugPrefix, log.LstdFlags)
	infoTimeLog  = log.New(infoWriter, infoPrefix, log.LstdFlags)
	noteTimeLog  = log.New(noteWriter, notePrefix, log.LstdFlags|log.Lshortfile)
	warnTimeLog  = log.New(warnWriter, warnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   = log.New(errWriter, errPrefix, log.LstdFlags|log.Llongfile)
	critTimeLog  = log.New(critWriter, critPrefix, log.LstdFlags|log.Llongfile)
)

// SetLogLevel discards writers below lvl. Unknown levels fall back to "debug".
func SetLogLevel(lvl string) {
	switch lvl {
	case "crit":
		errWriter = io.Discard
		fallthrough
	case "err", "fatal":
		warnWriter = io.Discard
		fallthrough
	case "warn":
		infoWriter = io.Discard
		fallthrough
	case "notice":
		debugWriter = io.Discard
		fallthrough
	case "info", "debug":
	default:
		fmt.Fprintf(os.Stderr, "log: invalid loglevel %q, using \"debug\"\n", lvl)
		SetLogLevel("debug")
		return
	}
	rebuild()
}

// SetLogDateTime toggles timestamp prefixes (off by default; systemd adds its own).
func SetLogDateTime(on bool) {
	logDateTime = on
}

func rebuild() {
	debugLog = log.New(debugWriter, debugPrefix, 0)
	infoLog = log.New(infoWriter, infoPrefix, 0)
	noteLog = log.New(noteWriter, notePrefix, log.Lshortfile)
	warnLog = log.New(warnWriter, warnPrefix, log.Lshortfile)
	errLog = log.New(errWriter, errPrefix, log.Llongfile)
	critLog = log.New(critWriter, critPrefix, log.Llongfile)

	debugTimeLog = log.New(debugWriter, debugPrefix, log.LstdFlags)
	infoTimeLog = log.New(infoWriter, infoPrefix, log.LstdFlags)
	noteTimeLog = log.New(noteWriter, notePrefix, log.LstdFlags|log.Lshortfile)
	warnTimeLog = log.New(warnWriter, warnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog = log.New(errWriter, errPrefix, log.LstdFlags|log.Llongfile)
	critTimeLog = log.New(critWriter, critPrefix, log.LstdFlags|log.Llongfile)
}

func emit(w io.Writer, plain, timed *log.Logger, s string) {
	if w == io.Discard {
		return
	}
	if logDateTime {
		timed.Output(3, s)
	} else {
		plain.Output(3, s)
	}
}

func Debug(v ...interface{}) { emit(debugWriter, debugLog, debugTimeLog, fmt.Sprint(v...)) }
func Info(v ...interface{})  { emit(infoWriter, infoLog, infoTimeLog, fmt.Sprint(v...)) }
func Note(v ...interface{})  { emit(noteWriter, noteLog, noteTimeLog, fmt.Sprint(v...)) }
func Warn(v ...interface{})  { emit(warnWriter, warnLog, warnTimeLog, fmt.Sprint(v...)) }
func Error(v ...interface{}) { emit(errWriter, errLog, errTimeLog, fmt.Sprint(v...)) }
func Crit(v ...interface{})  { emit(critWriter, critLog, critTimeLog, fmt.Sprint(v...)) }

func Debugf(format string, v ...interface{}) { emit(debugWriter, debugLog, debugTimeLog, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { emit(infoWriter, infoLog, infoTimeLog, fmt.Sprintf(format, v...)) }
func Notef(format string, v ...interface{})  { emit(noteWriter, noteLog, noteTimeLog, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { emit(warnWriter, warnLog, warnTimeLog, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { emit(errWriter, errLog, errTimeLog, fmt.Sprintf(format, v...)) }
func Critf(format string, v ...interface{})  { emit(critWriter, critLog, critTimeLog, fmt.Sprintf(format, v...)) }

// Panic logs at error level then panics; the process is expected to keep running under a supervisor.
func Panic(v ...interface{}) {
	Error(v...)
	panic(fmt.Sprint(v...))
}

// Fatal logs at error level then exits with status 1.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}
