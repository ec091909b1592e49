package logx

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Level orders log severities.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
	Critical
)

var levelNames = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

func (l Level) String() string {
	if l < Debug || l > Critical {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// LevelNames lists accepted level names, lowest first.
func LevelNames() []string {
	return append([]string(nil), levelNames...)
}

// ParseLevel accepts level names case-insensitively.
func ParseLevel(s string) (Level, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if u == n {
			return Level(i), nil
		}
	}
	return Info, fmt.Errorf("unknown log level: %q (expected one of %s)", s, strings.Join(levelNames, ", "))
}

// Logger writes "LEVEL: message" lines at or above its level.
// A nil *Logger discards everything.
type Logger struct {
	l     *log.Logger
	level Level
}

// New returns a logger writing to w.
func New(w io.Writer, level Level) *Logger {
	return &Logger{l: log.New(w, "", 0), level: level}
}

// Enabled reports whether messages at lvl are written.
func (lg *Logger) Enabled(lvl Level) bool {
	return lg != nil && lvl >= lg.level
}

func (lg *Logger) logf(lvl Level, format string, args ...any) {
	if !lg.Enabled(lvl) {
		return
	}
	lg.l.Printf("%s: %s", lvl, fmt.Sprintf(format, args...))
}

func (lg *Logger) Debugf(format string, args ...any)    { lg.logf(Debug, format, args...) }
func (lg *Logger) Infof(format string, args ...any)     { lg.logf(Info, format, args...) }
func (lg *Logger) Warnf(format string, args ...any)     { lg.logf(Warning, format, args...) }
func (lg *Logger) Errorf(format string, args ...any)    { lg.logf(Error, format, args...) }
func (lg *Logger) Criticalf(format string, args ...any) { lg.logf(Critical, format, args...) }
