// Package log is a small leveled, colorized, key/value logger in the
// idiom of go-ethereum's log package — whose call sites
// (log.Info("msg", "key", val), log.Warn(...)) are visible throughout
// the teacher repo (probe/probeconfig/config.go,
// consensus/pob/snapshot.go) even though the package itself wasn't
// part of the retrieved file set. It reconstructs that idiom from the
// teacher's declared dependencies: go-stack/stack for caller frames,
// fatih/color for level coloring, mattn/go-isatty to detect a
// terminal, mattn/go-colorable so color survives on redirected
// Windows consoles.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level orders log severity, least to most urgent.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT"
	default:
		return "?????"
	}
}

var levelColor = map[Level]*color.Color{
	LevelTrace: color.New(color.FgWhite),
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelCrit:  color.New(color.FgRed, color.Bold),
}

// Logger is a leveled, key/value logger attached to one output stream.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	colorize bool
	ctx      []interface{} // static key/value pairs appended to every line (e.g. simulator uuid)
}

// New builds a Logger writing to w. If w is os.Stdout/os.Stderr and it
// is a terminal (per mattn/go-isatty), output is colorized through a
// mattn/go-colorable wrapper; otherwise it is plain text, matching the
// teacher's "tty vs piped" log formatting split.
func New(w io.Writer) *Logger {
	colorize := false
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			w = colorable.NewColorable(f)
			colorize = true
		}
	}
	return &Logger{out: w, minLevel: LevelInfo, colorize: colorize}
}

// Default is the package-level logger used by the free functions below.
var Default = New(os.Stderr)

// SetLevel adjusts the minimum level that will be emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = lvl
}

// With returns a derived logger that prepends the given key/value
// pairs to every subsequent line — used by simulator.Simulator to tag
// its log output with a UUID per instance.
func (l *Logger) With(kv ...interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{out: l.out, minLevel: l.minLevel, colorize: l.colorize}
	child.ctx = append(append([]interface{}{}, l.ctx...), kv...)
	return child
}

func (l *Logger) log(lvl Level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.minLevel {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	levelStr := lvl.String()
	if l.colorize {
		if c, ok := levelColor[lvl]; ok {
			levelStr = c.Sprint(lvl.String())
		}
	}
	fmt.Fprintf(l.out, "%s [%s] %s", ts, levelStr, msg)
	all := append(append([]interface{}{}, l.ctx...), kv...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	if lvl >= LevelError {
		// Caller frame, matching go-stack/stack's idiom of attaching a
		// single calling frame to high-severity lines.
		call := stack.Caller(2)
		fmt.Fprintf(l.out, " caller=%+v", call)
	}
	fmt.Fprintln(l.out)
}

func (l *Logger) Trace(msg string, kv ...interface{}) { l.log(LevelTrace, msg, kv) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv) }
func (l *Logger) Crit(msg string, kv ...interface{})  { l.log(LevelCrit, msg, kv) }

// Package-level convenience wrappers over Default, matching the
// call-site idiom observed in the teacher (log.Info(...), log.Warn(...)).
func Trace(msg string, kv ...interface{}) { Default.Trace(msg, kv...) }
func Debug(msg string, kv ...interface{}) { Default.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { Default.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { Default.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { Default.Error(msg, kv...) }
func Crit(msg string, kv ...interface{})  { Default.Crit(msg, kv...) }
