// Package logging provides structured, leveled logging for engines, sweeps and
// the command-line tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the module.
type Logger interface {
	Debug(message string, fields ...Field)
	Info(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Error(message string, fields ...Field)
	WithComponent(component string) Logger
}

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field.
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Formatter renders entries as a single coloured line.
type Formatter struct {
	TimestampFormat string
	DisableColors   bool
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelColor *color.Color
	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = color.New(color.FgRed, color.Bold)
	case logrus.WarnLevel:
		levelColor = color.New(color.FgYellow, color.Bold)
	case logrus.InfoLevel:
		levelColor = color.New(color.FgCyan)
	default:
		levelColor = color.New(color.FgWhite, color.Faint)
	}
	levelText := strings.ToUpper(entry.Level.String())

	var b strings.Builder
	b.WriteString(entry.Time.Format(f.TimestampFormat))
	b.WriteByte(' ')
	if f.DisableColors {
		b.WriteString(levelText)
	} else {
		b.WriteString(levelColor.Sprint(levelText))
	}
	b.WriteByte(' ')
	if component, ok := entry.Data["component"]; ok {
		prefix := fmt.Sprintf("[%v]", component)
		if !f.DisableColors {
			prefix = color.New(color.FgBlue).Sprint(prefix)
		}
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%v", k, entry.Data[k])
		}
		fields := " {" + strings.Join(pairs, ", ") + "}"
		if !f.DisableColors {
			fields = color.New(color.FgWhite, color.Faint).Sprint(fields)
		}
		b.WriteString(fields)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

type logger struct {
	base      *logrus.Logger
	component string
}

// New creates a logger writing to out at the given level. Unknown levels fall
// back to info. Colours are used only when out is a terminal.
func New(level string, out io.Writer) Logger {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetOutput(out)
	l.SetFormatter(&Formatter{
		TimestampFormat: "15:04:05",
		DisableColors:   !isTerminal(out),
	})
	return &logger{base: l}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return (f == os.Stdout || f == os.Stderr) && !color.NoColor
}

func (l *logger) WithComponent(component string) Logger {
	return &logger{base: l.base, component: component}
}

func (l *logger) entry(fields []Field) *logrus.Entry {
	data := make(logrus.Fields, len(fields)+1)
	if l.component != "" {
		data["component"] = l.component
	}
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.base.WithFields(data)
}

func (l *logger) Debug(message string, fields ...Field) { l.entry(fields).Debug(message) }
func (l *logger) Info(message string, fields ...Field)  { l.entry(fields).Info(message) }
func (l *logger) Warn(message string, fields ...Field)  { l.entry(fields).Warn(message) }
func (l *logger) Error(message string, fields ...Field) { l.entry(fields).Error(message) }

var (
	defaultMu     sync.RWMutex
	defaultLogger = New("info", os.Stderr)
)

// Default returns the process-wide logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}
