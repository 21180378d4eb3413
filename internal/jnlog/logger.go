// Package jnlog wraps zerolog with a field/level/writer-selection shape,
// built on the rs/zerolog dependency declared in go.mod.
package jnlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options configures a Logger at construction time.
type Options struct {
	Level     string // trace, debug, info, warn, error
	Component string
	Writer    io.Writer // defaults to os.Stderr
	Force     *bool     // override TTY auto-detection; nil = auto
}

// Logger is a structured, component-tagged logger.
type Logger struct {
	z zerolog.Logger
}

// New constructs a Logger per Options.
func New(opts Options) *Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	human := isTerminal(w)
	if opts.Force != nil {
		human = *opts.Force
	}

	var out io.Writer = w
	if human {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	z := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if opts.Component != "" {
		z = z.With().Str("component", opts.Component).Logger()
	}

	return &Logger{z: z}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// With returns a derived logger carrying the given key/value fields.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.z.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{z: ctx.Logger()}
}

func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.z.Debug().Msg(msg)
}

func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.z.Info().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.z.Warn().Msg(msg)
}

func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	l.z.Error().Err(err).Msg(msg)
}
