package logger

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	ctxKeyLog = iota
)

// New returns a logger writing to stderr; stdout belongs to the protocol.
// An unparsable level falls back to info.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.InfoLevel
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			l.Level = lvl
		} else {
			l.WithError(err).Warn("bad log level")
		}
	}
	return l
}

func Entry(ctx context.Context) *logrus.Entry {
	v := ctx.Value(ctxKeyLog)
	var e *logrus.Entry
	e, ok := v.(*logrus.Entry)
	if !ok {
		err := errors.Errorf("not a *logrus.Entry: %T", v)
		panic(err)
	}
	return e
}

// Lookup is Entry without the panic.
func Lookup(ctx context.Context) (*logrus.Entry, bool) {
	e, ok := ctx.Value(ctxKeyLog).(*logrus.Entry)
	return e, ok
}

func WithLogEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKeyLog, e)
}
