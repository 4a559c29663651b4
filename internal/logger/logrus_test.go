package logger

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestEntry(t *testing.T) {
	e := logrus.NewEntry(logrus.New()).WithField("object", 1)
	ctx := WithLogEntry(context.Background(), e)
	require.Same(t, e, Entry(ctx))

	got, ok := Lookup(ctx)
	require.True(t, ok)
	require.Same(t, e, got)

	_, ok = Lookup(context.Background())
	require.False(t, ok)
	require.Panics(t, func() { Entry(context.Background()) })
}

func TestNewLevel(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, New("debug").Level)
	require.Equal(t, logrus.InfoLevel, New("").Level)
	require.Equal(t, logrus.InfoLevel, New("loud").Level)
}
