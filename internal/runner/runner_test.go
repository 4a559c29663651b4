package runner

import (
	"context"
	"testing"

	"github.com/WIZARDISHUNGRY/vot-await/internal/logger"
	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/session"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax/traxtest"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// shift moves its region by dx every frame.
type shift struct {
	dx      float32
	current region.Rectangle
	fail    bool
	nothing bool
	closed  *int
	score   float32
}

func (s *shift) Update(ctx context.Context, frame session.Frame) (region.Region, error) {
	if s.nothing {
		return nil, errors.New("lost")
	}
	s.current.X += s.dx
	if s.fail {
		return s.current, errors.New("low score")
	}
	return s.current, nil
}

func (s *shift) Close() error {
	if s.closed != nil {
		*s.closed++
	}
	return nil
}

type scored struct{ shift }

func (s *scored) Confidence() float32 { return s.score }

func testCtx() context.Context {
	return logger.WithLogEntry(context.Background(), logrus.NewEntry(logrus.New()))
}

func replies(t *testing.T, script *traxtest.Script) [][]string {
	t.Helper()
	var out [][]string
	for _, objects := range script.Replies() {
		var line []string
		for _, o := range objects {
			line = append(line, o.Region.String())
		}
		out = append(out, line)
	}
	return out
}

func TestSingleObjectScenario(t *testing.T) {
	script := traxtest.New(
		traxtest.Initialize("f1.png", trax.NewRectangle(10, 10, 20, 20)),
		traxtest.Frame("f2.png"),
		traxtest.Quit(),
	)
	s, err := session.Start(script)
	require.NoError(t, err)

	var initFrame string
	r := New(s, func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error) {
		initFrame = frame.Color()
		require.Equal(t, region.Rectangle{X: 10, Y: 10, Width: 20, Height: 20}, initial)
		return trackerFunc(func(ctx context.Context, frame session.Frame) (region.Region, error) {
			require.Equal(t, "f2.png", frame.Color())
			return region.Rectangle{X: 12, Y: 11, Width: 20, Height: 20}, nil
		}), nil
	})

	require.NoError(t, r.Run(testCtx()))
	require.Equal(t, "f1.png", initFrame)
	require.Equal(t, 1, r.Frames())
	require.True(t, s.IsEnded())
	require.Equal(t, [][]string{{"10,10,20,20"}, {"12,11,20,20"}}, replies(t, script))
	require.Equal(t, 1, script.Teardowns())
}

type trackerFunc func(ctx context.Context, frame session.Frame) (region.Region, error)

func (f trackerFunc) Update(ctx context.Context, frame session.Frame) (region.Region, error) {
	return f(ctx, frame)
}

func TestObjectOrder(t *testing.T) {
	script := traxtest.New(
		traxtest.Initialize("f1.png",
			trax.NewRectangle(0, 0, 1, 1),
			trax.NewRectangle(100, 0, 1, 1),
			trax.NewRectangle(200, 0, 1, 1),
		),
		traxtest.Frame("f2.png"),
		traxtest.Frame("f3.png"),
		traxtest.Quit(),
	)
	s, err := session.Start(script, session.WithMultiObject(true))
	require.NoError(t, err)

	closed := 0
	var created []float32
	r := New(s, func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error) {
		rect := initial.(region.Rectangle)
		created = append(created, rect.X)
		// later objects move less so any reordering would show
		return &shift{current: rect, dx: 3 - float32(len(created)), closed: &closed}, nil
	})
	require.NoError(t, r.Run(testCtx()))

	require.Equal(t, []float32{0, 100, 200}, created)
	require.Equal(t, [][]string{
		{"0,0,1,1", "100,0,1,1", "200,0,1,1"},
		{"2,0,1,1", "101,0,1,1", "200,0,1,1"},
		{"4,0,1,1", "102,0,1,1", "200,0,1,1"},
	}, replies(t, script))
	require.Equal(t, 2, r.Frames())
	require.Equal(t, 3, closed)
}

func TestFailurePolicy(t *testing.T) {
	script := traxtest.New(
		traxtest.Initialize("f1.png", trax.NewRectangle(0, 0, 1, 1), trax.NewRectangle(5, 5, 1, 1)),
		traxtest.Frame("f2.png"),
		traxtest.Frame("f3.png"),
		traxtest.Quit(),
	)
	s, err := session.Start(script, session.WithMultiObject(true))
	require.NoError(t, err)

	n := 0
	r := New(s, func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error) {
		n++
		rect := initial.(region.Rectangle)
		if n == 1 {
			return &shift{current: rect, dx: 1, fail: true}, nil
		}
		return &shift{current: rect, nothing: true}, nil
	})
	require.NoError(t, r.Run(context.Background()))

	require.Equal(t, [][]string{
		{"0,0,1,1", "5,5,1,1"},
		{"1,0,1,1", "5,5,1,1"},
		{"2,0,1,1", "5,5,1,1"},
	}, replies(t, script), "failed updates are reported, missing ones repeat the last region")
}

func TestConfidence(t *testing.T) {
	script := traxtest.New(
		traxtest.Initialize("f1.png", trax.NewRectangle(0, 0, 1, 1)),
		traxtest.Frame("f2.png"),
		traxtest.Quit(),
	)
	s, err := session.Start(script)
	require.NoError(t, err)
	r := New(s, func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error) {
		return &scored{shift{current: initial.(region.Rectangle), score: 0.25}}, nil
	})
	require.NoError(t, r.Run(testCtx()))
	got := script.Replies()
	require.Len(t, got, 2)
	require.Equal(t, "0.25", got[1][0].Properties["confidence"])
}

func TestFactoryError(t *testing.T) {
	script := traxtest.New(
		traxtest.Initialize("f1.png", trax.NewRectangle(0, 0, 1, 1)),
		traxtest.Frame("f2.png"),
	)
	s, err := session.Start(script)
	require.NoError(t, err)
	boom := errors.New("boom")
	r := New(s, func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error) {
		return nil, boom
	})
	err = r.Run(testCtx())
	require.True(t, errors.Is(err, boom))
	require.True(t, s.IsEnded(), "session shut down on abort")
	require.Equal(t, 1, script.Teardowns())
}

func TestReportErrorAborts(t *testing.T) {
	script := traxtest.New(
		traxtest.Initialize("f1.png", trax.NewRectangle(0, 0, 1, 1)),
		traxtest.Frame("f2.png"),
		traxtest.Quit(),
	)
	s, err := session.Start(script)
	require.NoError(t, err)
	r := New(s, func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error) {
		return trackerFunc(func(ctx context.Context, frame session.Frame) (region.Region, error) {
			return region.NewPolygon(), nil
		}), nil
	})
	err = r.Run(testCtx())
	require.True(t, errors.Is(err, session.ErrRegionMode))
	require.Equal(t, 0, r.Frames())
	require.True(t, s.IsEnded())
}
