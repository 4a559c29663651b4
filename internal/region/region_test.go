package region

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectangleRoundTrip(t *testing.T) {
	rects := []Rectangle{
		{},
		{X: 10, Y: 10, Width: 20, Height: 20},
		{X: -3.5, Y: 7.25, Width: 0.5, Height: 100},
	}
	for _, mode := range []Mode{ModeRectangle, ModePolygon} {
		for _, r := range rects {
			first, err := FromRectangle(mode, r)
			require.NoError(t, err)
			back, err := ToRectangle(first)
			require.NoError(t, err)
			second, err := FromRectangle(mode, back)
			require.NoError(t, err)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("%s %+v (-first +second):\n%s", mode, r, diff)
			}
		}
	}
}

func TestPolygonCorners(t *testing.T) {
	r, err := FromRectangle(ModePolygon, Rectangle{X: 1, Y: 2, Width: 3, Height: 4})
	require.NoError(t, err)
	want := []Point{{1, 2}, {4, 2}, {4, 6}, {1, 6}}
	require.Equal(t, want, r.(*Polygon).Points)
}

func TestMaskNotConvertible(t *testing.T) {
	_, err := FromRectangle(ModeMask, Rectangle{Width: 1, Height: 1})
	require.True(t, errors.Is(err, ErrNotConvertible))
	_, err = ToRectangle(NewMask(2, 2))
	require.True(t, errors.Is(err, ErrNotConvertible))
}

func TestMaskRoundTrip(t *testing.T) {
	m := NewMask(4, 3)
	want := []byte{0, 1, 1, 0, 1, 1, 1, 1, 0, 0, 0, 1}
	copy(m.Data(), want)

	back, err := FromWire(ModeMask, ToWire(m))
	require.NoError(t, err)
	got := back.(*Mask)
	require.Equal(t, 4, got.Width())
	require.Equal(t, 3, got.Height())
	require.Equal(t, want, got.Data())
}

func TestCopyIndependence(t *testing.T) {
	a := NewPolygon(Point{0, 0}, Point{1, 0}, Point{1, 1})
	b := a.Copy().(*Polygon)
	a.Points = append(a.Points, Point{0, 1})
	a.Points[0] = Point{9, 9}
	assert.Equal(t, 3, b.Count())
	assert.Equal(t, Point{0, 0}, b.Points[0])

	b.Points[1] = Point{5, 5}
	assert.Equal(t, Point{1, 0}, a.Points[1])

	m := NewMask(2, 2)
	mc := m.Copy().(*Mask)
	m.Set(0, 0, 1)
	assert.Equal(t, byte(0), mc.At(0, 0))
	mc.Set(1, 1, 7)
	assert.Equal(t, byte(0), m.At(1, 1))
	assert.Equal(t, byte(1), mc.At(1, 1))
}

func TestReassignmentResize(t *testing.T) {
	dst := NewPolygon(Point{1, 1}, Point{2, 2}, Point{3, 3}, Point{4, 4})
	old := dst.Points
	src := NewPolygon(Point{0, 0}, Point{1, 0}, Point{2, 0}, Point{3, 1}, Point{2, 2}, Point{1, 2}, Point{0, 1})
	dst.Assign(src)
	require.Equal(t, 7, dst.Count())
	require.Equal(t, src.Points, dst.Points)
	require.Equal(t, Point{1, 1}, old[0], "previous storage is not reused")

	src.Points[0] = Point{8, 8}
	require.Equal(t, Point{0, 0}, dst.Points[0])

	m := NewMask(2, 2)
	m.Set(1, 1, 1)
	big := NewMask(3, 5)
	big.Set(2, 4, 1)
	m.Assign(big)
	require.Equal(t, 3, m.Width())
	require.Equal(t, 5, m.Height())
	require.Equal(t, big.Data(), m.Data())
	require.Equal(t, byte(0), m.At(1, 1))
}

func TestNormalize(t *testing.T) {
	got := Rectangle{X: 10, Y: 10, Width: -4, Height: -2}.Normalize()
	require.Equal(t, Rectangle{X: 6, Y: 8, Width: 4, Height: 2}, got)
}

func TestBounds(t *testing.T) {
	p := NewPolygon(Point{5, 1}, Point{-2, 4}, Point{3, 9})
	require.Equal(t, Rectangle{X: -2, Y: 1, Width: 7, Height: 8}, p.Bounds())
	require.Equal(t, Rectangle{}, (&Polygon{}).Bounds())

	m := NewMask(5, 5)
	m.Set(1, 2, 1)
	m.Set(3, 3, 1)
	require.Equal(t, Rectangle{X: 1, Y: 2, Width: 3, Height: 2}, m.Bounds())
	require.Equal(t, Rectangle{}, NewMask(3, 3).Bounds())
}

func TestRasterizeRectangle(t *testing.T) {
	m := RasterizeRectangle(Rectangle{X: 1, Y: 0, Width: 2, Height: 2}, 4, 3)
	require.Equal(t, []byte{
		0, 1, 1, 0,
		0, 1, 1, 0,
		0, 0, 0, 0,
	}, m.Data())

	clipped := RasterizeRectangle(Rectangle{X: -5, Y: -5, Width: 100, Height: 100}, 2, 2)
	require.Equal(t, []byte{1, 1, 1, 1}, clipped.Data())
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ModeRectangle, ModePolygon, ModeMask} {
		got, err := ParseMode(mode.String())
		require.NoError(t, err)
		require.Equal(t, mode, got)
	}
	_, err := ParseMode("ellipse")
	require.Error(t, err)
}
