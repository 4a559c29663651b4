// Package region holds the in-process representation of a tracked object's
// extent. A session picks one Mode at start and every region it exchanges
// with trackers is of that mode.
package region

import (
	"math"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
)

var (
	ErrNotConvertible = errors.New("region: not convertible")
	ErrMode           = errors.New("region: wrong region mode")
)

type Mode int

const (
	ModeRectangle Mode = iota
	ModePolygon
	ModeMask
)

func (m Mode) String() string {
	return m.Kind().String()
}

// Kind is the wire kind advertised for the mode.
func (m Mode) Kind() trax.RegionKind {
	switch m {
	case ModePolygon:
		return trax.KindPolygon
	case ModeMask:
		return trax.KindMask
	}
	return trax.KindRectangle
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "rectangle":
		return ModeRectangle, nil
	case "polygon":
		return ModePolygon, nil
	case "mask":
		return ModeMask, nil
	}
	return 0, errors.Errorf("unknown region mode %q", s)
}

// Region is one of Rectangle, *Polygon or *Mask.
type Region interface {
	Mode() Mode
	// Copy returns a deep copy backed by new storage.
	Copy() Region
	isRegion()
}

var (
	_ Region = Rectangle{}
	_ Region = &Polygon{}
	_ Region = &Mask{}
)

type Rectangle struct {
	X, Y, Width, Height float32
}

func (Rectangle) Mode() Mode { return ModeRectangle }
func (r Rectangle) Copy() Region { return r }
func (Rectangle) isRegion() {}

func (r Rectangle) Rectangle() Rectangle { return r }

// Normalize flips negative extents so that width and height are never
// negative.
func (r Rectangle) Normalize() Rectangle {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

func (r Rectangle) Center() (x, y float32) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

type Point struct {
	X, Y float32
}

// Polygon is an ordered list of points. An empty polygon is a valid empty
// region.
type Polygon struct {
	Points []Point
}

func NewPolygon(points ...Point) *Polygon {
	return &Polygon{Points: append([]Point(nil), points...)}
}

func (*Polygon) Mode() Mode { return ModePolygon }
func (*Polygon) isRegion() {}

func (p *Polygon) Copy() Region {
	return NewPolygon(p.Points...)
}

func (p *Polygon) Count() int { return len(p.Points) }

// Assign replaces the points of p with those of src. Storage is reallocated
// when the counts differ.
func (p *Polygon) Assign(src *Polygon) {
	if len(p.Points) != len(src.Points) {
		p.Points = make([]Point, len(src.Points))
	}
	copy(p.Points, src.Points)
}

// Bounds is the tight bounding box of the points. An empty polygon yields
// the zero rectangle.
func (p *Polygon) Bounds() Rectangle {
	if len(p.Points) == 0 {
		return Rectangle{}
	}
	left, top := float32(math.Inf(1)), float32(math.Inf(1))
	right, bottom := float32(math.Inf(-1)), float32(math.Inf(-1))
	for _, pt := range p.Points {
		left = min(left, pt.X)
		right = max(right, pt.X)
		top = min(top, pt.Y)
		bottom = max(bottom, pt.Y)
	}
	return Rectangle{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// SetRectangle turns p into the four corners of r: top-left, top-right,
// bottom-right, bottom-left.
func (p *Polygon) SetRectangle(r Rectangle) {
	p.Assign(&Polygon{Points: []Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	}})
}

// Mask is a row-major binary occupancy mask.
type Mask struct {
	width, height int
	data          []byte
}

// NewMask returns an empty mask. Negative sizes are clamped to zero.
func NewMask(width, height int) *Mask {
	width, height = max(width, 0), max(height, 0)
	return &Mask{width: width, height: height, data: make([]byte, width*height)}
}

func (*Mask) Mode() Mode { return ModeMask }
func (*Mask) isRegion() {}

func (m *Mask) Copy() Region {
	c := &Mask{width: m.width, height: m.height}
	c.data = append(make([]byte, 0, len(m.data)), m.data...)
	return c
}

func (m *Mask) Width() int { return m.width }
func (m *Mask) Height() int { return m.height }

// Data is the backing buffer, aliased.
func (m *Mask) Data() []byte { return m.data }

// Row returns row y, aliased.
func (m *Mask) Row(y int) []byte {
	return m.data[y*m.width : (y+1)*m.width]
}

func (m *Mask) At(x, y int) byte {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return 0
	}
	return m.data[y*m.width+x]
}

// Set writes 1 for any non-zero v. Out of range coordinates are ignored.
func (m *Mask) Set(x, y int, v byte) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	if v != 0 {
		v = 1
	}
	m.data[y*m.width+x] = v
}

// Assign replaces the contents of m with src. Storage is reallocated when
// the dimensions differ.
func (m *Mask) Assign(src *Mask) {
	if m.width != src.width || m.height != src.height {
		m.width, m.height = src.width, src.height
		m.data = make([]byte, len(src.data))
	}
	copy(m.data, src.data)
}

// Bounds is the bounding box of the set pixels, or the zero rectangle when no
// pixel is set.
func (m *Mask) Bounds() Rectangle {
	minX, minY, maxX, maxY := m.width, m.height, -1, -1
	for y := 0; y < m.height; y++ {
		for x, v := range m.Row(y) {
			if v == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return Rectangle{}
	}
	return Rectangle{
		X:      float32(minX),
		Y:      float32(minY),
		Width:  float32(maxX - minX + 1),
		Height: float32(maxY - minY + 1),
	}
}
