package trax

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

type RegionKind int

const (
	KindSpecial RegionKind = iota
	KindRectangle
	KindPolygon
	KindMask
)

func (k RegionKind) String() string {
	switch k {
	case KindSpecial:
		return "special"
	case KindRectangle:
		return "rectangle"
	case KindPolygon:
		return "polygon"
	case KindMask:
		return "mask"
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

func ParseRegionKind(s string) (RegionKind, error) {
	switch s {
	case "rectangle":
		return KindRectangle, nil
	case "polygon":
		return KindPolygon, nil
	case "mask":
		return KindMask, nil
	}
	return KindSpecial, errors.Errorf("unknown region kind %q", s)
}

type Point struct {
	X, Y float32
}

// Region is a region as it travels on the wire. Exactly one of the rectangle,
// polygon or mask payloads is meaningful, selected by Kind.
type Region struct {
	kind RegionKind
	code int

	x, y, width, height float32

	points []Point

	maskX, maskY, maskWidth, maskHeight int
	mask                                []byte
}

// NewSpecial returns a special region. Code 0 is the empty region.
func NewSpecial(code int) *Region {
	return &Region{kind: KindSpecial, code: code}
}

func NewRectangle(x, y, width, height float32) *Region {
	return &Region{kind: KindRectangle, x: x, y: y, width: width, height: height}
}

// NewPolygon returns a polygon with count points at the origin.
func NewPolygon(count int) *Region {
	if count < 0 {
		count = 0
	}
	return &Region{kind: KindPolygon, points: make([]Point, count)}
}

// MaxMaskPixels bounds the area of any mask built from the wire.
const MaxMaskPixels = 1 << 26

// MaskFits reports whether a width x height mask is within MaxMaskPixels.
func MaskFits(width, height int) bool {
	if width < 0 || height < 0 || width > MaxMaskPixels || height > MaxMaskPixels {
		return false
	}
	return width == 0 || height <= MaxMaskPixels/width
}

// NewMask returns an all-zero mask of width x height placed at (x, y).
func NewMask(x, y, width, height int) *Region {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Region{
		kind:       KindMask,
		maskX:      x,
		maskY:      y,
		maskWidth:  width,
		maskHeight: height,
		mask:       make([]byte, width*height),
	}
}

func (r *Region) Kind() RegionKind { return r.kind }

func (r *Region) Special() int { return r.code }

func (r *Region) Rectangle() (x, y, width, height float32) {
	return r.x, r.y, r.width, r.height
}

func (r *Region) PolygonCount() int { return len(r.points) }

func (r *Region) PolygonPoint(i int) Point { return r.points[i] }

func (r *Region) SetPolygonPoint(i int, x, y float32) {
	r.points[i] = Point{X: x, Y: y}
}

func (r *Region) MaskHeader() (x, y, width, height int) {
	return r.maskX, r.maskY, r.maskWidth, r.maskHeight
}

// MaskRow returns row i of the mask. The slice aliases the region storage so
// it can be written to.
func (r *Region) MaskRow(i int) []byte {
	return r.mask[i*r.maskWidth : (i+1)*r.maskWidth]
}

// MaskData returns the whole row-major mask buffer, aliased.
func (r *Region) MaskData() []byte { return r.mask }

// Bounds returns the axis aligned bounding box of the region. Masks are
// bounded by their set pixels, special regions are empty.
func (r *Region) Bounds() (x, y, width, height float32) {
	switch r.kind {
	case KindRectangle:
		return r.x, r.y, r.width, r.height
	case KindPolygon:
		if len(r.points) == 0 {
			return 0, 0, 0, 0
		}
		left, top := float32(math.Inf(1)), float32(math.Inf(1))
		right, bottom := float32(math.Inf(-1)), float32(math.Inf(-1))
		for _, p := range r.points {
			left = min32(left, p.X)
			right = max32(right, p.X)
			top = min32(top, p.Y)
			bottom = max32(bottom, p.Y)
		}
		return left, top, right - left, bottom - top
	case KindMask:
		minX, minY, maxX, maxY := r.maskWidth, r.maskHeight, -1, -1
		for j := 0; j < r.maskHeight; j++ {
			for i, v := range r.MaskRow(j) {
				if v == 0 {
					continue
				}
				if i < minX {
					minX = i
				}
				if i > maxX {
					maxX = i
				}
				if j < minY {
					minY = j
				}
				if j > maxY {
					maxY = j
				}
			}
		}
		if maxX < 0 {
			return 0, 0, 0, 0
		}
		return float32(r.maskX + minX), float32(r.maskY + minY),
			float32(maxX - minX + 1), float32(maxY - minY + 1)
	}
	return 0, 0, 0, 0
}

// Clone returns a deep copy.
func (r *Region) Clone() *Region {
	c := *r
	if r.points != nil {
		c.points = append([]Point(nil), r.points...)
	}
	if r.mask != nil {
		c.mask = append([]byte(nil), r.mask...)
	}
	return &c
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
