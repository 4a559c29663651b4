package region

import (
	"math"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
)

// ToRectangle converts rectangles and polygons to an axis aligned rectangle.
// Masks have no rectangle form here; trackers that need one use Mask.Bounds.
func ToRectangle(r Region) (Rectangle, error) {
	switch v := r.(type) {
	case Rectangle:
		return v, nil
	case *Polygon:
		return v.Bounds(), nil
	}
	return Rectangle{}, errors.Wrapf(ErrNotConvertible, "%s to rectangle", r.Mode())
}

// FromRectangle builds a region of the given mode from r. A polygon gets the
// four corners of r.
func FromRectangle(mode Mode, r Rectangle) (Region, error) {
	switch mode {
	case ModeRectangle:
		return r, nil
	case ModePolygon:
		p := &Polygon{}
		p.SetRectangle(r)
		return p, nil
	}
	return nil, errors.Wrapf(ErrNotConvertible, "rectangle to %s", mode)
}

// RasterizeRectangle paints r into a width x height mask. Pixels whose
// centre falls inside r are set.
func RasterizeRectangle(r Rectangle, width, height int) *Mask {
	m := NewMask(width, height)
	r = r.Normalize()
	x0 := max(int(math.Ceil(float64(r.X)-0.5)), 0)
	y0 := max(int(math.Ceil(float64(r.Y)-0.5)), 0)
	x1 := min(int(math.Ceil(float64(r.X+r.Width)-0.5)), m.width)
	y1 := min(int(math.Ceil(float64(r.Y+r.Height)-0.5)), m.height)
	for y := y0; y < y1; y++ {
		row := m.Row(y)
		for x := x0; x < x1; x++ {
			row[x] = 1
		}
	}
	return m
}

// FromWire converts a wire region to the in-process form of mode. Rectangle
// mode accepts anything and reduces it to its bounds. Polygon mode promotes
// rectangles to polygons, mask mode rasterizes them.
func FromWire(mode Mode, w *trax.Region) (Region, error) {
	if w == nil {
		w = trax.NewSpecial(0)
	}
	switch mode {
	case ModeRectangle:
		if w.Kind() == trax.KindSpecial {
			return Rectangle{}, nil
		}
		x, y, width, height := w.Bounds()
		return Rectangle{X: x, Y: y, Width: width, Height: height}, nil

	case ModePolygon:
		switch w.Kind() {
		case trax.KindSpecial:
			return &Polygon{}, nil
		case trax.KindRectangle:
			x, y, width, height := w.Rectangle()
			return FromRectangle(mode, Rectangle{X: x, Y: y, Width: width, Height: height})
		case trax.KindPolygon:
			p := &Polygon{Points: make([]Point, w.PolygonCount())}
			for i := range p.Points {
				pt := w.PolygonPoint(i)
				p.Points[i] = Point{X: pt.X, Y: pt.Y}
			}
			return p, nil
		}

	case ModeMask:
		switch w.Kind() {
		case trax.KindSpecial:
			return NewMask(0, 0), nil
		case trax.KindRectangle:
			x, y, width, height := w.Rectangle()
			r := Rectangle{X: x, Y: y, Width: width, Height: height}.Normalize()
			mw := max(math.Ceil(float64(r.X+r.Width)), 0)
			mh := max(math.Ceil(float64(r.Y+r.Height)), 0)
			if !(mw*mh <= trax.MaxMaskPixels) || mw > trax.MaxMaskPixels || mh > trax.MaxMaskPixels {
				return nil, errors.Wrapf(trax.ErrRegionFormat, "rectangle needs a %vx%v mask", mw, mh)
			}
			return RasterizeRectangle(r, int(mw), int(mh)), nil
		case trax.KindMask:
			ox, oy, width, height := w.MaskHeader()
			if ox < 0 || oy < 0 || ox > trax.MaxMaskPixels || oy > trax.MaxMaskPixels || !trax.MaskFits(ox+width, oy+height) {
				return nil, errors.Wrapf(trax.ErrRegionFormat, "mask %dx%d at %d,%d", width, height, ox, oy)
			}
			m := NewMask(ox+width, oy+height)
			for y := 0; y < height; y++ {
				copy(m.Row(oy + y)[ox:], w.MaskRow(y))
			}
			return m, nil
		}
	}
	return nil, errors.Wrapf(ErrMode, "%s region in %s session", w.Kind(), mode)
}

// ToWire converts r to its wire form. Masks are sent whole, at offset (0,0),
// polygons of fewer than three points as the empty region.
func ToWire(r Region) *trax.Region {
	switch v := r.(type) {
	case Rectangle:
		return trax.NewRectangle(v.X, v.Y, v.Width, v.Height)
	case *Polygon:
		if len(v.Points) < 3 {
			return trax.NewSpecial(0)
		}
		w := trax.NewPolygon(len(v.Points))
		for i, pt := range v.Points {
			w.SetPolygonPoint(i, pt.X, pt.Y)
		}
		return w
	case *Mask:
		w := trax.NewMask(0, 0, v.width, v.height)
		copy(w.MaskData(), v.data)
		return w
	}
	return trax.NewSpecial(0)
}
