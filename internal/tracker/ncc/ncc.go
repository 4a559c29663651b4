// Package ncc is a template tracker. The object is cut from the first frame
// and searched for around its last position with normalized cross
// correlation.
package ncc

import (
	"context"
	"image"
	"math"

	"github.com/WIZARDISHUNGRY/vot-await/internal/filter"
	"github.com/WIZARDISHUNGRY/vot-await/internal/imageio"
	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/runner"
	"github.com/WIZARDISHUNGRY/vot-await/internal/session"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrLost     = errors.New("ncc: object lost")
	ErrTemplate = errors.New("ncc: empty template")
)

type Config struct {
	// WindowScale sizes the square search window relative to the larger
	// template side.
	WindowScale float64 `yaml:"window_scale"`
	// MinScore is the correlation below which the object counts as lost.
	MinScore float64 `yaml:"min_score"`
	// HashDistance is the perceptual hash distance above which a match is
	// rejected. Zero disables the check.
	HashDistance int `yaml:"hash_distance"`
	// MinContrast rejects flat matches. Zero disables the check.
	MinContrast float64 `yaml:"min_contrast"`
	// ComplexityDelta rejects matches whose compressibility differs from the
	// template by more than this. Zero disables the check.
	ComplexityDelta float64 `yaml:"complexity_delta"`
}

func DefaultConfig() Config {
	return Config{
		WindowScale:  2,
		MinScore:     0.3,
		HashDistance: filter.DefaultMaxDist,
	}
}

type Tracker struct {
	cfg    Config
	loader *imageio.Loader
	mode   region.Mode
	check  filter.FilterFunc

	template      *image.Gray
	templateZero  []float64
	templateNorm  float64
	fracX, fracY  float32
	width, height float32

	x, y  int // template origin in the last frame
	score float32
	patch []float64
}

var (
	_ runner.Tracker   = &Tracker{}
	_ runner.Confident = &Tracker{}
)

// NewFactory returns a runner.Factory sharing loader between all trackers.
func NewFactory(cfg Config, loader *imageio.Loader) runner.Factory {
	return func(ctx context.Context, frame session.Frame, initial region.Region) (runner.Tracker, error) {
		return New(ctx, cfg, loader, frame, initial)
	}
}

// New cuts the template given by the bounds of initial from frame.
func New(ctx context.Context, cfg Config, loader *imageio.Loader, frame session.Frame, initial region.Region) (*Tracker, error) {
	if loader == nil {
		var err error
		if loader, err = imageio.NewLoader(0); err != nil {
			return nil, err
		}
	}
	var rect region.Rectangle
	switch r := initial.(type) {
	case region.Rectangle:
		rect = r.Normalize()
	case *region.Polygon:
		rect = r.Bounds()
	case *region.Mask:
		rect = r.Bounds()
	default:
		return nil, errors.Errorf("ncc: unsupported region %T", initial)
	}

	img, err := loader.Gray(frame.Primary())
	if err != nil {
		return nil, errors.Wrap(err, "loader.Gray")
	}

	x0, y0 := int(math.Floor(float64(rect.X))), int(math.Floor(float64(rect.Y)))
	w, h := int(math.Round(float64(rect.Width))), int(math.Round(float64(rect.Height)))
	crop := image.Rect(x0, y0, x0+w, y0+h).Intersect(img.Bounds())
	if crop.Empty() {
		return nil, errors.Wrapf(ErrTemplate, "%+v outside %v", rect, img.Bounds())
	}

	t := &Tracker{
		cfg:    cfg,
		loader: loader,
		mode:   initial.Mode(),
		fracX:  rect.X - float32(crop.Min.X),
		fracY:  rect.Y - float32(crop.Min.Y),
		width:  float32(crop.Dx()),
		height: float32(crop.Dy()),
		x:      crop.Min.X,
		y:      crop.Min.Y,
		score:  1,
	}
	if crop.Min.X != x0 || crop.Min.Y != y0 {
		t.fracX, t.fracY = 0, 0
	}
	t.template = copyGray(img, crop)
	t.templateZero = zeroMean(t.template, t.template.Bounds(), nil)
	t.templateNorm = floats.Norm(t.templateZero, 2)

	var checks []filter.FilterFunc
	if cfg.HashDistance > 0 {
		checks = append(checks, filter.MaxHashDistance(filter.DefaultDim, cfg.HashDistance))
	}
	if cfg.MinContrast > 0 {
		checks = append(checks, filter.MinContrast(cfg.MinContrast))
	}
	if cfg.ComplexityDelta > 0 {
		checks = append(checks, filter.MaxComplexityDelta(cfg.ComplexityDelta))
	}
	if len(checks) > 0 {
		t.check = filter.Multi(checks...)
	}
	return t, nil
}

func (t *Tracker) Confidence() float32 { return t.score }

// Update searches frame for the template. When the object is lost the last
// region is returned together with ErrLost.
func (t *Tracker) Update(ctx context.Context, frame session.Frame) (region.Region, error) {
	img, err := t.loader.Gray(frame.Primary())
	if err != nil {
		return t.region(img), errors.Wrap(err, "loader.Gray")
	}

	tw, th := t.template.Rect.Dx(), t.template.Rect.Dy()
	side := int(math.Ceil(t.cfg.WindowScale * float64(max(tw, th))))
	cx, cy := t.x+tw/2, t.y+th/2
	window := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side).Intersect(img.Bounds())
	if window.Dx() < tw || window.Dy() < th {
		t.score = 0
		return t.region(img), errors.Wrapf(ErrLost, "search window %v smaller than template %dx%d", window, tw, th)
	}

	best, bx, by := math.Inf(-1), t.x, t.y
	for y := window.Min.Y; y+th <= window.Max.Y; y++ {
		for x := window.Min.X; x+tw <= window.Max.X; x++ {
			s := t.correlate(img, image.Rect(x, y, x+tw, y+th))
			if s > best {
				best, bx, by = s, x, y
			}
		}
	}
	t.score = float32(max(best, 0))

	if best < t.cfg.MinScore {
		return t.region(img), errors.Wrapf(ErrLost, "score %.3f below %.3f", best, t.cfg.MinScore)
	}
	if t.check != nil {
		ok, err := t.check(ctx, t.template, img.SubImage(image.Rect(bx, by, bx+tw, by+th)))
		if err != nil {
			return t.region(img), errors.Wrap(err, "check")
		}
		if !ok {
			return t.region(img), errors.Wrapf(ErrLost, "match at %d,%d rejected", bx, by)
		}
	}
	t.x, t.y = bx, by
	return t.region(img), nil
}

// correlate is the normalized cross correlation of the template and r.
func (t *Tracker) correlate(img *image.Gray, r image.Rectangle) float64 {
	t.patch = zeroMean(img, r, t.patch)
	denom := floats.Norm(t.patch, 2) * t.templateNorm
	if denom == 0 {
		return 0
	}
	return floats.Dot(t.patch, t.templateZero) / denom
}

// region renders the current position in the tracker's mode. Masks span the
// whole frame when its size is known.
func (t *Tracker) region(img *image.Gray) region.Region {
	rect := region.Rectangle{
		X:      float32(t.x) + t.fracX,
		Y:      float32(t.y) + t.fracY,
		Width:  t.width,
		Height: t.height,
	}
	switch t.mode {
	case region.ModePolygon:
		r, _ := region.FromRectangle(region.ModePolygon, rect)
		return r
	case region.ModeMask:
		w, h := int(math.Ceil(float64(rect.X+rect.Width))), int(math.Ceil(float64(rect.Y+rect.Height)))
		if img != nil {
			w, h = img.Rect.Dx(), img.Rect.Dy()
		}
		return region.RasterizeRectangle(rect, w, h)
	}
	return rect
}

func copyGray(img *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+r.Dx()], img.Pix[img.PixOffset(r.Min.X, r.Min.Y+y):])
	}
	return out
}

// zeroMean writes the pixels of r, minus their mean, into buf.
func zeroMean(img *image.Gray, r image.Rectangle, buf []float64) []float64 {
	n := r.Dx() * r.Dy()
	if cap(buf) < n {
		buf = make([]float64, n)
	}
	buf = buf[:n]
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			buf[i] = float64(row[x])
			i++
		}
	}
	floats.AddConst(-floats.Sum(buf)/float64(n), buf)
	return buf
}
