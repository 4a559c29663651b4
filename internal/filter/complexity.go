package filter

import (
	"compress/gzip"
	"context"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/pkg/errors"
)

type discardCounter struct {
	count int
}

var _ io.Writer = &discardCounter{}

func (dc *discardCounter) Write(p []byte) (n int, err error) {
	dc.count += len(p)
	return len(p), nil
}

// Complexity is the gzip compressed size of the luminance of img divided by
// its pixel count. Flat images score near zero, noise near one.
func Complexity(img image.Image) (float64, error) {
	b := img.Bounds()
	if b.Empty() {
		return 0, nil
	}
	pix := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pix = append(pix, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}

	buf := &discardCounter{}
	enc, err := gzip.NewWriterLevel(buf, gzip.BestSpeed)
	if err != nil {
		return 0, err
	}
	if _, err := enc.Write(pix); err != nil {
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	return float64(buf.count) / float64(len(pix)), nil
}

// MaxComplexityDelta returns a filter function that rejects candidates whose
// Complexity differs from the template's by more than delta.
func MaxComplexityDelta(delta float64) FilterFunc {
	return func(ctx context.Context, template, candidate image.Image) (bool, error) {
		tc, err := Complexity(template)
		if err != nil {
			return false, errors.Wrap(err, "template complexity")
		}
		cc, err := Complexity(candidate)
		if err != nil {
			return false, errors.Wrap(err, "candidate complexity")
		}
		return math.Abs(tc-cc) <= delta, nil
	}
}
