package filter

import (
	"context"
	"image"
	"image/color"

	"gonum.org/v1/gonum/stat"
)

// MinContrast returns a filter function that rejects flat candidates whose
// luminance standard deviation is below minStdDev (0-255 scale). The
// template is not consulted.
func MinContrast(minStdDev float64) FilterFunc {
	return func(ctx context.Context, template, candidate image.Image) (bool, error) {
		b := candidate.Bounds()
		values := make([]float64, 0, b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(color.GrayModel.Convert(candidate.At(x, y)).(color.Gray).Y))
			}
		}
		if len(values) < 2 {
			return false, nil
		}
		return stat.StdDev(values, nil) >= minStdDev, nil
	}
}
