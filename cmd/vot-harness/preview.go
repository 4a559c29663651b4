package main

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/disintegration/imaging"
	"github.com/eliukblau/pixterm/pkg/ansimage"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var palette = []color.NRGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, R: 64, A: 255},
	{R: 255, G: 255, A: 255},
}

// drawPreview prints the frame at path to the terminal with the bounds of
// every reported object outlined.
func drawPreview(path string, objects []trax.Object) error {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return errors.Wrap(err, "imaging.Open")
	}
	canvas := imaging.Clone(img)
	for i, o := range objects {
		if o.Region == nil || o.Region.Kind() == trax.KindSpecial {
			continue
		}
		x, y, w, h := o.Region.Bounds()
		outline(canvas, image.Rect(int(x), int(y), int(x+w), int(y+h)), palette[i%len(palette)])
	}

	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return errors.Wrap(err, "unix.IoctlGetWinsize")
	}
	ansi, err := ansimage.NewScaledFromImage(canvas, 8*int(ws.Col), 7*int(ws.Row), color.Black, ansimage.ScaleModeFit, ansimage.DitheringWithChars)
	if err != nil {
		return errors.Wrap(err, "ansimage.NewScaledFromImage")
	}
	fmt.Print("\033[H\033[2J") // flicker
	ansi.Draw()
	return nil
}

// outline draws a two pixel border of r clipped to img.
func outline(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		for _, y := range []int{r.Min.Y, r.Min.Y + 1, r.Max.Y - 2, r.Max.Y - 1} {
			if y >= r.Min.Y && y < r.Max.Y {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for _, x := range []int{r.Min.X, r.Min.X + 1, r.Max.X - 2, r.Max.X - 1} {
			if x >= r.Min.X && x < r.Max.X {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}
