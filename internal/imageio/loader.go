// Package imageio decodes frame images for trackers. Decoded grayscale
// planes are cached so every tracker of a multi-object session shares one
// decode per frame.
package imageio

import (
	"image"
	"sync/atomic"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const DefaultCacheSize = 16

type Loader struct {
	cache   *lru.Cache[string, *image.Gray]
	decodes int64
}

// NewLoader returns a loader caching up to size decoded frames. A size below
// one selects DefaultCacheSize.
func NewLoader(size int) (*Loader, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *image.Gray](size)
	if err != nil {
		return nil, errors.Wrap(err, "lru.New")
	}
	return &Loader{cache: c}, nil
}

// Open decodes path as is, honouring EXIF orientation. It is not cached.
func (l *Loader) Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "imaging.Open %s", path)
	}
	return img, nil
}

// Gray returns the luminance plane of path. The returned image is shared and
// must not be modified.
func (l *Loader) Gray(path string) (*image.Gray, error) {
	if g, ok := l.cache.Get(path); ok {
		return g, nil
	}
	img, err := l.Open(path)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&l.decodes, 1)
	g := ToGray(img)
	l.cache.Add(path, g)
	return g, nil
}

// Decodes is the number of files decoded by Gray.
func (l *Loader) Decodes() int {
	return int(atomic.LoadInt64(&l.decodes))
}

// ToGray converts img to an 8-bit luminance image with its origin at (0,0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := g.Pix[y*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[4*x]
		}
	}
	return g
}
