package filter

import (
	"context"
	"image"
)

// FilterFunc evaluates if candidate still shows the object cut out as
// template. It must be safe for concurrent use.
type FilterFunc func(ctx context.Context, template, candidate image.Image) (bool, error)

func Multi(fxns ...FilterFunc) FilterFunc {
	return func(ctx context.Context, template, candidate image.Image) (bool, error) {
		for _, fxn := range fxns {
			ok, err := fxn(ctx, template, candidate)
			if !ok || err != nil {
				return false, err
			}
		}
		return true, nil
	}
}
