package filter

import (
	"context"
	"image"
	"sync"

	"github.com/WIZARDISHUNGRY/vot-await/internal/logger"
	"github.com/corona10/goimagehash"
	"github.com/pkg/errors"
)

const (
	DefaultDim     = 8
	DefaultMaxDist = 24
)

// MaxHashDistance returns a filter function that rejects candidates whose
// ExtPerceptionHash is further than maxDist bits from the template hash. The
// hash of the last template seen is kept.
func MaxHashDistance(dim, maxDist int) FilterFunc {
	var (
		mutex        sync.Mutex
		lastTemplate image.Image
		templateHash *goimagehash.ExtImageHash
	)
	hashTemplate := func(template image.Image) (*goimagehash.ExtImageHash, error) {
		mutex.Lock()
		defer mutex.Unlock()
		if templateHash != nil && lastTemplate == template {
			return templateHash, nil
		}
		hash, err := goimagehash.ExtPerceptionHash(template, dim, dim)
		if err != nil {
			return nil, err
		}
		lastTemplate, templateHash = template, hash
		return hash, nil
	}

	return func(ctx context.Context, template, candidate image.Image) (bool, error) {
		th, err := hashTemplate(template)
		if err != nil {
			return false, errors.Wrap(err, "goimagehash.ExtPerceptionHash template")
		}
		ch, err := goimagehash.ExtPerceptionHash(candidate, dim, dim)
		if err != nil {
			return false, errors.Wrap(err, "goimagehash.ExtPerceptionHash candidate")
		}
		dist, err := th.Distance(ch)
		if err != nil {
			return false, errors.Wrap(err, "hash.Distance")
		}
		ok := dist <= maxDist
		if !ok {
			if log, found := logger.Lookup(ctx); found {
				log.Tracef("ExtPerceptionHash distance is %d, threshold is %d", dist, maxDist)
			}
		}
		return ok, nil
	}
}
