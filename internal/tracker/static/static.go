// Package static is a tracker that never moves: it reports its initial
// region on every frame. It is useful to check the plumbing end to end.
package static

import (
	"context"

	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/runner"
	"github.com/WIZARDISHUNGRY/vot-await/internal/session"
)

type Tracker struct {
	initial region.Region
}

var _ runner.Tracker = &Tracker{}

func New(initial region.Region) *Tracker {
	return &Tracker{initial: initial.Copy()}
}

// Factory is a runner.Factory for static trackers.
func Factory(ctx context.Context, frame session.Frame, initial region.Region) (runner.Tracker, error) {
	return New(initial), nil
}

func (t *Tracker) Update(ctx context.Context, frame session.Frame) (region.Region, error) {
	return t.initial.Copy(), nil
}
