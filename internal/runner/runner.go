// Package runner drives one tracker per object through a session.
package runner

import (
	"context"
	"io"

	"github.com/WIZARDISHUNGRY/vot-await/internal/logger"
	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/session"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Tracker follows one object. Update returns the region of the object in
// frame; when it fails it may still return its best guess.
type Tracker interface {
	Update(ctx context.Context, frame session.Frame) (region.Region, error)
}

// Confident is implemented by trackers that score their last update.
type Confident interface {
	Confidence() float32
}

// Factory creates the tracker of one object from the initial frame and
// region.
type Factory func(ctx context.Context, frame session.Frame, initial region.Region) (Tracker, error)

type Runner struct {
	session *session.Session
	factory Factory

	trackers []Tracker
	last     []region.Region
	frames   int
}

func New(s *session.Session, f Factory) *Runner {
	return &Runner{session: s, factory: f}
}

// Frames is the number of frames reported so far.
func (r *Runner) Frames() int { return r.frames }

// Run initializes the trackers and reports every frame until the harness
// ends the sequence. The session is shut down and the trackers closed when
// Run returns.
func (r *Runner) Run(ctx context.Context) (retErr error) {
	log := ctxLog(ctx)
	defer func() {
		r.close(ctx)
		if err := r.session.Shutdown(); err != nil && retErr == nil {
			retErr = errors.Wrap(err, "session.Shutdown")
		}
	}()

	if err := r.initialize(ctx); err != nil {
		return err
	}

	for !r.session.IsEnded() {
		frame, err := r.session.NextFrame()
		if errors.Is(err, session.ErrSequenceEnd) {
			if reason := r.session.EndReason(); reason != nil {
				log.WithError(reason).Warn("sequence ended early")
			}
			break
		}
		if err != nil {
			return errors.Wrap(err, "session.NextFrame")
		}

		regions := r.update(ctx, frame)
		if err := r.report(regions); err != nil {
			return errors.Wrap(err, "session.Report")
		}
		r.frames++
	}
	log.WithField("frames", r.frames).Info("sequence done")
	return nil
}

func (r *Runner) initialize(ctx context.Context) error {
	frame, err := r.session.InitialFrame()
	if err != nil {
		return errors.Wrap(err, "session.InitialFrame")
	}
	objects, err := r.session.InitialObjects()
	if err != nil {
		return errors.Wrap(err, "session.InitialObjects")
	}
	for i, o := range objects {
		t, err := r.factory(ctx, frame, o.Copy())
		if err != nil {
			return errors.Wrapf(err, "factory object %d", i)
		}
		r.trackers = append(r.trackers, t)
	}
	r.last = objects
	return nil
}

// update runs every tracker in object order. A failing tracker keeps its slot
// with whatever it returned, or its previous region when it returned nothing.
func (r *Runner) update(ctx context.Context, frame session.Frame) []region.Region {
	regions := make([]region.Region, len(r.trackers))
	for i, t := range r.trackers {
		reg, err := t.Update(ctx, frame)
		if err != nil {
			ctxLog(ctx).WithError(err).WithField("object", i).WithField("frame", frame.String()).Warn("tracker update failed")
		}
		if reg == nil {
			reg = r.last[i]
		}
		regions[i] = reg
		r.last[i] = reg.Copy()
	}
	return regions
}

func (r *Runner) report(regions []region.Region) error {
	if len(r.trackers) == 1 && !r.session.MultiObject() {
		if c, ok := r.trackers[0].(Confident); ok {
			return r.session.ReportConfidence(regions[0], c.Confidence())
		}
	}
	return r.session.Report(regions)
}

func (r *Runner) close(ctx context.Context) {
	for i, t := range r.trackers {
		c, ok := t.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			ctxLog(ctx).WithError(err).WithField("object", i).Warn("tracker close")
		}
	}
	r.trackers = nil
}

func ctxLog(ctx context.Context) *logrus.Entry {
	if e, ok := logger.Lookup(ctx); ok {
		return e
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
