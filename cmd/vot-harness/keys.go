package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/WIZARDISHUNGRY/vot-await/internal/logger"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/mattn/go-tty"
)

var (
	control *stepper
	cancel  context.CancelFunc
)

// stepper pauses the run between frames and decides when to draw a preview.
type stepper struct {
	mutex    sync.Mutex
	stepping bool
	oneShot  bool
	ansiArt  int
	next     chan struct{}
}

func newStepper(stepping bool, ansiArt int) *stepper {
	return &stepper{stepping: stepping, ansiArt: ansiArt, next: make(chan struct{}, 1)}
}

func (s *stepper) hook(ctx context.Context, pos int, images map[trax.Channel]string, objects []trax.Object) error {
	s.mutex.Lock()
	draw := s.oneShot || (s.ansiArt > 0 && pos%s.ansiArt == 0)
	s.oneShot = false
	stepping := s.stepping
	s.mutex.Unlock()

	if draw {
		path, ok := images[trax.ChannelColor]
		if !ok {
			path = images[trax.ChannelIR]
		}
		if err := drawPreview(path, objects); err != nil {
			logger.Entry(ctx).WithError(err).Warn("drawPreview")
		}
	}
	if !stepping {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.next:
		return nil
	}
}

func (s *stepper) step() {
	select {
	case s.next <- struct{}{}:
	default:
	}
}

func (s *stepper) setStepping(on bool) {
	s.mutex.Lock()
	s.stepping = on
	s.mutex.Unlock()
	if !on {
		s.step()
	}
}

func (s *stepper) shoot() {
	s.mutex.Lock()
	s.oneShot = true
	s.mutex.Unlock()
}

func scanKeys(ctx context.Context) {
	tty, err := tty.Open()
	if err != nil {
		logger.Entry(ctx).WithError(err).Warn("no tty, keys disabled")
		return
	}
	defer tty.Close()

	for ctx.Err() == nil {
		r, err := tty.ReadRune()
		if err != nil {
			logger.Entry(ctx).WithError(err).Warn("tty.ReadRune")
			return
		}
		h, ok := keyMap[r]
		if !ok {
			continue
		}
		h.cb(ctx)
	}
}

type kmt = map[rune]struct {
	cb   func(context.Context)
	desc string
}

var keyMap kmt

func init() {
	keyMap = kmt{
		13: // enter
		{
			cb:   func(c context.Context) { control.step() },
			desc: "Next frame",
		},
		' ': {
			cb:   func(c context.Context) { control.step() },
			desc: "Next frame",
		},
		'c': {
			cb:   func(c context.Context) { control.setStepping(false) },
			desc: "Continue without stepping",
		},
		's': {
			cb:   func(c context.Context) { control.setStepping(true) },
			desc: "Step frame by frame",
		},
		'p': {
			cb:   func(c context.Context) { control.shoot() },
			desc: "Dump ansi art of the next frame",
		},
		'q': {
			cb:   func(c context.Context) { cancel() },
			desc: "Abort the run",
		},
		'?': {
			desc: "Help",
			cb: func(c context.Context) {
				keys := slices.Sorted(maps.Keys(keyMap))
				for _, k := range keys {
					fmt.Printf("%q\t%s\n", k, keyMap[k].desc)
				}
			},
		},
	}
}
