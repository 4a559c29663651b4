// Command vot-harness plays a sequence from disk to a tracker and writes the
// trajectories it reports.
//
//	vot-harness -seq data/ball -out results -- ./vot-await -tracker ncc
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/WIZARDISHUNGRY/vot-await/internal/harness"
	"github.com/WIZARDISHUNGRY/vot-await/internal/logger"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

var (
	flagSeq      = flag.String("seq", "", "sequence directory")
	flagOut      = flag.String("out", "", "results directory, defaults to results/<run id>")
	flagRegion   = flag.String("region", "", "require this region format from the tracker")
	flagChannels = flag.String("channels", "", "require these channels from the tracker")
	flagAnsiArt  = flag.Int("ansi-art", 0, "output ansi art on modulo frame")
	flagStep     = flag.Bool("step", false, "wait for a key press after every frame")
	flagSocket   = flag.Bool("socket", false, "serve the tracker on TRAX_SOCKET instead of stdio")
	flagTimeout  = flag.Duration("timeout", 5*time.Second, "tracker connect and exit timeout")
	flagLevel    = flag.String("log-level", "info", "logrus level")
)

func main() {
	flag.Parse()
	log = logger.New(*flagLevel)

	command := flag.Args()
	if *flagSeq == "" || len(command) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	runID := uuid.New().String()
	entry := log.WithField("run", runID)
	out := *flagOut
	if out == "" {
		out = filepath.Join("results", runID)
	}

	seq, err := harness.LoadSequence(*flagSeq)
	if err != nil {
		entry.WithError(err).Fatal("harness.LoadSequence")
	}

	ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer ctxCancel()
	ctx = logger.WithLogEntry(ctx, entry)
	cancel = ctxCancel

	control = newStepper(*flagStep, *flagAnsiArt)
	opts := []harness.Option{
		harness.WithLogger(entry),
		harness.WithTimeout(*flagTimeout),
		harness.WithFrameHook(control.hook),
	}
	if *flagSocket {
		opts = append(opts, harness.WithSocket())
	}
	if *flagRegion != "" {
		kind, err := trax.ParseRegionKind(*flagRegion)
		if err != nil {
			entry.WithError(err).Fatal("-region")
		}
		opts = append(opts, harness.WithRegion(kind))
	}
	if *flagChannels != "" {
		mode, err := trax.ParseChannelMode(*flagChannels)
		if err != nil {
			entry.WithError(err).Fatal("-channels")
		}
		opts = append(opts, harness.WithChannels(mode))
	}

	h, err := harness.New(command, opts...)
	if err != nil {
		entry.WithError(err).Fatal("harness.New")
	}

	go scanKeys(ctx)

	result, err := h.Run(ctx, seq)
	if err != nil {
		entry.WithError(err).Fatal("harness.Run")
	}

	if err := result.Write(out); err != nil {
		entry.WithError(err).Fatal("result.Write")
	}
	entry.WithField("frames", seq.Len()).Infof("wrote %d trajectories to %s", len(result.IDs), out)
}
