// Command vot-await is a tracker that speaks the VOT session protocol over
// stdio, a TRAX_SOCKET connection or the file based folder protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/WIZARDISHUNGRY/vot-await/internal/config"
	"github.com/WIZARDISHUNGRY/vot-await/internal/folder"
	"github.com/WIZARDISHUNGRY/vot-await/internal/imageio"
	"github.com/WIZARDISHUNGRY/vot-await/internal/logger"
	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/runner"
	"github.com/WIZARDISHUNGRY/vot-await/internal/session"
	"github.com/WIZARDISHUNGRY/vot-await/internal/tracker/ncc"
	"github.com/WIZARDISHUNGRY/vot-await/internal/tracker/static"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

var (
	flagTracker     = flag.String("tracker", "ncc", "tracker: static or ncc")
	flagRegion      = flag.String("region", "rectangle", "region format: rectangle, polygon or mask")
	flagChannels    = flag.String("channels", "color", "image channels: color, rgbd, rgbt or ir")
	flagMultiObject = flag.Bool("multiobject", false, "accept several objects, also set by VOT_MULTI_OBJECT")
	flagConfig      = flag.String("config", "", "yaml tuning file")
	flagEnv         = flag.String("env", ".env", "dotenv file")
	flagLevel       = flag.String("log-level", "", "logrus level, defaults to VOT_LOG_LEVEL or info")
	flagDumpFSM     = flag.Bool("dump-fsm", false, "write graphviz src and exit")
)

func main() {
	flag.Parse()

	if *flagDumpFSM {
		fmt.Println(session.Graph())
		return
	}

	if err := config.LoadDotEnv(*flagEnv); err != nil {
		log.WithError(err).Fatal("config.LoadDotEnv")
	}
	env := config.FromEnv(os.LookupEnv)
	level := *flagLevel
	if level == "" {
		level = env.LogLevel
	}
	log = logger.New(level)

	file, err := config.LoadFile(*flagConfig)
	if err != nil {
		log.WithError(err).Fatal("config.LoadFile")
	}
	mode, err := region.ParseMode(*flagRegion)
	if err != nil {
		log.WithError(err).Fatal("-region")
	}
	channels, err := trax.ParseChannelMode(*flagChannels)
	if err != nil {
		log.WithError(err).Fatal("-channels")
	}
	factory, err := trackerFactory(*flagTracker, file)
	if err != nil {
		log.WithError(err).Fatal("-tracker")
	}

	t, err := openTransport(env)
	if err != nil {
		log.WithError(err).Fatal("openTransport")
	}

	entry := log.WithField("tracker", *flagTracker)
	s, err := session.Start(t,
		session.WithRegionMode(mode),
		session.WithChannelMode(channels),
		session.WithMultiObject(*flagMultiObject || env.MultiObject),
		session.WithIdentity("vot-await/"+*flagTracker),
		session.WithLogger(entry),
	)
	if err != nil {
		entry.WithError(err).Fatal("session.Start")
	}

	ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			// the runner is blocked on the harness, so tear down from here
			entry.Warn("interrupted")
			if err := t.Teardown(); err != nil {
				entry.WithError(err).Warn("Teardown")
			}
			os.Exit(1)
		}
	}()

	r := runner.New(s, factory)
	err = r.Run(logger.WithLogEntry(ctx, entry))
	close(done)
	ctxCancel()
	if err != nil {
		entry.WithError(err).Fatal("runner.Run")
	}
	entry.WithField("frames", r.Frames()).Info("main exiting")
}

func trackerFactory(name string, file config.File) (runner.Factory, error) {
	switch name {
	case "static":
		return static.Factory, nil
	case "ncc":
		loader, err := imageio.NewLoader(file.CacheSize)
		if err != nil {
			return nil, err
		}
		return ncc.NewFactory(file.NCC, loader), nil
	}
	return nil, errors.Errorf("unknown tracker %q", name)
}

// openTransport picks the folder protocol when VOT_USE_TRAX is off, a socket
// when TRAX_SOCKET is set and stdio otherwise.
func openTransport(env config.Env) (trax.Transport, error) {
	switch {
	case !env.UseTrax:
		return folder.New(env.Folder), nil
	case env.Socket != "":
		s, err := trax.Dial(env.Socket)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return trax.Stdio(), nil
}
