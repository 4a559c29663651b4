// Package harness is the evaluation side of the protocol: it launches a
// tracker, feeds it a sequence from disk and collects its trajectories.
package harness

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.New()

// FrameHook is called after every reply with the frame that was sent and
// the objects the tracker reported for it.
type FrameHook func(ctx context.Context, pos int, images map[trax.Channel]string, objects []trax.Object) error

var ErrMetadata = errors.New("harness: tracker metadata mismatch")

type Harness struct {
	command  []string
	socket   bool
	timeout  time.Duration
	hook     FrameHook
	log      *logrus.Entry
	region   *trax.RegionKind
	channels *trax.ChannelMode
}

type Option func(*Harness) error

// WithSocket serves the tracker over a loopback TCP port passed in
// TRAX_SOCKET instead of its standard streams.
func WithSocket() Option {
	return func(h *Harness) error {
		h.socket = true
		return nil
	}
}

// WithTimeout bounds how long the tracker may take to connect and, after
// quit, to exit.
func WithTimeout(d time.Duration) Option {
	return func(h *Harness) error {
		if d <= 0 {
			return errors.Errorf("harness: timeout %v", d)
		}
		h.timeout = d
		return nil
	}
}

func WithFrameHook(f FrameHook) Option {
	return func(h *Harness) error {
		h.hook = f
		return nil
	}
}

// WithRegion rejects trackers that do not ask for kind.
func WithRegion(kind trax.RegionKind) Option {
	return func(h *Harness) error {
		h.region = &kind
		return nil
	}
}

// WithChannels rejects trackers that do not ask for mode.
func WithChannels(mode trax.ChannelMode) Option {
	return func(h *Harness) error {
		h.channels = &mode
		return nil
	}
}

func WithLogger(e *logrus.Entry) Option {
	return func(h *Harness) error {
		h.log = e
		return nil
	}
}

// New configures a harness for command. Drive works without one.
func New(command []string, opts ...Option) (*Harness, error) {
	h := &Harness{
		command: command,
		timeout: 5 * time.Second,
		log:     logrus.NewEntry(log),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Result holds one trajectory per object, a region per frame.
type Result struct {
	Metadata     trax.Metadata
	IDs          []string
	Trajectories [][]*trax.Region
}

// Write stores each trajectory as <dir>/<id>.txt, one region per line.
func (r *Result) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}
	for i, id := range r.IDs {
		var b strings.Builder
		for _, reg := range r.Trajectories[i] {
			b.WriteString(reg.String())
			b.WriteByte('\n')
		}
		if err := os.WriteFile(filepath.Join(dir, id+".txt"), []byte(b.String()), 0o644); err != nil {
			return errors.Wrap(err, "os.WriteFile")
		}
	}
	return nil
}

// Run launches the tracker and plays seq to it.
func (h *Harness) Run(ctx context.Context, seq *Sequence) (*Result, error) {
	if len(h.command) == 0 {
		return nil, errors.New("harness: no tracker command")
	}
	cmd := exec.CommandContext(ctx, h.command[0], h.command[1:]...)
	cmd.Env = os.Environ()

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "StderrPipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "StdoutPipe")
	}

	var (
		ln    net.Listener
		stdin io.WriteCloser
	)
	if h.socket {
		if ln, err = net.Listen("tcp", "127.0.0.1:0"); err != nil {
			return nil, errors.Wrap(err, "net.Listen")
		}
		defer ln.Close()
		port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
		cmd.Env = append(cmd.Env, "TRAX_SOCKET="+port)
	} else if stdin, err = cmd.StdinPipe(); err != nil {
		return nil, errors.Wrap(err, "StdinPipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "couldn't spawn %s", h.command[0])
	}
	entry := h.log.WithField("pid", cmd.Process.Pid)
	entry.Infof("started %s", strings.Join(h.command, " "))

	var (
		result *Result
		timer  *time.Timer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pump(entry.WithField("stream", "stderr"), stderr) })
	if h.socket {
		g.Go(func() error { return pump(entry.WithField("stream", "stdout"), stdout) })
	}
	g.Go(func() error {
		var (
			client *Client
			closer io.Closer
		)
		if h.socket {
			conn, err := accept(ln, h.timeout)
			if err != nil {
				cmd.Process.Kill()
				return err
			}
			client, closer = NewClient(conn, conn), conn
		} else {
			client, closer = NewClient(stdout, stdin), stdin
		}

		var err error
		result, err = h.Drive(gctx, client, seq)
		closer.Close()
		if err != nil {
			cmd.Process.Kill()
			return err
		}
		// the tracker gets h.timeout to exit on its own after quit
		timer = time.AfterFunc(h.timeout, func() {
			entry.Warn("tracker did not exit, killing")
			cmd.Process.Kill()
		})
		return nil
	})

	err = g.Wait()
	waitErr := cmd.Wait()
	if timer != nil {
		timer.Stop()
	}

	if err != nil {
		return nil, err
	}
	if waitErr != nil {
		entry.WithError(waitErr).WithField("exit_code", cmd.ProcessState.ExitCode()).Warn("tracker exit")
	}
	return result, nil
}

// Drive plays seq over an established client.
func (h *Harness) Drive(ctx context.Context, c *Client, seq *Sequence) (*Result, error) {
	md, err := c.Hello()
	if err != nil {
		return nil, err
	}
	if h.region != nil && md.Region != *h.region {
		return nil, errors.Wrapf(ErrMetadata, "region %s, want %s", md.Region, *h.region)
	}
	if h.channels != nil && md.Channels != *h.channels {
		return nil, errors.Wrapf(ErrMetadata, "channels %s, want %s", md.Channels, *h.channels)
	}
	ids := seq.IDs()
	if len(ids) > 1 && !md.MultiObject {
		return nil, errors.Wrapf(ErrSequence, "%d objects for a single object tracker", len(ids))
	}
	if seq.Len() == 0 {
		return nil, errors.Wrap(ErrSequence, "no frames")
	}

	result := &Result{Metadata: md, IDs: ids, Trajectories: make([][]*trax.Region, len(ids))}
	for pos := 0; pos < seq.Len(); pos++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		images, err := seq.Images(pos, md.Channels)
		if err != nil {
			return nil, err
		}
		var state []trax.Object
		if pos == 0 {
			state, err = c.Initialize(images, seq.Objects(md.Region))
		} else {
			state, err = c.Frame(images)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", pos)
		}
		if len(state) != len(ids) {
			return nil, errors.Errorf("harness: frame %d: tracker reported %d objects, want %d", pos, len(state), len(ids))
		}
		for i, o := range state {
			result.Trajectories[i] = append(result.Trajectories[i], o.Region)
		}
		if h.hook != nil {
			if err := h.hook(ctx, pos, images, state); err != nil {
				return nil, err
			}
		}
	}
	if err := c.Quit(); err != nil {
		return nil, err
	}
	return result, nil
}

func accept(ln net.Listener, timeout time.Duration) (net.Conn, error) {
	if tl, ok := ln.(*net.TCPListener); ok {
		tl.SetDeadline(time.Now().Add(timeout))
	}
	conn, err := ln.Accept()
	if err != nil {
		return nil, errors.Wrap(err, "tracker did not connect")
	}
	return conn, nil
}

// pump logs every line the tracker writes to r.
func pump(entry *logrus.Entry, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLine)
	for sc.Scan() {
		entry.Debug(sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return errors.Wrap(err, "pump")
	}
	return nil
}
