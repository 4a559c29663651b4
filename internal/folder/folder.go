// Package folder is a trax.Transport that replays a sequence described by
// plain files in a directory, for running a tracker without a harness.
//
// Layout:
//
//	frames_<channel>.txt  one image path per line, per channel
//	query_<id>.txt        offset (must be 0), region, then key=value lines
//	output_<id>.txt       written on teardown, one region per reported frame
package folder

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
)

var ErrLayout = errors.New("folder: bad sequence layout")

type Transport struct {
	dir string

	mutex        sync.Mutex
	channels     []trax.Channel
	frames       [][]string // frame, channel
	ids          []string
	objects      []trax.Object
	trajectories [][]string
	position     int
	setup        bool
	closed       bool
}

var _ trax.Transport = &Transport{}

func New(dir string) *Transport {
	return &Transport{dir: dir}
}

// Setup reads the frame lists for the advertised channels and the object
// queries. Query regions must be of the advertised kind.
func (t *Transport) Setup(m trax.Metadata) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return trax.ErrClosed
	}

	t.channels = m.Channels.Channels()
	var lists [][]string
	for _, c := range t.channels {
		lines, err := readLines(filepath.Join(t.dir, "frames_"+c.String()+".txt"))
		if err != nil {
			return errors.Wrapf(ErrLayout, "frames for channel %s: %v", c, err)
		}
		if len(lists) > 0 && len(lines) != len(lists[0]) {
			return errors.Wrapf(ErrLayout, "channel %s has %d frames, %s has %d",
				c, len(lines), t.channels[0], len(lists[0]))
		}
		lists = append(lists, lines)
	}
	if len(lists) == 0 || len(lists[0]) == 0 {
		return errors.Wrap(ErrLayout, "no frames")
	}
	t.frames = make([][]string, len(lists[0]))
	for i := range t.frames {
		t.frames[i] = make([]string, len(lists))
		for j := range lists {
			t.frames[i][j] = t.resolve(lists[j][i])
		}
	}

	if err := t.readQueries(m.Region); err != nil {
		return err
	}
	t.trajectories = make([][]string, len(t.ids))
	t.setup = true
	return nil
}

func (t *Transport) readQueries(kind trax.RegionKind) error {
	matches, err := filepath.Glob(filepath.Join(t.dir, "query_*.txt"))
	if err != nil {
		return errors.Wrap(err, "filepath.Glob")
	}
	if len(matches) == 0 {
		return errors.Wrap(ErrLayout, "no query file")
	}
	for _, name := range matches {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(name), "query_"), ".txt")
		lines, err := readLines(name)
		if err != nil {
			return errors.Wrapf(ErrLayout, "query %s: %v", id, err)
		}
		if len(lines) < 2 {
			return errors.Wrapf(ErrLayout, "query %s: want offset and region", id)
		}
		offset, err := strconv.Atoi(lines[0])
		if err != nil || offset != 0 {
			return errors.Wrapf(ErrLayout, "query %s: only offset 0 is supported, got %q", id, lines[0])
		}
		r, err := trax.ParseRegion(lines[1])
		if err != nil {
			return errors.Wrapf(err, "query %s", id)
		}
		if r.Kind() != kind {
			return errors.Wrapf(ErrLayout, "query %s: %s region, tracker wants %s", id, r.Kind(), kind)
		}
		o := trax.Object{Region: r}
		for _, line := range lines[2:] {
			if k, v, ok := strings.Cut(line, "="); ok {
				if o.Properties == nil {
					o.Properties = trax.Properties{}
				}
				o.Properties[k] = v
			}
		}
		t.ids = append(t.ids, id)
		t.objects = append(t.objects, o)
	}
	return nil
}

func (t *Transport) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.dir, path)
}

// Wait returns the initialize request, then one frame request per remaining
// frame, then quit. After quit it returns io.EOF.
func (t *Transport) Wait() (*trax.Message, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed || !t.setup {
		return nil, trax.ErrClosed
	}
	pos := t.position
	t.position++
	switch {
	case pos == 0:
		return &trax.Message{Kind: trax.MessageInitialize, Images: t.images(0), Objects: t.cloneObjects()}, nil
	case pos < len(t.frames):
		return &trax.Message{Kind: trax.MessageFrame, Images: t.images(pos)}, nil
	case pos == len(t.frames):
		return &trax.Message{Kind: trax.MessageQuit}, nil
	}
	return nil, io.EOF
}

func (t *Transport) images(pos int) map[trax.Channel]string {
	images := make(map[trax.Channel]string, len(t.channels))
	for i, c := range t.channels {
		images[c] = t.frames[pos][i]
	}
	return images
}

func (t *Transport) cloneObjects() []trax.Object {
	out := make([]trax.Object, len(t.objects))
	for i, o := range t.objects {
		out[i] = trax.Object{Region: o.Region.Clone(), Properties: o.Properties.Clone()}
	}
	return out
}

// Reply appends a region to every object trajectory.
func (t *Transport) Reply(objects []trax.Object) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed || !t.setup {
		return trax.ErrClosed
	}
	if len(objects) != len(t.ids) {
		return errors.Errorf("folder: %d regions for %d objects", len(objects), len(t.ids))
	}
	for i, o := range objects {
		r := o.Region
		if r == nil {
			r = trax.NewSpecial(0)
		}
		t.trajectories[i] = append(t.trajectories[i], r.String())
	}
	return nil
}

// Teardown writes output_<id>.txt for every object. Only the first call does
// anything.
func (t *Transport) Teardown() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if !t.setup {
		return nil
	}
	for i, id := range t.ids {
		var b strings.Builder
		for _, line := range t.trajectories[i] {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		name := filepath.Join(t.dir, "output_"+id+".txt")
		if err := os.WriteFile(name, []byte(b.String()), 0o644); err != nil {
			return errors.Wrap(err, "os.WriteFile")
		}
	}
	return nil
}

// IDs returns the object ids in object order.
func (t *Transport) IDs() []string {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return append([]string(nil), t.ids...)
}

// maxLine fits the run lengths of the largest mask a region may carry.
const maxLine = 4 * trax.MaxMaskPixels

func readLines(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, maxLine)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
