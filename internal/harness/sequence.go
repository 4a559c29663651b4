package harness

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
)

var ErrSequence = errors.New("harness: bad sequence")

var imageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Sequence is a sequence on disk: image files per channel directory and one
// groundtruth file per object.
type Sequence struct {
	Dir     string
	ids     []string
	initial []*trax.Region
	images  map[trax.Channel][]string
}

// LoadSequence reads dir. Color images live in dir/color or dir itself,
// other channels in dir/<channel>. Objects come from groundtruth.txt, or
// groundtruth_<id>.txt for several objects; only the first line is used.
func LoadSequence(dir string) (*Sequence, error) {
	s := &Sequence{Dir: dir, images: map[trax.Channel][]string{}}
	for _, c := range []trax.Channel{trax.ChannelColor, trax.ChannelDepth, trax.ChannelIR} {
		files, err := listImages(filepath.Join(dir, c.String()))
		if err != nil {
			return nil, err
		}
		if len(files) == 0 && c == trax.ChannelColor {
			if files, err = listImages(dir); err != nil {
				return nil, err
			}
		}
		if len(files) > 0 {
			s.images[c] = files
		}
	}
	if len(s.images) == 0 {
		return nil, errors.Wrapf(ErrSequence, "no images in %s", dir)
	}

	if err := s.loadGroundtruth(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sequence) loadGroundtruth() error {
	single := filepath.Join(s.Dir, "groundtruth.txt")
	files := []string{single}
	if _, err := os.Stat(single); err != nil {
		if files, err = filepath.Glob(filepath.Join(s.Dir, "groundtruth_*.txt")); err != nil {
			return errors.Wrap(err, "filepath.Glob")
		}
	}
	if len(files) == 0 {
		return errors.Wrapf(ErrSequence, "no groundtruth in %s", s.Dir)
	}
	for _, name := range files {
		id := strings.TrimSuffix(filepath.Base(name), ".txt")
		id = strings.TrimPrefix(strings.TrimPrefix(id, "groundtruth"), "_")
		if id == "" {
			id = "1"
		}
		line, err := firstLine(name)
		if err != nil {
			return errors.Wrapf(ErrSequence, "%s: %v", name, err)
		}
		r, err := trax.ParseRegion(line)
		if err != nil {
			return errors.Wrap(err, name)
		}
		s.ids = append(s.ids, id)
		s.initial = append(s.initial, r)
	}
	return nil
}

// Len is the number of frames, the shortest channel if they differ.
func (s *Sequence) Len() int {
	n := -1
	for _, files := range s.images {
		if n < 0 || len(files) < n {
			n = len(files)
		}
	}
	return max(n, 0)
}

func (s *Sequence) IDs() []string { return append([]string(nil), s.ids...) }

// Images returns the paths of frame i for the channels of mode.
func (s *Sequence) Images(i int, mode trax.ChannelMode) (map[trax.Channel]string, error) {
	images := map[trax.Channel]string{}
	for _, c := range mode.Channels() {
		files, ok := s.images[c]
		if !ok {
			return nil, errors.Wrapf(ErrSequence, "no %s channel", c)
		}
		images[c] = files[i]
	}
	return images, nil
}

// Objects returns the initial regions converted for a tracker that asked for
// kind: rectangle trackers get polygon bounds, everything else is sent as is
// and converted by the tracker.
func (s *Sequence) Objects(kind trax.RegionKind) []trax.Object {
	objects := make([]trax.Object, len(s.initial))
	for i, r := range s.initial {
		r = r.Clone()
		if kind == trax.KindRectangle && r.Kind() == trax.KindPolygon {
			r = trax.NewRectangle(r.Bounds())
		}
		objects[i] = trax.Object{Region: r}
	}
	return objects
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "os.ReadDir")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExt[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// maxLine fits the run lengths of the largest mask a region may carry.
const maxLine = 4 * trax.MaxMaskPixels

func firstLine(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, maxLine)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("empty file")
}
