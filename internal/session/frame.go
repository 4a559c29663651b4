package session

import (
	"strings"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/pkg/errors"
)

// Frame names the image files of one frame, one path per channel of the
// session's channel mode. It is a plain value; the session never changes a
// Frame after handing it out.
type Frame struct {
	channels trax.ChannelMode
	paths    [trax.ChannelIR + 1]string
}

func newFrame(mode trax.ChannelMode, images map[trax.Channel]string) (Frame, error) {
	f := Frame{channels: mode}
	for _, c := range mode.Channels() {
		path := images[c]
		if path == "" {
			return Frame{}, errors.Errorf("missing %s image", c)
		}
		f.paths[c] = path
	}
	return f, nil
}

func (f Frame) Channels() []trax.Channel { return f.channels.Channels() }

// Path returns the file of channel c, or "" when the session does not carry
// that channel.
func (f Frame) Path(c trax.Channel) string {
	if c < 0 || int(c) >= len(f.paths) {
		return ""
	}
	return f.paths[c]
}

func (f Frame) Color() string { return f.paths[trax.ChannelColor] }
func (f Frame) Depth() string { return f.paths[trax.ChannelDepth] }
func (f Frame) IR() string { return f.paths[trax.ChannelIR] }

// Primary is the first channel in wire order, the one single channel
// trackers look at.
func (f Frame) Primary() string {
	channels := f.Channels()
	if len(channels) == 0 {
		return ""
	}
	return f.paths[channels[0]]
}

func (f Frame) IsZero() bool { return f == Frame{} }

func (f Frame) String() string {
	var parts []string
	for _, c := range f.Channels() {
		parts = append(parts, c.String()+"="+f.paths[c])
	}
	return strings.Join(parts, " ")
}
