package trax

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	linePrefix = "@@TRAX:"
	version    = 4

	VerbHello      = "hello"
	VerbInitialize = "initialize"
	VerbFrame      = "frame"
	VerbState      = "state"
	VerbQuit       = "quit"
)

var ErrMessageFormat = errors.New("trax: malformed message")

// Raw is one protocol line: a verb followed by quoted arguments.
type Raw struct {
	Verb string
	Args []string
}

func (r Raw) String() string {
	var b strings.Builder
	b.WriteString(linePrefix)
	b.WriteString(r.Verb)
	for _, arg := range r.Args {
		b.WriteString(` "`)
		for _, c := range arg {
			switch c {
			case '"', '\\':
				b.WriteByte('\\')
				b.WriteRune(c)
			case '\n':
				b.WriteString(`\n`)
			default:
				b.WriteRune(c)
			}
		}
		b.WriteByte('"')
	}
	return b.String()
}

// ParseRaw decodes a protocol line. Text before the prefix is ignored, which
// lets a peer tolerate stray output sharing the stream.
func ParseRaw(line string) (Raw, error) {
	i := strings.Index(line, linePrefix)
	if i < 0 {
		return Raw{}, errors.Wrapf(ErrMessageFormat, "no prefix in %q", line)
	}
	rest := strings.TrimRight(line[i+len(linePrefix):], "\r\n")

	verb := rest
	if j := strings.IndexAny(rest, " \t"); j >= 0 {
		verb, rest = rest[:j], rest[j:]
	} else {
		rest = ""
	}
	if verb == "" {
		return Raw{}, errors.Wrapf(ErrMessageFormat, "missing verb in %q", line)
	}

	raw := Raw{Verb: verb}
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return raw, nil
		}
		if rest[0] != '"' {
			return Raw{}, errors.Wrapf(ErrMessageFormat, "unquoted argument in %q", line)
		}
		var (
			arg    strings.Builder
			closed bool
			n      int
		)
		for n = 1; n < len(rest); n++ {
			c := rest[n]
			if c == '\\' && n+1 < len(rest) {
				n++
				if rest[n] == 'n' {
					arg.WriteByte('\n')
				} else {
					arg.WriteByte(rest[n])
				}
				continue
			}
			if c == '"' {
				closed = true
				break
			}
			arg.WriteByte(c)
		}
		if !closed {
			return Raw{}, errors.Wrapf(ErrMessageFormat, "unterminated argument in %q", line)
		}
		raw.Args = append(raw.Args, arg.String())
		rest = rest[n+1:]
	}
}

// Conn reads and writes protocol lines over a byte stream.
type Conn struct {
	r *bufio.Reader
	w io.Writer
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: bufio.NewReader(r), w: w}
}

// Read returns the next protocol line, skipping lines that carry no prefix.
func (c *Conn) Read() (Raw, error) {
	for {
		line, err := c.r.ReadString('\n')
		if strings.Contains(line, linePrefix) {
			return ParseRaw(line)
		}
		if err != nil {
			return Raw{}, err
		}
	}
}

func (c *Conn) Write(raw Raw) error {
	_, err := io.WriteString(c.w, raw.String()+"\n")
	return err
}

// EncodeHello builds the hello line a tracker sends during setup.
func EncodeHello(m Metadata) Raw {
	props := Properties{}
	for k, v := range m.Custom {
		props[k] = v
	}
	props.SetInt("trax.version", version)
	props["trax.region"] = m.Region.String()
	props["trax.image"] = "path"
	names := make([]string, 0, 3)
	for _, c := range m.Channels.Channels() {
		names = append(names, c.String())
	}
	props["trax.channels"] = strings.Join(names, ",")
	props.SetBool("trax.multiobject", m.MultiObject)

	raw := Raw{Verb: VerbHello}
	for _, k := range props.Keys() {
		raw.Args = append(raw.Args, k+"="+props[k])
	}
	return raw
}

// DecodeHello is the harness side of EncodeHello.
func DecodeHello(raw Raw) (Metadata, error) {
	if raw.Verb != VerbHello {
		return Metadata{}, errors.Wrapf(ErrMessageFormat, "expected hello, got %s", raw.Verb)
	}
	props := Properties{}
	for _, arg := range raw.Args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return Metadata{}, errors.Wrapf(ErrMessageFormat, "hello argument %q", arg)
		}
		props[k] = v
	}
	m := Metadata{Custom: Properties{}}
	kind, err := ParseRegionKind(props["trax.region"])
	if err != nil {
		return Metadata{}, errors.Wrap(ErrMessageFormat, err.Error())
	}
	m.Region = kind
	m.Channels, err = ParseChannelMode(props["trax.channels"])
	if err != nil {
		return Metadata{}, errors.Wrap(ErrMessageFormat, err.Error())
	}
	m.MultiObject = props.GetBool("trax.multiobject", false)
	for k, v := range props {
		if !strings.HasPrefix(k, "trax.") {
			m.Custom[k] = v
		}
	}
	return m, nil
}

// EncodeRequest builds an initialize, frame or quit line. Images are written
// in the channel order of mode.
func EncodeRequest(msg *Message, mode ChannelMode) Raw {
	raw := Raw{Verb: msg.Kind.String()}
	if msg.Kind == MessageQuit {
		return raw
	}
	for _, c := range mode.Channels() {
		raw.Args = append(raw.Args, msg.Images[c])
	}
	raw.Args = append(raw.Args, encodeObjects(msg.Objects)...)
	return raw
}

// DecodeRequest parses a line sent by the harness. The channel mode decides
// how many leading arguments are image paths.
func DecodeRequest(raw Raw, mode ChannelMode) (*Message, error) {
	msg := &Message{}
	switch raw.Verb {
	case VerbInitialize:
		msg.Kind = MessageInitialize
	case VerbFrame:
		msg.Kind = MessageFrame
	case VerbQuit:
		msg.Kind = MessageQuit
		return msg, nil
	default:
		return nil, errors.Wrapf(ErrMessageFormat, "unexpected verb %q", raw.Verb)
	}

	channels := mode.Channels()
	if len(raw.Args) < len(channels) {
		return nil, errors.Wrapf(ErrMessageFormat, "%s: want %d images, got %d arguments",
			raw.Verb, len(channels), len(raw.Args))
	}
	msg.Images = make(map[Channel]string, len(channels))
	for i, c := range channels {
		msg.Images[c] = strings.TrimPrefix(raw.Args[i], "file://")
	}

	objects, err := decodeObjects(raw.Args[len(channels):])
	if err != nil {
		return nil, errors.Wrap(err, raw.Verb)
	}
	msg.Objects = objects
	return msg, nil
}

func EncodeState(objects []Object) Raw {
	return Raw{Verb: VerbState, Args: encodeObjects(objects)}
}

func DecodeState(raw Raw) ([]Object, error) {
	if raw.Verb != VerbState {
		return nil, errors.Wrapf(ErrMessageFormat, "expected state, got %s", raw.Verb)
	}
	return decodeObjects(raw.Args)
}

// encodeObjects writes each region followed by its properties as key=value
// arguments.
func encodeObjects(objects []Object) []string {
	var args []string
	for _, o := range objects {
		region := o.Region
		if region == nil {
			region = NewSpecial(0)
		}
		args = append(args, region.String())
		for _, k := range o.Properties.Keys() {
			args = append(args, k+"="+o.Properties[k])
		}
	}
	return args
}

func decodeObjects(args []string) ([]Object, error) {
	var objects []Object
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok {
			if len(objects) == 0 {
				return nil, errors.Wrapf(ErrMessageFormat, "property %q before any region", arg)
			}
			last := &objects[len(objects)-1]
			if last.Properties == nil {
				last.Properties = Properties{}
			}
			last.Properties[k] = v
			continue
		}
		region, err := ParseRegion(arg)
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{Region: region})
	}
	return objects, nil
}
