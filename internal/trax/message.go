// Package trax implements the wire side of the tracker evaluation protocol:
// wire regions, request and reply messages, and transports that carry them
// between the harness and a tracker.
package trax

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnavailable = errors.New("trax: transport unavailable")
	ErrClosed      = errors.New("trax: transport closed")
)

type Channel int

const (
	ChannelColor Channel = iota
	ChannelDepth
	ChannelIR
)

func (c Channel) String() string {
	switch c {
	case ChannelColor:
		return "color"
	case ChannelDepth:
		return "depth"
	case ChannelIR:
		return "ir"
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

func parseChannel(s string) (Channel, error) {
	switch s {
	case "color":
		return ChannelColor, nil
	case "depth":
		return ChannelDepth, nil
	case "ir":
		return ChannelIR, nil
	}
	return 0, errors.Errorf("unknown channel %q", s)
}

// ChannelMode selects which image channels are exchanged for every frame.
type ChannelMode int

const (
	ChannelsColor ChannelMode = iota
	ChannelsRGBD
	ChannelsRGBT
	ChannelsIR
)

var channelModes = map[ChannelMode][]Channel{
	ChannelsColor: {ChannelColor},
	ChannelsRGBD:  {ChannelColor, ChannelDepth},
	ChannelsRGBT:  {ChannelColor, ChannelIR},
	ChannelsIR:    {ChannelIR},
}

// Channels returns the channels of the mode in wire order.
func (m ChannelMode) Channels() []Channel {
	return append([]Channel(nil), channelModes[m]...)
}

func (m ChannelMode) String() string {
	switch m {
	case ChannelsColor:
		return "color"
	case ChannelsRGBD:
		return "rgbd"
	case ChannelsRGBT:
		return "rgbt"
	case ChannelsIR:
		return "ir"
	}
	return fmt.Sprintf("ChannelMode(%d)", int(m))
}

// ParseChannelMode accepts the short names (color, rgbd, rgbt, ir) as well as
// a comma separated channel list as sent in the hello message.
func ParseChannelMode(s string) (ChannelMode, error) {
	switch s {
	case "", "color":
		return ChannelsColor, nil
	case "rgbd":
		return ChannelsRGBD, nil
	case "rgbt":
		return ChannelsRGBT, nil
	case "ir":
		return ChannelsIR, nil
	}
	var channels []Channel
	for _, name := range strings.Split(s, ",") {
		c, err := parseChannel(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		channels = append(channels, c)
	}
	for mode, want := range channelModes {
		if equalChannels(channels, want) {
			return mode, nil
		}
	}
	return 0, errors.Errorf("unsupported channel combination %q", s)
}

func equalChannels(a, b []Channel) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type MessageKind int

const (
	MessageInitialize MessageKind = iota + 1
	MessageFrame
	MessageQuit
)

func (k MessageKind) String() string {
	switch k {
	case MessageInitialize:
		return "initialize"
	case MessageFrame:
		return "frame"
	case MessageQuit:
		return "quit"
	}
	return fmt.Sprintf("MessageKind(%d)", int(k))
}

// Object is one tracked object on the wire.
type Object struct {
	Region     *Region
	Properties Properties
}

// Message is a request sent by the harness.
type Message struct {
	Kind    MessageKind
	Images  map[Channel]string
	Objects []Object
}

// Metadata is what a tracker advertises during setup.
type Metadata struct {
	Region      RegionKind
	Channels    ChannelMode
	MultiObject bool
	Custom      Properties
}

// Transport is the message passing layer between a tracker and the harness.
// Wait blocks until the harness sends the next request.
type Transport interface {
	Setup(Metadata) error
	Wait() (*Message, error)
	Reply([]Object) error
	Teardown() error
}
