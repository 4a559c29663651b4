// Package traxtest provides an in-memory transport that plays back a fixed
// list of harness messages and records everything the tracker sends.
package traxtest

import (
	"io"
	"sync"

	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
)

type Script struct {
	// Messages are returned by Wait in order. Once exhausted Wait returns
	// WaitErr, or io.EOF when unset.
	Messages []*trax.Message
	SetupErr    error
	WaitErr     error
	TeardownErr error

	mutex         sync.Mutex
	metadata      *trax.Metadata
	replies       [][]trax.Object
	waits         int
	teardowns     int
	replyAfterEnd bool
}

var _ trax.Transport = &Script{}

func New(messages ...*trax.Message) *Script {
	return &Script{Messages: messages}
}

func (s *Script) Setup(m trax.Metadata) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.SetupErr != nil {
		return s.SetupErr
	}
	s.metadata = &m
	return nil
}

func (s *Script) Wait() (*trax.Message, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.waits++
	if len(s.Messages) == 0 {
		if s.WaitErr != nil {
			return nil, s.WaitErr
		}
		return nil, io.EOF
	}
	msg := s.Messages[0]
	s.Messages = s.Messages[1:]
	return msg, nil
}

func (s *Script) Reply(objects []trax.Object) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.teardowns > 0 {
		s.replyAfterEnd = true
		return trax.ErrClosed
	}
	copied := make([]trax.Object, len(objects))
	for i, o := range objects {
		copied[i] = trax.Object{Properties: o.Properties.Clone()}
		if o.Region != nil {
			copied[i].Region = o.Region.Clone()
		}
	}
	s.replies = append(s.replies, copied)
	return nil
}

func (s *Script) Teardown() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.teardowns++
	return s.TeardownErr
}

// Metadata returns what was passed to Setup, or nil.
func (s *Script) Metadata() *trax.Metadata {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.metadata
}

func (s *Script) Replies() [][]trax.Object {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([][]trax.Object(nil), s.replies...)
}

func (s *Script) Waits() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.waits
}

func (s *Script) Teardowns() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.teardowns
}

// RepliedAfterTeardown reports whether Reply was attempted on a released
// transport.
func (s *Script) RepliedAfterTeardown() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.replyAfterEnd
}

// Initialize builds an initialize message with one color image.
func Initialize(image string, regions ...*trax.Region) *trax.Message {
	msg := &trax.Message{
		Kind:   trax.MessageInitialize,
		Images: map[trax.Channel]string{trax.ChannelColor: image},
	}
	for _, r := range regions {
		msg.Objects = append(msg.Objects, trax.Object{Region: r})
	}
	return msg
}

// Frame builds a frame message with one color image.
func Frame(image string) *trax.Message {
	return &trax.Message{
		Kind:   trax.MessageFrame,
		Images: map[trax.Channel]string{trax.ChannelColor: image},
	}
}

func Quit() *trax.Message {
	return &trax.Message{Kind: trax.MessageQuit}
}
