package trax

import (
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Stream is the tracker side of the line protocol over any byte stream:
// stdin/stdout when launched by the harness, or a TCP socket.
type Stream struct {
	conn   *Conn
	closer io.Closer

	mutex    sync.Mutex
	channels ChannelMode
	setup    bool
	closed   bool
}

var _ Transport = &Stream{}

func NewStream(r io.Reader, w io.Writer) *Stream {
	return &Stream{conn: NewConn(r, w)}
}

// Stdio returns a stream over the process standard input and output. Nothing
// else may write to stdout while it is in use.
func Stdio() *Stream {
	return NewStream(os.Stdin, os.Stdout)
}

// Dial connects to a harness listening on addr, which is either a bare port on
// the loopback interface or host:port.
func Dial(addr string) (*Stream, error) {
	if !strings.Contains(addr, ":") {
		addr = net.JoinHostPort("127.0.0.1", addr)
	}
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "dial %s: %v", addr, err)
	}
	s := NewStream(c, c)
	s.closer = c
	return s, nil
}

func (s *Stream) Setup(m Metadata) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.conn.Write(EncodeHello(m)); err != nil {
		return errors.Wrapf(ErrUnavailable, "hello: %v", err)
	}
	s.channels = m.Channels
	s.setup = true
	return nil
}

func (s *Stream) Wait() (*Message, error) {
	s.mutex.Lock()
	closed, setup, channels := s.closed, s.setup, s.channels
	s.mutex.Unlock()
	if closed || !setup {
		return nil, ErrClosed
	}
	raw, err := s.conn.Read()
	if err != nil {
		return nil, errors.Wrap(err, "conn.Read")
	}
	return DecodeRequest(raw, channels)
}

func (s *Stream) Reply(objects []Object) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return ErrClosed
	}
	return errors.Wrap(s.conn.Write(EncodeState(objects)), "conn.Write")
}

// Teardown says goodbye to the harness and closes the underlying connection.
// It is safe to call more than once.
func (s *Stream) Teardown() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.setup {
		err = s.conn.Write(Raw{Verb: VerbQuit})
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
