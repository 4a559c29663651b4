// Package session adapts a tracker to the evaluation harness. A Session does
// the handshake, hands out frames and sends the tracked regions back, one
// request at a time on the caller's goroutine.
package session

import (
	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/WIZARDISHUNGRY/vot-await/internal/trax"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxObjects is the default object capacity of a session.
const MaxObjects = 100

var log = logrus.New()

type Option func(s *Session) error

func WithRegionMode(m region.Mode) Option {
	return func(s *Session) error {
		s.mode = m
		return nil
	}
}

func WithChannelMode(m trax.ChannelMode) Option {
	return func(s *Session) error {
		if len(m.Channels()) == 0 {
			return errors.Errorf("unknown channel mode %d", int(m))
		}
		s.channels = m
		return nil
	}
}

func WithMultiObject(multi bool) Option {
	return func(s *Session) error {
		s.multiObject = multi
		return nil
	}
}

func WithCapacity(n int) Option {
	return func(s *Session) error {
		if n < 1 {
			return errors.Errorf("capacity %d", n)
		}
		s.capacity = n
		return nil
	}
}

// WithIdentity sets the vot metadata tag advertised during setup.
func WithIdentity(id string) Option {
	return func(s *Session) error {
		s.identity = id
		return nil
	}
}

func WithLogger(e *logrus.Entry) Option {
	return func(s *Session) error {
		s.log = e
		return nil
	}
}

type Session struct {
	transport trax.Transport
	log       *logrus.Entry
	fsm       *fsm.FSM

	mode        region.Mode
	channels    trax.ChannelMode
	multiObject bool
	capacity    int
	identity    string

	count   int
	initial []region.Region
	objects []region.Region
	frame   Frame

	initialConsumed bool
	pending         bool
	position        int

	endReason   error
	teardownErr error
}

// Start performs the handshake on t and returns a session in the ready state.
// Any failure tears t down before returning.
func Start(t trax.Transport, opts ...Option) (*Session, error) {
	if t == nil {
		return nil, errors.Wrap(ErrTransportUnavailable, "nil transport")
	}
	s := &Session{
		transport: t,
		log:       logrus.NewEntry(log),
		mode:      region.ModeRectangle,
		channels:  trax.ChannelsColor,
		capacity:  MaxObjects,
		identity:  "go",
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			if tdErr := t.Teardown(); tdErr != nil {
				s.log.WithError(tdErr).Error("teardown")
			}
			return nil, err
		}
	}
	s.fsm = s.newFSM()

	if err := s.handshake(); err != nil {
		s.endReason = err
		s.log.WithError(err).Error("handshake failed")
		if endErr := s.event(eventEnd); endErr != nil {
			s.log.WithError(endErr).Error("end")
		}
		return nil, err
	}
	return s, nil
}

func (s *Session) handshake() error {
	if err := s.event(eventSetup); err != nil {
		return err
	}
	md := trax.Metadata{
		Region:      s.mode.Kind(),
		Channels:    s.channels,
		MultiObject: s.multiObject,
		Custom:      trax.Properties{"vot": s.identity},
	}
	if err := s.transport.Setup(md); err != nil {
		return errors.Wrapf(ErrTransportUnavailable, "setup: %v", err)
	}

	msg, err := s.transport.Wait()
	if err != nil {
		return errors.Wrapf(ErrTransportUnavailable, "wait: %v", err)
	}
	if msg.Kind != trax.MessageInitialize {
		return errors.Wrapf(ErrHandshakeRejected, "first message is %s", msg.Kind)
	}
	switch n := len(msg.Objects); {
	case n > s.capacity:
		return errors.Wrapf(ErrTooManyObjects, "%d objects, capacity %d", n, s.capacity)
	case n == 0:
		return errors.Wrap(ErrObjectCount, "no objects")
	case n > 1 && !s.multiObject:
		return errors.Wrapf(ErrObjectCount, "%d objects in a single object session", n)
	}

	frame, err := newFrame(s.channels, msg.Images)
	if err != nil {
		return errors.Wrap(ErrHandshakeRejected, err.Error())
	}
	initial := make([]region.Region, len(msg.Objects))
	reply := make([]trax.Object, len(msg.Objects))
	for i, o := range msg.Objects {
		r, err := region.FromWire(s.mode, o.Region)
		switch {
		case errors.Is(err, ErrRegionMode):
			return errors.Wrapf(err, "object %d", i)
		case err != nil:
			return errors.Wrapf(ErrHandshakeRejected, "object %d: %v", i, err)
		}
		initial[i] = r
		reply[i] = trax.Object{Region: o.Region}
	}
	s.count = len(initial)
	s.initial = initial
	s.objects = copyRegions(initial)
	s.frame = frame

	if err := s.event(eventInitialize); err != nil {
		return err
	}
	if err := s.transport.Reply(reply); err != nil {
		return errors.Wrapf(ErrTransportUnavailable, "reply: %v", err)
	}
	s.log.WithField("objects", len(initial)).WithField("frame", frame.String()).Info("session initialized")
	return nil
}

func (s *Session) closed() bool {
	return s == nil || s.fsm == nil || s.fsm.Is(StateEnded)
}

// InitialFrame returns the frame of the initialize request. It can be called
// once, and not after NextFrame has served it.
func (s *Session) InitialFrame() (Frame, error) {
	if s.closed() {
		return Frame{}, ErrSessionClosed
	}
	if s.initialConsumed || s.position > 0 {
		return Frame{}, ErrInitialFrameConsumed
	}
	s.initialConsumed = true
	return s.frame, nil
}

// InitialObjects returns copies of the regions the harness initialized the
// objects with, in object order.
func (s *Session) InitialObjects() ([]region.Region, error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}
	return copyRegions(s.initial), nil
}

// Region returns the initial region of a single object session.
func (s *Session) Region() (region.Region, error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}
	if s.multiObject {
		return nil, ErrMultiObject
	}
	return s.initial[0].Copy(), nil
}

// NextFrame blocks until the harness sends the next frame. A quit, an
// unexpected request or a transport failure ends the session and yields
// ErrSequenceEnd.
func (s *Session) NextFrame() (Frame, error) {
	if s.closed() {
		return Frame{}, ErrSessionClosed
	}
	if s.position == 0 && !s.initialConsumed {
		s.initialConsumed = true
		return s.frame, nil
	}

	var reason error
	msg, err := s.transport.Wait()
	switch {
	case err != nil:
		reason = errors.Wrapf(ErrProtocolViolation, "wait: %v", err)
	case msg == nil:
		reason = errors.Wrap(ErrProtocolViolation, "empty request")
	case msg.Kind == trax.MessageQuit:
	case msg.Kind != trax.MessageFrame:
		reason = errors.Wrapf(ErrProtocolViolation, "unexpected %s request", msg.Kind)
	case len(msg.Objects) > 0:
		reason = errors.Wrapf(ErrProtocolViolation, "frame declares %d objects", len(msg.Objects))
	default:
		frame, err := newFrame(s.channels, msg.Images)
		if err != nil {
			reason = errors.Wrap(ErrProtocolViolation, err.Error())
			break
		}
		if err := s.event(eventAdvance); err != nil {
			return Frame{}, err
		}
		s.position++
		s.frame = frame
		s.pending = true
		return frame, nil
	}

	if err := s.end(reason); err != nil {
		s.log.WithError(err).Warn("shutdown")
	}
	return Frame{}, ErrSequenceEnd
}

// Report sends one region per object, in object order. A nil region is sent
// as the empty region. Rectangles are normalized first.
func (s *Session) Report(regions []region.Region) error {
	if s.closed() {
		return ErrSessionClosed
	}
	if len(regions) != s.count {
		return errors.Wrapf(ErrObjectCount, "%d regions for %d objects", len(regions), s.count)
	}
	return s.report(regions, nil)
}

// ReportConfidence reports the region of a single object session together
// with a confidence score.
func (s *Session) ReportConfidence(r region.Region, confidence float32) error {
	if s.closed() {
		return ErrSessionClosed
	}
	if s.multiObject {
		return ErrConfidenceMultiObject
	}
	props := trax.Properties{}
	props.SetFloat("confidence", confidence)
	return s.report([]region.Region{r}, props)
}

func (s *Session) report(regions []region.Region, props trax.Properties) error {
	objects := make([]trax.Object, len(regions))
	stored := make([]region.Region, len(regions))
	for i, r := range regions {
		if r == nil {
			objects[i] = trax.Object{Region: trax.NewSpecial(0)}
			stored[i] = s.objects[i]
			continue
		}
		if r.Mode() != s.mode {
			return errors.Wrapf(ErrRegionMode, "object %d is %s, session is %s", i, r.Mode(), s.mode)
		}
		if rect, ok := r.(region.Rectangle); ok {
			r = rect.Normalize()
		}
		objects[i] = trax.Object{Region: region.ToWire(r)}
		stored[i] = r.Copy()
	}
	if props != nil {
		objects[0].Properties = props
	}
	s.objects = stored

	if !s.pending {
		s.log.WithField("position", s.position).Warn("report without an outstanding frame request, not sent")
		return nil
	}
	if err := s.transport.Reply(objects); err != nil {
		return errors.Wrapf(ErrTransportUnavailable, "reply: %v", err)
	}
	s.pending = false
	return nil
}

// IsEnded reports whether the transport has been released. A zero Session is
// always ended.
func (s *Session) IsEnded() bool {
	return s.closed()
}

// Shutdown ends the session and releases the transport. Calling it again is
// a no-op.
func (s *Session) Shutdown() error {
	if s.closed() {
		return nil
	}
	return s.end(nil)
}

func (s *Session) end(reason error) error {
	s.endReason = reason
	if reason != nil {
		s.log.WithError(reason).Warn("session ended by protocol violation")
	} else {
		s.log.WithField("position", s.position).Info("session ended")
	}
	if err := s.event(eventEnd); err != nil {
		return err
	}
	return s.teardownErr
}

// Position is the index of the current frame, 0 being the initialize frame.
func (s *Session) Position() int {
	if s == nil {
		return 0
	}
	return s.position
}

func (s *Session) State() string {
	if s == nil || s.fsm == nil {
		return StateUninitialized
	}
	return s.fsm.Current()
}

// EndReason is nil while running and after a clean quit. Otherwise it wraps
// ErrProtocolViolation, or the startup error, with the cause.
func (s *Session) EndReason() error {
	if s == nil {
		return nil
	}
	return s.endReason
}

func (s *Session) Mode() region.Mode {
	if s == nil {
		return region.ModeRectangle
	}
	return s.mode
}

func (s *Session) MultiObject() bool {
	return s != nil && s.multiObject
}

func (s *Session) ObjectCount() int {
	if s == nil {
		return 0
	}
	return s.count
}

// Graph returns the graphviz source of the state machine with the current
// state highlighted.
func (s *Session) Graph() string {
	if s == nil || s.fsm == nil {
		return Graph()
	}
	return fsm.Visualize(s.fsm)
}

func copyRegions(in []region.Region) []region.Region {
	out := make([]region.Region, len(in))
	for i, r := range in {
		out[i] = r.Copy()
	}
	return out
}
