package session

import (
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
)

const (
	StateUninitialized = "uninitialized"
	StateHandshaking   = "handshaking"
	StateReady         = "ready"
	StateRunning       = "running"
	StateEnded         = "ended"

	eventSetup      = "setup"
	eventInitialize = "initialize"
	eventAdvance    = "advance"
	eventEnd        = "end"
)

var events = fsm.Events{
	{Name: eventSetup, Src: []string{StateUninitialized}, Dst: StateHandshaking},
	{Name: eventInitialize, Src: []string{StateHandshaking}, Dst: StateReady},
	{Name: eventAdvance, Src: []string{StateReady, StateRunning}, Dst: StateRunning},
	{Name: eventEnd, Src: []string{StateUninitialized, StateHandshaking, StateReady, StateRunning, StateEnded}, Dst: StateEnded},
}

//go:generate sh -c "cd ../../ && go run . -dump-fsm | dot -s144 -Tsvg /dev/stdin -o fsm.svg"

// Graph returns the graphviz source of the session state machine.
func Graph() string {
	return fsm.Visualize(fsm.NewFSM(StateUninitialized, events, fsm.Callbacks{}))
}

func (s *Session) newFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateUninitialized,
		events,
		fsm.Callbacks{
			"enter_" + StateEnded: func(e *fsm.Event) {
				if err := s.transport.Teardown(); err != nil {
					s.teardownErr = errors.Wrap(err, "transport.Teardown")
				}
				s.initial, s.objects = nil, nil
			},
			"after_event": func(e *fsm.Event) {
				if e.Src != e.Dst {
					s.log.Debugf("[%s -> %s] %s", e.Src, e.Dst, e.Event)
				}
			},
		},
	)
}

func (s *Session) event(name string) error {
	err := s.fsm.Event(name)
	if _, ok := err.(fsm.NoTransitionError); err != nil && !ok {
		return errors.Wrapf(err, "event %s in %s", name, s.fsm.Current())
	}
	return nil
}
