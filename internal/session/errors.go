package session

import (
	"github.com/WIZARDISHUNGRY/vot-await/internal/region"
	"github.com/pkg/errors"
)

var (
	ErrTransportUnavailable = errors.New("session: transport unavailable")
	ErrHandshakeRejected    = errors.New("session: handshake rejected")
	ErrTooManyObjects       = errors.New("session: too many objects")
	ErrProtocolViolation    = errors.New("session: protocol violation")
	ErrSessionClosed        = errors.New("session: closed")

	// ErrSequenceEnd is returned by NextFrame once the harness stops sending
	// frames, whether it quit cleanly or misbehaved. EndReason tells the two
	// apart.
	ErrSequenceEnd           = errors.New("session: sequence end")
	ErrInitialFrameConsumed  = errors.New("session: initial frame already consumed")
	ErrObjectCount           = errors.New("session: wrong number of objects")
	ErrRegionMode            = region.ErrMode
	ErrConfidenceMultiObject = errors.New("session: confidence is only reported for a single object")
	ErrMultiObject           = errors.New("session: multi-object session")
)
