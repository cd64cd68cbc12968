package contracts

import "errors"

var (
	// ErrAccessUnavailable is returned when the host cannot grant MIDI access,
	// either because it has no MIDI support or because the request was refused.
	ErrAccessUnavailable = errors.New("MIDI access unavailable")

	// ErrInvalidMessage is returned when a raw message cannot be decoded.
	ErrInvalidMessage = errors.New("invalid MIDI message")

	// ErrNoDevices is returned by drivers when the host reports no input ports.
	ErrNoDevices = errors.New("no MIDI devices found")
)
