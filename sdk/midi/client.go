package midi

import (
	"fmt"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// RequestAccess asks the host for MIDI access and returns a client for it.
// Failures wrap contracts.ErrAccessUnavailable: the host has no MIDI support,
// sysex was requested, or the driver could not be initialised.
//
// opts ...contracts.Option: A variadic list of option functions to customize the client configuration.
func RequestAccess(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	if options.SysEx {
		options.Logger.Error("sysex access requested but not supported")
		return nil, fmt.Errorf("%w: %w", contracts.ErrAccessUnavailable, ErrSysExUnsupported)
	}

	client, err := NewClient(&options)
	if err != nil {
		options.Logger.Error("MIDI access unavailable", options.Logger.Field().Error("error", err))
		return nil, err
	}

	return client, nil
}

// NewMIDIClient creates a new MIDI client with the specified options.
// It is the same as RequestAccess.
func NewMIDIClient(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	return RequestAccess(opts...)
}
