package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/midiwatch/internal/midi/mididarwin"
	"github.com/leandrodaf/midiwatch/internal/midi/midirtmidi"
	"github.com/leandrodaf/midiwatch/internal/midi/midiwindows"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

var (
	// ErrUnsupportedOS is returned when the operating system is not supported by the MIDI client.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrSysExUnsupported is returned when system-exclusive access is requested.
	ErrSysExUnsupported = errors.New("sysex access is not supported")
)

type clientInitializer func(*contracts.ClientOptions) (contracts.ClientMIDI, error)

// clientInitializers maps OS names to corresponding MIDI client initializers.
var clientInitializers = map[string]clientInitializer{
	"darwin":  mididarwin.NewMIDIClient,  // macOS (Darwin) MIDI client initializer.
	"windows": midiwindows.NewMIDIClient, // Windows MIDI client initializer.
	"linux":   midirtmidi.NewMIDIClient,  // RtMidi (ALSA) initializer, needs the rtmidi build tag.
}

// NewClient initializes a MIDI client based on the current operating system.
// Initialisation errors are reported as contracts.ErrAccessUnavailable.
func NewClient(opts *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return newClientFor(runtime.GOOS, opts)
}

func newClientFor(goos string, opts *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	initializer, exists := clientInitializers[goos]
	if !exists {
		return nil, fmt.Errorf("%w: %w: %s", contracts.ErrAccessUnavailable, ErrUnsupportedOS, goos)
	}

	client, err := initializer(opts)
	if err != nil {
		if errors.Is(err, contracts.ErrAccessUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", contracts.ErrAccessUnavailable, err)
	}
	return client, nil
}
