package contracts

import (
	"fmt"
	"time"
)

// MIDICommand is the channel-agnostic category of a message: the status byte
// with its low nibble cleared.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// PolyAftertouch is the MIDI command for polyphonic key pressure (0xA0).
	PolyAftertouch MIDICommand = 0xA0
	// ControlChange is the MIDI command for controller movement such as a knob (0xB0).
	ControlChange MIDICommand = 0xB0
	// ProgramChange is the MIDI command for a program change (0xC0).
	ProgramChange MIDICommand = 0xC0
	// ChannelAftertouch is the MIDI command for channel pressure (0xD0).
	ChannelAftertouch MIDICommand = 0xD0
	// PitchBend is the MIDI command for a pitch bend (0xE0).
	PitchBend MIDICommand = 0xE0
	// System covers system common and realtime messages (0xF0), including clock.
	System MIDICommand = 0xF0
)

var commandNames = map[MIDICommand]string{
	NoteOff:           "note_off",
	NoteOn:            "note_on",
	PolyAftertouch:    "poly_aftertouch",
	ControlChange:     "control_change",
	ProgramChange:     "program_change",
	ChannelAftertouch: "channel_aftertouch",
	PitchBend:         "pitch_bend",
	System:            "system",
}

func (c MIDICommand) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown_0x%02X", byte(c))
}

// MIDIEventFilter allows users to specify which MIDI commands to capture.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to filter.
}

// Allows reports whether messages of the given type pass the filter.
// A nil filter or an empty command list lets everything through.
func (f *MIDIEventFilter) Allows(messageType MIDICommand) bool {
	if f == nil || len(f.Commands) == 0 {
		return true
	}
	for _, c := range f.Commands {
		if c == messageType {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// ClientOptions defines the configuration options for the MIDI client.
type ClientOptions struct {
	Logger            Logger           // Logger for logging events and errors.
	LogLevel          LogLevel         // Level of logging to use.
	LogFilePath       string           // File path for logging if file logging is enabled.
	MIDIEventFilter   *MIDIEventFilter // Optional filter for MIDI events to capture.
	CoreMIDIConfig    *CoreMIDIConfig  // Configuration specific to CoreMIDI.
	SysEx             bool             // Requests system-exclusive access. Not supported.
	StatePollInterval time.Duration    // How often ports are rescanned for connect/disconnect.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the MIDI client.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the MIDI client.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs log output to the given file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithMIDIEventFilter sets the MIDI event filter for the MIDI client.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *ClientOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the MIDI client.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithSysEx requests system-exclusive access. Requests with sysex enabled are
// refused with ErrAccessUnavailable.
func WithSysEx(enabled bool) Option {
	return func(opts *ClientOptions) {
		opts.SysEx = enabled
	}
}

// WithStatePollInterval sets how often ports are rescanned.
func WithStatePollInterval(d time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.StatePollInterval = d
	}
}
