package contracts

import (
	"fmt"
	"strings"
)

// RawMessage is the byte sequence delivered by the host for one MIDI event.
type RawMessage []byte

// DecodedMessage holds the semantic fields of the first three bytes of a
// RawMessage. Note and Velocity are nil when the message is too short to
// carry them.
type DecodedMessage struct {
	Command     uint8       // High nibble of the status byte.
	Channel     uint8       // Low nibble of the status byte.
	MessageType MIDICommand // Status byte with the channel nibble cleared.
	Note        *uint8      // Byte 1: note number, or controller ID for control change.
	Velocity    *uint8      // Byte 2: velocity, or controller value for control change.
}

// HasNote reports whether byte 1 was present.
func (d DecodedMessage) HasNote() bool { return d.Note != nil }

// HasVelocity reports whether byte 2 was present.
func (d DecodedMessage) HasVelocity() bool { return d.Velocity != nil }

// NoteValue returns byte 1, or 0 when absent.
func (d DecodedMessage) NoteValue() uint8 {
	if d.Note == nil {
		return 0
	}
	return *d.Note
}

// VelocityValue returns byte 2, or 0 when absent.
func (d DecodedMessage) VelocityValue() uint8 {
	if d.Velocity == nil {
		return 0
	}
	return *d.Velocity
}

func (d DecodedMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cmd=%d channel=%d type=0x%02X(%s)", d.Command, d.Channel, byte(d.MessageType), d.MessageType)
	if d.Note != nil {
		fmt.Fprintf(&b, " note=%d", *d.Note)
	}
	if d.Velocity != nil {
		fmt.Fprintf(&b, " velocity=%d", *d.Velocity)
	}
	return b.String()
}
