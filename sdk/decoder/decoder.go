// Package decoder turns raw MIDI bytes into their semantic fields.
package decoder

import (
	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// Decode extracts command, channel, message type, note and velocity from the
// first three bytes of raw. Status bytes of system messages (0xF0 and up) go
// through the same arithmetic: Command is 15 and Channel holds the sub-type.
//
// Note and Velocity are nil when raw is shorter than two or three bytes.
// Bytes past the third are ignored. An empty message returns
// contracts.ErrInvalidMessage.
func Decode(raw contracts.RawMessage) (contracts.DecodedMessage, error) {
	if len(raw) == 0 {
		return contracts.DecodedMessage{}, contracts.ErrInvalidMessage
	}

	status := raw[0]
	msg := contracts.DecodedMessage{
		Command:     status >> 4,
		Channel:     status & 0x0F,
		MessageType: contracts.MIDICommand(status & 0xF0),
	}
	if len(raw) > 1 {
		note := raw[1]
		msg.Note = &note
	}
	if len(raw) > 2 {
		velocity := raw[2]
		msg.Velocity = &velocity
	}
	return msg, nil
}
