package decoder

import "github.com/leandrodaf/midiwatch/sdk/contracts"

const (
	sysExStart = 0xF0
	sysExEnd   = 0xF7
	realtime   = 0xF8
)

// MessageLength returns the number of bytes a message starting with status
// occupies. It returns 0 for sysex delimiters and for data bytes, whose
// length cannot be told from the byte alone.
func MessageLength(status byte) int {
	switch {
	case status < 0x80:
		return 0
	case status < 0xF0:
		switch status & 0xF0 {
		case 0xC0, 0xD0:
			return 2
		default:
			return 3
		}
	}

	switch status {
	case sysExStart, sysExEnd:
		return 0
	case 0xF1, 0xF3:
		return 2
	case 0xF2:
		return 3
	default:
		return 1
	}
}

// Split breaks a host packet into individual messages. Each status byte
// starts a new message; realtime bytes (0xF8 and up) are single-byte messages
// wherever they appear. Once a channel message is complete, further data bytes
// reuse its status byte (running status). Data bytes with no preceding status
// byte in the packet are returned as a message of their own, and so are data
// bytes past the end of a system common message.
func Split(packet []byte) []contracts.RawMessage {
	var (
		messages []contracts.RawMessage
		current  contracts.RawMessage
		running  byte // last channel status, 0 when none applies
	)
	flush := func() {
		if len(current) > 0 {
			messages = append(messages, current)
			current = nil
		}
	}

	for _, b := range packet {
		switch {
		case b >= realtime:
			if n := expectedLength(current); n > 0 && len(current) >= n {
				flush()
			}
			messages = append(messages, contracts.RawMessage{b})
		case b >= 0x80:
			flush()
			current = contracts.RawMessage{b}
			running = 0
			if b < sysExStart {
				running = b
			}
		default:
			if n := expectedLength(current); n > 0 && len(current) >= n {
				flush()
			}
			if len(current) == 0 && running != 0 {
				current = contracts.RawMessage{running}
			}
			current = append(current, b)
		}
	}
	flush()
	return messages
}

// expectedLength is the complete size of the message being built, or 0 when
// it has no fixed size (sysex, or data without a status byte).
func expectedLength(current contracts.RawMessage) int {
	if len(current) == 0 || current[0] < 0x80 {
		return 0
	}
	return MessageLength(current[0])
}
