package decoder_test

import (
	"testing"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/leandrodaf/midiwatch/sdk/decoder"
	"github.com/stretchr/testify/require"
)

func TestMessageLength(t *testing.T) {
	cases := map[byte]int{
		0x00: 0,
		0x7F: 0,
		0x80: 3,
		0x9F: 3,
		0xA0: 3,
		0xB5: 3,
		0xC0: 2,
		0xDF: 2,
		0xE0: 3,
		0xF0: 0,
		0xF1: 2,
		0xF2: 3,
		0xF3: 2,
		0xF6: 1,
		0xF7: 0,
		0xF8: 1,
		0xFA: 1,
		0xFE: 1,
		0xFF: 1,
	}
	for status, want := range cases {
		require.Equal(t, want, decoder.MessageLength(status), "status 0x%02X", status)
	}
}

func TestSplit(t *testing.T) {
	t.Run("single message", func(t *testing.T) {
		got := decoder.Split([]byte{0x90, 60, 100})
		require.Equal(t, []contracts.RawMessage{{0x90, 60, 100}}, got)
	})

	t.Run("several messages in one packet", func(t *testing.T) {
		got := decoder.Split([]byte{0x90, 60, 100, 0x80, 60, 0, 0xC1, 5})
		require.Equal(t, []contracts.RawMessage{
			{0x90, 60, 100},
			{0x80, 60, 0},
			{0xC1, 5},
		}, got)
	})

	t.Run("realtime byte interleaved", func(t *testing.T) {
		got := decoder.Split([]byte{0x90, 60, 0xF8, 100})
		require.Equal(t, []contracts.RawMessage{
			{0xF8},
			{0x90, 60, 100},
		}, got)
	})

	t.Run("running status data", func(t *testing.T) {
		got := decoder.Split([]byte{62, 90, 0xB0, 74, 64})
		require.Equal(t, []contracts.RawMessage{
			{62, 90},
			{0xB0, 74, 64},
		}, got)
	})

	t.Run("running status after a complete message", func(t *testing.T) {
		got := decoder.Split([]byte{0x90, 60, 100, 62, 100, 64, 0})
		require.Equal(t, []contracts.RawMessage{
			{0x90, 60, 100},
			{0x90, 62, 100},
			{0x90, 64, 0},
		}, got)
	})

	t.Run("running status on a two byte message", func(t *testing.T) {
		got := decoder.Split([]byte{0xC1, 5, 6, 7})
		require.Equal(t, []contracts.RawMessage{
			{0xC1, 5},
			{0xC1, 6},
			{0xC1, 7},
		}, got)
	})

	t.Run("running status survives realtime bytes", func(t *testing.T) {
		got := decoder.Split([]byte{0xB0, 74, 64, 0xF8, 75, 10})
		require.Equal(t, []contracts.RawMessage{
			{0xB0, 74, 64},
			{0xF8},
			{0xB0, 75, 10},
		}, got)
	})

	t.Run("system common does not set running status", func(t *testing.T) {
		got := decoder.Split([]byte{0xF1, 0x10, 0x20})
		require.Equal(t, []contracts.RawMessage{
			{0xF1, 0x10},
			{0x20},
		}, got)
	})

	t.Run("sysex keeps its data together", func(t *testing.T) {
		got := decoder.Split([]byte{0xF0, 1, 2, 3, 4, 0xF7})
		require.Equal(t, []contracts.RawMessage{
			{0xF0, 1, 2, 3, 4},
			{0xF7},
		}, got)
	})

	t.Run("empty packet", func(t *testing.T) {
		require.Empty(t, decoder.Split(nil))
	})
}
