package capture

import (
	"testing"
	"time"

	"github.com/leandrodaf/midiwatch/internal/logger"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var keyboard = contracts.DeviceInfo{ID: 0, Name: "Keystation", Type: contracts.PortInput}

func newDispatcher(t *testing.T, filter *contracts.MIDIEventFilter) (*Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.NewWithCore(core)
	l.SetLevel(contracts.DebugLevel)

	d := NewDispatcher(l, filter)
	d.now = func() time.Time { return time.Unix(0, 42) }
	return d, logs
}

func TestDispatchDecodes(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	events := make(chan contracts.MIDI, 1)
	d.SetEvents(events)
	require.True(t, d.Capturing())

	raw := contracts.RawMessage{0x90, 60, 100}
	require.True(t, d.Dispatch(keyboard, raw))
	raw[1] = 0

	ev := <-events
	require.Equal(t, uint64(42), ev.Timestamp)
	require.Equal(t, keyboard, ev.Port)
	require.Equal(t, contracts.RawMessage{0x90, 60, 100}, ev.Raw)
	require.Equal(t, contracts.NoteOn, ev.Decoded.MessageType)
	require.Equal(t, uint8(60), *ev.Decoded.Note)
	require.Equal(t, byte(0x90), ev.Command)
	require.Equal(t, byte(60), ev.Note)
	require.Equal(t, byte(100), ev.Velocity)
}

func TestDispatchShortMessage(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	events := make(chan contracts.MIDI, 1)
	d.SetEvents(events)

	require.True(t, d.Dispatch(keyboard, contracts.RawMessage{0xF8}))
	ev := <-events
	require.Equal(t, contracts.System, ev.Decoded.MessageType)
	require.False(t, ev.Decoded.HasNote())
	require.Zero(t, ev.Note)
	require.Zero(t, ev.Velocity)
}

func TestDispatchFilter(t *testing.T) {
	d, logs := newDispatcher(t, &contracts.MIDIEventFilter{Commands: []contracts.MIDICommand{contracts.NoteOn}})
	events := make(chan contracts.MIDI, 2)
	d.SetEvents(events)

	require.False(t, d.Dispatch(keyboard, contracts.RawMessage{0xB0, 74, 64}))
	require.True(t, d.Dispatch(keyboard, contracts.RawMessage{0x93, 60, 100}))
	require.Len(t, events, 1)
	require.Equal(t, 1, logs.FilterMessage("MIDI message filtered out").Len())
}

func TestDispatchDropsSysEx(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	events := make(chan contracts.MIDI, 1)
	d.SetEvents(events)

	require.False(t, d.Dispatch(keyboard, contracts.RawMessage{0xF0, 0x7E, 0x7F, 0xF7}))
	require.Empty(t, events)
}

func TestDispatchRejectsEmpty(t *testing.T) {
	d, logs := newDispatcher(t, nil)
	d.SetEvents(make(chan contracts.MIDI, 1))

	require.False(t, d.Dispatch(keyboard, nil))
	require.Equal(t, 1, logs.FilterMessage("failed to decode MIDI message").Len())
}

func TestDispatchWithoutChannel(t *testing.T) {
	d, logs := newDispatcher(t, nil)
	require.False(t, d.Capturing())
	require.False(t, d.Dispatch(keyboard, contracts.RawMessage{0x90, 60, 100}))
	require.Equal(t, 1, logs.FilterMessage("eventChannel not initialized; dropping MIDI message").Len())
}

func TestDispatchFullBuffer(t *testing.T) {
	d, logs := newDispatcher(t, nil)
	d.SetEvents(make(chan contracts.MIDI))

	require.False(t, d.Dispatch(keyboard, contracts.RawMessage{0x90, 60, 100}))
	require.Equal(t, 1, logs.FilterMessage("Event buffer full; dropping MIDI event").Len())
}

func TestDispatchPacket(t *testing.T) {
	d, logs := newDispatcher(t, nil)
	events := make(chan contracts.MIDI, 4)
	d.SetEvents(events)

	d.DispatchPacket(keyboard, []byte{0x90, 60, 100, 0x80, 60, 0})
	require.Len(t, events, 2)
	require.Equal(t, contracts.NoteOn, (<-events).Decoded.MessageType)
	require.Equal(t, contracts.NoteOff, (<-events).Decoded.MessageType)

	d.DispatchPacket(keyboard, []byte{0x90, 60, 100, 62, 100})
	require.Len(t, events, 2)
	first, second := <-events, <-events
	require.Equal(t, contracts.RawMessage{0x90, 60, 100}, first.Raw)
	require.Equal(t, contracts.RawMessage{0x90, 62, 100}, second.Raw)
	require.Equal(t, contracts.NoteOn, second.Decoded.MessageType)
	require.Equal(t, uint8(62), second.Decoded.NoteValue())
	require.Equal(t, uint8(100), second.Decoded.VelocityValue())

	d.DispatchPacket(keyboard, nil)
	require.Equal(t, 1, logs.FilterMessage(ErrIncompleteMIDIPacket.Error()).Len())
}

func TestNotify(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	change := contracts.StateChange{Port: keyboard, State: contracts.Connected}

	require.False(t, d.Notify(change))

	states := make(chan contracts.StateChange, 1)
	d.SetStates(states)
	require.True(t, d.Notify(change))
	got := <-states
	require.Equal(t, contracts.Connected, got.State)
	require.Equal(t, uint64(42), got.Timestamp)
}

func TestClose(t *testing.T) {
	d, _ := newDispatcher(t, nil)
	events := make(chan contracts.MIDI, 1)
	states := make(chan contracts.StateChange, 1)
	d.SetEvents(events)
	d.SetStates(states)

	d.Close()
	d.Close()
	require.False(t, d.Capturing())
	require.False(t, d.Dispatch(keyboard, contracts.RawMessage{0x90, 60, 100}))
	require.False(t, d.Notify(contracts.StateChange{Port: keyboard, State: contracts.Disconnected}))
	require.Empty(t, events)
	require.Empty(t, states)
}
