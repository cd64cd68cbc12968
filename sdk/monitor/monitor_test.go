package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midiwatch/internal/logger"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/leandrodaf/midiwatch/sdk/decoder"
	"github.com/leandrodaf/midiwatch/sdk/monitor"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClient struct {
	mu       sync.Mutex
	devices  []contracts.DeviceInfo
	listErr  error
	selected []int
	events   chan contracts.MIDI
	states   chan contracts.StateChange
	stopped  bool
	ready    chan struct{}
}

func newFakeClient(devices ...contracts.DeviceInfo) *fakeClient {
	return &fakeClient{devices: devices, ready: make(chan struct{})}
}

func (f *fakeClient) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeClient) ListDevices() ([]contracts.DeviceInfo, error) {
	return f.devices, f.listErr
}

func (f *fakeClient) ListPorts() ([]contracts.DeviceInfo, error) {
	return f.devices, f.listErr
}

func (f *fakeClient) SelectDevice(deviceID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, deviceID)
	return nil
}

func (f *fakeClient) StartCapture(eventChannel chan contracts.MIDI) {
	f.events = eventChannel
}

func (f *fakeClient) WatchState(stateChannel chan contracts.StateChange) {
	f.states = stateChannel
	close(f.ready)
}

func (f *fakeClient) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeClient) send(t *testing.T, port contracts.DeviceInfo, raw ...byte) {
	t.Helper()
	decoded, err := decoder.Decode(raw)
	require.NoError(t, err)
	f.events <- contracts.MIDI{Port: port, Raw: raw, Decoded: decoded}
}

var (
	keys = contracts.DeviceInfo{ID: 0, Name: "Keystation", Manufacturer: "M-Audio", Type: contracts.PortInput, Version: "1.0"}
	pads = contracts.DeviceInfo{ID: 1, Name: "Launchpad", Manufacturer: "Novation", Type: contracts.PortInput}
	out  = contracts.DeviceInfo{ID: 0, Name: "Synth", Type: contracts.PortOutput}
)

func observed() (contracts.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.NewWithCore(core)
	l.SetLevel(contracts.DebugLevel)
	return l, logs
}

func start(t *testing.T, client *fakeClient, opts ...monitor.Option) (*monitor.Monitor, context.CancelFunc, <-chan error) {
	t.Helper()
	m := monitor.New(client, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case <-client.ready:
	case <-time.After(time.Second):
		t.Fatal("monitor did not start")
	}
	return m, cancel, done
}

func TestMonitorPublishesLatest(t *testing.T) {
	client := newFakeClient(keys, pads)
	l, _ := observed()

	var (
		mu   sync.Mutex
		seen []contracts.MIDI
	)
	m, cancel, done := start(t, client,
		monitor.WithLogger(l),
		monitor.WithHandler(func(ev contracts.MIDI) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, ev)
		}),
	)

	_, ok := m.Latest()
	require.False(t, ok)

	client.send(t, keys, 0x90, 60, 100)
	client.send(t, pads, 0xB0, 74, 64)
	client.send(t, keys, 0x91)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	latest, ok := m.Latest()
	require.True(t, ok)
	require.Equal(t, uint8(9), latest.Command)
	require.Equal(t, uint8(1), latest.Channel)
	require.False(t, latest.HasNote())
	require.False(t, latest.HasVelocity())

	mu.Lock()
	require.Equal(t, "Keystation", seen[0].Port.Name)
	require.Equal(t, contracts.ControlChange, seen[1].Decoded.MessageType)
	require.Equal(t, uint8(74), seen[1].Decoded.NoteValue())
	mu.Unlock()

	cancel()
	require.NoError(t, <-done)
	require.True(t, client.isStopped())
	require.Equal(t, []int{contracts.AllDevices}, client.selected)
}

func TestMonitorLogsInputs(t *testing.T) {
	client := newFakeClient(keys)
	l, logs := observed()
	_, cancel, done := start(t, client, monitor.WithLogger(l))
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 1, logs.FilterMessage("input Keystation").Len())
	require.Equal(t, 1, logs.FilterMessage(
		"Input port : [ type:'input' id: '0' manufacturer: 'M-Audio' name: 'Keystation' version: '1.0']").Len())
}

func TestMonitorStateChangesDefaultToInputs(t *testing.T) {
	client := newFakeClient(keys)
	l, logs := observed()
	_, cancel, done := start(t, client, monitor.WithLogger(l))

	client.states <- contracts.StateChange{Port: out, State: contracts.Connected}
	client.states <- contracts.StateChange{Port: pads, State: contracts.Disconnected}

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stateChange:").Len() == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 1, logs.FilterMessageSnippet("name Launchpad port").Len())
	require.Equal(t, 1, logs.FilterMessageSnippet("state disconnected").Len())
	require.Zero(t, logs.FilterMessageSnippet("name Synth").Len())
}

func TestMonitorStateChangesForOutputs(t *testing.T) {
	client := newFakeClient(keys)
	l, logs := observed()
	_, cancel, done := start(t, client,
		monitor.WithLogger(l),
		monitor.WithStatePortTypes(contracts.PortInput, contracts.PortOutput),
	)

	client.states <- contracts.StateChange{Port: out, State: contracts.Connected}
	require.Eventually(t, func() bool {
		return logs.FilterMessageSnippet("name Synth port Output port").Len() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestMonitorSelectsSingleDevice(t *testing.T) {
	client := newFakeClient(keys, pads)
	l, _ := observed()
	_, cancel, done := start(t, client, monitor.WithLogger(l), monitor.WithDevice(1), monitor.WithBufferSize(4))
	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []int{1}, client.selected)
	require.Equal(t, 4, cap(client.events))
}

func TestMonitorNoDevices(t *testing.T) {
	l, _ := observed()

	err := monitor.New(newFakeClient(), monitor.WithLogger(l)).Run(context.Background())
	require.ErrorIs(t, err, monitor.ErrNoDevices)

	empty := newFakeClient()
	empty.listErr = contracts.ErrNoDevices
	err = monitor.New(empty, monitor.WithLogger(l)).Run(context.Background())
	require.ErrorIs(t, err, monitor.ErrNoDevices)
	require.False(t, empty.isStopped())
}

func TestMonitorListFailureIsNotNoDevices(t *testing.T) {
	l, _ := observed()
	enumErr := errors.New("CoreMIDI server not responding")

	failing := newFakeClient()
	failing.listErr = enumErr
	err := monitor.New(failing, monitor.WithLogger(l)).Run(context.Background())
	require.ErrorIs(t, err, enumErr)
	require.NotErrorIs(t, err, monitor.ErrNoDevices)
	require.False(t, failing.isStopped())
}

func TestFormatPort(t *testing.T) {
	require.Equal(t,
		"Output port : [ type:'output' id: '0' manufacturer: '' name: 'Synth' version: '']",
		monitor.FormatPort(out))
}
