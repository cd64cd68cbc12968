//go:build rtmidi
// +build rtmidi

// Package midirtmidi reads MIDI input through RtMidi (ALSA on Linux).
// It needs cgo and is compiled with the rtmidi build tag.
package midirtmidi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midiwatch/internal/capture"
	"github.com/leandrodaf/midiwatch/internal/watch"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

var (
	ErrNoMIDIDevices     = contracts.ErrNoDevices
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
)

// ClientMid manages MIDI input through the gomidi RtMidi driver.
type ClientMid struct {
	logger     contracts.Logger
	dispatcher *capture.Dispatcher
	watcher    *watch.Watcher
	stops      map[int]func()
	mu         sync.Mutex
	stopOnce   sync.Once
}

// NewMIDIClient creates a client backed by RtMidi.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("MIDI client created for RtMidi")

	m := &ClientMid{
		logger:     options.Logger,
		dispatcher: capture.NewDispatcher(options.Logger, options.MIDIEventFilter),
		stops:      make(map[int]func()),
	}
	m.watcher = watch.New(m.ListPorts, options.StatePollInterval, options.Logger, func(c contracts.StateChange) {
		m.dispatcher.Notify(c)
	})
	return m, nil
}

// ListDevices lists the available MIDI input ports.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	ins := gomidi.GetInPorts()
	if len(ins) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = inInfo(in)
	}
	return devices, nil
}

// ListPorts lists input and output ports.
func (m *ClientMid) ListPorts() ([]contracts.DeviceInfo, error) {
	ins := gomidi.GetInPorts()
	outs := gomidi.GetOutPorts()

	ports := make([]contracts.DeviceInfo, 0, len(ins)+len(outs))
	for _, in := range ins {
		ports = append(ports, inInfo(in))
	}
	for _, out := range outs {
		ports = append(ports, contracts.DeviceInfo{
			ID:         out.Number(),
			Name:       out.String(),
			EntityName: out.String(),
			Type:       contracts.PortOutput,
		})
	}
	return ports, nil
}

func inInfo(in drivers.In) contracts.DeviceInfo {
	return contracts.DeviceInfo{
		ID:         in.Number(),
		Name:       in.String(),
		EntityName: in.String(),
		Type:       contracts.PortInput,
	}
}

// SelectDevice listens on one input port, or on all of them with contracts.AllDevices.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ins := gomidi.GetInPorts()
	if len(ins) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return ErrNoMIDIDevices
	}

	var selected []drivers.In
	for _, in := range ins {
		if deviceID == contracts.AllDevices || in.Number() == deviceID {
			selected = append(selected, in)
		}
	}
	if len(selected) == 0 {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	m.stopListeners()
	for _, in := range selected {
		info := inInfo(in)
		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
			m.dispatcher.Dispatch(info, contracts.RawMessage(msg))
		})
		if err != nil {
			m.stopListeners()
			return fmt.Errorf("open input %s: %w", info.Name, err)
		}
		m.stops[info.ID] = stop
		m.logger.Info("MIDI device selected",
			m.logger.Field().Int("deviceID", info.ID),
			m.logger.Field().String("deviceName", info.Name))
	}
	return nil
}

func (m *ClientMid) stopListeners() {
	for id, stop := range m.stops {
		stop()
		delete(m.stops, id)
	}
}

// StartCapture stores the channel events are delivered to.
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	if m.dispatcher.Capturing() {
		m.logger.Warn("Capture already started; replacing event channel")
	}
	m.logger.Info("Starting MIDI event capture")
	m.dispatcher.SetEvents(eventChannel)
}

// WatchState polls RtMidi for ports coming and going.
func (m *ClientMid) WatchState(stateChannel chan contracts.StateChange) {
	if stateChannel == nil {
		m.logger.Error("WatchState called with nil stateChannel")
		return
	}
	m.dispatcher.SetStates(stateChannel)
	if err := m.watcher.Start(context.Background()); err != nil {
		m.logger.Error("Failed to watch MIDI port state", m.logger.Field().Error("error", err))
	}
}

// Stop ends every listener and closes the driver. Only the first call has an effect.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping MIDI capture")
		m.watcher.Stop()

		m.mu.Lock()
		m.stopListeners()
		m.mu.Unlock()

		m.dispatcher.Close()
		gomidi.CloseDriver()
		m.logger.Info("MIDI capture stopped")
	})
	return nil
}
