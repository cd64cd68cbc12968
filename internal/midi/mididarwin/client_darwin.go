//go:build darwin
// +build darwin

package mididarwin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midiwatch/internal/capture"
	"github.com/leandrodaf/midiwatch/internal/watch"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for MIDI connection and handling issues.
var (
	ErrNoMIDIDevices       = contracts.ErrNoDevices
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// ClientMid manages MIDI operations on Darwin (macOS) systems.
// One CoreMIDI input port is connected to every selected source; packets
// from all of them go through a single dispatcher.
type ClientMid struct {
	logger     contracts.Logger
	dispatcher *capture.Dispatcher
	watcher    *watch.Watcher
	client     coremidi.Client
	inputPort  *coremidi.InputPort
	portConns  map[int]internalPortConnection
	ports      map[string]contracts.DeviceInfo // source name -> port
	portsMu    sync.RWMutex
	mu         sync.Mutex
	capturing  bool
	stopOnce   sync.Once
}

// NewMIDIClient initializes a new ClientMid for handling MIDI events on macOS.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created",
		options.Logger.Field().String("clientName", options.CoreMIDIConfig.ClientName))

	m := &ClientMid{
		logger:     options.Logger,
		dispatcher: capture.NewDispatcher(options.Logger, options.MIDIEventFilter),
		client:     client,
		portConns:  make(map[int]internalPortConnection),
		ports:      make(map[string]contracts.DeviceInfo),
	}
	m.watcher = watch.New(m.ListPorts, options.StatePollInterval, options.Logger, func(c contracts.StateChange) {
		m.dispatcher.Notify(c)
	})
	return m, nil
}

// ListDevices retrieves and returns available MIDI input devices.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		devices[i] = sourceInfo(i, source)
	}
	return devices, nil
}

// ListPorts returns sources as inputs followed by destinations as outputs.
func (m *ClientMid) ListPorts() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}

	ports := make([]contracts.DeviceInfo, 0, len(sources)+len(destinations))
	for i, source := range sources {
		ports = append(ports, sourceInfo(i, source))
	}
	for i, dest := range destinations {
		entity := dest.Entity()
		ports = append(ports, contracts.DeviceInfo{
			ID:           i,
			Name:         dest.Name(),
			Manufacturer: entity.Manufacturer(),
			EntityName:   entity.Name(),
			Type:         contracts.PortOutput,
		})
	}
	return ports, nil
}

func sourceInfo(id int, source coremidi.Source) contracts.DeviceInfo {
	entity := source.Entity()
	return contracts.DeviceInfo{
		ID:           id,
		Name:         source.Name(),
		Manufacturer: entity.Manufacturer(),
		EntityName:   entity.Name(),
		Type:         contracts.PortInput,
	}
}

// SelectDevice connects to the source with the given ID, or to every source
// when deviceID is contracts.AllDevices. Previous connections are dropped first.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return ErrNoMIDIDevices
	}

	selected := map[int]coremidi.Source{}
	switch {
	case deviceID == contracts.AllDevices:
		for i, source := range sources {
			selected[i] = source
		}
	case deviceID >= 0 && deviceID < len(sources):
		selected[deviceID] = sources[deviceID]
	default:
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	m.disconnectAll()

	if m.inputPort == nil {
		port, err := coremidi.NewInputPort(m.client, "Input Port", m.handleMIDIMessage)
		if err != nil {
			m.logger.Error(ErrCreateInputPort.Error())
			return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
		}
		m.inputPort = &port
	}

	for id, source := range selected {
		info := sourceInfo(id, source)
		conn, err := m.inputPort.Connect(source)
		if err != nil {
			m.logger.Error(ErrMIDIConnectionError.Error(), m.logger.Field().String("deviceName", info.Name))
			m.disconnectAll()
			return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
		}
		m.portConns[id] = conn
		m.portsMu.Lock()
		m.ports[info.Name] = info
		m.portsMu.Unlock()
		m.logger.Info("MIDI device selected",
			m.logger.Field().Int("deviceID", id),
			m.logger.Field().String("deviceName", info.Name))
	}

	m.logger.Info("MIDI device successfully connected", m.logger.Field().Int("connections", len(m.portConns)))
	return nil
}

func (m *ClientMid) disconnectAll() {
	for id, conn := range m.portConns {
		conn.Disconnect()
		delete(m.portConns, id)
	}
	m.portsMu.Lock()
	m.ports = make(map[string]contracts.DeviceInfo)
	m.portsMu.Unlock()
}

// handleMIDIMessage runs on the CoreMIDI thread. A packet may hold several
// messages; the dispatcher splits them.
func (m *ClientMid) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	m.portsMu.RLock()
	info, ok := m.ports[source.Name()]
	m.portsMu.RUnlock()
	if !ok {
		info = contracts.DeviceInfo{ID: -1, Name: source.Name(), Type: contracts.PortInput}
	}
	m.dispatcher.DispatchPacket(info, packet.Data)
}

// StartCapture begins capturing MIDI events by storing the event channel and marking capturing as active.
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	if m.capturing {
		m.logger.Warn("Capture already started; replacing event channel")
	}

	m.logger.Info("Starting MIDI event capture")
	m.dispatcher.SetEvents(eventChannel)
	m.capturing = true
}

// WatchState starts polling CoreMIDI for sources and destinations coming and going.
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

// Stop halts MIDI event capturing and disconnects from every source.
// This function ensures it only executes once, even if called multiple times.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("Stopping MIDI capture")
		m.watcher.Stop()

		m.mu.Lock()
		defer m.mu.Unlock()

		m.capturing = false
		m.disconnectAll()
		m.dispatcher.Close()
		m.logger.Info("MIDI capture stopped")
	})
	return nil
}
