// Package monitor listens on MIDI inputs, keeps the most recent decoded
// message and reports ports connecting and disconnecting.
package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/leandrodaf/midiwatch/internal/logger"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// ErrNoDevices is returned by Run when the host reports no inputs.
var ErrNoDevices = contracts.ErrNoDevices

// Monitor drives a contracts.ClientMIDI. Events are handled one at a time
// on the goroutine that calls Run.
type Monitor struct {
	client contracts.ClientMIDI
	opts   Options

	mu     sync.RWMutex
	latest *contracts.DecodedMessage
}

// New creates a Monitor for client.
func New(client contracts.ClientMIDI, opts ...Option) *Monitor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logger.NewZapLogger()
	}
	if o.EventBufferSize < 0 {
		o.EventBufferSize = 0
	}
	if o.StateBufferSize < 0 {
		o.StateBufferSize = 0
	}
	return &Monitor{client: client, opts: o}
}

// Latest returns the most recently decoded message, if any.
func (m *Monitor) Latest() (contracts.DecodedMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return contracts.DecodedMessage{}, false
	}
	return *m.latest, true
}

// Run lists and logs the inputs, starts listening and processes events and
// state changes until ctx is done. The client is stopped before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	log := m.opts.Logger

	devices, err := m.client.ListDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoDevices
	}
	for _, d := range devices {
		log.Log("input", d.Name)
		log.Log(FormatPort(d))
	}

	if err := m.client.SelectDevice(m.opts.DeviceID); err != nil {
		return fmt.Errorf("select device: %w", err)
	}

	events := make(chan contracts.MIDI, m.opts.EventBufferSize)
	states := make(chan contracts.StateChange, m.opts.StateBufferSize)
	m.client.StartCapture(events)
	m.client.WatchState(states)
	defer func() {
		if err := m.client.Stop(); err != nil {
			log.Error("failed to stop MIDI client", log.Field().Error("error", err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			m.handleEvent(ev)
		case change := <-states:
			m.handleState(change)
		}
	}
}

func (m *Monitor) handleEvent(ev contracts.MIDI) {
	decoded := ev.Decoded
	m.mu.Lock()
	m.latest = &decoded
	m.mu.Unlock()

	if m.opts.Handler != nil {
		m.opts.Handler(ev)
	}

	log := m.opts.Logger
	log.Debug("MIDI message",
		log.Field().String("port", ev.Port.Name),
		log.Field().Uint8("cmd", decoded.Command),
		log.Field().Uint8("channel", decoded.Channel),
		log.Field().String("type", decoded.MessageType.String()),
		log.Field().Bool("hasNote", decoded.HasNote()),
		log.Field().Uint8("note", decoded.NoteValue()),
		log.Field().Bool("hasVelocity", decoded.HasVelocity()),
		log.Field().Uint8("velocity", decoded.VelocityValue()),
	)
}

func (m *Monitor) handleState(change contracts.StateChange) {
	log := m.opts.Logger
	log.Debug("stateChange:",
		log.Field().String("port", change.Port.Name),
		log.Field().String("type", string(change.Port.Type)),
		log.Field().String("state", string(change.State)))

	if !m.observes(change.Port.Type) {
		return
	}
	log.Log("name", change.Port.Name, "port", FormatPort(change.Port), "state", change.State)
}

func (m *Monitor) observes(t contracts.PortType) bool {
	for _, want := range m.opts.StatePortTypes {
		if want == t {
			return true
		}
	}
	return false
}

// FormatPort renders a port the way inputs are listed at startup.
func FormatPort(d contracts.DeviceInfo) string {
	label := "Input port"
	if d.Type == contracts.PortOutput {
		label = "Output port"
	}
	return fmt.Sprintf("%s : [ type:'%s' id: '%d' manufacturer: '%s' name: '%s' version: '%s']",
		label, d.Type, d.ID, d.Manufacturer, d.Name, d.Version)
}
