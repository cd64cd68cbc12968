// Package capture holds the driver-independent half of MIDI input handling:
// raw host bytes are decoded, filtered and handed to the consumer's channel
// without ever blocking the host callback.
package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/leandrodaf/midiwatch/sdk/decoder"
)

// ErrIncompleteMIDIPacket is logged when a host packet carries no bytes.
var ErrIncompleteMIDIPacket = errors.New("incomplete MIDI packet")

// Dispatcher fans decoded events and port state changes out to the channels
// registered by the consumer.
type Dispatcher struct {
	logger contracts.Logger
	filter *contracts.MIDIEventFilter
	now    func() time.Time

	events atomic.Value // chan contracts.MIDI
	states atomic.Value // chan contracts.StateChange

	mu     sync.RWMutex // held for reading while a message is in flight
	closed bool
}

// NewDispatcher creates a Dispatcher. A nil filter lets every message type through.
func NewDispatcher(logger contracts.Logger, filter *contracts.MIDIEventFilter) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		filter: filter,
		now:    time.Now,
	}
}

// SetEvents registers the channel decoded events are sent to.
func (d *Dispatcher) SetEvents(ch chan contracts.MIDI) {
	d.events.Store(ch)
}

// Capturing reports whether an event channel is registered.
func (d *Dispatcher) Capturing() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, _ := d.events.Load().(chan contracts.MIDI)
	return ch != nil && !d.closed
}

// SetStates registers the channel port state changes are sent to.
func (d *Dispatcher) SetStates(ch chan contracts.StateChange) {
	d.states.Store(ch)
}

// DispatchPacket splits a host packet into messages and dispatches each one.
func (d *Dispatcher) DispatchPacket(port contracts.DeviceInfo, packet []byte) {
	if len(packet) == 0 {
		d.logger.Warn(ErrIncompleteMIDIPacket.Error(), d.logger.Field().String("port", port.Name))
		return
	}
	for _, msg := range decoder.Split(packet) {
		d.Dispatch(port, msg)
	}
}

// Dispatch decodes a single message and sends it to the event channel.
// It reports whether the event was delivered.
func (d *Dispatcher) Dispatch(port contracts.DeviceInfo, raw contracts.RawMessage) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	eventChannel, _ := d.events.Load().(chan contracts.MIDI)
	if eventChannel == nil {
		d.logger.Warn("eventChannel not initialized; dropping MIDI message")
		return false
	}

	if len(raw) > 0 && (raw[0] == 0xF0 || raw[0] == 0xF7) {
		d.logger.Debug("sysex is disabled; dropping message", d.logger.Field().Int("length", len(raw)))
		return false
	}

	decoded, err := decoder.Decode(raw)
	if err != nil {
		d.logger.Warn("failed to decode MIDI message",
			d.logger.Field().String("port", port.Name),
			d.logger.Field().Error("error", err))
		return false
	}

	if !d.filter.Allows(decoded.MessageType) {
		d.logger.Debug("MIDI message filtered out", d.logger.Field().String("type", decoded.MessageType.String()))
		return false
	}

	event := contracts.MIDI{
		Timestamp: uint64(d.now().UTC().UnixNano()),
		Port:      port,
		Raw:       append(contracts.RawMessage(nil), raw...),
		Decoded:   decoded,
		Command:   raw[0],
		Note:      decoded.NoteValue(),
		Velocity:  decoded.VelocityValue(),
	}

	select {
	case eventChannel <- event:
		return true
	default:
		d.logger.Warn("Event buffer full; dropping MIDI event")
		return false
	}
}

// Notify sends a port state change to the state channel, if one is registered.
func (d *Dispatcher) Notify(change contracts.StateChange) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	stateChannel, _ := d.states.Load().(chan contracts.StateChange)
	if stateChannel == nil {
		return false
	}
	if change.Timestamp == 0 {
		change.Timestamp = uint64(d.now().UTC().UnixNano())
	}

	select {
	case stateChannel <- change:
		return true
	default:
		d.logger.Warn("State buffer full; dropping port state change",
			d.logger.Field().String("port", change.Port.Name),
			d.logger.Field().String("state", string(change.State)))
		return false
	}
}

// Close stops further deliveries and waits for in-flight dispatches to finish.
// Close is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}
