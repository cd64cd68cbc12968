package monitor

import "github.com/leandrodaf/midiwatch/sdk/contracts"

// Handler receives every captured event, in delivery order.
type Handler func(event contracts.MIDI)

// Options configures a Monitor.
type Options struct {
	Logger          contracts.Logger
	Handler         Handler
	StatePortTypes  []contracts.PortType // Port types whose state changes are reported.
	DeviceID        int                  // Input to listen on; contracts.AllDevices for every input.
	EventBufferSize int
	StateBufferSize int
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the logger used for port listings and state changes.
func WithLogger(l contracts.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithHandler sets the function called for each captured event.
func WithHandler(h Handler) Option {
	return func(o *Options) { o.Handler = h }
}

// WithStatePortTypes chooses which port types have their state changes
// reported. The default is inputs only.
func WithStatePortTypes(types ...contracts.PortType) Option {
	return func(o *Options) { o.StatePortTypes = types }
}

// WithDevice restricts listening to a single input.
func WithDevice(id int) Option {
	return func(o *Options) { o.DeviceID = id }
}

// WithBufferSize sets the capacity of the event and state channels.
func WithBufferSize(n int) Option {
	return func(o *Options) {
		o.EventBufferSize = n
		o.StateBufferSize = n
	}
}

func defaultOptions() Options {
	return Options{
		StatePortTypes:  []contracts.PortType{contracts.PortInput},
		DeviceID:        contracts.AllDevices,
		EventBufferSize: 128,
		StateBufferSize: 16,
	}
}
