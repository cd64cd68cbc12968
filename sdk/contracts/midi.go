package contracts

// MIDI represents a MIDI event received from an input port.
type MIDI struct {
	Timestamp uint64         // Timestamp indicates the time the event occurred.
	Port      DeviceInfo     // Port the event arrived on.
	Raw       RawMessage     // Bytes as delivered by the host.
	Decoded   DecodedMessage // Semantic fields of Raw.
	Command   byte           // Status byte (byte 0).
	Note      byte           // Byte 1, zero when absent.
	Velocity  byte           // Byte 2, zero when absent.
}

// PortState is the connection state of a port.
type PortState string

const (
	Connected    PortState = "connected"
	Disconnected PortState = "disconnected"
)

// StateChange is emitted when a port appears or disappears.
type StateChange struct {
	Port      DeviceInfo
	State     PortState
	Timestamp uint64
}

// ClientMIDI defines an interface for MIDI client operations.
type ClientMIDI interface {
	Stop() error                              // Stops the MIDI client and releases resources.
	ListDevices() ([]DeviceInfo, error)       // Lists all available MIDI input devices.
	ListPorts() ([]DeviceInfo, error)         // Lists input and output ports.
	SelectDevice(deviceID int) error          // Selects an input by ID, or every input with AllDevices.
	StartCapture(eventChannel chan MIDI)      // Starts capturing MIDI events and sends them to the specified channel.
	WatchState(stateChannel chan StateChange) // Sends port connect/disconnect notifications to the specified channel.
}
