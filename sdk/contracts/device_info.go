package contracts

// PortType tells input ports from output ports.
type PortType string

const (
	// PortInput is a port the host receives MIDI messages from.
	PortInput PortType = "input"
	// PortOutput is a port the host sends MIDI messages to.
	PortOutput PortType = "output"
)

// AllDevices passed to SelectDevice listens on every input port.
const AllDevices = -1

// DeviceInfo contains information about a MIDI port.
type DeviceInfo struct {
	ID           int      // Index of the port as reported by the host.
	Name         string   // Device name.
	Manufacturer string   // Device manufacturer.
	EntityName   string   // Name of the entity to which the device belongs.
	Version      string   // Driver version, empty when the host does not report one.
	Type         PortType // Input or output.
}

// Key identifies a port across rescans.
func (d DeviceInfo) Key() string {
	return string(d.Type) + ":" + d.Name
}
