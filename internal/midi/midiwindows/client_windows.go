//go:build windows
// +build windows

package midiwindows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/leandrodaf/midiwatch/internal/capture"
	"github.com/leandrodaf/midiwatch/internal/watch"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/leandrodaf/midiwatch/sdk/decoder"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

var (
	ErrNoMIDIDevices     = contracts.ErrNoDevices
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrInvalidHandle     = errors.New("invalid MIDI device handle")
)

// midiInCaps mirrors MIDIINCAPSW.
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// midiOutCaps mirrors MIDIOUTCAPSW.
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs  = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps  = winmm.NewProc("midiInGetDevCapsW")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiInOpen        = winmm.NewProc("midiInOpen")
	procMidiInStart       = winmm.NewProc("midiInStart")
	procMidiInStop        = winmm.NewProc("midiInStop")
	procMidiInClose       = winmm.NewProc("midiInClose")
)

// The runtime limits how many callbacks can be created, so there is exactly one.
var midiInCallbackPtr = windows.NewCallback(midiInCallback)

// inputHandle is passed to winmm as the callback instance of one open device.
type inputHandle struct {
	client *ClientMid
	handle HMIDIIN
	info   contracts.DeviceInfo
}

// ClientMid manages MIDI on Windows
type ClientMid struct {
	logger     contracts.Logger
	dispatcher *capture.Dispatcher
	watcher    *watch.Watcher
	inputs     []*inputHandle
	mu         sync.Mutex
	started    bool
	stopOnce   sync.Once
}

// NewMIDIClient creates a MIDI client for Windows
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	if err := winmm.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrAccessUnavailable, err)
	}
	options.Logger.Info("MIDI client created for Windows")

	m := &ClientMid{
		logger:     options.Logger,
		dispatcher: capture.NewDispatcher(options.Logger, options.MIDIEventFilter),
	}
	m.watcher = watch.New(m.ListPorts, options.StatePollInterval, options.Logger, func(c contracts.StateChange) {
		m.dispatcher.Notify(c)
	})
	return m, nil
}

// ListDevices lists the available MIDI input devices
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	devices := m.listInputs()
	if len(devices) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}
	return devices, nil
}

// ListPorts lists input and output devices
func (m *ClientMid) ListPorts() ([]contracts.DeviceInfo, error) {
	return append(m.listInputs(), m.listOutputs()...), nil
}

func (m *ClientMid) listInputs() []contracts.DeviceInfo {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get information for MIDI input device", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		devices = append(devices, deviceInfo(int(i), contracts.PortInput, caps.szPname[:], caps.wMid, caps.wPid, caps.vDriverVersion))
	}
	return devices
}

func (m *ClientMid) listOutputs() []contracts.DeviceInfo {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get information for MIDI output device", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		devices = append(devices, deviceInfo(int(i), contracts.PortOutput, caps.szPname[:], caps.wMid, caps.wPid, caps.vDriverVersion))
	}
	return devices
}

func deviceInfo(id int, typ contracts.PortType, pname []uint16, mid, pid uint16, version uint32) contracts.DeviceInfo {
	name := windows.UTF16ToString(pname)
	return contracts.DeviceInfo{
		ID:           id,
		Name:         name,
		EntityName:   name,
		Manufacturer: fmt.Sprintf("MID: %d PID: %d", mid, pid),
		Version:      fmt.Sprintf("%d.%d", version>>8, version&0xFF),
		Type:         typ,
	}
}

// SelectDevice opens one input device, or all of them with contracts.AllDevices.
// Devices opened by a previous call are closed first.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.closeInputs(); err != nil {
		return fmt.Errorf("failed to stop previous MIDI capture: %w", err)
	}

	inputs := m.listInputs()
	if len(inputs) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return ErrNoMIDIDevices
	}

	var selected []contracts.DeviceInfo
	switch {
	case deviceID == contracts.AllDevices:
		selected = inputs
	default:
		for _, in := range inputs {
			if in.ID == deviceID {
				selected = append(selected, in)
			}
		}
	}
	if len(selected) == 0 {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	for _, info := range selected {
		in := &inputHandle{client: m, info: info}
		r1, _, err := procMidiInOpen.Call(
			uintptr(unsafe.Pointer(&in.handle)),
			uintptr(info.ID),
			midiInCallbackPtr,
			uintptr(unsafe.Pointer(in)),
			uintptr(CALLBACK_FUNCTION|MIDI_IO_STATUS),
		)
		if r1 != 0 {
			m.logger.Error("Failed to open MIDI device",
				m.logger.Field().Int("deviceID", info.ID),
				m.logger.Field().Error("error", err))
			_ = m.closeInputs()
			return fmt.Errorf("failed to open MIDI device %d: %v", info.ID, err)
		}
		m.inputs = append(m.inputs, in)
		m.logger.Info("MIDI device connected",
			m.logger.Field().Int("deviceID", info.ID),
			m.logger.Field().String("deviceName", info.Name))
	}

	if m.started {
		return m.startInputs()
	}
	return nil
}

// StartCapture initializes MIDI event capture
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	if len(m.inputs) == 0 {
		m.logger.Error("Cannot start capture: No MIDI device selected")
		return
	}
	if m.started {
		m.logger.Warn("Capture already started")
		return
	}

	m.dispatcher.SetEvents(eventChannel)
	if err := m.startInputs(); err != nil {
		m.logger.Error("Failed to start MIDI capture", m.logger.Field().Error("error", err))
		return
	}
	m.started = true
	m.logger.Info("MIDI capture started")
}

func (m *ClientMid) startInputs() error {
	for _, in := range m.inputs {
		if in.handle == 0 {
			return ErrInvalidHandle
		}
		r1, _, err := procMidiInStart.Call(uintptr(in.handle))
		if r1 != 0 {
			return fmt.Errorf("midiInStart %s: %v", in.info.Name, err)
		}
	}
	return nil
}

// WatchState polls winmm for devices coming and going.
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

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	in := (*inputHandle)(unsafe.Pointer(dwInstance))
	m := in.client

	switch wMsg {
	case MIM_OPEN:
		m.logger.Info("MIDI device opened", m.logger.Field().String("deviceName", in.info.Name))
	case MIM_CLOSE:
		m.logger.Info("MIDI device closed", m.logger.Field().String("deviceName", in.info.Name))
	case MIM_DATA:
		packed := [3]byte{
			byte(dwParam1 & 0xFF),
			byte((dwParam1 >> 8) & 0xFF),
			byte((dwParam1 >> 16) & 0xFF),
		}
		n := decoder.MessageLength(packed[0])
		if n == 0 {
			n = len(packed)
		}
		m.dispatcher.Dispatch(in.info, contracts.RawMessage(packed[:n]))
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg), m.logger.Field().String("deviceName", in.info.Name))
	case MIM_MOREDATA:
		m.logger.Debug("Received MIM_MOREDATA message; ignored")
	default:
		m.logger.Warn(fmt.Sprintf("Unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}

// Stop terminates MIDI event capture and closes every open device.
// Only the first call has an effect.
func (m *ClientMid) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		err = m.stop()
	})
	return err
}

func (m *ClientMid) stop() error {
	m.watcher.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.dispatcher.Close()
	if len(m.inputs) == 0 {
		m.logger.Warn("No MIDI device is connected")
		return nil
	}
	if err := m.closeInputs(); err != nil {
		return fmt.Errorf("failed to stop MIDI capture: %w", err)
	}
	m.started = false
	m.logger.Info("MIDI capture stopped and device closed")
	return nil
}

// closeInputs stops and closes every open device
func (m *ClientMid) closeInputs() error {
	var errs []error
	for _, in := range m.inputs {
		if in.handle == 0 {
			continue
		}
		if r1, _, err := procMidiInStop.Call(uintptr(in.handle)); r1 != 0 {
			m.logger.Error("Failed to stop MIDI capture", m.logger.Field().Error("error", err))
			errs = append(errs, err)
		}
		if r1, _, err := procMidiInClose.Call(uintptr(in.handle)); r1 != 0 {
			m.logger.Error("Failed to close MIDI device", m.logger.Field().Error("error", err))
			errs = append(errs, err)
		}
		in.handle = 0
	}
	m.inputs = nil
	return errors.Join(errs...)
}
