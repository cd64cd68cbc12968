package main

import (
	"fmt"

	"github.com/leandrodaf/midiwatch/internal/logger"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/leandrodaf/midiwatch/sdk/midi"
)

func main() {
	log := logger.NewStandardLogger()

	client, err := midi.RequestAccess(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithSysEx(false),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Commands: []contracts.MIDICommand{contracts.NoteOn, contracts.NoteOff, contracts.ControlChange},
		}),
	)
	if err != nil {
		log.Error("No access to MIDI devices", log.Field().Error("error", err))
		return
	}
	defer client.Stop()

	devices, err := client.ListDevices()
	if err != nil || len(devices) == 0 {
		log.Error("No MIDI devices found or error listing devices", log.Field().Error("error", err))
		return
	}
	fmt.Println("Available MIDI devices:", devices)

	if err = client.SelectDevice(contracts.AllDevices); err != nil {
		log.Error("Failed to select MIDI devices", log.Field().Error("error", err))
		return
	}

	states := make(chan contracts.StateChange, 16)
	go func() {
		for change := range states {
			if change.Port.Type == contracts.PortInput {
				log.Log("name", change.Port.Name, "state", change.State)
			}
		}
	}()
	client.WatchState(states)

	eventChannel := make(chan contracts.MIDI, 100)
	go func() {
		for event := range eventChannel {
			d := event.Decoded
			fields := []contracts.Field{
				log.Field().String("port", event.Port.Name),
				log.Field().Uint8("cmd", d.Command),
				log.Field().Uint8("channel", d.Channel),
				log.Field().String("type", d.MessageType.String()),
			}
			if d.HasNote() {
				fields = append(fields, log.Field().Uint8("note", *d.Note))
			}
			if d.HasVelocity() {
				fields = append(fields, log.Field().Uint8("velocity", *d.Velocity))
			}
			log.Info("MIDI Event", fields...)
		}
	}()

	client.StartCapture(eventChannel)

	fmt.Println("Capturing MIDI events... Press Ctrl+C to exit.")
	select {} // Run indefinitely
}
