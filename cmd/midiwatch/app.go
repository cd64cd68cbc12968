package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/leandrodaf/midiwatch/internal/logger"
	"github.com/leandrodaf/midiwatch/sdk/contracts"
	"github.com/leandrodaf/midiwatch/sdk/midi"
	"github.com/leandrodaf/midiwatch/sdk/monitor"
	"github.com/urfave/cli/v2"
)

const accessNotice = "No access to MIDI devices or your host doesn't support MIDI input."

var (
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidPortType = errors.New("invalid port type")
	ErrInvalidCommand  = errors.New("invalid MIDI command")
)

// deps are the collaborators the commands reach for; tests swap them.
type deps struct {
	requestAccess func(opts ...contracts.Option) (contracts.ClientMIDI, error)
	newLogger     func() contracts.Logger
	signalContext func() (context.Context, context.CancelFunc)
}

func defaultDeps() deps {
	return deps{
		requestAccess: midi.RequestAccess,
		newLogger:     logger.NewStandardLogger,
		signalContext: func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		},
	}
}

func newApp(d deps) *cli.App {
	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "debug, info, warn, error",
			EnvVars: []string{"MIDIWATCH_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "write logs to this file instead of stderr",
			EnvVars: []string{"MIDIWATCH_LOG_FILE"},
		},
	}

	watchFlags := append([]cli.Flag{
		&cli.IntFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Value:   contracts.AllDevices,
			Usage:   "input device ID to listen on, -1 for all inputs",
			EnvVars: []string{"MIDIWATCH_DEVICE"},
		},
		&cli.StringSliceFlag{
			Name:    "state-ports",
			Value:   cli.NewStringSlice(string(contracts.PortInput)),
			Usage:   "port types whose connect/disconnect events are reported (input, output)",
			EnvVars: []string{"MIDIWATCH_STATE_PORTS"},
		},
		&cli.StringSliceFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "only report these message types, e.g. 0x90,0x80,0xB0",
			EnvVars: []string{"MIDIWATCH_FILTER"},
		},
		&cli.DurationFlag{
			Name:    "poll",
			Value:   time.Second,
			Usage:   "how often ports are rescanned",
			EnvVars: []string{"MIDIWATCH_POLL"},
		},
	}, commonFlags...)

	return &cli.App{
		Name:     "midiwatch",
		Usage:    "decode and log incoming MIDI messages",
		Version:  "v0.1.0",
		Compiled: time.Now().UTC(),
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "list MIDI input and output ports",
				Flags:   commonFlags,
				Action: func(cCtx *cli.Context) error {
					client, _, err := open(d, cCtx)
					if err != nil {
						return err
					}
					defer client.Stop()

					ports, err := client.ListPorts()
					if err != nil {
						return err
					}
					for _, p := range ports {
						fmt.Fprintln(cCtx.App.Writer, monitor.FormatPort(p))
					}
					return nil
				},
			},
			{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "print every MIDI message received on the inputs",
				Flags:   watchFlags,
				Action: func(cCtx *cli.Context) error {
					portTypes, err := parsePortTypes(cCtx.StringSlice("state-ports"))
					if err != nil {
						return err
					}
					client, log, err := open(d, cCtx)
					if err != nil {
						return err
					}

					m := monitor.New(client,
						monitor.WithLogger(log),
						monitor.WithDevice(cCtx.Int("device")),
						monitor.WithStatePortTypes(portTypes...),
						monitor.WithHandler(func(ev contracts.MIDI) {
							fmt.Fprintf(cCtx.App.Writer, "%s %s\n", ev.Port.Name, ev.Decoded)
						}),
					)

					ctx, cancel := d.signalContext()
					defer cancel()
					return m.Run(ctx)
				},
			},
		},
	}
}

// open builds the logger from the flags and requests MIDI access.
func open(d deps, cCtx *cli.Context) (contracts.ClientMIDI, contracts.Logger, error) {
	level, ok := contracts.ParseLogLevel(strings.ToLower(cCtx.String("log-level")))
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cCtx.String("log-level"))
	}

	log := d.newLogger()
	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
		contracts.WithLogFile(cCtx.String("log-file")),
	}
	if cCtx.IsSet("poll") {
		opts = append(opts, contracts.WithStatePollInterval(cCtx.Duration("poll")))
	}
	if values := cCtx.StringSlice("filter"); len(values) > 0 {
		commands, err := parseCommands(values)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{Commands: commands}))
	}

	client, err := d.requestAccess(opts...)
	if err != nil {
		if errors.Is(err, contracts.ErrAccessUnavailable) {
			return nil, nil, fmt.Errorf("%s %w", accessNotice, err)
		}
		return nil, nil, err
	}
	return client, log, nil
}

func parsePortTypes(values []string) ([]contracts.PortType, error) {
	var types []contracts.PortType
	for _, v := range splitList(values) {
		switch t := contracts.PortType(strings.ToLower(v)); t {
		case contracts.PortInput, contracts.PortOutput:
			types = append(types, t)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidPortType, v)
		}
	}
	return types, nil
}

// parseCommands accepts hex (0x90) or decimal (144) status bytes; the channel
// nibble is ignored.
func parseCommands(values []string) ([]contracts.MIDICommand, error) {
	var commands []contracts.MIDICommand
	for _, v := range splitList(values) {
		n, err := strconv.ParseUint(v, 0, 8)
		if err != nil || n < 0x80 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, v)
		}
		commands = append(commands, contracts.MIDICommand(n&0xF0))
	}
	return commands, nil
}

// splitList flattens comma separated values that came in through env vars.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
