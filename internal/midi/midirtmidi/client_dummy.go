//go:build !rtmidi
// +build !rtmidi

package midirtmidi

import (
	"fmt"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// NewMIDIClient reports that the RtMidi driver was left out of this build.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return nil, fmt.Errorf("%w: RtMidi driver is not included in this build (build with -tags rtmidi)", contracts.ErrAccessUnavailable)
}
