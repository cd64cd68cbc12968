//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// NewMIDIClient is only available on macOS.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return nil, fmt.Errorf("%w: CoreMIDI is only available on macOS", contracts.ErrAccessUnavailable)
}
