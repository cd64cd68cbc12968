//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/midiwatch/sdk/contracts"
)

// NewMIDIClient is only available on Windows.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	return nil, fmt.Errorf("%w: winmm is only available on Windows", contracts.ErrAccessUnavailable)
}
