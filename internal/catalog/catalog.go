// Package catalog holds the fixed preset voice roster and where each
// voice's conditioning sample is hosted.
package catalog

import (
	"sort"

	"github.com/ambiware-labs/pocketvox/internal/model"
)

var presets = map[string]string{
	"alba":    "hf://kyutai/tts-voices/alba-mackenna/casual.wav",
	"marius":  "hf://kyutai/tts-voices/voice-donations/Selfie.wav",
	"javert":  "hf://kyutai/tts-voices/voice-donations/Butter.wav",
	"jean":    "hf://kyutai/tts-voices/ears/p010/freeform_speech_01.wav",
	"fantine": "hf://kyutai/tts-voices/vctk/p244_023.wav",
	"cosette": "hf://kyutai/tts-voices/expresso/ex04-ex02_confused_001_channel1_499s.wav",
	"eponine": "hf://kyutai/tts-voices/vctk/p262_023.wav",
	"azelma":  "hf://kyutai/tts-voices/vctk/p303_023.wav",
}

// Lookup resolves a preset identifier to its sample reference.
func Lookup(id string) (model.Reference, bool) {
	uri, ok := presets[id]
	if !ok {
		return model.Reference{}, false
	}
	return model.Remote(uri), true
}

// Names returns the preset identifiers in stable order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
