package server

import (
	"fmt"

	"github.com/ambiware-labs/pocketvox/internal/wyoming"
)

var kyutaiAttribution = wyoming.Attribution{
	Name: "Kyutai",
	URL:  "https://kyutai.org/",
}

// BuildInfo assembles the static describe response: one TTS program entry
// advertising the voices known at startup. It is computed once; voices
// resolved on demand later are not re-advertised for the process lifetime.
func BuildInfo(version string, voices []string) wyoming.Event {
	ttsVoices := make([]wyoming.TTSVoice, 0, len(voices))
	for _, voice := range voices {
		ttsVoices = append(ttsVoices, wyoming.TTSVoice{
			Name:        voice,
			Description: fmt.Sprintf("Pocket TTS voice: %s", voice),
			Attribution: kyutaiAttribution,
			Installed:   true,
			Languages:   []string{"en"},
		})
	}

	return wyoming.NewInfo(wyoming.Info{
		TTS: []wyoming.TTSProgram{
			{
				Name:        "pocket-tts",
				Description: "Pocket TTS - Fast CPU-based TTS with voice cloning",
				Attribution: kyutaiAttribution,
				Installed:   true,
				Version:     version,
				Voices:      ttsVoices,
			},
		},
	})
}
