package catalog

import (
	"strings"
	"testing"

	"github.com/ambiware-labs/pocketvox/internal/model"
)

func TestLookupPreset(t *testing.T) {
	ref, ok := Lookup("alba")
	if !ok {
		t.Fatal("expected alba in the preset roster")
	}
	if ref.Kind != model.RefRemote {
		t.Fatalf("expected remote reference, got kind %d", ref.Kind)
	}
	if !strings.HasPrefix(ref.Location, "hf://kyutai/tts-voices/") {
		t.Fatalf("unexpected sample location: %s", ref.Location)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("valjean"); ok {
		t.Fatal("expected lookup miss for non-preset identifier")
	}
	// Identifiers are case-sensitive.
	if _, ok := Lookup("Alba"); ok {
		t.Fatal("expected lookup miss for wrong-case identifier")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 8 {
		t.Fatalf("expected 8 presets, got %d: %v", len(names), names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("expected sorted names, got %v", names)
		}
	}
	for _, want := range []string{"alba", "marius", "javert", "jean", "fantine", "cosette", "eponine", "azelma"} {
		if _, ok := Lookup(want); !ok {
			t.Fatalf("expected preset %q present", want)
		}
	}
}
