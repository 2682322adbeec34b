package dx7synth

import (
	"testing"

	intfm "github.com/cbegin/dx7synth-go/internal/fm"
)

func TestNewEngineRejectsBadSampleRate(t *testing.T) {
	if _, err := NewEngine(intfm.DefaultPatch(), 1000); err == nil {
		t.Fatalf("expected an error for an out-of-range sample rate")
	}
}

func TestPushMIDIBytesNoteOnAndStats(t *testing.T) {
	e, err := NewEngine(intfm.DefaultPatch(), 48000)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.PushMIDIBytes([]byte{0x90, 0x3C, 0x64}, 0)

	stats := e.ReadStats()
	if stats.ActiveVoices != 1 {
		t.Fatalf("expected 1 active voice, got %d", stats.ActiveVoices)
	}
	if stats.NotesPlayed != 1 {
		t.Fatalf("expected 1 note played, got %d", stats.NotesPlayed)
	}
}

func TestPushMIDIBytesOrphanDataIncrementsErrors(t *testing.T) {
	e, err := NewEngine(intfm.DefaultPatch(), 48000)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.PushMIDIBytes([]byte{0x40}, 0) // data byte with no preceding status
	if e.ReadStats().MIDIErrors != 1 {
		t.Fatalf("expected 1 MIDI error, got %d", e.ReadStats().MIDIErrors)
	}
}

func TestRenderBlockStaysWithinHalfScaleHeadroom(t *testing.T) {
	e, err := NewEngine(intfm.DefaultPatch(), 48000)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.PushMIDIBytes([]byte{0x90, 0x3C, 0x64}, 0)
	buf := make([]float64, 256)
	e.RenderBlock(buf)
	for _, s := range buf {
		if s > 0.5+1e-9 || s < -0.5-1e-9 {
			t.Fatalf("sample %v exceeds the 0.5 headroom scale", s)
		}
	}
}

func TestShutdownWithoutStartPlayIsNoOp(t *testing.T) {
	e, err := NewEngine(intfm.DefaultPatch(), 48000)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Shutdown()
	e.Shutdown() // double-shutdown must be a no-op
}

func TestSetPatchDeferredWhileNoteSounding(t *testing.T) {
	e, err := NewEngine(intfm.DefaultPatch(), 48000)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.PushMIDIBytes([]byte{0x90, 0x3C, 0x64}, 0)

	p := intfm.DefaultPatch()
	p.Algorithm = 7
	if e.SetPatch(p) {
		t.Fatalf("expected SetPatch to be deferred while a note is sounding")
	}
	if e.fm.Patch.Algorithm != 1 {
		t.Fatalf("active patch must not change under a sounding voice, got algorithm %d", e.fm.Patch.Algorithm)
	}

	// Release the note and render past its decay; the deferred swap
	// lands as soon as the pool falls silent.
	e.PushMIDIBytes([]byte{0x80, 0x3C, 0x00}, 0)
	buf := make([]float64, 48000)
	e.RenderBlock(buf)
	if e.ReadStats().ActiveVoices != 0 {
		t.Fatalf("expected the released voice to have decayed to silence")
	}
	if e.fm.Patch.Algorithm != 7 {
		t.Fatalf("expected the deferred patch to land once the pool fell silent, got algorithm %d", e.fm.Patch.Algorithm)
	}
}
