package midi

import (
	"testing"

	"github.com/cbegin/dx7synth-go/internal/fm"
)

func newTestDispatcher() *Dispatcher {
	e := fm.New(fm.DefaultPatch(), 48000)
	return NewDispatcher(e, 0)
}

func TestDispatcherNoteOnOffAllocatesAndReleases(t *testing.T) {
	d := newTestDispatcher()
	d.Dispatch(Message{Kind: KindChannel, Status: NoteOn, Data1: 60, Data2: 100})
	if d.Engine.ActiveVoiceCount() != 1 {
		t.Fatalf("expected 1 active voice after note-on")
	}
	if d.NotesPlayed != 1 {
		t.Fatalf("expected NotesPlayed=1, got %d", d.NotesPlayed)
	}

	d.Dispatch(Message{Kind: KindChannel, Status: NoteOff, Data1: 60, Data2: 0})
	v := d.Engine.Pool.Find(60, 0)
	if v == nil {
		t.Fatalf("voice should still exist while releasing")
	}
	if v.Operators[0].Env.Stage != fm.StageRelease {
		t.Fatalf("expected release stage after note-off")
	}
}

func TestDispatcherIgnoresOtherChannels(t *testing.T) {
	d := newTestDispatcher() // bound to channel 0
	d.Dispatch(Message{Kind: KindChannel, Status: NoteOn | 0x01, Data1: 60, Data2: 100})
	if d.Engine.ActiveVoiceCount() != 0 {
		t.Fatalf("expected channel-1 note-on to be ignored by a channel-0 dispatcher")
	}
}

func TestDispatcherSustainPedalDefersRelease(t *testing.T) {
	d := newTestDispatcher()
	d.Dispatch(Message{Kind: KindChannel, Status: ControlChange, Data1: CCSustainPedal, Data2: 127})
	d.Dispatch(Message{Kind: KindChannel, Status: NoteOn, Data1: 60, Data2: 100})
	d.Dispatch(Message{Kind: KindChannel, Status: NoteOff, Data1: 60, Data2: 0})

	v := d.Engine.Pool.Find(60, 0)
	if v == nil || !v.SustainHeld {
		t.Fatalf("expected note to be marked sustain-held, not released")
	}
	if v.Operators[0].Env.Stage == fm.StageRelease {
		t.Fatalf("note should not enter release while sustain pedal is held")
	}

	d.Dispatch(Message{Kind: KindChannel, Status: ControlChange, Data1: CCSustainPedal, Data2: 0})
	if v.Operators[0].Env.Stage != fm.StageRelease {
		t.Fatalf("expected release once sustain pedal lifted")
	}
}

func TestDispatcherModWheelAndPitchBend(t *testing.T) {
	d := newTestDispatcher()
	d.Dispatch(Message{Kind: KindChannel, Status: ControlChange, Data1: CCModWheel, Data2: 127})
	if d.Controllers.ModWheel < 0.99 {
		t.Fatalf("expected mod wheel near 1.0, got %v", d.Controllers.ModWheel)
	}

	d.Dispatch(Message{Kind: KindChannel, Status: PitchBend, Data1: 0x00, Data2: 0x40})
	if d.Controllers.PitchBend != 0 {
		t.Fatalf("expected centered pitch bend, got %v", d.Controllers.PitchBend)
	}

	d.Dispatch(Message{Kind: KindChannel, Status: PitchBend, Data1: 0x7F, Data2: 0x7F})
	if d.Controllers.PitchBend <= 0.99 {
		t.Fatalf("expected near-full-up pitch bend, got %v", d.Controllers.PitchBend)
	}
}

func TestDispatcherSysExPassthrough(t *testing.T) {
	d := newTestDispatcher()
	payload := []byte{0x43, 0x00, 0x09}
	sysex, isSysEx := d.Dispatch(Message{Kind: KindSysEx, SysEx: payload})
	if !isSysEx {
		t.Fatalf("expected SysEx message to be reported as such")
	}
	if len(sysex) != 3 {
		t.Fatalf("expected the raw SysEx bytes to pass through unmodified")
	}
}
