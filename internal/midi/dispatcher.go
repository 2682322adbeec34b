package midi

import "github.com/cbegin/dx7synth-go/internal/fm"

// Dispatcher applies decoded channel messages to a synthesis engine and
// keeps the live controller state. SysEx payloads are not applied here —
// the caller decodes them with internal/sysex and calls Engine.SetPatch.
type Dispatcher struct {
	Engine      *fm.Engine
	Controllers Controllers
	Channel     int // 0-15, the only channel this dispatcher responds to

	NotesPlayed uint32
}

// NewDispatcher builds a Dispatcher bound to one engine and channel.
func NewDispatcher(engine *fm.Engine, channel int) *Dispatcher {
	return &Dispatcher{
		Engine:      engine,
		Controllers: DefaultControllers(),
		Channel:     channel & 0x0F,
	}
}

// Dispatch routes one parsed message. Channel messages on a channel other
// than d.Channel are dropped; there is no omni mode. Reports true if the
// message was a complete SysEx block, leaving the bytes for the caller to
// decode.
func (d *Dispatcher) Dispatch(msg Message) (sysex []byte, isSysEx bool) {
	if msg.Kind == KindSysEx {
		return msg.SysEx, true
	}
	if msg.Channel() != d.Channel {
		return nil, false
	}

	switch msg.Type() {
	case NoteOn:
		if msg.Data2 > 0 {
			d.noteOn(msg.Data1, msg.Data2)
		} else {
			d.noteOff(msg.Data1)
		}
	case NoteOff:
		d.noteOff(msg.Data1)
	case ControlChange:
		d.controlChange(msg.Data1, msg.Data2)
	case PitchBend:
		bend14 := uint16(msg.Data1) | uint16(msg.Data2)<<7
		d.pitchBend(bend14)
	case ProgramChange:
		// Program change is deliberately a stub: loading patch banks
		// by program number lives outside this engine.
	case ChannelPressure:
		// Parsed and dropped: the pressure value is neither stored in
		// Controllers nor applied to any voice.
	}
	return nil, false
}

func (d *Dispatcher) noteOn(note, velocity byte) {
	if note > 127 || velocity == 0 {
		return
	}
	d.Engine.NoteOn(int(note), d.Channel, float64(velocity)/127.0)
	d.NotesPlayed++
}

func (d *Dispatcher) noteOff(note byte) {
	d.Engine.NoteOff(int(note), d.Channel, d.Controllers.SustainPedal)
}

func (d *Dispatcher) controlChange(controller, value byte) {
	if controller < 128 {
		d.Controllers.CC[controller] = midiToFloat(value)
	}

	switch controller {
	case CCModWheel:
		d.Controllers.ModWheel = midiToFloat(value)
	case CCBreath:
		d.Controllers.Breath = midiToFloat(value)
	case CCFoot:
		d.Controllers.Foot = midiToFloat(value)
	case CCVolume:
		d.Controllers.Volume = midiToFloat(value)
	case CCExpression:
		d.Controllers.Expression = midiToFloat(value)
	case CCPan:
		d.Controllers.Pan = midiToBipolar(value)
	case CCSustainPedal:
		d.Controllers.SustainPedal = value >= 64
		if !d.Controllers.SustainPedal {
			d.Engine.SustainRelease()
		}
	case CCPortamento:
		d.Controllers.Portamento = value >= 64
	case CCAllSoundOff, CCAllNotesOff:
		d.Engine.AllNotesOff()
	case CCAllControllersOff:
		d.Controllers = DefaultControllers()
	}
}

func (d *Dispatcher) pitchBend(bend14 uint16) {
	d.Controllers.PitchBend = (float64(bend14) - 8192.0) / 8192.0
}
