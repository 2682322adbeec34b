// Package sysex packs and unpacks the 155-byte DX7 voice SysEx dump.
package sysex

import (
	"fmt"
	"strings"

	"github.com/cbegin/dx7synth-go/internal/fm"
)

const (
	voiceDataLen = 155
	opBytes      = 21

	manufacturerYamaha = 0x43
	voiceFormat        = 0x00
	byteCountMSB       = 0x01
	byteCountLSB       = 0x1B // 155 decimal
)

// Message is the full 163-byte wire frame: F0 43 0S 00 01 1B <155 bytes> CS F7.
type Message struct {
	Channel   int // 0-15, packed into the sub-status byte
	VoiceData [voiceDataLen]byte
	Checksum  byte
}

// Checksum computes the DX7's 2's-complement-mod-128 checksum over the
// 155-byte voice data block.
func Checksum(data []byte) byte {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return byte((128 - (sum & 0x7F)) & 0x7F)
}

func freqRatioToCoarseFine(ratio float64) (coarse, fine byte) {
	if ratio < 1.0 {
		return 0, 0
	}
	c := int(ratio)
	if c > 31 {
		c = 31
	}
	frac := ratio - float64(c)
	f := int(frac * 99.0)
	if f > 99 {
		f = 99
	}
	return byte(c), byte(f)
}

func coarseFineToFreqRatio(coarse, fine byte) float64 {
	if coarse == 0 {
		return 0.50
	}
	return float64(coarse) + float64(fine)/99.0
}

// Encode packs a patch into a DX7 voice SysEx message for the given
// channel (0-15). Operators are stored in the DX7's reverse order
// (6,5,4,3,2,1).
func Encode(p *fm.Patch, channel int) (Message, error) {
	if channel < 0 || channel > 15 {
		return Message{}, fmt.Errorf("sysex: channel %d out of range 0-15", channel)
	}

	var m Message
	m.Channel = channel

	for op := 0; op < fm.NumOperators; op++ {
		dx7Op := 5 - op
		base := op * opBytes
		o := &p.Operators[dx7Op]

		m.VoiceData[base+0] = byte(o.EnvRates[fm.EnvAttack])
		m.VoiceData[base+1] = byte(o.EnvRates[fm.EnvDecay1])
		m.VoiceData[base+2] = byte(o.EnvRates[fm.EnvDecay2])
		m.VoiceData[base+3] = byte(o.EnvRates[fm.EnvRelease])

		m.VoiceData[base+4] = byte(o.EnvLevels[fm.EnvAttack])
		m.VoiceData[base+5] = byte(o.EnvLevels[fm.EnvDecay1])
		m.VoiceData[base+6] = byte(o.EnvLevels[fm.EnvDecay2])
		m.VoiceData[base+7] = byte(o.EnvLevels[fm.EnvRelease])

		m.VoiceData[base+8] = byte(o.KeyLevelScaleBreakPoint)
		m.VoiceData[base+9] = byte(o.KeyLevelScaleLeftDepth)
		m.VoiceData[base+10] = byte(o.KeyLevelScaleRightDepth)

		m.VoiceData[base+11] = byte(o.KeyLevelScaleLeftCurve) & 0x03
		m.VoiceData[base+12] = (byte(o.KeyLevelScaleRightCurve) & 0x03) | ((byte(o.KeyRateScaling) & 0x07) << 2)

		m.VoiceData[base+13] = (byte(o.KeyVelSens) & 0x07) << 2

		m.VoiceData[base+14] = byte(o.OutputLevel)

		coarse, fine := freqRatioToCoarseFine(o.FreqRatio)
		m.VoiceData[base+15] = (byte(o.OscSync) & 0x01) | ((coarse & 0x1F) << 1)
		m.VoiceData[base+16] = fine

		detuneDX7 := byte(o.Detune+7) & 0x0F
		m.VoiceData[base+17] = (byte(o.OscSync) & 0x01) | ((detuneDX7 & 0x0F) << 1)

		m.VoiceData[base+18] = 0
		m.VoiceData[base+19] = 0
		m.VoiceData[base+20] = 0
	}

	const globalBase = 126
	for i := 0; i < fm.EnvStages; i++ {
		m.VoiceData[globalBase+i] = byte(p.PitchEnvRates[i])
		m.VoiceData[globalBase+4+i] = byte(p.PitchEnvLevels[i])
	}

	m.VoiceData[134] = byte(p.Algorithm-1) & 0x1F
	m.VoiceData[135] = byte(p.Feedback) & 0x07

	m.VoiceData[136] = byte(p.LFOSpeed)
	m.VoiceData[137] = byte(p.LFODelay)
	m.VoiceData[138] = byte(p.LFOPMD)
	m.VoiceData[139] = byte(p.LFOAMD)
	m.VoiceData[140] = (byte(p.LFOSync) & 0x01) | ((byte(p.LFOWave) & 0x07) << 1) | ((byte(p.LFOPitchModSens) & 0x07) << 4)

	m.VoiceData[141] = byte(p.Transpose+24) & 0x3F

	name := p.Name
	for i := 0; i < 10; i++ {
		if i < len(name) {
			m.VoiceData[142+i] = name[i]
		} else {
			m.VoiceData[142+i] = ' '
		}
	}

	m.VoiceData[152] = 0x3F // all 6 operators enabled

	m.Checksum = Checksum(m.VoiceData[:])
	return m, nil
}

// Decode unpacks a DX7 voice SysEx message back into a Patch, verifying
// the checksum first. A mismatch leaves the caller's patch untouched.
func Decode(m Message) (fm.Patch, error) {
	want := Checksum(m.VoiceData[:])
	if want != m.Checksum {
		return fm.Patch{}, fmt.Errorf("sysex: checksum mismatch: got %#02x want %#02x", m.Checksum, want)
	}

	var p fm.Patch
	for op := 0; op < fm.NumOperators; op++ {
		dx7Op := 5 - op
		base := op * opBytes
		o := &p.Operators[dx7Op]

		o.EnvRates[fm.EnvAttack] = int(m.VoiceData[base+0])
		o.EnvRates[fm.EnvDecay1] = int(m.VoiceData[base+1])
		o.EnvRates[fm.EnvDecay2] = int(m.VoiceData[base+2])
		o.EnvRates[fm.EnvRelease] = int(m.VoiceData[base+3])

		o.EnvLevels[fm.EnvAttack] = int(m.VoiceData[base+4])
		o.EnvLevels[fm.EnvDecay1] = int(m.VoiceData[base+5])
		o.EnvLevels[fm.EnvDecay2] = int(m.VoiceData[base+6])
		o.EnvLevels[fm.EnvRelease] = int(m.VoiceData[base+7])

		o.KeyLevelScaleBreakPoint = int(m.VoiceData[base+8])
		o.KeyLevelScaleLeftDepth = int(m.VoiceData[base+9])
		o.KeyLevelScaleRightDepth = int(m.VoiceData[base+10])
		o.KeyLevelScaleLeftCurve = int(m.VoiceData[base+11] & 0x03)
		o.KeyLevelScaleRightCurve = int(m.VoiceData[base+12] & 0x03)
		o.KeyRateScaling = int((m.VoiceData[base+12] >> 2) & 0x07)

		o.KeyVelSens = int((m.VoiceData[base+13] >> 2) & 0x07)

		o.OutputLevel = int(m.VoiceData[base+14])

		coarse := (m.VoiceData[base+15] >> 1) & 0x1F
		fine := m.VoiceData[base+16]
		o.FreqRatio = coarseFineToFreqRatio(coarse, fine)

		o.OscSync = int(m.VoiceData[base+15] & 0x01)
		detuneDX7 := (m.VoiceData[base+17] >> 1) & 0x0F
		o.Detune = int(detuneDX7) - 7
	}

	const globalBase = 126
	for i := 0; i < fm.EnvStages; i++ {
		p.PitchEnvRates[i] = int(m.VoiceData[globalBase+i])
		p.PitchEnvLevels[i] = int(m.VoiceData[globalBase+4+i])
	}

	p.Algorithm = int(m.VoiceData[134]&0x1F) + 1
	p.Feedback = int(m.VoiceData[135] & 0x07)

	p.LFOSpeed = int(m.VoiceData[136])
	p.LFODelay = int(m.VoiceData[137])
	p.LFOPMD = int(m.VoiceData[138])
	p.LFOAMD = int(m.VoiceData[139])
	p.LFOSync = int(m.VoiceData[140] & 0x01)
	p.LFOWave = int((m.VoiceData[140] >> 1) & 0x07)
	p.LFOPitchModSens = int((m.VoiceData[140] >> 4) & 0x07)

	p.Transpose = int(m.VoiceData[141]&0x3F) - 24

	p.Name = strings.TrimRight(string(m.VoiceData[142:152]), " ")

	return p, nil
}

// Frame serializes a Message as the full on-the-wire byte sequence,
// including the F0/manufacturer/sub-status/format/byte-count header and
// the trailing checksum and F7.
func (m Message) Frame() []byte {
	out := make([]byte, 0, 6+voiceDataLen+2)
	out = append(out, 0xF0, manufacturerYamaha, byte(m.Channel)&0x0F, voiceFormat, byteCountMSB, byteCountLSB)
	out = append(out, m.VoiceData[:]...)
	out = append(out, m.Checksum, 0xF7)
	return out
}

// ParseFrame is the inverse of Frame: it validates the header bytes and
// length before extracting the voice data and checksum.
func ParseFrame(frame []byte) (Message, error) {
	const total = 6 + voiceDataLen + 2
	if len(frame) != total {
		return Message{}, fmt.Errorf("sysex: expected %d bytes, got %d", total, len(frame))
	}
	if frame[0] != 0xF0 || frame[1] != manufacturerYamaha || frame[3] != voiceFormat ||
		frame[4] != byteCountMSB || frame[5] != byteCountLSB || frame[total-1] != 0xF7 {
		return Message{}, fmt.Errorf("sysex: malformed DX7 voice dump header")
	}

	var m Message
	m.Channel = int(frame[2] & 0x0F)
	copy(m.VoiceData[:], frame[6:6+voiceDataLen])
	m.Checksum = frame[total-2]
	return m, nil
}
