// Package mididevice wires real MIDI hardware/driver device enumeration,
// input listening, and SysEx sending, using gitlab.com/gomidi/midi/v2.
// The synthesis engine itself never touches a device; this package is the
// platform collaborator that feeds raw bytes into it and carries patch
// dumps out of it.
package mididevice

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// DeviceInfo describes one enumerated MIDI port.
type DeviceInfo struct {
	Index int
	Name  string
}

// InputDevices lists available MIDI input ports.
func InputDevices() []DeviceInfo {
	ports := midi.GetInPorts()
	out := make([]DeviceInfo, len(ports))
	for i, p := range ports {
		out[i] = DeviceInfo{Index: i, Name: p.String()}
	}
	return out
}

// OutputDevices lists available MIDI output ports.
func OutputDevices() []DeviceInfo {
	ports := midi.GetOutPorts()
	out := make([]DeviceInfo, len(ports))
	for i, p := range ports {
		out[i] = DeviceInfo{Index: i, Name: p.String()}
	}
	return out
}

// Input listens on the input port at index and forwards every raw MIDI byte
// sequence to onBytes, until Close is called. It hands raw bytes to the
// caller's own parser (internal/midi.Parser) rather than decoding here.
type Input struct {
	stop func()
}

// OpenInput starts listening on the input port at index, calling onBytes
// with the raw bytes of every incoming message (including SysEx blocks).
func OpenInput(index int, onBytes func([]byte)) (*Input, error) {
	ports := midi.GetInPorts()
	if index < 0 || index >= len(ports) {
		return nil, fmt.Errorf("mididevice: input index %d out of range (0-%d)", index, len(ports)-1)
	}
	stop, err := midi.ListenTo(ports[index], func(msg midi.Message, timestampms int32) {
		onBytes([]byte(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("mididevice: listen: %w", err)
	}
	return &Input{stop: stop}, nil
}

// Close stops listening.
func (in *Input) Close() {
	if in.stop != nil {
		in.stop()
	}
}

// Output wraps an opened output port for sending raw byte messages
// (in particular, DX7 voice SysEx dumps from internal/sysex).
type Output struct {
	send func(midi.Message) error
}

// OpenOutput opens the output port at index for sending.
func OpenOutput(index int) (*Output, error) {
	ports := midi.GetOutPorts()
	if index < 0 || index >= len(ports) {
		return nil, fmt.Errorf("mididevice: output index %d out of range (0-%d)", index, len(ports)-1)
	}
	send, err := midi.SendTo(ports[index])
	if err != nil {
		return nil, fmt.Errorf("mididevice: open output: %w", err)
	}
	return &Output{send: send}, nil
}

// Send transmits a raw byte sequence (e.g. a SysEx frame from
// internal/sysex.Message.Frame) verbatim.
func (o *Output) Send(raw []byte) error {
	return o.send(midi.Message(raw))
}
