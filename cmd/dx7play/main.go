package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	dx7synth "github.com/cbegin/dx7synth-go"
	inteffects "github.com/cbegin/dx7synth-go/internal/effects"
	intfm "github.com/cbegin/dx7synth-go/internal/fm"
	"github.com/cbegin/dx7synth-go/internal/mididevice"
	"github.com/cbegin/dx7synth-go/internal/patchfile"
	intsysex "github.com/cbegin/dx7synth-go/internal/sysex"
)

func main() {
	var (
		note            = flag.Int("note", 60, "MIDI note number (0-127)")
		out             = flag.String("out", "output.wav", "output WAV file")
		velocity        = flag.Int("velocity", 100, "note velocity 0-127")
		duration        = flag.Float64("duration", 1.0, "render duration in seconds")
		sampleRate      = flag.Int("sample-rate", 48000, "sample rate in Hz")
		loopCycles      = flag.Int("loop-cycles", 0, "generate a perfect loop of N LFO cycles (1-16); overrides -duration")
		listMIDIDevices = flag.Bool("list-midi-devices", false, "list MIDI input/output devices and exit")
		midiDevice      = flag.Int("midi-device", -1, "MIDI output device index to send the patch to, then exit")
		channel         = flag.Int("channel", 1, "MIDI channel 1-16")
		live            = flag.Bool("live", false, "real-time MIDI play mode")
		midiInput       = flag.Int("midi-input", -1, "MIDI input device index for -live")
		patchPath       = flag.String("patch", "", "text patch file path")
		chorus          = flag.Bool("chorus", false, "apply a stereo chorus effect to -live output")
	)
	flag.Parse()

	if *listMIDIDevices {
		listDevices()
		return
	}

	if *note < 0 || *note > 127 {
		log.Fatal("note must be 0-127")
	}
	if *velocity < 0 || *velocity > 127 {
		log.Fatal("velocity must be 0-127")
	}
	if *sampleRate < 8000 || *sampleRate > 192000 {
		log.Fatal("sample rate must be 8000-192000 Hz")
	}
	if *channel < 1 || *channel > 16 {
		log.Fatal("channel must be 1-16")
	}

	if *patchPath == "" {
		log.Fatal("no patch file specified")
	}
	patch, err := patchfile.Load(*patchPath)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("loaded patch: %s\n", patch.Name)

	if *midiDevice >= 0 {
		sendPatchToDevice(patch, *midiDevice, *channel)
		return
	}

	if *live {
		runLivePlayMode(patch, *sampleRate, *channel, *midiInput, *chorus)
		return
	}

	var samples []float64
	if *loopCycles > 0 {
		if *loopCycles > 16 {
			log.Fatal("loop cycles must be 1-16")
		}
		samples = renderPerfectLoop(patch, float64(*sampleRate), *loopCycles)
	} else {
		if *duration <= 0 {
			log.Fatal("duration must be positive")
		}
		samples = dx7synth.RenderOneShotReleased(patch, *note, float64(*velocity)/127.0,
			float64(*sampleRate), *duration*0.7, *duration)
	}

	if err := dx7synth.WriteWAV(*out, samples, *sampleRate); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d samples, %.2fs)\n", *out, len(samples), float64(len(samples))/float64(*sampleRate))
}

func renderPerfectLoop(patch intfm.Patch, sampleRate float64, cycles int) []float64 {
	var voice intfm.Voice
	voice.NoteOn(&patch, 60, 0, 1.0, sampleRate, 0)

	target := patchfile.TargetSamples(&patch, sampleRate, cycles)
	maxSamples := target * 4
	return patchfile.FindZeroCrossingLoop(&voice, &patch, 0, sampleRate, target, maxSamples)
}

func listDevices() {
	fmt.Println("Output Devices (for sending patches):")
	outs := mididevice.OutputDevices()
	if len(outs) == 0 {
		fmt.Println("  none found")
	}
	for _, d := range outs {
		fmt.Printf("  [%d] %s\n", d.Index, d.Name)
	}

	fmt.Println("Input Devices (for -live mode):")
	ins := mididevice.InputDevices()
	if len(ins) == 0 {
		fmt.Println("  none found")
	}
	for _, d := range ins {
		fmt.Printf("  [%d] %s\n", d.Index, d.Name)
	}
}

func sendPatchToDevice(patch intfm.Patch, deviceIndex, channel int) {
	out, err := mididevice.OpenOutput(deviceIndex)
	if err != nil {
		log.Fatal(err)
	}
	msg, err := intsysex.Encode(&patch, channel-1)
	if err != nil {
		log.Fatal(err)
	}
	if err := out.Send(msg.Frame()); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("sent patch %q to device %d on channel %d\n", patch.Name, deviceIndex, channel)
}

func runLivePlayMode(patch intfm.Patch, sampleRate, channel, midiInputDevice int, chorus bool) {
	opts := []dx7synth.EngineOption{dx7synth.WithChannel(channel - 1)}
	if chorus {
		chain := inteffects.NewChain(inteffects.NewChorus(sampleRate, 15, 0.2, 4, 0.5, 0.5))
		opts = append(opts, dx7synth.WithEffects(chain))
	}
	engine, err := dx7synth.NewEngine(patch, float64(sampleRate), opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Shutdown()

	if midiInputDevice >= 0 {
		in, err := mididevice.OpenInput(midiInputDevice, func(bytes []byte) {
			engine.PushMIDIBytes(bytes, time.Now().UnixMicro())
		})
		if err != nil {
			log.Fatal(err)
		}
		defer in.Close()
		fmt.Printf("MIDI input device %d connected\n", midiInputDevice)
	}

	if err := engine.StartPlay(); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("real-time synthesis active: patch %q, channel %d, %d Hz\n", patch.Name, channel, sampleRate)
	fmt.Println("press Enter to stop")
	fmt.Fscanln(os.Stdin)

	if err := engine.StopPlay(); err != nil {
		log.Fatal(err)
	}
}
