// nvsp-say renders an IPA string offline: to a WAV file, or straight to the
// default audio device.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"github.com/tgeczy/NVSpeechPlayer/internal/dsp"
	"github.com/tgeczy/NVSpeechPlayer/internal/frontend"
)

func main() {
	var (
		packDir    string
		lang       string
		speed      float64
		basePitch  float64
		inflection float64
		clause     string
		sampleRate int
		outPath    string
		play       bool
	)

	flag.StringVar(&packDir, "packs", "./packs", "Language pack directory")
	flag.StringVar(&lang, "lang", "en", "Language tag")
	flag.Float64Var(&speed, "speed", 1.0, "Speed multiplier")
	flag.Float64Var(&basePitch, "pitch", 100, "Base pitch in Hz")
	flag.Float64Var(&inflection, "inflection", 0.5, "Pitch inflection 0..1")
	flag.StringVar(&clause, "clause", ".", "Clause type: . ? ! ,")
	flag.IntVar(&sampleRate, "rate", 22050, "Output sample rate")
	flag.StringVar(&outPath, "o", "", "Write a WAV file instead of playing")
	flag.BoolVar(&play, "play", false, "Play through the default audio device")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ipa := strings.Join(flag.Args(), " ")
	if ipa == "" {
		sc := bufio.NewScanner(os.Stdin)
		var lines []string
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		ipa = strings.Join(lines, " ")
	}
	if strings.TrimSpace(ipa) == "" {
		fmt.Fprintln(os.Stderr, "usage: nvsp-say [flags] <ipa>")
		os.Exit(2)
	}
	if clause == "" {
		clause = "."
	}

	front := frontend.Create(packDir, logger)
	if err := front.SetLanguage(lang); err != nil {
		logger.Error("failed to load language", slog.String("error", err.Error()))
		os.Exit(1)
	}

	samples, err := render(front, ipa, speed, basePitch, inflection, clause[0], sampleRate)
	if err != nil {
		logger.Error("synthesis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if front.LastDroppedSymbols() > 0 {
		logger.Warn("dropped unknown symbols", slog.Int("count", front.LastDroppedSymbols()))
	}

	switch {
	case outPath != "":
		if err := writeWAV(outPath, samples, sampleRate); err != nil {
			logger.Error("failed to write wav", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("wrote wav", slog.String("path", outPath), slog.Int("samples", len(samples)))
	case play:
		if err := playSamples(samples, sampleRate); err != nil {
			logger.Error("playback failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		// Raw little-endian int16 to stdout, for piping into sox/aplay.
		w := bufio.NewWriter(os.Stdout)
		for _, s := range samples {
			w.WriteByte(byte(s))
			w.WriteByte(byte(s >> 8))
		}
		w.Flush()
	}
}

func render(front *frontend.Synth, ipa string, speed, basePitch, inflection float64, clause byte, sampleRate int) ([]int16, error) {
	type queued struct {
		frame  *dsp.Frame
		durMs  float64
		fadeMs float64
		index  int
	}
	var frames []queued
	var totalMs float64
	err := front.QueueIPA(ipa, speed, basePitch, inflection, clause, 0,
		func(f *dsp.Frame, durMs, fadeMs float64, userIndex int) {
			var copied *dsp.Frame
			if f != nil {
				c := *f
				copied = &c
			}
			frames = append(frames, queued{copied, durMs, fadeMs, userIndex})
			totalMs += durMs
		})
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}

	eng, err := dsp.Initialize(sampleRate, len(frames)+1)
	if err != nil {
		return nil, err
	}
	for _, qf := range frames {
		eng.QueueFrame(qf.frame, qf.durMs, qf.fadeMs, qf.index)
	}
	// Trailing silence so the last phoneme fades out.
	eng.QueueFrame(nil, 30, 10, frames[len(frames)-1].index)
	totalMs += 30

	out := make([]int16, int(totalMs*float64(sampleRate)/1000))
	eng.Synthesize(out)
	return out, nil
}

func writeWAV(path string, samples []int16, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func playSamples(samples []int16, sampleRate int) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 1024
	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer, &buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += framesPerBuffer {
		n := copy(buf, samples[off:])
		for i := n; i < framesPerBuffer; i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}
