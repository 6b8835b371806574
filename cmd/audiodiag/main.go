package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/audio/backend"
)

func main() {
	testTone := flag.Bool("test-tone", false, "Play a short tone at each tone sample rate")
	freq := flag.Float64("freq", 1000, "Test tone frequency in Hz")
	durationMs := flag.Int("duration", 300, "Test tone duration in milliseconds")
	flag.Parse()

	fmt.Println("=== PortAudio Output Device Diagnostics ===")
	fmt.Println()

	pa, err := backend.NewPortAudio()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize PortAudio: %v\n", err)
		os.Exit(1)
	}
	defer pa.Close()

	if *testTone {
		runToneTest(pa, *freq, *durationMs)
		return
	}

	// Get host APIs
	hostAPIs, err := portaudio.HostApis()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get host APIs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d Host API(s):\n", len(hostAPIs))
	for i, api := range hostAPIs {
		fmt.Printf("  [%d] %s (devices: %d)\n", i, api.Name, len(api.Devices))
	}
	fmt.Println()

	devices, err := backend.OutputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get devices: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Output Devices (%d) ===\n\n", len(devices))

	var defaultOutput *backend.OutputDevice
	for i, dev := range devices {
		isDefault := ""
		if dev.Default {
			isDefault = " [DEFAULT OUTPUT]"
			defaultOutput = &devices[i]
		}

		// Detect if it's likely a Bluetooth device
		name := strings.ToLower(dev.Name)
		btMarker := ""
		if strings.Contains(name, "bluetooth") || strings.Contains(name, "airpods") ||
			strings.Contains(name, "buds") || strings.Contains(name, "wireless") ||
			strings.Contains(name, "headset") {
			btMarker = " 🎧 (Bluetooth?)"
		}

		fmt.Printf("[%d] %s%s%s\n", i, dev.Name, isDefault, btMarker)
		fmt.Printf("    Host API:            %s\n", dev.HostAPI)
		fmt.Printf("    Max Output Channels: %d\n", dev.MaxOutputChannels)
		fmt.Printf("    Default Sample Rate: %.0f Hz\n", dev.DefaultSampleRate)

		if dev.MaxOutputChannels < 2 {
			fmt.Printf("    ⚠️  Mono only, stereo tones will need channels: 1\n")
		}
		fmt.Println()
	}

	if defaultOutput == nil {
		fmt.Println("⚠️  No default output device, tones can only be rendered with the memory backend or to WAV.")
		return
	}

	fmt.Println("=== Recommended Config for Default Output Device ===")
	fmt.Println()
	channels := 1
	if defaultOutput.MaxOutputChannels >= 2 {
		channels = 2
	}
	fmt.Println("Add this to your config/frequency.json:")
	fmt.Println()
	fmt.Println("\"tone\": {")
	fmt.Printf("    \"sample_rate\": %d,\n", audio.StaticSampleRate)
	fmt.Printf("    \"channels\": %d\n", channels)
	fmt.Println("},")
	fmt.Println("\"playback\": {")
	fmt.Println("    \"backend\": \"oto\",")
	fmt.Printf("    \"device_sample_rate\": %.0f,\n", defaultOutput.DefaultSampleRate)
	fmt.Printf("    \"device_channels\": %d\n", channels)
	fmt.Println("}")
	fmt.Println()

	if int(defaultOutput.DefaultSampleRate) != audio.StaticSampleRate {
		fmt.Printf("⚠️  NOTE: Your device runs at %.0f Hz; tones at %d Hz rely on the host to resample.\n",
			defaultOutput.DefaultSampleRate, audio.StaticSampleRate)
		fmt.Println("   The oto config above resamples in process instead.")
	}
}

func runToneTest(pa *backend.PortAudio, freq float64, durationMs int) {
	fmt.Println("=== Tone Playback Test ===")
	fmt.Println()

	factory := audio.NewTrackFactory(pa, audio.DefaultMaxStreamBufferBytes)
	cases := []struct {
		rate int
		mode audio.Mode
	}{
		{audio.StaticSampleRate, audio.ModeStatic},
		{audio.StreamSampleRate, audio.ModeStream},
	}

	failed := 0
	for _, c := range cases {
		fmt.Printf("Playing %.0f Hz for %d ms at %d Hz (%s)... ", freq, durationMs, c.rate, c.mode)

		start := time.Now()
		track, err := factory.Create(context.Background(),
			audio.Request{FrequencyHz: freq, DurationMs: durationMs, SampleRateHz: c.rate, Channels: 1}, c.mode)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			failed++
			continue
		}
		if c.mode == audio.ModeStatic {
			if err := track.Play(); err != nil {
				fmt.Printf("❌ %v\n", err)
				_ = track.Release()
				failed++
				continue
			}
		}
		<-track.Done()
		elapsed := time.Since(start)
		if err := track.Err(); err != nil {
			fmt.Printf("❌ %v\n", err)
			failed++
		} else {
			fmt.Printf("✅ %s in %.0fms (expected ~%dms)\n", track.State(), elapsed.Seconds()*1000, durationMs)
		}
		_ = track.Release()
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Println()
	if failed > 0 {
		fmt.Println("⚠️  DIAGNOSIS: the default output device rejected some tone formats.")
		fmt.Println("   Try the oto backend or a different output device.")
	} else {
		fmt.Println("✅ Tone playback works at both sample rates!")
	}
}
