package audio

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"testing/iotest"
)

func TestLinearResampler_SameRate(t *testing.T) {
	resampler := NewLinearResampler()
	input := []int16{100, 200, 300, 400, 500}

	output, err := resampler.Resample(input, 16000, 16000, 1)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(output) != len(input) {
		t.Fatalf("Expected length %d, got %d", len(input), len(output))
	}
	for i := range input {
		if output[i] != input[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, input[i], output[i])
		}
	}
}

func TestLinearResampler_Lengths(t *testing.T) {
	tests := []struct {
		name       string
		frames     int
		inputRate  int
		outputRate int
	}{
		{"5k to 44.1k", 500, StreamSampleRate, StaticSampleRate},
		{"44.1k to 5k", 4410, StaticSampleRate, StreamSampleRate},
		{"16k to 24k", 100, 16000, 24000},
		{"48k to 16k", 300, 48000, 16000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := make([]int16, tt.frames)
			for i := range input {
				input[i] = int16(i)
			}
			output, err := NewLinearResampler().Resample(input, tt.inputRate, tt.outputRate, 1)
			if err != nil {
				t.Fatalf("Resample failed: %v", err)
			}
			expected := int(math.Ceil(float64(tt.frames) * float64(tt.outputRate) / float64(tt.inputRate)))
			if len(output) != expected {
				t.Errorf("Expected length %d, got %d", expected, len(output))
			}
			if output[0] != input[0] {
				t.Errorf("First sample mismatch: expected %d, got %d", input[0], output[0])
			}
		})
	}
}

func TestLinearResampler_StereoKeepsChannelsEqual(t *testing.T) {
	input, err := Synthesize(Request{FrequencyHz: 440, DurationMs: 50, SampleRateHz: StreamSampleRate, Channels: 2})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	output, err := NewLinearResampler().Resample(input, StreamSampleRate, StaticSampleRate, 2)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(output)%2 != 0 {
		t.Fatalf("Stereo output should have even number of samples, got %d", len(output))
	}
	for i := 0; i < len(output); i += 2 {
		if output[i] != output[i+1] {
			t.Fatalf("frame %d: channels diverged (%d, %d)", i/2, output[i], output[i+1])
		}
	}
}

func TestLinearResampler_EmptyInput(t *testing.T) {
	output, err := NewLinearResampler().Resample([]int16{}, 16000, 24000, 1)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(output) != 0 {
		t.Errorf("Expected empty output, got %d samples", len(output))
	}
}

func TestLinearResampler_InvalidRate(t *testing.T) {
	input := []int16{100, 200, 300}

	tests := []struct {
		name       string
		inputRate  int
		outputRate int
		channels   int
	}{
		{"zero input rate", 0, 16000, 1},
		{"zero output rate", 16000, 0, 1},
		{"negative input rate", -16000, 16000, 1},
		{"zero channels", 16000, 16000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLinearResampler().Resample(input, tt.inputRate, tt.outputRate, tt.channels)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument for %s, got %v", tt.name, err)
			}
		})
	}
}

func TestResamplingReader_PassThrough(t *testing.T) {
	input := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	reader := NewResamplingReader(bytes.NewReader(input), 16000, 16000, 1, nil)

	output := make([]byte, len(input))
	n, err := io.ReadFull(reader, output)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(input) || !bytes.Equal(input, output) {
		t.Errorf("Output mismatch: expected %v, got %v", input, output)
	}
}

func TestResamplingReader_Resample(t *testing.T) {
	input := make([]int16, 1000)
	for i := range input {
		input[i] = int16(i)
	}
	inputBytes := EncodeLittleEndian16(input)

	reader := NewResamplingReader(bytes.NewReader(inputBytes), 16000, 24000, 1, NewLinearResampler())

	totalRead := 0
	buffer := make([]byte, 256)
	for {
		n, err := reader.Read(buffer)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	expectedBytes := int(math.Ceil(float64(len(inputBytes)) * 24000.0 / 16000.0))
	if totalRead != expectedBytes {
		t.Errorf("Expected to read %d bytes total, got %d", expectedBytes, totalRead)
	}
}

func TestResamplingReader_CarriesPartialFrames(t *testing.T) {
	input, err := Synthesize(Request{FrequencyHz: 440, DurationMs: 10, SampleRateHz: 16000, Channels: 2})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	source := iotest.OneByteReader(bytes.NewReader(EncodeLittleEndian16(input)))
	reader := NewResamplingReader(source, 16000, 24000, 2, nil)

	out, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(out)%4 != 0 {
		t.Fatalf("expected whole stereo frames, got %d bytes", len(out))
	}
	samples, _ := DecodeLittleEndian16(out)
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("frame %d: channels diverged", i/2)
		}
	}
}

func TestResamplingReader_ShortBuffer(t *testing.T) {
	reader := NewResamplingReader(bytes.NewReader([]byte{1, 2}), 16000, 24000, 1, nil)
	if _, err := reader.Read(make([]byte, 1)); !errors.Is(err, io.ErrShortBuffer) {
		t.Fatalf("expected io.ErrShortBuffer, got %v", err)
	}
}

func BenchmarkResamplingReader(b *testing.B) {
	input := make([]int16, 1600)
	for i := range input {
		input[i] = int16(i)
	}
	inputBytes := EncodeLittleEndian16(input)
	buffer := make([]byte, 512)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader := NewResamplingReader(bytes.NewReader(inputBytes), 16000, 24000, 1, nil)
		for {
			if _, err := reader.Read(buffer); err == io.EOF {
				break
			}
		}
	}
}
