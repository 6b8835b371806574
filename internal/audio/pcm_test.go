package audio

import (
	"bytes"
	"errors"
	"slices"
	"testing"
)

func TestEncodeLittleEndian16_ByteOrder(t *testing.T) {
	got := EncodeLittleEndian16([]int16{0x0102, -1, -32767, 32767, 0})
	want := []byte{
		0x02, 0x01,
		0xFF, 0xFF,
		0x01, 0x80,
		0xFF, 0x7F,
		0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % x, got % x", want, got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tone, err := Synthesize(Request{FrequencyHz: 440, DurationMs: 50, SampleRateHz: 44100, Channels: 2})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	buffers := [][]int16{
		{},
		{-32768, -100, 0, 100, 32767},
		tone,
	}
	for _, buf := range buffers {
		encoded := EncodeLittleEndian16(buf)
		if len(encoded) != 2*len(buf) {
			t.Fatalf("expected %d bytes, got %d", 2*len(buf), len(encoded))
		}
		decoded, err := DecodeLittleEndian16(encoded)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !slices.Equal(decoded, buf) {
			t.Fatalf("round trip mismatch for %d samples", len(buf))
		}
	}
}

func TestDecodeLittleEndian16_OddLength(t *testing.T) {
	if _, err := DecodeLittleEndian16([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
