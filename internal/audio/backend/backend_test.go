package backend

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/liuscraft/frequency/internal/audio"
)

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("alsa")
	if !errors.Is(err, audio.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestOpen_Memory(t *testing.T) {
	b, err := Open(" Memory ")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()
	if b.Name() != NameMemory {
		t.Fatalf("unexpected backend %q", b.Name())
	}
	if !slices.Contains(Names(), NameOto) || !slices.Contains(Names(), NamePortAudio) {
		t.Fatalf("registry incomplete: %v", Names())
	}
}

func TestMemory_RejectsBadConfig(t *testing.T) {
	m := NewMemory()
	for _, cfg := range []audio.SinkConfig{
		{SampleRate: 0, Channels: 1},
		{SampleRate: 44100, Channels: 3},
		{SampleRate: 44100, Channels: 1, BitDepth: 8},
	} {
		if _, err := m.Open(cfg); !errors.Is(err, audio.ErrInvalidArgument) {
			t.Fatalf("Open(%+v) expected ErrInvalidArgument, got %v", cfg, err)
		}
	}
}

func TestMemory_PlaysTrack(t *testing.T) {
	m := NewMemory()
	factory := audio.NewTrackFactory(m, 0)

	req := audio.Request{FrequencyHz: 440, DurationMs: 250, SampleRateHz: audio.StreamSampleRate, Channels: 2}
	track, err := factory.Create(context.Background(), req, audio.ModeStream)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	select {
	case <-track.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("track did not finish")
	}

	sinks := m.Sinks()
	if len(sinks) != 1 {
		t.Fatalf("expected one sink, got %d", len(sinks))
	}
	want, _ := audio.Synthesize(req)
	if !slices.Equal(sinks[0].Samples(), want) {
		t.Fatal("memory sink did not record the tone")
	}
	if !sinks[0].Playing() {
		t.Fatal("sink should be playing")
	}

	if err := track.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !sinks[0].Closed() {
		t.Fatal("sink should be closed after release")
	}
	if _, err := sinks[0].Write([]int16{1}); !errors.Is(err, ErrSinkStopped) {
		t.Fatalf("expected ErrSinkStopped after close, got %v", err)
	}
}

func TestConvertChannels(t *testing.T) {
	mono := []int16{1, -2, 32767}
	stereo := convertChannels(mono, 1, 2)
	if !slices.Equal(stereo, []int16{1, 1, -2, -2, 32767, 32767}) {
		t.Fatalf("mono to stereo: %v", stereo)
	}
	if back := convertChannels(stereo, 2, 1); !slices.Equal(back, mono) {
		t.Fatalf("stereo to mono: %v", back)
	}
	if got := convertChannels([]int16{-32767, 32767, 100, 300}, 2, 1); !slices.Equal(got, []int16{0, 200}) {
		t.Fatalf("stereo average: %v", got)
	}
}

func TestBufferedPipe(t *testing.T) {
	pipe := newBufferedPipe(4)

	done := make(chan error, 1)
	go func() {
		_, err := pipe.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
		pipe.CloseWrite()
		done <- err
	}()

	got, err := io.ReadAll(pipe)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !slices.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}) {
		t.Fatalf("unexpected data %v", got)
	}
	if err := <-done; err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestBufferedPipe_CloseUnblocksWriter(t *testing.T) {
	pipe := newBufferedPipe(2)

	done := make(chan error, 1)
	go func() {
		_, err := pipe.Write([]byte{1, 2, 3, 4})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_ = pipe.Close()

	select {
	case err := <-done:
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Fatalf("expected ErrClosedPipe, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer still blocked after Close")
	}

	if _, err := pipe.Read(make([]byte, 4)); err != io.EOF {
		t.Fatalf("expected EOF after Close, got %v", err)
	}
}

func TestOpen_OtoRejectsBadDevice(t *testing.T) {
	if _, err := Open(NameOto, WithOtoDevice(44100, 6)); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
