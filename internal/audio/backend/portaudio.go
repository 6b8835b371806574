package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/logging"
)

// portAudioFramesPerBuffer 单次 stream.Write 的最大帧数
const portAudioFramesPerBuffer = 1024

// PortAudio 通过 PortAudio 默认输出设备阻塞写入 int16 PCM
type PortAudio struct {
	mu     sync.Mutex
	closed bool
}

// NewPortAudio 初始化 PortAudio，Close 时 Terminate
func NewPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudio{}, nil
}

func (p *PortAudio) Name() string { return NamePortAudio }

func (p *PortAudio) Open(cfg audio.SinkConfig) (audio.PCMSink, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.New("portaudio backend closed")
	}

	frames := portAudioFramesPerBuffer
	if bufferFrames := cfg.BufferSizeBytes / cfg.FrameBytes(); bufferFrames > 0 && bufferFrames < frames {
		frames = bufferFrames
	}
	buffer := make([]int16, frames*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(cfg.SampleRate), frames, &buffer)
	if err != nil {
		return nil, fmt.Errorf("open portaudio output stream: %w", err)
	}
	logging.Debugf("PortAudio: opened output stream %d Hz x%d, %d frames per buffer",
		cfg.SampleRate, cfg.Channels, frames)

	return &portAudioSink{
		cfg:    cfg,
		stream: stream,
		buffer: buffer,
	}, nil
}

func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

type portAudioSink struct {
	cfg    audio.SinkConfig
	stream *portaudio.Stream
	buffer []int16

	writeMu sync.Mutex
	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
}

// Write 按 stream 缓冲区大小分块阻塞写入，最后一块不足时补零
func (s *portAudioSink) Write(samples []int16) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	written := 0
	for written < len(samples) {
		if s.isStopped() {
			return written * audio.BytesPerSample, ErrSinkStopped
		}
		n := copy(s.buffer, samples[written:])
		clear(s.buffer[n:])
		if err := s.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			if s.isStopped() {
				return written * audio.BytesPerSample, ErrSinkStopped
			}
			return written * audio.BytesPerSample, fmt.Errorf("portaudio write: %w", err)
		}
		written += n
	}
	return written * audio.BytesPerSample, nil
}

func (s *portAudioSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkStopped
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start portaudio stream: %w", err)
	}
	s.started = true
	s.stopped = false
	return nil
}

// Drain Pa_StopStream 会等待设备缓冲播放完再返回
func (s *portAudioSink) Drain(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if !s.started || s.stopped || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("stop portaudio stream: %w", err)
	}
	return nil
}

// Stop 使用 Abort 立即丢弃设备缓冲，阻塞中的 Write 随之返回
func (s *portAudioSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if !s.started || s.closed {
		return nil
	}
	s.started = false
	if err := s.stream.Abort(); err != nil {
		return fmt.Errorf("abort portaudio stream: %w", err)
	}
	return nil
}

func (s *portAudioSink) Close() error {
	if err := s.Stop(); err != nil {
		logging.Warnf("PortAudio: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

func (s *portAudioSink) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.closed
}

// OutputDevice 输出设备信息
type OutputDevice struct {
	Name              string
	HostAPI           string
	MaxOutputChannels int
	DefaultSampleRate float64
	Default           bool
}

// OutputDevices 列出 PortAudio 可用的输出设备，调用前需已 Initialize
func OutputDevices() ([]OutputDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}
	var defaultName string
	if def, err := portaudio.DefaultOutputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	var out []OutputDevice
	for _, d := range devices {
		if d.MaxOutputChannels <= 0 {
			continue
		}
		hostAPI := ""
		if d.HostApi != nil {
			hostAPI = d.HostApi.Name
		}
		out = append(out, OutputDevice{
			Name:              d.Name,
			HostAPI:           hostAPI,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           d.Name == defaultName,
		})
	}
	return out, nil
}
