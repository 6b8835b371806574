package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/logging"
)

// oto 每个进程只能创建一个 Context
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoFormat  audio.SinkConfig
	otoInitErr error
)

const otoPollTick = 10 * time.Millisecond

// OtoConfig 设备输出格式，零值表示沿用第一个打开的 sink 的格式
type OtoConfig struct {
	SampleRate int
	Channels   int
}

// Oto 通过 ebitengine/oto 播放，采样率或声道与设备不同时自动转换
type Oto struct {
	cfg OtoConfig
}

func NewOto(cfg OtoConfig) (*Oto, error) {
	if cfg.Channels != 0 && cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("%w: oto channels %d", audio.ErrInvalidArgument, cfg.Channels)
	}
	if cfg.SampleRate < 0 {
		return nil, fmt.Errorf("%w: oto sample rate %d", audio.ErrInvalidArgument, cfg.SampleRate)
	}
	return &Oto{cfg: cfg}, nil
}

func (o *Oto) Name() string { return NameOto }

// Close oto 的 Context 无法关闭，这里什么都不做
func (o *Oto) Close() error { return nil }

func (o *Oto) Open(cfg audio.SinkConfig) (audio.PCMSink, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	device, err := o.context(cfg)
	if err != nil {
		return nil, err
	}

	pipe := newBufferedPipe(max(cfg.BufferSizeBytes, cfg.FrameBytes()) * device.Channels / cfg.Channels)
	reader := audio.NewResamplingReader(pipe, cfg.SampleRate, device.SampleRate, device.Channels, nil)
	if cfg.SampleRate != device.SampleRate || cfg.Channels != device.Channels {
		logging.Debugf("Oto: converting %d Hz x%d to device %d Hz x%d",
			cfg.SampleRate, cfg.Channels, device.SampleRate, device.Channels)
	}

	return &otoSink{
		cfg:            cfg,
		deviceChannels: device.Channels,
		pipe:           pipe,
		player:         otoContext.NewPlayer(reader),
	}, nil
}

func (o *Oto) context(first audio.SinkConfig) (audio.SinkConfig, error) {
	otoOnce.Do(func() {
		format := audio.SinkConfig{
			SampleRate: first.SampleRate,
			Channels:   first.Channels,
			BitDepth:   16,
		}
		if o.cfg.SampleRate > 0 {
			format.SampleRate = o.cfg.SampleRate
		}
		if o.cfg.Channels > 0 {
			format.Channels = o.cfg.Channels
		}

		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoInitErr = fmt.Errorf("create oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
		otoFormat = format
		logging.Infof("Oto: audio context ready, %d Hz x%d", format.SampleRate, format.Channels)
	})
	return otoFormat, otoInitErr
}

type otoSink struct {
	cfg            audio.SinkConfig
	deviceChannels int
	pipe           *bufferedPipe
	player         *oto.Player

	mu      sync.Mutex
	stopped bool
	closed  bool
}

func (s *otoSink) Write(samples []int16) (int, error) {
	converted := convertChannels(samples, s.cfg.Channels, s.deviceChannels)
	if _, err := s.pipe.Write(audio.EncodeLittleEndian16(converted)); err != nil {
		return 0, ErrSinkStopped
	}
	return len(samples) * audio.BytesPerSample, nil
}

func (s *otoSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stopped {
		return ErrSinkStopped
	}
	s.player.Play()
	return nil
}

// Drain 关闭写端，等待 player 读完管道并播放完内部缓冲
func (s *otoSink) Drain(ctx context.Context) error {
	s.pipe.CloseWrite()
	ticker := time.NewTicker(otoPollTick)
	defer ticker.Stop()
	for s.player.IsPlaying() && (s.pipe.Buffered() > 0 || s.player.BufferedSize() > 0) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return s.player.Err()
}

func (s *otoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.closed {
		return nil
	}
	s.stopped = true
	s.player.Pause()
	return s.pipe.Close()
}

func (s *otoSink) Close() error {
	_ = s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("close oto player: %w", err)
	}
	return nil
}

// convertChannels 单声道复制到双声道，双声道取平均得到单声道
func convertChannels(samples []int16, from, to int) []int16 {
	switch {
	case from == to:
		return samples
	case from == 1 && to == 2:
		out := make([]int16, len(samples)*2)
		for i, s := range samples {
			out[2*i] = s
			out[2*i+1] = s
		}
		return out
	case from == 2 && to == 1:
		out := make([]int16, len(samples)/2)
		for i := range out {
			out[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
		}
		return out
	default:
		return samples
	}
}
