// Package backend 提供 audio.PCMSink 的具体实现：portaudio、oto 与内存
package backend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/liuscraft/frequency/internal/audio"
)

const (
	NamePortAudio = "portaudio"
	NameOto       = "oto"
	NameMemory    = "memory"
)

// Backend 可打开 PCMSink 的播放后端，使用完毕需要 Close
type Backend interface {
	audio.SinkOpener
	Name() string
	Close() error
}

// Options 打开后端时的可选参数
type Options struct {
	Oto OtoConfig
}

// Option 修改 Options
type Option func(*Options)

// WithOtoDevice 指定 oto 设备格式，0 表示沿用第一个音轨
func WithOtoDevice(sampleRate, channels int) Option {
	return func(o *Options) {
		o.Oto = OtoConfig{SampleRate: sampleRate, Channels: channels}
	}
}

type factory func(opts Options) (Backend, error)

var registry = map[string]factory{
	NamePortAudio: func(Options) (Backend, error) { return NewPortAudio() },
	NameOto:       func(opts Options) (Backend, error) { return NewOto(opts.Oto) },
	NameMemory:    func(Options) (Backend, error) { return NewMemory(), nil },
}

// Open 按名称打开后端，名称大小写不敏感
func Open(name string, opts ...Option) (Backend, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	create, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown playback backend %q (available: %s)",
			audio.ErrInvalidArgument, name, strings.Join(Names(), ", "))
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return create(o)
}

// Names 返回已注册的后端名称
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkConfig(cfg audio.SinkConfig) error {
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("%w: sink sample rate %d", audio.ErrInvalidArgument, cfg.SampleRate)
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return fmt.Errorf("%w: sink channels %d", audio.ErrInvalidArgument, cfg.Channels)
	}
	if cfg.BitDepth != 0 && cfg.BitDepth != 16 {
		return fmt.Errorf("%w: sink bit depth %d", audio.ErrInvalidArgument, cfg.BitDepth)
	}
	return nil
}
