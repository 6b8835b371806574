package audio

import (
	"errors"
	"fmt"
	"math"
)

const (
	// AmplitudeScale 16 位有符号 PCM 的最大幅度
	AmplitudeScale = 32767

	// StaticSampleRate / StreamSampleRate 两种播放方式常用的采样率
	StaticSampleRate = 44100
	StreamSampleRate = 5000

	// MaxBufferSamples 单次合成允许的最大样本数（int16），约 256 MiB
	MaxBufferSamples = 1 << 27
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAllocation      = errors.New("buffer allocation failed")
)

// Request 一次正弦音合成请求
type Request struct {
	FrequencyHz  float64 `json:"frequency_hz"`
	DurationMs   int     `json:"duration_ms"`
	SampleRateHz int     `json:"sample_rate"`
	Channels     int     `json:"channels"`
}

// Validate 检查请求参数，失败时返回包装了 ErrInvalidArgument 的错误
func (r Request) Validate() error {
	if err := validateFormat(r.FrequencyHz, r.SampleRateHz, r.Channels); err != nil {
		return err
	}
	if r.DurationMs < 0 {
		return fmt.Errorf("%w: duration must be non-negative, got %d ms", ErrInvalidArgument, r.DurationMs)
	}
	return nil
}

// FrameCount 返回请求对应的帧数
// frameCount = floor(sampleRate * durationMs / 1000)，立体声向下取偶
func (r Request) FrameCount() int {
	if r.SampleRateHz <= 0 || r.DurationMs <= 0 {
		return 0
	}
	rate, ms := int64(r.SampleRateHz), int64(r.DurationMs)
	if ms > math.MaxInt64/rate {
		// 溢出时交给 allocate 报告 ErrAllocation
		return wholeFrames(math.MaxInt, r.Channels)
	}
	frames := rate * ms / 1000
	if frames > math.MaxInt {
		return wholeFrames(math.MaxInt, r.Channels)
	}
	return wholeFrames(int(frames), r.Channels)
}

// Synthesize 按请求合成正弦音，返回按声道交错的 int16 样本
// 纯函数：相同输入总是得到逐位相同的输出
func Synthesize(req Request) ([]int16, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return synthesize(req.FrequencyHz, req.FrameCount(), req.SampleRateHz, req.Channels)
}

// SynthesizeFrames 与 Synthesize 相同，但直接指定帧数
func SynthesizeFrames(frequencyHz float64, frameCount, sampleRateHz, channels int) ([]int16, error) {
	if err := validateFormat(frequencyHz, sampleRateHz, channels); err != nil {
		return nil, err
	}
	if frameCount < 0 {
		return nil, fmt.Errorf("%w: frame count must be non-negative, got %d", ErrInvalidArgument, frameCount)
	}
	return synthesize(frequencyHz, wholeFrames(frameCount, channels), sampleRateHz, channels)
}

// SoundData 合成单声道正弦音并编码为 16 位小端 PCM 字节
func SoundData(frequencyHz float64, sampleCount, sampleRateHz int) ([]byte, error) {
	samples, err := SynthesizeFrames(frequencyHz, sampleCount, sampleRateHz, 1)
	if err != nil {
		return nil, err
	}
	return EncodeLittleEndian16(samples), nil
}

func synthesize(frequencyHz float64, frames, sampleRateHz, channels int) ([]int16, error) {
	samples, err := allocate(frames, channels)
	if err != nil {
		return nil, err
	}

	step := 2 * math.Pi * frequencyHz / float64(sampleRateHz)
	for i := 0; i < frames; i++ {
		v := quantize(math.Sin(step * float64(i)))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	return samples, nil
}

func allocate(frames, channels int) ([]int16, error) {
	if frames > MaxBufferSamples/channels {
		return nil, fmt.Errorf("%w: %d frames x %d channels exceeds %d samples",
			ErrAllocation, frames, channels, MaxBufferSamples)
	}
	return make([]int16, frames*channels), nil
}

// quantize 将 [-1, 1] 的幅度量化为 int16，并裁剪到 ±AmplitudeScale
func quantize(x float64) int16 {
	v := math.Round(x * AmplitudeScale)
	if v > AmplitudeScale {
		v = AmplitudeScale
	} else if v < -AmplitudeScale {
		v = -AmplitudeScale
	}
	return int16(v)
}

func wholeFrames(frames, channels int) int {
	if channels == 2 {
		return frames &^ 1
	}
	return frames
}

func validateFormat(frequencyHz float64, sampleRateHz, channels int) error {
	if math.IsNaN(frequencyHz) || math.IsInf(frequencyHz, 0) || frequencyHz <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %v Hz", ErrInvalidArgument, frequencyHz)
	}
	if sampleRateHz <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d Hz", ErrInvalidArgument, sampleRateHz)
	}
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidArgument, channels)
	}
	return nil
}
