package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/liuscraft/frequency/internal/logging"
	"go.uber.org/zap"
)

// DefaultMaxStreamBufferBytes 流式播放时单次写入的最大缓冲区
const DefaultMaxStreamBufferBytes = 4096

var ErrTrackReleased = errors.New("track released")

// Mode 播放方式
type Mode int

const (
	// ModeStatic 预先合成整段音频，调用 Play 后一次性写入
	ModeStatic Mode = iota
	// ModeStream 创建后立即开始播放，按小块写入
	ModeStream
)

func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeStream:
		return "stream"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode 解析 "static" / "stream"，空字符串视为 static
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return ModeStatic, nil
	case "stream":
		return ModeStream, nil
	default:
		return 0, fmt.Errorf("%w: unknown playback mode %q", ErrInvalidArgument, s)
	}
}

// TrackState 播放句柄状态
type TrackState string

const (
	TrackCreated  TrackState = "created"
	TrackPlaying  TrackState = "playing"
	TrackFinished TrackState = "finished"
	TrackStopped  TrackState = "stopped"
	TrackFailed   TrackState = "failed"
	TrackReleased TrackState = "released"
)

// TrackFactory 合成正弦音并创建播放句柄
type TrackFactory struct {
	opener               SinkOpener
	maxStreamBufferBytes int
	observe              SynthesisObserver
}

// SynthesisObserver 每次合成后回调：样本数、耗时、错误
type SynthesisObserver func(samples int, elapsed time.Duration, err error)

// NewTrackFactory maxStreamBufferBytes <= 0 时使用 DefaultMaxStreamBufferBytes
func NewTrackFactory(opener SinkOpener, maxStreamBufferBytes int) *TrackFactory {
	if maxStreamBufferBytes <= 0 {
		maxStreamBufferBytes = DefaultMaxStreamBufferBytes
	}
	return &TrackFactory{
		opener:               opener,
		maxStreamBufferBytes: maxStreamBufferBytes,
	}
}

// SetObserver 设置合成回调，用于统计
func (f *TrackFactory) SetObserver(fn SynthesisObserver) {
	f.observe = fn
}

// Create 合成请求对应的音频并打开输出端
// ModeStream 会立即开始播放；ModeStatic 需要调用方再调用 Play
// ctx 取消时停止写入
func (f *TrackFactory) Create(ctx context.Context, req Request, mode Mode) (*Track, error) {
	if f.opener == nil {
		return nil, errors.New("track factory has no sink opener")
	}
	if mode != ModeStatic && mode != ModeStream {
		return nil, fmt.Errorf("%w: playback mode %v", ErrInvalidArgument, mode)
	}

	log := logging.ForTone(logging.NewToneID())
	start := time.Now()
	samples, err := Synthesize(req)
	if f.observe != nil {
		f.observe(len(samples), time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	format := SinkConfig{
		SampleRate: req.SampleRateHz,
		Channels:   req.Channels,
		BitDepth:   16,
	}
	frameBytes := format.FrameBytes()
	totalBytes := len(samples) * BytesPerSample

	chunkSamples := len(samples)
	switch mode {
	case ModeStatic:
		format.BufferSizeBytes = max(totalBytes, frameBytes)
	case ModeStream:
		bufferBytes := min(totalBytes, f.maxStreamBufferBytes) / frameBytes * frameBytes
		format.BufferSizeBytes = max(bufferBytes, frameBytes)
		chunkSamples = format.BufferSizeBytes / BytesPerSample
	}

	sink, err := f.opener.Open(format)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	trackCtx, cancel := context.WithCancel(ctx)
	t := &Track{
		mode:         mode,
		format:       format,
		samples:      samples,
		sink:         sink,
		chunkSamples: max(chunkSamples, 1),
		ctx:          trackCtx,
		cancel:       cancel,
		log:          log,
		state:        TrackCreated,
		markerFrame:  len(samples) / req.Channels,
		done:         make(chan struct{}),
	}

	log.Infof("Track: created %s track, %.1f Hz, %d frames @ %d Hz x%d, buffer %d bytes",
		mode, req.FrequencyHz, t.Frames(), format.SampleRate, format.Channels, format.BufferSizeBytes)

	if mode == ModeStream {
		if err := t.Play(); err != nil {
			_ = t.Release()
			return nil, err
		}
	}
	return t, nil
}

// Track 一段正弦音的播放句柄，生命周期由调用方负责（Release）
type Track struct {
	mode         Mode
	format       SinkConfig
	samples      []int16
	sink         PCMSink
	chunkSamples int
	ctx          context.Context
	cancel       context.CancelFunc
	log          *zap.SugaredLogger

	mu          sync.Mutex
	state       TrackState
	started     bool
	err         error
	markerFrame int
	onMarker    func()
	markerFired bool

	done        chan struct{}
	doneOnce    sync.Once
	releaseOnce sync.Once
}

func (t *Track) Mode() Mode { return t.mode }

func (t *Track) Format() SinkConfig { return t.format }

// Frames 帧数（立体声一帧两个样本）
func (t *Track) Frames() int { return len(t.samples) / t.format.Channels }

// Samples 返回样本副本
func (t *Track) Samples() []int16 {
	out := make([]int16, len(t.samples))
	copy(out, t.samples)
	return out
}

// SetNotificationMarker 写入 frame 帧后回调 fn（只回调一次）
// 默认标记位置为音频结尾
func (t *Track) SetNotificationMarker(frame int, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if frame < 0 {
		frame = 0
	}
	if frame > t.Frames() {
		frame = t.Frames()
	}
	t.markerFrame = frame
	t.onMarker = fn
	t.markerFired = false
}

// Play 开始播放；重复调用无副作用
func (t *Track) Play() error {
	t.mu.Lock()
	if t.state == TrackReleased {
		t.mu.Unlock()
		return ErrTrackReleased
	}
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.state = TrackPlaying
	t.mu.Unlock()

	if err := t.sink.Play(); err != nil {
		t.finish(TrackFailed, fmt.Errorf("sink play: %w", err))
		return err
	}
	go t.run()
	return nil
}

// Stop 中断写入并停止输出端
func (t *Track) Stop() error {
	t.cancel()

	t.mu.Lock()
	started := t.started
	released := t.state == TrackReleased
	t.mu.Unlock()
	if released {
		return nil
	}

	err := t.sink.Stop()
	if !started {
		t.finish(TrackStopped, nil)
	}
	if err != nil {
		t.log.Warnf("Track: sink stop failed: %v", err)
		return fmt.Errorf("sink stop: %w", err)
	}
	return nil
}

// Release 停止播放并释放输出端，可重复调用
func (t *Track) Release() error {
	var err error
	t.releaseOnce.Do(func() {
		_ = t.Stop()
		<-t.done

		t.mu.Lock()
		t.state = TrackReleased
		t.mu.Unlock()

		if cerr := t.sink.Close(); cerr != nil {
			err = fmt.Errorf("sink close: %w", cerr)
		}
		t.log.Debugf("Track: released")
	})
	return err
}

// Done 写入结束（完成、停止或失败）后关闭
func (t *Track) Done() <-chan struct{} { return t.done }

// State 当前状态
func (t *Track) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err 写入失败时的错误
func (t *Track) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Track) run() {
	channels := t.format.Channels
	offset := 0
	for offset < len(t.samples) {
		select {
		case <-t.ctx.Done():
			t.log.Infof("Track: playback interrupted at frame %d/%d", offset/channels, t.Frames())
			t.finish(TrackStopped, nil)
			return
		default:
		}

		end := min(offset+t.chunkSamples, len(t.samples))
		n, err := t.sink.Write(t.samples[offset:end])
		if err != nil {
			if t.ctx.Err() != nil {
				t.finish(TrackStopped, nil)
				return
			}
			t.log.Errorf("Track: sink write failed: %v", err)
			t.finish(TrackFailed, fmt.Errorf("sink write: %w", err))
			return
		}
		if n <= 0 {
			t.finish(TrackFailed, fmt.Errorf("sink write: %w", io.ErrShortWrite))
			return
		}
		offset += n / BytesPerSample
		t.checkMarker(offset / channels)
	}

	if d, ok := t.sink.(Drainer); ok {
		if err := d.Drain(t.ctx); err != nil {
			if t.ctx.Err() != nil {
				t.finish(TrackStopped, nil)
				return
			}
			t.log.Errorf("Track: sink drain failed: %v", err)
			t.finish(TrackFailed, fmt.Errorf("sink drain: %w", err))
			return
		}
	}

	t.checkMarker(t.Frames())
	t.log.Debugf("Track: wrote %d frames", t.Frames())
	t.finish(TrackFinished, nil)
}

func (t *Track) checkMarker(frames int) {
	t.mu.Lock()
	if t.markerFired || t.onMarker == nil || frames < t.markerFrame {
		t.mu.Unlock()
		return
	}
	t.markerFired = true
	fn := t.onMarker
	t.mu.Unlock()

	fn()
}

func (t *Track) finish(state TrackState, err error) {
	t.mu.Lock()
	if t.state != TrackReleased {
		t.state = state
	}
	if err != nil && t.err == nil {
		t.err = err
	}
	t.mu.Unlock()

	t.doneOnce.Do(func() { close(t.done) })
}
