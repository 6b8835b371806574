package audio

import "context"

// SinkConfig PCM 输出端的格式与缓冲区配置
type SinkConfig struct {
	SampleRate      int
	Channels        int
	BitDepth        int // 固定 16
	BufferSizeBytes int
}

// FrameBytes 一帧（所有声道各一个样本）占用的字节数
func (c SinkConfig) FrameBytes() int {
	return c.Channels * BytesPerSample
}

// PCMSink 外部播放端：接收有限长度的 16 位 PCM 并播放
// 内部缓冲、线程与硬件行为由实现决定
type PCMSink interface {
	// Write 写入按声道交错的样本，返回写入的字节数
	Write(samples []int16) (int, error)
	Play() error
	Stop() error
	Close() error
}

// SinkOpener 按配置打开一个 PCMSink
type SinkOpener interface {
	Open(cfg SinkConfig) (PCMSink, error)
}

// SinkOpenerFunc 函数形式的 SinkOpener
type SinkOpenerFunc func(cfg SinkConfig) (PCMSink, error)

func (f SinkOpenerFunc) Open(cfg SinkConfig) (PCMSink, error) {
	return f(cfg)
}

// Drainer 可选接口：等待已写入的数据全部播放完毕
type Drainer interface {
	Drain(ctx context.Context) error
}
