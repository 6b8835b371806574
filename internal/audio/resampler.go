package audio

import "io"

// Resampler 音频重采样器接口
// 用于在不同采样率之间转换音频数据
type Resampler interface {
	// Resample 重采样按声道交错的 int16 PCM 数据
	// channels: 声道数 (1=mono, 2=stereo)
	Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error)
}

// ResamplingReader 包装 io.Reader，自动进行重采样
// 从 source 读取原始采样率的 16 位小端 PCM，输出目标采样率的数据
type ResamplingReader struct {
	source     io.Reader
	resampler  Resampler
	inputRate  int
	outputRate int
	channels   int

	inputBuffer []byte  // 从 source 读取的原始数据
	pending     []byte  // 不足一帧的残留字节
	output      []int16 // 重采样后的样本缓冲
	outputPos   int
}

// NewResamplingReader 创建重采样 Reader
// 如果 inputRate == outputRate，则不进行重采样，直接透传
func NewResamplingReader(source io.Reader, inputRate, outputRate, channels int, resampler Resampler) *ResamplingReader {
	if resampler == nil {
		resampler = NewLinearResampler()
	}
	if channels <= 0 {
		channels = 1
	}

	return &ResamplingReader{
		source:      source,
		resampler:   resampler,
		inputRate:   inputRate,
		outputRate:  outputRate,
		channels:    channels,
		inputBuffer: make([]byte, 4096),
		output:      make([]int16, 0, 4096),
	}
}

// Read 实现 io.Reader 接口
func (r *ResamplingReader) Read(p []byte) (int, error) {
	if r.inputRate == r.outputRate {
		return r.source.Read(p)
	}
	if len(p) < BytesPerSample {
		return 0, io.ErrShortBuffer
	}

	for {
		if n := r.drain(p); n > 0 {
			return n, nil
		}

		nr, err := r.source.Read(r.inputBuffer)
		if nr > 0 {
			if rerr := r.resampleChunk(r.inputBuffer[:nr]); rerr != nil {
				return 0, rerr
			}
			if n := r.drain(p); n > 0 {
				return n, nil
			}
		}
		if err != nil {
			return 0, err
		}
	}
}

// resampleChunk 只处理完整的帧，残留字节留到下一次
func (r *ResamplingReader) resampleChunk(chunk []byte) error {
	data := append(r.pending, chunk...)
	frameBytes := r.channels * BytesPerSample
	whole := len(data) / frameBytes * frameBytes
	r.pending = append(r.pending[:0:0], data[whole:]...)
	if whole == 0 {
		return nil
	}

	resampled, err := r.resampler.Resample(bytesToInt16(data[:whole]), r.inputRate, r.outputRate, r.channels)
	if err != nil {
		return err
	}
	r.output = resampled
	r.outputPos = 0
	return nil
}

// drain 将输出缓冲区的样本复制到 p
func (r *ResamplingReader) drain(p []byte) int {
	available := len(r.output) - r.outputPos
	if available <= 0 {
		return 0
	}
	count := len(p) / BytesPerSample
	if count > available {
		count = available
	}
	n := int16ToBytes(r.output[r.outputPos:r.outputPos+count], p)
	r.outputPos += count
	return n
}

// Close 关闭底层 Reader（如果支持）
func (r *ResamplingReader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
