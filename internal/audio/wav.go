package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const wavHeaderSize = 44

var ErrNotWAV = errors.New("not a PCM16 WAV stream")

type wavHeader struct {
	ChunkID       [4]byte
	FileSize      uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// WAV 解码后的 16 位 PCM 音频
type WAV struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// WriteWAV 写入标准 44 字节头的 16 位 PCM WAV
func WriteWAV(w io.Writer, samples []int16, sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("%w: wav sample rate %d, channels %d", ErrInvalidArgument, sampleRate, channels)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			ErrInvalidArgument, len(samples), channels)
	}

	// 头部字段都是 uint32
	if uint64(sampleRate)*uint64(channels)*BytesPerSample > math.MaxUint32 {
		return fmt.Errorf("%w: wav byte rate for %d Hz x%d overflows the header", ErrInvalidArgument, sampleRate, channels)
	}
	dataSize := len(samples) * BytesPerSample
	if uint64(dataSize) > math.MaxUint32-(wavHeaderSize-8) {
		return fmt.Errorf("%w: %d bytes of PCM exceed the wav size limit", ErrAllocation, dataSize)
	}
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      uint32(wavHeaderSize - 8 + dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * BytesPerSample,
		BlockAlign:    uint16(channels * BytesPerSample),
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(EncodeLittleEndian16(samples)); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// ReadWAV 读取 WriteWAV 写出的格式（canonical 头，PCM16）
func ReadWAV(r io.Reader) (*WAV, error) {
	var header wavHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, ErrNotWAV
	}
	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, fmt.Errorf("%w: unexpected chunk layout", ErrNotWAV)
	}
	if header.AudioFormat != 1 || header.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: format %d, %d bits", ErrNotWAV, header.AudioFormat, header.BitsPerSample)
	}

	if uint64(header.Subchunk2Size) > MaxBufferSamples*BytesPerSample {
		return nil, fmt.Errorf("%w: wav data chunk of %d bytes", ErrAllocation, header.Subchunk2Size)
	}
	data := make([]byte, header.Subchunk2Size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read wav data: %w", err)
	}
	samples, err := DecodeLittleEndian16(data)
	if err != nil {
		return nil, err
	}
	return &WAV{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
		Samples:    samples,
	}, nil
}
