package audio

import "fmt"

// BytesPerSample 16 位 PCM 每个样本占用的字节数
const BytesPerSample = 2

// EncodeLittleEndian16 将 int16 样本编码为小端字节序（低字节在前）
func EncodeLittleEndian16(samples []int16) []byte {
	data := make([]byte, len(samples)*BytesPerSample)
	int16ToBytes(samples, data)
	return data
}

// DecodeLittleEndian16 EncodeLittleEndian16 的逆操作，字节数必须为偶数
func DecodeLittleEndian16(data []byte) ([]int16, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd PCM byte count %d", ErrInvalidArgument, len(data))
	}
	return bytesToInt16(data), nil
}

// bytesToInt16 将 byte 数组转换为 int16 数组 (Little Endian)
func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// int16ToBytes 将 int16 数组转换为 byte 数组 (Little Endian)
func int16ToBytes(samples []int16, data []byte) int {
	n := 0
	for i := 0; i < len(samples) && n+1 < len(data); i++ {
		data[n] = byte(samples[i] & 0xFF)
		data[n+1] = byte((samples[i] >> 8) & 0xFF)
		n += 2
	}
	return n
}
