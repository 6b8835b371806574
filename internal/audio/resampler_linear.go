package audio

import (
	"fmt"
	"math"
)

// LinearResampler 线性插值重采样器
// 简单、快速、无依赖；高频可能失真，用于播放设备采样率不一致的场景
type LinearResampler struct{}

// NewLinearResampler 创建线性插值重采样器
func NewLinearResampler() *LinearResampler {
	return &LinearResampler{}
}

// Resample 使用线性插值进行重采样
// 算法：
//
//	ratio = inputRate / outputRate
//	position = outputIndex * ratio
//	i = floor(position)
//	frac = position - i
//	output[outputIndex] = input[i] * (1 - frac) + input[i+1] * frac
func (r *LinearResampler) Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate input=%d output=%d", ErrInvalidArgument, inputRate, outputRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channels %d", ErrInvalidArgument, channels)
	}
	if len(input) == 0 {
		return []int16{}, nil
	}

	if inputRate == outputRate {
		result := make([]int16, len(input))
		copy(result, input)
		return result, nil
	}

	inputFrames := len(input) / channels
	if inputFrames == 0 {
		return []int16{}, nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	// ceil(inputFrames * outputRate / inputRate)，整数运算避免浮点误差
	outputFrames := int((int64(inputFrames)*int64(outputRate) + int64(inputRate) - 1) / int64(inputRate))
	output := make([]int16, outputFrames*channels)

	for outFrame := 0; outFrame < outputFrames; outFrame++ {
		position := float64(outFrame) * ratio
		inFrame := int(position)
		frac := position - float64(inFrame)

		if inFrame >= inputFrames-1 {
			inFrame = inputFrames - 1
			frac = 0
		}

		for ch := 0; ch < channels; ch++ {
			idx1 := inFrame*channels + ch
			idx2 := idx1
			if inFrame+1 < inputFrames {
				idx2 = (inFrame+1)*channels + ch
			}

			interpolated := float64(input[idx1])*(1.0-frac) + float64(input[idx2])*frac
			if interpolated > math.MaxInt16 {
				interpolated = math.MaxInt16
			} else if interpolated < math.MinInt16 {
				interpolated = math.MinInt16
			}
			output[outFrame*channels+ch] = int16(math.Round(interpolated))
		}
	}

	return output, nil
}
