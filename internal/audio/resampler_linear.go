package audio

import (
	"fmt"
	"math"
)

// LinearResampler 线性插值重采样，音质一般但足够用于预听
type LinearResampler struct{}

func NewLinearResampler() *LinearResampler {
	return &LinearResampler{}
}

// Resample 输出帧 k 对应输入位置 k*inputRate/outputRate，在相邻两帧之间线性插值
func (r *LinearResampler) Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: input=%d, output=%d", inputRate, outputRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channels: %d", channels)
	}

	inputFrames := len(input) / channels
	if inputFrames == 0 {
		return []int16{}, nil
	}
	if inputRate == outputRate {
		return append([]int16(nil), input[:inputFrames*channels]...), nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputFrames := int(math.Ceil(float64(inputFrames) / ratio))
	output := make([]int16, outputFrames*channels)
	last := inputFrames - 1

	for k := 0; k < outputFrames; k++ {
		pos := float64(k) * ratio
		i := int(pos)
		frac := pos - float64(i)
		if i >= last {
			i, frac = last, 0
		}
		next := i + 1
		if next > last {
			next = last
		}
		for ch := 0; ch < channels; ch++ {
			a := float64(input[i*channels+ch])
			b := float64(input[next*channels+ch])
			output[k*channels+ch] = clampInt16(a + (b-a)*frac)
		}
	}
	return output, nil
}

func clampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
