package audio

import "io"

// Resampler 交错 int16 PCM 的采样率转换
type Resampler interface {
	Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error)
}

// ResamplingReader 把一路 16-bit PCM 流转换到目标采样率。
// 源读出的奇数尾字节或不完整帧会保留到下一次读取。
type ResamplingReader struct {
	source     io.Reader
	resampler  Resampler
	inputRate  int
	outputRate int
	channels   int

	readBuf []byte
	carry   []byte
	pending []int16
	err     error
}

// NewResamplingReader 采样率相同时直接透传
func NewResamplingReader(source io.Reader, inputRate, outputRate, channels int, resampler Resampler) *ResamplingReader {
	if resampler == nil {
		resampler = NewLinearResampler()
	}
	if channels <= 0 {
		channels = 1
	}
	return &ResamplingReader{
		source:     source,
		resampler:  resampler,
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		readBuf:    make([]byte, 4096),
	}
}

func (r *ResamplingReader) Read(p []byte) (int, error) {
	if r.inputRate == r.outputRate {
		return r.source.Read(p)
	}

	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		nr, err := r.source.Read(r.readBuf)
		if err != nil {
			r.err = err
		}
		if nr == 0 {
			if err == nil {
				// 源暂时没有数据，不阻塞渲染
				return 0, nil
			}
			continue
		}

		data := append(r.carry, r.readBuf[:nr]...)
		frameBytes := 2 * r.channels
		usable := len(data) - len(data)%frameBytes
		samples := bytesToInt16(data[:usable])
		r.carry = append(r.carry[:0], data[usable:]...)
		if usable == 0 {
			continue
		}

		resampled, rerr := r.resampler.Resample(samples, r.inputRate, r.outputRate, r.channels)
		if rerr != nil {
			return 0, rerr
		}
		r.pending = resampled
	}

	samples := len(p) / 2
	if samples > len(r.pending) {
		samples = len(r.pending)
	}
	n := int16ToBytes(r.pending[:samples], p)
	r.pending = r.pending[samples:]
	return n, nil
}

// Close 关闭底层 Reader（如果支持）
func (r *ResamplingReader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// bytesToInt16 little endian
func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

func int16ToBytes(samples []int16, data []byte) int {
	n := 0
	for i := 0; i < len(samples) && n+1 < len(data); i++ {
		data[n] = byte(samples[i])
		data[n+1] = byte(samples[i] >> 8)
		n += 2
	}
	return n
}

// deinterleave 把交错 int16 转为 outChannels 个平面 float32 声道。
// 源为单声道时复制到所有输出声道，输出为单声道时取各声道平均。
func deinterleave(samples []int16, inChannels, outChannels int) [][]float32 {
	frames := len(samples) / inChannels
	out := make([][]float32, outChannels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		frame := samples[i*inChannels : (i+1)*inChannels]
		if outChannels == 1 && inChannels > 1 {
			var sum float32
			for _, s := range frame {
				sum += float32(s) / 32768.0
			}
			out[0][i] = sum / float32(inChannels)
			continue
		}
		for ch := 0; ch < outChannels; ch++ {
			out[ch][i] = float32(frame[ch%inChannels]) / 32768.0
		}
	}
	return out
}
