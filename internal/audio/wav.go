package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/youpy/go-wav"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

const wavFormatExtensible = 0xFFFE

// PCM 交错的 16-bit 样本
type PCM struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// Decoder 把一条音轨的原始字节解码为 PCM
type Decoder interface {
	Decode(data []byte) (*PCM, error)
}

// WAVDecoder 支持 RIFF/WAVE 16-bit PCM（含 WAVE_FORMAT_EXTENSIBLE）
type WAVDecoder struct{}

func (WAVDecoder) Decode(data []byte) (pcm *PCM, err error) {
	if len(data) < 12 || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedFormat)
	}
	// go-riff 遇到截断的 chunk 头会 panic
	defer func() {
		if r := recover(); r != nil {
			pcm, err = nil, fmt.Errorf("%w: truncated riff: %v", ErrUnsupportedFormat, r)
		}
	}()

	r := wav.NewReader(bytes.NewReader(data))
	format, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if format.AudioFormat != wav.AudioFormatPCM && format.AudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, format.BitsPerSample)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero channels or sample rate", ErrUnsupportedFormat)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	// data 长度可能含对齐字节或不完整的帧
	channels := int(format.NumChannels)
	frameBytes := 2 * channels
	payload = payload[:len(payload)-len(payload)%frameBytes]

	return &PCM{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
		Samples:    bytesToInt16(payload),
	}, nil
}

// EncodeWAV 写出 16-bit PCM WAV，末尾不完整的帧被丢弃
func EncodeWAV(w io.Writer, pcm *PCM) error {
	if pcm.Channels <= 0 || pcm.SampleRate <= 0 {
		return fmt.Errorf("invalid pcm: %d Hz, %d ch", pcm.SampleRate, pcm.Channels)
	}
	frames := len(pcm.Samples) / pcm.Channels
	ww := wav.NewWriter(w, uint32(frames), uint16(pcm.Channels), uint32(pcm.SampleRate), 16)
	if err := binary.Write(ww, binary.LittleEndian, pcm.Samples[:frames*pcm.Channels]); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// DecodeBuffer 解码并转换到输出设备的采样率和声道数
func DecodeBuffer(dec Decoder, data []byte, device DeviceConfig, resampler Resampler) (*Buffer, error) {
	if dec == nil {
		dec = WAVDecoder{}
	}
	if resampler == nil {
		resampler = NewLinearResampler()
	}
	pcm, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(pcm.Samples) < pcm.Channels {
		return nil, fmt.Errorf("%w: empty audio", ErrUnsupportedFormat)
	}

	samples := pcm.Samples
	rate := pcm.SampleRate
	if device.SampleRate > 0 && device.SampleRate != pcm.SampleRate {
		samples, err = resampler.Resample(samples, pcm.SampleRate, device.SampleRate, pcm.Channels)
		if err != nil {
			return nil, fmt.Errorf("resample: %w", err)
		}
		rate = device.SampleRate
	}

	channels := device.Channels
	if channels <= 0 {
		channels = pcm.Channels
	}
	return NewBuffer(rate, deinterleave(samples, pcm.Channels, channels))
}
