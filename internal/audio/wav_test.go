package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func encodeTestWAV(t *testing.T, pcm *PCM) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, pcm); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	return buf.Bytes()
}

func TestWAVRoundTrip(t *testing.T) {
	in := &PCM{SampleRate: 22050, Channels: 2, Samples: []int16{1, -1, 300, -300, 32767, -32768}}
	out, err := WAVDecoder{}.Decode(encodeTestWAV(t, in))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.SampleRate != in.SampleRate || out.Channels != in.Channels {
		t.Fatalf("format mismatch: %+v", out)
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Fatalf("sample %d: %d != %d", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestWAVDecodeSkipsUnknownChunks(t *testing.T) {
	data := encodeTestWAV(t, &PCM{SampleRate: 8000, Channels: 1, Samples: []int16{7, 8, 9}})
	// 在 fmt 与 data 之间插入一个奇数长度的 LIST chunk
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	patched := append(append(append([]byte{}, data[:36]...), list...), data[36:]...)
	binary.LittleEndian.PutUint32(patched[4:8], uint32(len(patched)-8))

	out, err := WAVDecoder{}.Decode(patched)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Samples) != 3 || out.Samples[2] != 9 {
		t.Fatalf("unexpected samples %v", out.Samples)
	}
}

func TestWAVDecodeTruncatedData(t *testing.T) {
	data := encodeTestWAV(t, &PCM{SampleRate: 8000, Channels: 2, Samples: []int16{1, 2, 3, 4, 5, 6}})
	// 声明 3 帧，实际只剩 2 帧加半帧
	out, err := WAVDecoder{}.Decode(data[:len(data)-2])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Samples) != 4 || out.Samples[3] != 4 {
		t.Fatalf("expected two whole frames, got %v", out.Samples)
	}
}

func TestEncodeWAVDropsPartialFrame(t *testing.T) {
	out, err := WAVDecoder{}.Decode(encodeTestWAV(t, &PCM{SampleRate: 8000, Channels: 2, Samples: []int16{1, 2, 3}}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Samples) != 2 {
		t.Fatalf("expected one frame, got %v", out.Samples)
	}
}

func TestWAVDecodeRejectsUnsupported(t *testing.T) {
	data := encodeTestWAV(t, &PCM{SampleRate: 8000, Channels: 1, Samples: []int16{1}})
	eightBit := append([]byte{}, data...)
	eightBit[34] = 8

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("definitely not audio")},
		{"8 bit", eightBit},
		{"no data chunk", data[:36]},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (WAVDecoder{}).Decode(tt.data); !errors.Is(err, ErrUnsupportedFormat) {
				t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
			}
		})
	}
}

func TestDecodeBufferConvertsToDevice(t *testing.T) {
	samples := make([]int16, 24000)
	data := encodeTestWAV(t, &PCM{SampleRate: 24000, Channels: 1, Samples: samples})

	buf, err := DecodeBuffer(WAVDecoder{}, data, DeviceConfig{SampleRate: 48000, Channels: 2}, nil)
	if err != nil {
		t.Fatalf("DecodeBuffer failed: %v", err)
	}
	if buf.SampleRate() != 48000 || buf.Channels() != 2 {
		t.Fatalf("unexpected buffer format %d Hz %d ch", buf.SampleRate(), buf.Channels())
	}
	if d := buf.Duration(); d < 0.999 || d > 1.001 {
		t.Fatalf("expected ~1s, got %v", d)
	}
}
