package audio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/ansel1/merry/v2"
	"github.com/orsinium-labs/enum"
)

var (
	ErrDecode           = merry.Sentinel("audio source could not be decoded")
	ErrUnsupportedDepth = merry.Sentinel("unsupported output bit depth")
)

// BitDepth is the output sample width of a rendered mix.
type BitDepth enum.Member[int]

var (
	Depth16   = BitDepth{Value: 16}
	Depth32   = BitDepth{Value: 32}
	BitDepths = enum.New(Depth16, Depth32)
)

// Clip is decoded audio: interleaved normalized samples in [-1,1].
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// Frames is the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration is the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// DecodeWAV parses an uncompressed PCM WAV payload. Anything else (wrong
// magic, compressed format codes, truncated chunks) is ErrDecode.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, merry.Wrap(ErrDecode, merry.AppendMessage("not a RIFF/WAVE payload"))
	}

	var (
		format        uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
		haveFmt       bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, merry.Wrap(ErrDecode, merry.AppendMessagef("truncated %q chunk", chunkID))
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, merry.Wrap(ErrDecode, merry.AppendMessage("short fmt chunk"))
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt || pcm == nil {
		return nil, merry.Wrap(ErrDecode, merry.AppendMessage("missing fmt or data chunk"))
	}
	if format != 1 {
		return nil, merry.Wrap(ErrDecode, merry.AppendMessagef("unsupported format code %d", format))
	}
	if channels < 1 || channels > 2 {
		return nil, merry.Wrap(ErrDecode, merry.AppendMessagef("unsupported channel count %d", channels))
	}
	if sampleRate <= 0 {
		return nil, merry.Wrap(ErrDecode, merry.AppendMessage("invalid sample rate"))
	}

	clip := &Clip{SampleRate: sampleRate, Channels: channels}
	switch bitsPerSample {
	case 16:
		count := len(pcm) / 2
		clip.Samples = make([]float64, count)
		for i := 0; i < count; i++ {
			v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
			clip.Samples[i] = float64(v) / 32768
		}
	case 32:
		count := len(pcm) / 4
		clip.Samples = make([]float64, count)
		for i := 0; i < count; i++ {
			v := int32(binary.LittleEndian.Uint32(pcm[i*4 : i*4+4]))
			clip.Samples[i] = float64(v) / 2147483648
		}
	default:
		return nil, merry.Wrap(ErrDecode, merry.AppendMessagef("unsupported bit depth %d", bitsPerSample))
	}

	return clip, nil
}

// EncodeWAV writes interleaved normalized samples as a canonical PCM WAV
// stream. Samples are clamped to the integer range once, here.
func EncodeWAV(w io.Writer, samples []float64, sampleRate, channels int, depth BitDepth) error {
	if BitDepths.Parse(depth.Value) == nil {
		return merry.Wrap(ErrUnsupportedDepth, merry.AppendMessagef("%d", depth.Value))
	}
	bytesPerSample := depth.Value / 8
	dataSize := len(samples) * bytesPerSample
	blockAlign := channels * bytesPerSample

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(depth.Value))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return err
	}

	buf := make([]byte, len(samples)*bytesPerSample)
	switch depth {
	case Depth32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(clampInt32(s)))
		}
	default:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(clampInt16(s)))
		}
	}
	_, err := w.Write(buf)
	return err
}

// The scale matches the decoder's divisor so decode→encode reproduces the
// original sample words exactly; full-scale positive clamps by one step.
func clampInt16(v float64) int16 {
	scaled := math.Round(v * 32768)
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}

func clampInt32(v float64) int32 {
	scaled := math.Round(v * 2147483648)
	if scaled > 2147483647 {
		return 2147483647
	}
	if scaled < -2147483648 {
		return -2147483648
	}
	return int32(scaled)
}
