package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"unsafe"

	ffmpeg "github.com/csnewman/ffmpeg-go"
)

// avTimeBase is FFmpeg's AV_TIME_BASE, the unit of AVFormatContext duration
const avTimeBase = 1_000_000

// FFmpegDecoder implements AudioDecoder with libavformat/libavcodec for
// containers the pure Go decoders do not cover (OGG, Opus, M4A, AAC, ...).
type FFmpegDecoder struct {
	formatCtx   *ffmpeg.AVFormatContext
	codecCtx    *ffmpeg.AVCodecContext
	streamIndex int
	packet      *ffmpeg.AVPacket
	frame       *ffmpeg.AVFrame
	sampleRate  int
	channels    int
	numSamples  int64
	draining    bool

	// Decoded mono samples not yet returned
	pending []float64
}

// NewFFmpegDecoder opens the first audio stream in filename
func NewFFmpegDecoder(filename string) (*FFmpegDecoder, error) {
	d := &FFmpegDecoder{streamIndex: -1}

	path := ffmpeg.ToCStr(filename)
	defer path.Free()

	ret, err := ffmpeg.AVFormatOpenInput(&d.formatCtx, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	if ret < 0 {
		return nil, fmt.Errorf("failed to open audio file: error code %d", ret)
	}

	if err := d.openStream(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *FFmpegDecoder) openStream() error {
	ret, err := ffmpeg.AVFormatFindStreamInfo(d.formatCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to find stream info: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to find stream info: error code %d", ret)
	}

	streams := d.formatCtx.Streams()
	for i := uintptr(0); i < uintptr(d.formatCtx.NbStreams()); i++ {
		if streams.Get(i).Codecpar().CodecType() == ffmpeg.AVMediaTypeAudio {
			d.streamIndex = int(i)
			break
		}
	}
	if d.streamIndex < 0 {
		return errors.New("no audio stream found in file")
	}
	stream := streams.Get(uintptr(d.streamIndex))

	decoder := ffmpeg.AVCodecFindDecoder(stream.Codecpar().CodecId())
	if decoder == nil {
		return fmt.Errorf("audio decoder not found for codec ID %d", stream.Codecpar().CodecId())
	}

	d.codecCtx = ffmpeg.AVCodecAllocContext3(decoder)
	if d.codecCtx == nil {
		return errors.New("failed to allocate codec context")
	}

	ret, err = ffmpeg.AVCodecParametersToContext(d.codecCtx, stream.Codecpar())
	if err != nil {
		return fmt.Errorf("failed to copy codec parameters: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to copy codec parameters: error code %d", ret)
	}

	ret, err = ffmpeg.AVCodecOpen2(d.codecCtx, decoder, nil)
	if err != nil {
		return fmt.Errorf("failed to open codec: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to open codec: error code %d", ret)
	}

	d.sampleRate = d.codecCtx.SampleRate()
	d.channels = d.codecCtx.ChLayout().NbChannels()
	if d.channels <= 0 {
		return fmt.Errorf("invalid channel count: %d", d.channels)
	}
	if dur := d.formatCtx.Duration(); dur > 0 {
		d.numSamples = dur * int64(d.sampleRate) / avTimeBase
	}

	d.packet = ffmpeg.AVPacketAlloc()
	d.frame = ffmpeg.AVFrameAlloc()
	if d.packet == nil || d.frame == nil {
		return errors.New("failed to allocate packet or frame")
	}
	return nil
}

// ReadChunk returns up to numSamples samples of the first channel.
// Returns io.EOF when no more samples are available.
func (d *FFmpegDecoder) ReadChunk(numSamples int) ([]float64, error) {
	for len(d.pending) < numSamples && !d.draining {
		if err := d.decodePacket(); err != nil {
			return nil, err
		}
	}

	if len(d.pending) == 0 {
		return nil, io.EOF
	}

	n := min(numSamples, len(d.pending))
	out := make([]float64, n)
	copy(out, d.pending[:n])
	d.pending = d.pending[n:]
	return out, nil
}

// decodePacket feeds one audio packet to the codec and collects its frames
func (d *FFmpegDecoder) decodePacket() error {
	_, err := ffmpeg.AVReadFrame(d.formatCtx, d.packet)
	if errors.Is(err, ffmpeg.AVErrorEOF) {
		d.draining = true
		// Flush frames the codec is still holding
		if _, err := ffmpeg.AVCodecSendPacket(d.codecCtx, nil); err != nil && !errors.Is(err, ffmpeg.AVErrorEOF) {
			return fmt.Errorf("failed to flush decoder: %w", err)
		}
		return d.receiveFrames()
	}
	if err != nil {
		return fmt.Errorf("failed to read packet: %w", err)
	}

	if d.packet.StreamIndex() != d.streamIndex {
		ffmpeg.AVPacketUnref(d.packet)
		return nil
	}

	_, err = ffmpeg.AVCodecSendPacket(d.codecCtx, d.packet)
	ffmpeg.AVPacketUnref(d.packet)
	if err != nil {
		return fmt.Errorf("failed to send packet to decoder: %w", err)
	}
	return d.receiveFrames()
}

func (d *FFmpegDecoder) receiveFrames() error {
	for {
		_, err := ffmpeg.AVCodecReceiveFrame(d.codecCtx, d.frame)
		if errors.Is(err, ffmpeg.AVErrorEOF) || errors.Is(err, ffmpeg.EAgain) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive frame: %w", err)
		}

		err = d.appendFrame()
		ffmpeg.AVFrameUnref(d.frame)
		if err != nil {
			return err
		}
	}
}

// appendFrame appends channel 0 of the current frame onto pending
func (d *FFmpegDecoder) appendFrame() error {
	n := d.frame.NbSamples()
	format := d.frame.Format()

	var bytesPerSample int
	var read func(p unsafe.Pointer) float64
	planar := false

	switch format {
	case int(ffmpeg.AVSampleFmtS16P):
		planar = true
		fallthrough
	case int(ffmpeg.AVSampleFmtS16):
		bytesPerSample = 2
		read = func(p unsafe.Pointer) float64 { return float64(*(*int16)(p)) / 32768.0 }
	case int(ffmpeg.AVSampleFmtS32P):
		planar = true
		fallthrough
	case int(ffmpeg.AVSampleFmtS32):
		bytesPerSample = 4
		read = func(p unsafe.Pointer) float64 { return float64(*(*int32)(p)) / 2147483648.0 }
	case int(ffmpeg.AVSampleFmtFltp):
		planar = true
		fallthrough
	case int(ffmpeg.AVSampleFmtFlt):
		bytesPerSample = 4
		read = func(p unsafe.Pointer) float64 { return float64(*(*float32)(p)) }
	case int(ffmpeg.AVSampleFmtDblp):
		planar = true
		fallthrough
	case int(ffmpeg.AVSampleFmtDbl):
		bytesPerSample = 8
		read = func(p unsafe.Pointer) float64 { return *(*float64)(p) }
	default:
		return fmt.Errorf("unsupported sample format: %d", format)
	}

	// Planar data keeps channel 0 in plane 0. Packed data strides over
	// every channel.
	base := unsafe.Pointer(d.frame.Data().Get(0))
	stride := bytesPerSample
	if !planar {
		stride *= d.channels
	}
	for i := 0; i < n; i++ {
		d.pending = append(d.pending, clampUnit(read(unsafe.Add(base, i*stride))))
	}
	return nil
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// SampleRate returns the audio sample rate in Hz
func (d *FFmpegDecoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples estimates the mono sample count from the container duration.
// Returns 0 if the container does not report one.
func (d *FFmpegDecoder) NumSamples() int64 {
	return d.numSamples
}

// NumChannels returns the number of channels in the source
func (d *FFmpegDecoder) NumChannels() int {
	return d.channels
}

// Close releases all FFmpeg resources
func (d *FFmpegDecoder) Close() error {
	if d.frame != nil {
		ffmpeg.AVFrameFree(&d.frame)
	}
	if d.packet != nil {
		ffmpeg.AVPacketFree(&d.packet)
	}
	if d.codecCtx != nil {
		ffmpeg.AVCodecFreeContext(&d.codecCtx)
	}
	if d.formatCtx != nil {
		ffmpeg.AVFormatCloseInput(&d.formatCtx)
	}
	return nil
}
