package encoder

import (
	"errors"
	"fmt"

	ffmpeg "github.com/csnewman/ffmpeg-go"
)

// Config holds the encoder configuration
type Config struct {
	OutputPath string // Path to the output WebM file
	Width      int    // Video width in pixels
	Height     int    // Video height in pixels
	Framerate  int    // Frames per second
	Bitrate    int64  // Target bitrate in bits per second
	Codec      string // FFmpeg encoder name, empty to pick from the priority list
}

// Encoder wraps FFmpeg video encoding into a WebM container
type Encoder struct {
	config    Config
	codecName string

	formatCtx   *ffmpeg.AVFormatContext
	videoStream *ffmpeg.AVStream
	videoCodec  *ffmpeg.AVCodecContext

	// Reused YUV420P frame
	yuvFrame *ffmpeg.AVFrame

	nextVideoPts  int64
	headerWritten bool
}

// New creates a new encoder instance
func New(config Config) (*Encoder, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", config.Width, config.Height)
	}
	if config.Width%2 != 0 || config.Height%2 != 0 {
		return nil, fmt.Errorf("dimensions must be even for YUV420P: %dx%d", config.Width, config.Height)
	}
	if config.Framerate <= 0 {
		return nil, fmt.Errorf("invalid framerate: %d", config.Framerate)
	}
	if config.Bitrate < 0 {
		return nil, fmt.Errorf("invalid bitrate: %d", config.Bitrate)
	}
	if config.OutputPath == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	return &Encoder{config: config}, nil
}

// CodecName returns the FFmpeg encoder in use, once initialised
func (e *Encoder) CodecName() string {
	return e.codecName
}

// Initialize opens the codec, the output file and writes the container header
func (e *Encoder) Initialize() error {
	codecName, err := SelectEncoder(e.config.Codec)
	if err != nil {
		return err
	}
	e.codecName = codecName

	outputPath := ffmpeg.ToCStr(e.config.OutputPath)
	defer outputPath.Free()
	formatName := ffmpeg.ToCStr("webm")
	defer formatName.Free()

	ret, err := ffmpeg.AVFormatAllocOutputContext2(&e.formatCtx, nil, formatName, outputPath)
	if err != nil {
		return fmt.Errorf("failed to allocate output context: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to allocate output context: %d", ret)
	}

	encName := ffmpeg.ToCStr(codecName)
	defer encName.Free()
	codec := ffmpeg.AVCodecFindEncoderByName(encName)
	if codec == nil {
		return fmt.Errorf("encoder %s not found", codecName)
	}

	e.videoStream = ffmpeg.AVFormatNewStream(e.formatCtx, nil)
	if e.videoStream == nil {
		return fmt.Errorf("failed to create video stream")
	}
	e.videoStream.SetId(0)

	e.videoCodec = ffmpeg.AVCodecAllocContext3(codec)
	if e.videoCodec == nil {
		return fmt.Errorf("failed to allocate codec context")
	}

	e.videoCodec.SetWidth(e.config.Width)
	e.videoCodec.SetHeight(e.config.Height)
	e.videoCodec.SetPixFmt(ffmpeg.AVPixFmtYuv420P)

	timeBase := ffmpeg.AVMakeQ(1, e.config.Framerate)
	e.videoCodec.SetTimeBase(timeBase)
	e.videoCodec.SetFramerate(ffmpeg.AVMakeQ(e.config.Framerate, 1))
	e.videoCodec.SetGopSize(e.config.Framerate * 2) // Keyframe every 2 seconds
	if e.config.Bitrate > 0 {
		e.videoCodec.SetBitRate(e.config.Bitrate)
	}
	e.videoStream.SetTimeBase(timeBase)

	ret, err = ffmpeg.AVCodecOpen2(e.videoCodec, codec, nil)
	if err != nil {
		return fmt.Errorf("failed to open codec %s: %w", codecName, err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to open codec %s: %d", codecName, ret)
	}

	ret, err = ffmpeg.AVCodecParametersFromContext(e.videoStream.Codecpar(), e.videoCodec)
	if err != nil {
		return fmt.Errorf("failed to copy codec parameters: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to copy codec parameters: %d", ret)
	}

	e.yuvFrame = ffmpeg.AVFrameAlloc()
	if e.yuvFrame == nil {
		return fmt.Errorf("failed to allocate YUV frame")
	}
	e.yuvFrame.SetWidth(e.config.Width)
	e.yuvFrame.SetHeight(e.config.Height)
	e.yuvFrame.SetFormat(int(ffmpeg.AVPixFmtYuv420P))

	ret, err = ffmpeg.AVFrameGetBuffer(e.yuvFrame, 0)
	if err != nil {
		return fmt.Errorf("failed to allocate YUV buffer: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to allocate YUV buffer: %d", ret)
	}

	var pb *ffmpeg.AVIOContext
	ret, err = ffmpeg.AVIOOpen(&pb, outputPath, ffmpeg.AVIOFlagWrite)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to open output file: %d", ret)
	}
	e.formatCtx.SetPb(pb)

	ret, err = ffmpeg.AVFormatWriteHeader(e.formatCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to write header: %d", ret)
	}
	e.headerWritten = true

	return nil
}

// WriteFrameRGBA encodes one tightly packed RGBA frame
func (e *Encoder) WriteFrameRGBA(rgbaData []byte) error {
	if e.videoCodec == nil {
		return errors.New("encoder not initialized")
	}

	expectedSize := e.config.Width * e.config.Height * 4
	if len(rgbaData) != expectedSize {
		return fmt.Errorf("invalid RGBA frame size: got %d, expected %d", len(rgbaData), expectedSize)
	}

	// The codec may still reference the previous frame's buffers
	ret, err := ffmpeg.AVFrameMakeWritable(e.yuvFrame)
	if err != nil {
		return fmt.Errorf("failed to make frame writable: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to make frame writable: %d", ret)
	}

	convertRGBAToYUV(rgbaData, e.yuvFrame, e.config.Width, e.config.Height)

	e.yuvFrame.SetPts(e.nextVideoPts)
	e.nextVideoPts++

	ret, err = ffmpeg.AVCodecSendFrame(e.videoCodec, e.yuvFrame)
	if err != nil {
		return fmt.Errorf("failed to send frame to encoder: %w", err)
	}
	if ret < 0 {
		return fmt.Errorf("failed to send frame to encoder: %d", ret)
	}

	return e.drainPackets()
}

// drainPackets writes every packet the codec has ready
func (e *Encoder) drainPackets() error {
	for {
		pkt := ffmpeg.AVPacketAlloc()

		ret, err := ffmpeg.AVCodecReceivePacket(e.videoCodec, pkt)
		if errors.Is(err, ffmpeg.EAgain) || errors.Is(err, ffmpeg.AVErrorEOF) {
			ffmpeg.AVPacketFree(&pkt)
			return nil
		}
		if err != nil {
			ffmpeg.AVPacketFree(&pkt)
			return fmt.Errorf("failed to receive packet: %w", err)
		}
		if ret < 0 {
			ffmpeg.AVPacketFree(&pkt)
			return fmt.Errorf("failed to receive packet: %d", ret)
		}

		pkt.SetStreamIndex(e.videoStream.Index())
		ffmpeg.AVPacketRescaleTs(pkt, e.videoCodec.TimeBase(), e.videoStream.TimeBase())

		ret, err = ffmpeg.AVInterleavedWriteFrame(e.formatCtx, pkt)
		ffmpeg.AVPacketFree(&pkt)

		if err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
		if ret < 0 {
			return fmt.Errorf("failed to write packet: %d", ret)
		}
	}
}

// Close flushes the codec, writes the trailer and releases all resources
func (e *Encoder) Close() error {
	var firstErr error

	if e.videoCodec != nil && e.headerWritten {
		if _, err := ffmpeg.AVCodecSendFrame(e.videoCodec, nil); err != nil && !errors.Is(err, ffmpeg.AVErrorEOF) {
			firstErr = fmt.Errorf("failed to flush encoder: %w", err)
		} else if err := e.drainPackets(); err != nil {
			firstErr = err
		}

		if _, err := ffmpeg.AVWriteTrailer(e.formatCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to write trailer: %w", err)
		}
	}

	e.release()
	return firstErr
}

// Abort releases all resources without finishing the container
func (e *Encoder) Abort() {
	e.release()
}

func (e *Encoder) release() {
	if e.formatCtx != nil && e.formatCtx.Pb() != nil {
		ffmpeg.AVIOClose(e.formatCtx.Pb())
		e.formatCtx.SetPb(nil)
	}
	if e.yuvFrame != nil {
		ffmpeg.AVFrameFree(&e.yuvFrame)
	}
	if e.videoCodec != nil {
		ffmpeg.AVCodecFreeContext(&e.videoCodec)
	}
	if e.formatCtx != nil {
		ffmpeg.AVFormatFreeContext(e.formatCtx)
		e.formatCtx = nil
	}
	e.headerWritten = false
}
