package encoder

import (
	"fmt"
	"os"
	"strings"

	ffmpeg "github.com/csnewman/ffmpeg-go"
	"github.com/linuxmatters/beatreel/internal/config"
)

// CodecInfo describes a WebM-compatible encoder and whether it can be opened
type CodecInfo struct {
	Name        string // FFmpeg encoder name (e.g., "libvpx-vp9")
	Description string
	Available   bool
}

// encoderSpec is an entry in the WebM encoder priority list
type encoderSpec struct {
	name string
	desc string
}

// webmEncoderPriority is the preference order for WebM video.
// VP9 first, then VP8 and AV1 which WebM also carries.
var webmEncoderPriority = []encoderSpec{
	{"libvpx-vp9", "VP9 (libvpx)"},
	{"libvpx", "VP8 (libvpx)"},
	{"libaom-av1", "AV1 (libaom)"},
	{"libsvtav1", "AV1 (SVT-AV1)"},
}

// suppressProbeLogging silences FFmpeg while encoders are probed and returns
// a function restoring the previous level
func suppressProbeLogging() func() {
	oldLevel, _ := ffmpeg.AVLogGetLevel()
	ffmpeg.AVLogSetLevel(ffmpeg.AVLogQuiet)

	oldLibvaLevel, hadLibva := os.LookupEnv("LIBVA_MESSAGING_LEVEL")
	os.Setenv("LIBVA_MESSAGING_LEVEL", "0")

	return func() {
		ffmpeg.AVLogSetLevel(oldLevel)
		if hadLibva {
			os.Setenv("LIBVA_MESSAGING_LEVEL", oldLibvaLevel)
		} else {
			os.Unsetenv("LIBVA_MESSAGING_LEVEL")
		}
	}
}

// testEncoderAvailable tries to configure and open the named encoder at the
// output geometry. Finding the encoder is not enough: builds can list an
// encoder whose library fails to initialise.
func testEncoderAvailable(encoderName string) bool {
	restoreLogging := suppressProbeLogging()
	defer restoreLogging()

	encName := ffmpeg.ToCStr(encoderName)
	defer encName.Free()
	codec := ffmpeg.AVCodecFindEncoderByName(encName)
	if codec == nil {
		return false
	}

	codecCtx := ffmpeg.AVCodecAllocContext3(codec)
	if codecCtx == nil {
		return false
	}
	defer ffmpeg.AVCodecFreeContext(&codecCtx)

	codecCtx.SetWidth(config.Width)
	codecCtx.SetHeight(config.Height)
	codecCtx.SetPixFmt(ffmpeg.AVPixFmtYuv420P)
	codecCtx.SetTimeBase(ffmpeg.AVMakeQ(1, config.FPS))
	codecCtx.SetFramerate(ffmpeg.AVMakeQ(config.FPS, 1))

	ret, _ := ffmpeg.AVCodecOpen2(codecCtx, codec, nil)
	return ret >= 0
}

// DetectEncoders probes every encoder in the priority list, in order
func DetectEncoders() []CodecInfo {
	encoders := make([]CodecInfo, 0, len(webmEncoderPriority))
	for _, spec := range webmEncoderPriority {
		encoders = append(encoders, CodecInfo{
			Name:        spec.name,
			Description: spec.desc,
			Available:   testEncoderAvailable(spec.name),
		})
	}
	return encoders
}

// SelectEncoder returns preferred if it can be opened, or the first usable
// encoder from the priority list when preferred is empty
func SelectEncoder(preferred string) (string, error) {
	if preferred != "" {
		if testEncoderAvailable(preferred) {
			return preferred, nil
		}
		return "", fmt.Errorf("requested encoder %q is not available", preferred)
	}

	for _, spec := range webmEncoderPriority {
		if testEncoderAvailable(spec.name) {
			return spec.name, nil
		}
	}
	return "", fmt.Errorf("no WebM video encoder available (tried %s)", priorityNames())
}

func priorityNames() string {
	names := make([]string, len(webmEncoderPriority))
	for i, spec := range webmEncoderPriority {
		names[i] = spec.name
	}
	return strings.Join(names, ", ")
}

// GetEncoderStatus returns a human-readable status of all WebM encoders
func GetEncoderStatus() string {
	var sb strings.Builder
	sb.WriteString("WebM Encoder Status:\n")

	for _, enc := range DetectEncoders() {
		status := "not available"
		if enc.Available {
			status = "available"
		}
		sb.WriteString("  ")
		sb.WriteString(enc.Description)
		sb.WriteString(" (")
		sb.WriteString(enc.Name)
		sb.WriteString("): ")
		sb.WriteString(status)
		sb.WriteString("\n")
	}

	return sb.String()
}
