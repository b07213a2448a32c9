package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/beatreel/internal/audio"
	"github.com/linuxmatters/beatreel/internal/cli"
	"github.com/linuxmatters/beatreel/internal/config"
	"github.com/linuxmatters/beatreel/internal/encoder"
	"github.com/linuxmatters/beatreel/internal/imagesrc"
	"github.com/linuxmatters/beatreel/internal/pipeline"
	"github.com/linuxmatters/beatreel/internal/reel"
	"github.com/linuxmatters/beatreel/internal/renderer"
	"github.com/linuxmatters/beatreel/internal/ui"
	"go.uber.org/zap"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// previewEvery is how often a frame copy is sent to the terminal preview
const previewEvery = config.FPS / 2

var CLI struct {
	Audio      string   `arg:"" name:"audio" help:"Audio track (WAV, MP3 or FLAC)" optional:""`
	Images     []string `arg:"" name:"images" help:"Images to cut to the beat, in slot order" optional:""`
	Image      []string `short:"i" help:"Additional image (repeatable)" placeholder:"path"`
	Output     string   `short:"o" help:"Output WebM file" default:"reel.webm"`
	Start      float64  `help:"Trim start in seconds" default:"0"`
	End        float64  `help:"Trim end in seconds, 0 for a 60 second window" default:"0"`
	Config     string   `help:"Config file" placeholder:"path"`
	Codec      string   `help:"FFmpeg video encoder (libvpx-vp9, libvpx, libaom-av1)"`
	Bitrate    int64    `help:"Video bitrate in bits per second"`
	Background string   `help:"Background colour as hex (e.g. #101010)"`
	Thumbnail  bool     `help:"Also write a poster PNG next to the video"`
	NoPreview  bool     `help:"Disable frame preview during encoding"`
	LogFile    string   `help:"Write structured logs to this file" placeholder:"path"`
	Encoders   bool     `help:"List available WebM encoders and exit"`
	Version    bool     `help:"Show version information"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("beatreel"),
		kong.Description(cli.Tagline),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if CLI.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if CLI.Encoders {
		fmt.Print(encoder.GetEncoderStatus())
		os.Exit(0)
	}

	images := append(append([]string{}, CLI.Images...), CLI.Image...)
	if CLI.Audio == "" || len(images) == 0 {
		cli.PrintError("<audio> and at least one image are required")
		os.Exit(1)
	}
	if _, err := os.Stat(CLI.Audio); os.IsNotExist(err) {
		cli.PrintError(fmt.Sprintf("audio file does not exist: %s", CLI.Audio))
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer logger.Sync()

	if err := generateReel(cfg, logger, images); err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			cli.PrintWarning("cancelled, no output written")
			os.Exit(130)
		}
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command line overrides
func loadConfig() (*config.RuntimeConfig, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}

	if CLI.Codec != "" {
		cfg.Codec = CLI.Codec
	}
	if CLI.Bitrate < 0 {
		return nil, fmt.Errorf("invalid bitrate: %d", CLI.Bitrate)
	}
	if CLI.Bitrate > 0 {
		cfg.Bitrate = CLI.Bitrate
	}
	if CLI.Background != "" {
		if err := cfg.SetBackgroundColor(CLI.Background); err != nil {
			return nil, fmt.Errorf("--background: %w", err)
		}
	}
	if CLI.LogFile != "" {
		cfg.LogFile = CLI.LogFile
	}
	return cfg, nil
}

// newLogger writes JSON logs to the configured file. Without one, logs are
// discarded because the TUI owns the terminal.
func newLogger(cfg *config.RuntimeConfig) (*zap.SugaredLogger, error) {
	if cfg.LogFile == "" {
		return zap.NewNop().Sugar(), nil
	}

	zcfg := zap.NewProductionConfig()
	switch strings.ToLower(cfg.GetLogLevel()) {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case "warn", "warning":
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg.OutputPaths = []string{cfg.LogFile}
	zcfg.ErrorOutputPaths = []string{cfg.LogFile}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar().With("version", version), nil
}

func generateReel(cfg *config.RuntimeConfig, logger *zap.SugaredLogger, images []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(CLI.NoPreview, cancel)
	p := tea.NewProgram(model)

	done := make(chan error, 1)
	go func() {
		done <- renderReel(ctx, p, cfg, logger, images)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("running UI: %w", err)
	}

	// The UI may exit first on a forced quit
	cancel()
	runErr := <-done

	if summary := model.Summary(); summary != "" {
		fmt.Print(summary)
	}
	return runErr
}

func renderReel(ctx context.Context, p *tea.Program, cfg *config.RuntimeConfig, logger *zap.SugaredLogger, images []string) error {
	started := time.Now()

	fail := func(err error) error {
		p.Send(ui.RenderFailed{Err: err, Cancelled: errors.Is(err, pipeline.ErrCancelled)})
		return err
	}

	buf, err := audio.Load(CLI.Audio, nil)
	if err != nil {
		return fail(err)
	}

	start, end := cli.ResolveTrim(CLI.Start, CLI.End, buf.Duration())
	if start != CLI.Start || (CLI.End > 0 && end != CLI.End) {
		logger.Infow("trim window adjusted", "start", start, "end", end, "duration", buf.Duration())
	}

	job, err := reel.Prepare(reel.Request{
		Samples:   buf,
		Images:    images,
		TrimStart: start,
		TrimEnd:   end,
	}, logger)
	if err != nil {
		return fail(err)
	}

	p.Send(ui.AnalysisComplete{
		Tempo:        job.Analysis.Tempo.String(),
		Template:     job.Template.String(),
		Peaks:        len(job.Analysis.Peaks),
		Duration:     time.Duration(buf.Duration() * float64(time.Second)),
		TrimStart:    job.TrimStart,
		TrimEnd:      job.TrimEnd,
		TotalFrames:  job.Plan.Len(),
		Images:       len(job.Plan.Images()),
		ImagesNeeded: job.Requirements.ImagesNeeded,
		Spectrum:     job.Spectrum,
		AnalysisTime: time.Since(started),
	})

	r, g, b := cfg.GetBackgroundColor()
	background := color.RGBA{R: r, G: g, B: b, A: 255}

	opts := pipeline.Options{
		NewSink: func(runID string) (pipeline.FrameSink, error) {
			sink, err := encoder.NewSink(encoder.SinkConfig{
				Dir:       filepath.Dir(CLI.Output),
				Width:     config.Width,
				Height:    config.Height,
				Framerate: config.FPS,
				Bitrate:   cfg.GetBitrate(),
				Codec:     cfg.Codec,
			}, runID)
			if err != nil {
				return nil, err
			}
			return sink, nil
		},
		Images:     imagesrc.NewFileSource(),
		Background: background,
		Logger:     logger,
	}
	if !CLI.NoPreview {
		opts.PreviewEvery = previewEvery
	}

	pl, err := pipeline.New(opts)
	if err != nil {
		return fail(err)
	}

	artifact, err := pl.Encode(ctx, job.Plan, func(pr pipeline.Progress) {
		p.Send(ui.RenderProgress{
			Percent:     pr.Percent,
			Status:      pr.Status,
			Frame:       pr.Frame,
			TotalFrames: pr.Total,
			Elapsed:     pr.Elapsed,
			FrameData:   pr.Preview,
		})
	})
	if err != nil {
		return fail(err)
	}

	if err := os.WriteFile(CLI.Output, artifact.Data, 0o644); err != nil {
		return fail(fmt.Errorf("failed to write output: %w", err))
	}

	var thumbnailPath string
	if CLI.Thumbnail && job.Plan.Len() > 0 {
		thumbnailPath = strings.TrimSuffix(CLI.Output, filepath.Ext(CLI.Output)) + ".png"
		if err := writePoster(ctx, job, background, cfg, logger, thumbnailPath); err != nil {
			return fail(err)
		}
	}

	p.Send(ui.RenderComplete{
		OutputFile:     CLI.Output,
		ThumbnailFile:  thumbnailPath,
		FileSize:       int64(len(artifact.Data)),
		TotalFrames:    artifact.Frames,
		Duration:       artifact.Duration,
		DecodeFailures: len(artifact.DecodeFailures),
		EncoderName:    artifact.CodecName,
		TotalTime:      time.Since(started),
	})
	return nil
}

// writePoster renders the first frame with a tempo caption
func writePoster(ctx context.Context, job *reel.Job, background color.RGBA, cfg *config.RuntimeConfig, logger *zap.SugaredLogger, path string) error {
	first := job.Plan.At(0)

	resolver := imagesrc.NewResolver(imagesrc.NewFileSource(), logger)
	defer resolver.Release()
	imgs, err := resolver.Resolve(ctx, first.Images)
	if err != nil {
		return err
	}

	rend := renderer.New(background)
	defer rend.Release()
	frame := rend.Render(first, imgs)

	r, g, b := cfg.GetCaptionColor()
	caption := color.RGBA{R: r, G: g, B: b, A: 255}
	return renderer.GenerateThumbnail(path, frame, job.Analysis.Tempo.String(), job.Template.String(), caption)
}
