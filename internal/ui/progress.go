package ui

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/beatreel/internal/cli"
)

// Phase represents the current processing phase
type Phase int

const (
	PhaseAnalysis Phase = iota
	PhaseRendering
	PhaseComplete
	PhaseFailed
	PhaseCancelled
)

// AnalysisComplete carries the analysis summary shown while rendering
type AnalysisComplete struct {
	Tempo        string
	Template     string
	Peaks        int
	Duration     time.Duration // Length of the source audio
	TrimStart    float64
	TrimEnd      float64
	TotalFrames  int
	Images       int
	ImagesNeeded int
	Spectrum     []float64
	AnalysisTime time.Duration
}

// RenderProgress is a progress update from the encode pipeline
type RenderProgress struct {
	Percent     float64
	Status      string
	Frame       int
	TotalFrames int
	Elapsed     time.Duration
	FrameData   *image.RGBA // Optional preview frame
}

// RenderComplete signals a finished encode
type RenderComplete struct {
	OutputFile     string
	ThumbnailFile  string
	FileSize       int64
	TotalFrames    int
	Duration       time.Duration
	DecodeFailures int
	EncoderName    string
	TotalTime      time.Duration
}

// RenderFailed signals an encode that ended without an artifact
type RenderFailed struct {
	Err       error
	Cancelled bool
}

// progressQuitMsg is sent when it's time to quit after showing the outcome
type progressQuitMsg struct{}

// Model is the Bubbletea model for analysis and rendering
type Model struct {
	progressBar progress.Model
	phase       Phase

	analysis *AnalysisComplete
	render   RenderProgress
	complete *RenderComplete
	failure  *RenderFailed

	startTime time.Time

	cancel     context.CancelFunc
	cancelling bool

	width           int
	noPreview       bool
	cachedPreview   string
	cachedFrameNum  int
	completionDelay time.Duration
}

// NewModel creates a progress model. cancel is called on ctrl+c.
func NewModel(noPreview bool, cancel context.CancelFunc) *Model {
	p := progress.New(
		progress.WithGradient(string(cli.PulseViolet), string(cli.PulsePink)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &Model{
		progressBar:     p,
		phase:           PhaseAnalysis,
		startTime:       time.Now(),
		cancel:          cancel,
		noPreview:       noPreview,
		cachedFrameNum:  -1,
		completionDelay: 2 * time.Second,
	}
}

// Phase returns the current phase
func (m *Model) Phase() Phase {
	return m.phase
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(min(msg.Width-30, 50), 10)
		return m, nil

	case AnalysisComplete:
		m.analysis = &msg
		m.phase = PhaseRendering
		m.render.TotalFrames = msg.TotalFrames
		return m, nil

	case RenderProgress:
		if m.phase != PhaseRendering {
			return m, nil
		}
		m.render = msg
		return m, nil

	case RenderComplete:
		m.complete = &msg
		m.phase = PhaseComplete
		return m, m.quitAfterDelay()

	case RenderFailed:
		m.failure = &msg
		if msg.Cancelled {
			m.phase = PhaseCancelled
		} else {
			m.phase = PhaseFailed
		}
		return m, m.quitAfterDelay()

	case progressQuitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.finished() {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" {
			if m.cancelling || m.cancel == nil {
				return m, tea.Quit
			}
			m.cancelling = true
			m.cancel()
		}
	}

	return m, nil
}

func (m *Model) finished() bool {
	return m.phase == PhaseComplete || m.phase == PhaseFailed || m.phase == PhaseCancelled
}

func (m *Model) quitAfterDelay() tea.Cmd {
	return tea.Tick(m.completionDelay, func(time.Time) tea.Msg {
		return progressQuitMsg{}
	})
}

// View renders the UI
func (m *Model) View() string {
	switch m.phase {
	case PhaseComplete:
		return m.renderComplete()
	case PhaseFailed, PhaseCancelled:
		return m.renderFailure()
	default:
		return m.renderProgress()
	}
}

// Summary returns the final outcome for printing after the program exits,
// or an empty string while work is in progress
func (m *Model) Summary() string {
	if !m.finished() {
		return ""
	}
	return m.View()
}

func (m *Model) title() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PulsePink).
		Render(cli.Title)
}

func (m *Model) renderProgress() string {
	var s strings.Builder

	s.WriteString(m.title())
	s.WriteString("\n")

	phaseLabel := "Analysing audio"
	if m.phase == PhaseRendering {
		phaseLabel = "Rendering & encoding"
	}
	if m.cancelling {
		phaseLabel = "Cancelling..."
	}
	s.WriteString(lipgloss.NewStyle().Foreground(cli.PulseViolet).Render(phaseLabel))
	s.WriteString("\n\n")

	if m.phase == PhaseAnalysis {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Detecting beats..."))
		s.WriteString("\n")
	} else {
		m.renderRenderingProgress(&s)
	}

	s.WriteString("\n")
	m.renderAnalysis(&s)

	if m.phase == PhaseRendering && !m.noPreview {
		if m.render.FrameData != nil && m.render.Frame != m.cachedFrameNum {
			m.cachedPreview = RenderPreview(DownsampleFrame(m.render.FrameData, DefaultPreviewConfig()))
			m.cachedFrameNum = m.render.Frame
		}
		if m.cachedPreview != "" {
			s.WriteString("\n\n")
			s.WriteString(m.cachedPreview)
		}
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.PulseViolet).
		Padding(1, 2).
		Render(s.String())
}

func (m *Model) renderRenderingProgress(s *strings.Builder) {
	if m.render.TotalFrames == 0 {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Starting render..."))
		s.WriteString("\n")
		return
	}

	ratio := m.render.Percent / 100
	s.WriteString("Progress: ")
	s.WriteString(m.progressBar.ViewAs(ratio))
	s.WriteString(fmt.Sprintf("  %d%%", int(m.render.Percent)))
	s.WriteString("\n\n")

	elapsed := m.render.Elapsed
	var eta time.Duration
	var speed float64
	if ratio > 0 {
		eta = time.Duration(float64(elapsed)/ratio) - elapsed
	}
	if elapsed > 0 {
		encoded := time.Duration(m.render.Frame) * time.Second / 30
		speed = float64(encoded) / float64(elapsed)
	}

	s.WriteString(lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("Time: %s  │  Speed: %.1fx realtime  │  ETA: %s",
			formatDuration(elapsed), speed, formatDuration(eta))))
	s.WriteString("\n")

	status := m.render.Status
	if status == "" {
		status = fmt.Sprintf("Frame %d of %d", m.render.Frame, m.render.TotalFrames)
	}
	s.WriteString(lipgloss.NewStyle().Faint(true).Italic(true).Render(status))
	s.WriteString("\n")
}

func (m *Model) renderAnalysis(s *strings.Builder) {
	labelStyle := lipgloss.NewStyle().Faint(true)
	headerStyle := lipgloss.NewStyle().Faint(true).Bold(true)

	s.WriteString(headerStyle.Render("Beat"))
	s.WriteString(" │ ")

	a := m.analysis
	if a == nil {
		s.WriteString(lipgloss.NewStyle().Faint(true).Italic(true).Render("Analysing..."))
		return
	}

	fmt.Fprintf(s, "%s  %s %d  %s %s  %s %.1fs-%.1fs",
		a.Tempo,
		labelStyle.Render("Peaks:"), a.Peaks,
		labelStyle.Render("Layout:"), a.Template,
		labelStyle.Render("Window:"), a.TrimStart, a.TrimEnd)

	if a.Images < a.ImagesNeeded {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Foreground(cli.PulseAmber).Render(
			fmt.Sprintf("%d of %d slots filled", a.Images, a.ImagesNeeded)))
	}

	if len(a.Spectrum) > 0 {
		s.WriteString("\n\n")
		width := 64
		if m.width > 10 {
			width = min(m.width-10, 64)
		}
		s.WriteString(renderSpectrum(a.Spectrum, width))
	}
}

func (m *Model) renderComplete() string {
	var s strings.Builder

	s.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PulseCyan).
		Render("✓ Reel complete!"))
	s.WriteString("\n\n")

	dimLabel := lipgloss.NewStyle().Faint(true)
	c := m.complete

	fmt.Fprintf(&s, "%s%s\n", dimLabel.Render("Output:    "), c.OutputFile)
	if c.ThumbnailFile != "" {
		fmt.Fprintf(&s, "%s%s\n", dimLabel.Render("Poster:    "), c.ThumbnailFile)
	}
	if c.EncoderName != "" {
		fmt.Fprintf(&s, "%s%s\n", dimLabel.Render("Encoder:   "), c.EncoderName)
	}
	fmt.Fprintf(&s, "%s%d frames, %.1fs\n", dimLabel.Render("Video:     "), c.TotalFrames, c.Duration.Seconds())
	if m.analysis != nil {
		fmt.Fprintf(&s, "%s%s, %s layout\n", dimLabel.Render("Beat:      "), m.analysis.Tempo, m.analysis.Template)
	}
	fmt.Fprintf(&s, "%s%s\n", dimLabel.Render("Size:      "), formatBytes(c.FileSize))
	fmt.Fprintf(&s, "%s%s", dimLabel.Render("Time:      "), formatDuration(c.TotalTime))

	if c.DecodeFailures > 0 {
		s.WriteString("\n\n")
		s.WriteString(lipgloss.NewStyle().Foreground(cli.PulseAmber).Render(
			fmt.Sprintf("%d image(s) could not be decoded; their slots were left empty", c.DecodeFailures)))
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.PulseCyan).
		Padding(1, 2).
		Render(s.String()) + "\n"
}

func (m *Model) renderFailure() string {
	var s strings.Builder

	if m.phase == PhaseCancelled {
		s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.PulseAmber).Render("Cancelled"))
		s.WriteString("\n\n")
		fmt.Fprintf(&s, "Stopped after %d of %d frames; no video was written.", m.render.Frame, m.render.TotalFrames)
	} else {
		s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.PulsePink).Render("✗ Encoding failed"))
		s.WriteString("\n\n")
		if m.failure != nil && m.failure.Err != nil {
			s.WriteString(m.failure.Err.Error())
		}
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.PulsePink).
		Padding(1, 2).
		Render(s.String()) + "\n"
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return cli.FormatDuration(d)
}

func formatBytes(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	return cli.FormatBytes(bytes)
}

// renderSpectrum draws bar heights as a two-row block chart, coloured from
// violet (quiet) to amber (loud)
func renderSpectrum(barHeights []float64, width int) string {
	if len(barHeights) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	colors := []lipgloss.Color{
		cli.PulseViolet,
		lipgloss.Color("#B0279F"),
		cli.PulsePink,
		lipgloss.Color("#FF6B5A"),
		cli.PulseAmber,
	}

	stride := max(len(barHeights)/width, 1)

	maxHeight := 0.0
	for _, h := range barHeights {
		maxHeight = max(maxHeight, h)
	}
	if maxHeight == 0 {
		maxHeight = 1.0
	}

	heights := make([]float64, 0, width)
	for i := 0; i < len(barHeights) && len(heights) < width; i += stride {
		heights = append(heights, barHeights[i]/maxHeight)
	}

	colourFor := func(h float64) lipgloss.Color {
		idx := min(int(h*float64(len(colors)-1)), len(colors)-1)
		return colors[max(idx, 0)]
	}
	blockFor := func(portion float64) rune {
		idx := min(int(portion*float64(len(blocks)-1)), len(blocks)-1)
		return blocks[max(idx, 0)]
	}

	var top, bottom strings.Builder
	for _, h := range heights {
		style := lipgloss.NewStyle().Foreground(colourFor(h))
		if h > 0.5 {
			top.WriteString(style.Render(string(blockFor((h - 0.5) * 2))))
			bottom.WriteString(style.Render(string(blocks[len(blocks)-1])))
		} else {
			top.WriteString(" ")
			bottom.WriteString(style.Render(string(blockFor(h * 2))))
		}
	}

	return top.String() + "\n" + bottom.String()
}
