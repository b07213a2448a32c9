package ui

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModel_PhaseTransitions(t *testing.T) {
	testCases := []struct {
		name  string
		msgs  []tea.Msg
		want  Phase
		quits bool
	}{
		{"starts in analysis", nil, PhaseAnalysis, false},
		{"analysis moves to rendering", []tea.Msg{AnalysisComplete{TotalFrames: 300}}, PhaseRendering, false},
		{"completes", []tea.Msg{AnalysisComplete{TotalFrames: 300}, RenderComplete{TotalFrames: 300}}, PhaseComplete, true},
		{"fails", []tea.Msg{AnalysisComplete{}, RenderFailed{Err: errors.New("boom")}}, PhaseFailed, true},
		{"cancels", []tea.Msg{AnalysisComplete{}, RenderFailed{Cancelled: true}}, PhaseCancelled, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel(true, nil)
			var cmd tea.Cmd
			for _, msg := range tc.msgs {
				_, cmd = m.Update(msg)
			}
			if m.Phase() != tc.want {
				t.Errorf("Phase() = %v, want %v", m.Phase(), tc.want)
			}
			if tc.quits && cmd == nil {
				t.Error("terminal message did not schedule a quit")
			}
			if got := m.Summary() != ""; got != tc.quits {
				t.Errorf("Summary() present = %v, want %v", got, tc.quits)
			}
		})
	}
}

func TestModel_CtrlCCancelsThenQuits(t *testing.T) {
	cancelled := 0
	m := NewModel(true, func() { cancelled++ })
	m.Update(AnalysisComplete{TotalFrames: 300})

	ctrlC := tea.KeyMsg{Type: tea.KeyCtrlC}
	if _, cmd := m.Update(ctrlC); cmd != nil {
		t.Error("first ctrl+c should cancel, not quit")
	}
	if cancelled != 1 {
		t.Errorf("cancel called %d times, want 1", cancelled)
	}
	if !strings.Contains(m.View(), "Cancelling") {
		t.Error("view does not show cancellation in progress")
	}

	if _, cmd := m.Update(ctrlC); cmd == nil {
		t.Error("second ctrl+c should quit")
	}
	if cancelled != 1 {
		t.Errorf("cancel called %d times after second ctrl+c, want 1", cancelled)
	}
}

func TestModel_RenderProgressView(t *testing.T) {
	m := NewModel(true, nil)
	m.Update(AnalysisComplete{Tempo: "128 BPM", Template: "Dynamic", TotalFrames: 300, Spectrum: []float64{0.1, 0.9, 0.4}})
	m.Update(RenderProgress{Percent: 50, Status: "Rendering frame 151/300", Frame: 151, TotalFrames: 300})

	view := m.View()
	for _, want := range []string{"Rendering frame 151/300", "128 BPM", "Dynamic", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_IgnoresProgressBeforeAnalysis(t *testing.T) {
	m := NewModel(true, nil)
	m.Update(RenderProgress{Percent: 10, Frame: 30, TotalFrames: 300})
	if m.render.Frame != 0 {
		t.Errorf("progress accepted during analysis: frame %d", m.render.Frame)
	}
}

func TestDownsampleFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		frame.SetRGBA(0, y, color.RGBA{100, 0, 0, 255})
		frame.SetRGBA(1, y, color.RGBA{200, 0, 0, 255})
		frame.SetRGBA(2, y, color.RGBA{0, 0, 40, 255})
		frame.SetRGBA(3, y, color.RGBA{0, 0, 80, 255})
	}

	got := DownsampleFrame(frame, PreviewConfig{Width: 2, Height: 1})
	if len(got) != 1 || len(got[0]) != 2 {
		t.Fatalf("preview size = %dx%d, want 2x1", len(got[0]), len(got))
	}
	if got[0][0] != (color.RGBA{150, 0, 0, 255}) {
		t.Errorf("left cell = %v, want {150 0 0 255}", got[0][0])
	}
	if got[0][1] != (color.RGBA{0, 0, 60, 255}) {
		t.Errorf("right cell = %v, want {0 0 60 255}", got[0][1])
	}
}

func TestRenderPreview(t *testing.T) {
	if RenderPreview(nil) != "" {
		t.Error("RenderPreview(nil) should be empty")
	}
	out := RenderPreview([][]color.RGBA{{{1, 2, 3, 255}}})
	if !strings.Contains(out, "\x1b[48;2;1;2;3m") {
		t.Errorf("RenderPreview missing truecolor escape: %q", out)
	}
}

func TestRenderSpectrum(t *testing.T) {
	if renderSpectrum(nil, 10) != "" {
		t.Error("empty spectrum should render nothing")
	}
	out := renderSpectrum([]float64{0, 0.25, 1}, 10)
	rows := strings.Split(out, "\n")
	if len(rows) != 2 {
		t.Fatalf("spectrum has %d rows, want 2", len(rows))
	}
}
