package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Title is the application name as shown in banners
const Title = "beatreel ♫"

// Tagline describes the application in one line
const Tagline = "Cut your photos to the beat of a track and spin them into a WebM slideshow."

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(PulsePink)
	labelStyle  = lipgloss.NewStyle().Foreground(SoftGray)
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(PulsePink)
	noticeStyle = lipgloss.NewStyle().Bold(true).Foreground(PulseAmber)
)

// PrintVersion prints the banner and version
func PrintVersion(version string) {
	fmt.Println(bannerStyle.Render(Title))
	fmt.Printf("%s %s\n\n", labelStyle.Render("Version:"), valueStyle.Render(version))
}

// PrintError writes an error line to stderr
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("Error:"), message)
}

// PrintWarning writes a warning line to stderr
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", noticeStyle.Render("Warning:"), message)
}

// FormatDuration renders sub-second durations in milliseconds, otherwise
// in tenths of a second
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatBytes formats a size using binary units
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
