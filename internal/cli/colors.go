package cli

import "github.com/charmbracelet/lipgloss"

// Pulse colour palette
// Shared beat theme colours for consistent branding across CLI and TUI
var (
	// Core pulse colours (cool to hot)
	PulseViolet = lipgloss.Color("#8A2BE2") // Blue violet
	PulsePink   = lipgloss.Color("#FF2E88") // Hot pink
	PulseAmber  = lipgloss.Color("#F8B31D") // Brand yellow
	PulseCyan   = lipgloss.Color("#00D7FF") // Neon cyan

	// Accent colours
	SoftGray = lipgloss.Color("#9A8FB0") // Muted lavender for subtle text
)
