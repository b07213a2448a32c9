package config

// Video settings
const (
	Width  = 1280
	Height = 720
	FPS    = 30

	// DefaultBitrate is the target video bitrate in bits per second
	DefaultBitrate = 5_000_000

	// MediaType tags the encoded artifact
	MediaType = "video/webm"
)

// Analysis settings
const (
	// PeakThreshold is the normalised amplitude a sample must exceed to count as a peak
	PeakThreshold = 0.5

	// DynamicTempoThreshold is the BPM above which the dynamic template is used (exclusive)
	DynamicTempoThreshold = 100.0

	// SpectrumSize is the FFT window used for the analysis preview
	SpectrumSize = 2048
	// SpectrumBars is the number of bars shown in the analysis preview
	SpectrumBars = 32
)

// Layout settings
const (
	Padding       = 10   // Gap in pixels between and around grid cells
	EmphasisScale = 1.05 // Scale of the slot emphasised on a beat

	DynamicCols = 3
	DynamicRows = 2
	StaticCols  = 2
	StaticRows  = 2
)

// Image input limits applied to every reference the CLI decodes
const (
	MaxImageBytes  = 64 << 20 // Encoded size of a single image
	MaxImagePixels = 50_000_000
)

// Trim window settings used by the CLI
const (
	MinTrimSeconds     = 10.0
	DefaultTrimSeconds = 60.0
)

// Appearance
const (
	// Canvas background, cleared before every frame
	BackgroundColorR = 0
	BackgroundColorG = 0
	BackgroundColorB = 0

	// Poster caption colour
	// Brand yellow #F8B31D
	CaptionColorR = 248
	CaptionColorG = 179
	CaptionColorB = 29

	// Poster layout
	ThumbnailMargin              = 30  // Margin in pixels from edges for caption text
	ThumbnailTextRotationDegrees = 3.0 // Rotation angle for caption text (degrees, clockwise)
)
