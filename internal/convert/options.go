package convert

// PageSize selects the page geometry for images→PDF composition.
type PageSize string

const (
	PageA4     PageSize = "a4"
	PageLetter PageSize = "letter"
	PageFit    PageSize = "fit" // page sized to each image
)

// FitMode controls how an image is laid out inside a fixed page box.
type FitMode string

const (
	FitContain FitMode = "contain"
	FitCover   FitMode = "cover"
	FitStretch FitMode = "stretch"
)

// OverwritePolicy decides what happens when a resolved output path collides
// with existing disk content or another item of the same batch.
type OverwritePolicy string

const (
	PolicySkip       OverwritePolicy = "skip"
	PolicyAutoRename OverwritePolicy = "auto-rename"
	PolicyOverwrite  OverwritePolicy = "overwrite"
)

// Margins are page margins in millimetres.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// Options is the immutable per-batch configuration bag. Callers build it
// once (typically from config defaults plus flag overrides) and pass it by
// value; deep components never read global state.
type Options struct {
	ExifOrientation bool
	JpgQuality      int
	DPI             int
	PageSize        PageSize
	Fit             FitMode
	Margins         Margins
	NamingPattern   string
	OverwritePolicy OverwritePolicy
	MaxConcurrency  int
	PageRange       string
	OutputDir       string
}

const (
	defaultJpgQuality     = 90
	defaultDPI            = 200
	defaultMaxConcurrency = 3
	defaultNamingPattern  = "{name}_{mode}"
)

// DefaultOptions mirrors the defaults of the settings store.
func DefaultOptions() Options {
	return Options{
		ExifOrientation: true,
		JpgQuality:      defaultJpgQuality,
		DPI:             defaultDPI,
		PageSize:        PageFit,
		Fit:             FitContain,
		NamingPattern:   defaultNamingPattern,
		OverwritePolicy: PolicyAutoRename,
		MaxConcurrency:  defaultMaxConcurrency,
	}
}

// Normalize clamps out-of-range fields to usable values and returns the
// result. The zero value of any field falls back to its default.
func (o Options) Normalize() Options {
	if o.JpgQuality < 1 || o.JpgQuality > 100 {
		o.JpgQuality = defaultJpgQuality
	}
	if o.DPI <= 0 {
		o.DPI = defaultDPI
	}
	if o.PageSize == "" {
		o.PageSize = PageFit
	}
	if o.Fit == "" {
		o.Fit = FitContain
	}
	if o.NamingPattern == "" {
		o.NamingPattern = defaultNamingPattern
	}
	if o.OverwritePolicy == "" {
		o.OverwritePolicy = PolicyAutoRename
	}
	if o.MaxConcurrency < 1 {
		o.MaxConcurrency = defaultMaxConcurrency
	}
	if o.Margins.Top < 0 {
		o.Margins.Top = 0
	}
	if o.Margins.Right < 0 {
		o.Margins.Right = 0
	}
	if o.Margins.Bottom < 0 {
		o.Margins.Bottom = 0
	}
	if o.Margins.Left < 0 {
		o.Margins.Left = 0
	}
	return o
}
