package convert

import (
	"path/filepath"
	"strings"
)

// Mode identifies one of the supported batch conversion shapes.
type Mode string

const (
	HeicToJpg           Mode = "heic2jpg"
	HeicToPng           Mode = "heic2png"
	ImagesToPdfMerged   Mode = "img2pdf"
	ImagesToPdfSeparate Mode = "img2pdfs"
	PdfToJpg            Mode = "pdf2jpg"
	PdfToPng            Mode = "pdf2png"
)

// Modes lists all supported modes in a stable order.
func Modes() []Mode {
	return []Mode{HeicToJpg, HeicToPng, ImagesToPdfMerged, ImagesToPdfSeparate, PdfToJpg, PdfToPng}
}

// ParseMode resolves a mode code (case-insensitive). Returns false for
// unknown codes.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes() {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	return "", false
}

// TargetExt returns the extension (without dot) the mode produces.
func (m Mode) TargetExt() string {
	switch m {
	case HeicToJpg, PdfToJpg:
		return "jpg"
	case HeicToPng, PdfToPng:
		return "png"
	case ImagesToPdfMerged, ImagesToPdfSeparate:
		return "pdf"
	}
	return ""
}

// Merged reports whether the mode fans all inputs into one output.
func (m Mode) Merged() bool { return m == ImagesToPdfMerged }

// FansOutPages reports whether the mode produces one output per source page.
func (m Mode) FansOutPages() bool { return m == PdfToJpg || m == PdfToPng }

// Format classifies a source file by extension.
type Format string

const (
	FormatHeic    Format = "heic"
	FormatImage   Format = "image" // JPEG or PNG
	FormatPdf     Format = "pdf"
	FormatUnknown Format = "unknown"
)

// DetectFormat classifies path by its extension. Content sniffing is left to
// the decoding backends, which fail with CorruptSource on mismatch.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return FormatHeic
	case ".jpg", ".jpeg", ".png":
		return FormatImage
	case ".pdf":
		return FormatPdf
	}
	return FormatUnknown
}

// Accepts reports whether the mode can consume a source of the given format.
func (m Mode) Accepts(f Format) bool {
	switch m {
	case HeicToJpg, HeicToPng:
		return f == FormatHeic
	case ImagesToPdfMerged, ImagesToPdfSeparate:
		return f == FormatImage
	case PdfToJpg, PdfToPng:
		return f == FormatPdf
	}
	return false
}

// SupportedExt reports whether path carries any extension the pipeline
// understands at all.
func SupportedExt(path string) bool {
	return DetectFormat(path) != FormatUnknown
}
