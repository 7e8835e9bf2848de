package convert

import (
	"context"
	"fmt"
)

// Request describes one unit of backend work: one or more inputs, a final
// output path, and (for PDF fan-out) the 0-based page to rasterize.
type Request struct {
	Inputs []string
	Output string
	Mode   Mode
	Page   int // 0-based source page; -1 when not applicable
}

// Converter is the capability the pipeline drives. Implementations must be
// safe for concurrent calls with different requests, must honor ctx, and
// must not leave a partial file at Output on failure.
type Converter interface {
	Convert(ctx context.Context, req Request, opts Options) error
}

// ConvertFunc adapts a function to the Converter interface.
type ConvertFunc func(ctx context.Context, req Request, opts Options) error

func (f ConvertFunc) Convert(ctx context.Context, req Request, opts Options) error {
	return f(ctx, req, opts)
}

// Registry maps each mode to its backend. The set is closed: every mode is
// bound at construction and unknown modes are an error, keeping the
// scheduler backend-agnostic.
type Registry struct {
	backends map[Mode]Converter
}

// NewRegistry binds the real backends for all modes.
func NewRegistry() *Registry {
	heic := &heicBackend{}
	compose := &pdfComposeBackend{}
	raster := &pdfRasterBackend{}
	return &Registry{backends: map[Mode]Converter{
		HeicToJpg:           heic,
		HeicToPng:           heic,
		ImagesToPdfMerged:   compose,
		ImagesToPdfSeparate: compose,
		PdfToJpg:            raster,
		PdfToPng:            raster,
	}}
}

// NewRegistryWith builds a registry from an explicit mode→backend table.
// Intended for tests injecting fakes.
func NewRegistryWith(backends map[Mode]Converter) *Registry {
	return &Registry{backends: backends}
}

// ForMode selects the backend bound to mode.
func (r *Registry) ForMode(mode Mode) (Converter, error) {
	c, ok := r.backends[mode]
	if !ok {
		return nil, fmt.Errorf("no backend for mode %q", mode)
	}
	return c, nil
}

// Convert dispatches req to the backend bound to req.Mode.
func (r *Registry) Convert(ctx context.Context, req Request, opts Options) error {
	c, err := r.ForMode(req.Mode)
	if err != nil {
		return NewCapabilityError("backend dispatch", err)
	}
	return c.Convert(ctx, req, opts)
}
